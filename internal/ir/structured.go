package ir

// Structured-control-flow classification. These queries are derived from the
// merge markers on header blocks combined with dominance; nothing is cached
// beyond the underlying dominator trees.

// IsMergeBlock reports whether the block labelled id is named as the merge
// target of any selection or loop header in fn.
func (m *Module) IsMergeBlock(fn *Function, id ID) bool {
	for _, b := range fn.Blocks {
		if b.Merge != nil && b.Merge.MergeBlock == id {
			return true
		}
	}
	return false
}

// blockInLoop reports whether the block labelled id lies inside the loop
// construct headed by header. The construct contains every block dominated
// by the header that the loop's merge block does not dominate; the header
// itself is part of its own construct, the merge block is not.
func (m *Module) blockInLoop(fn *Function, header *Block, id ID) bool {
	dom := m.Dominators(fn)
	return dom.Dominates(header.Label, id) &&
		!dom.Dominates(header.Merge.MergeBlock, id)
}

// LoopMergeBlock returns the merge block of the innermost loop enclosing the
// block labelled id, or zero if no loop encloses it.
func (m *Module) LoopMergeBlock(fn *Function, id ID) ID {
	dom := m.Dominators(fn)
	var innermost *Block
	for _, b := range fn.Blocks {
		if b.Merge == nil || b.Merge.Kind != LoopMerge {
			continue
		}
		if !m.blockInLoop(fn, b, id) {
			continue
		}
		// Of two enclosing loops, the inner one's header is dominated by
		// the outer one's.
		if innermost == nil || dom.StrictlyDominates(innermost.Label, b.Label) {
			innermost = b
		}
	}
	if innermost == nil {
		return 0
	}
	return innermost.Merge.MergeBlock
}

// LoopNestingDepth returns the number of loop constructs enclosing the block
// labelled id. Merge blocks of inner loops report a greater depth than those
// of the loops that enclose them, which gives the deepest-first processing
// order return merging relies on.
func (m *Module) LoopNestingDepth(fn *Function, id ID) int {
	depth := 0
	for _, b := range fn.Blocks {
		if b.Merge != nil && b.Merge.Kind == LoopMerge && m.blockInLoop(fn, b, id) {
			depth++
		}
	}
	return depth
}

// IsSelectionHeader reports whether b is a selection header with a two-way
// conditional terminator.
func IsSelectionHeader(b *Block) bool {
	term := b.Terminator()
	return b.Merge != nil && b.Merge.Kind == SelectionMerge &&
		term != nil && term.Opcode == OpBranchConditional
}
