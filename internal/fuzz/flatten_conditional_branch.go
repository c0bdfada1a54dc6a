package fuzz

import "github.com/stefanomil/SPIRV-Tools/internal/ir"

// FlattenConditionalBranch converts a structured if/else into straight-line
// code, so later passes can treat the region as branch-free. Side-effecting
// instructions inside the region are preserved by wrapping each one in a
// fresh conditional keyed on the original condition, so it still executes
// only on its original path.
type FlattenConditionalBranch struct {
	HeaderBlockID ir.ID `json:"header_block_id"`
	// InstructionFreshIDs maps region instructions that need fresh ids to
	// explicit per-instruction lists. Instructions without an entry draw
	// from OverflowIDs instead.
	InstructionFreshIDs []InstructionFreshIDs `json:"instruction_fresh_ids,omitempty"`
	OverflowIDs         []ir.ID               `json:"overflow_ids,omitempty"`
}

// InstructionFreshIDs pairs an instruction descriptor with the fresh ids
// reserved for it.
type InstructionFreshIDs struct {
	Instruction InstructionDescriptor `json:"instruction"`
	FreshIDs    []ir.ID               `json:"fresh_ids"`
}

// NumFreshIDsNeededByInstruction returns how many fresh ids flattening needs
// for one side-effecting instruction: two block labels for a void result
// (pre-split and post-split), plus an alternate-path block label, a renamed
// result id and an undef placeholder when the result is non-void.
func NumFreshIDsNeededByInstruction(m *ir.Module, inst *ir.Instruction) int {
	if inst.Result != 0 && !m.TypeIsVoid(inst.Type) {
		return 5
	}
	return 2
}

// instructionCanBeHandled reports whether flattening can cope with inst
// inside the region. Barriers and instructions that must stay in the same
// block as their use are out; so are side-effecting void-result instructions
// whose result is referenced elsewhere, since a placeholder value cannot be
// synthesized for a void type.
func instructionCanBeHandled(m *ir.Module, inst *ir.Instruction) bool {
	if inst.Opcode.HasNoSideEffects() {
		return true
	}
	switch inst.Opcode {
	case ir.OpControlBarrier, ir.OpMemoryBarrier:
		return false
	case ir.OpSampledImage:
		return false
	}
	if inst.Result != 0 && m.TypeIsVoid(inst.Type) && len(m.Uses(inst.Result)) > 0 {
		return false
	}
	return true
}

// ConditionalCanBeFlattened checks the structural preconditions on a
// selection header: the region below it up to the convergence point must be
// single-entry single-exit, contain no nested constructs, branch only
// unconditionally, and hold only handleable instructions. Side-effecting
// instructions that will need fresh ids are appended to needIDs in
// deterministic traversal order.
func ConditionalCanBeFlattened(m *ir.Module, fn *ir.Function, header *ir.Block, needIDs *[]*ir.Instruction) bool {
	if !ir.IsSelectionHeader(header) {
		return false
	}

	// Walk single-predecessor chains up from the merge block to the first
	// block where flow actually converges. Reaching the header means only
	// one arm feeds the merge block, so the region is not single-entry
	// single-exit.
	convergence := header.Merge.MergeBlock
	for len(m.Preds(fn, convergence)) == 1 {
		if convergence == header.Label {
			return false
		}
		convergence = m.Preds(fn, convergence)[0]
	}

	dom := m.Dominators(fn)
	if !dom.Dominates(header.Label, convergence) ||
		!m.PostDominates(fn, convergence, header.Label) {
		return false
	}

	visited := map[ir.ID]bool{}
	queue := append([]ir.ID{}, ir.BlockSuccessors(header)...)
	for len(queue) > 0 {
		blockID := queue[0]
		queue = queue[1:]
		if blockID == convergence || visited[blockID] {
			continue
		}
		visited[blockID] = true

		_, block := m.BlockByLabel(blockID)
		if block.Merge != nil {
			// Nested constructs are not allowed in the region.
			return false
		}
		for _, inst := range block.Instructions {
			if inst.Opcode.IsBranch() {
				if inst.Opcode != ir.OpBranch {
					return false
				}
				continue
			}
			if inst.Opcode.IsTerminator() {
				return false
			}
			if !instructionCanBeHandled(m, inst) {
				return false
			}
			if !inst.Opcode.HasNoSideEffects() {
				*needIDs = append(*needIDs, inst)
			}
		}
		queue = append(queue, block.Terminator().Operands[0])
	}
	return true
}

func (t *FlattenConditionalBranch) freshIDMapping(m *ir.Module) map[*ir.Instruction][]ir.ID {
	mapping := make(map[*ir.Instruction][]ir.ID, len(t.InstructionFreshIDs))
	for _, entry := range t.InstructionFreshIDs {
		if _, _, _, inst, ok := FindInstruction(m, entry.Instruction); ok {
			mapping[inst] = entry.FreshIDs
		}
	}
	return mapping
}

// IsApplicable checks that the header names a flattenable conditional, that
// every supplied id is fresh and instance-unique, and that the explicit
// lists plus the overflow pool cover every instruction that needs ids.
func (t *FlattenConditionalBranch) IsApplicable(m *ir.Module, ctx *Context) bool {
	fn, header := m.BlockByLabel(t.HeaderBlockID)
	if header == nil {
		return false
	}

	var needIDs []*ir.Instruction
	if !ConditionalCanBeFlattened(m, fn, header, &needIDs) {
		return false
	}

	used := map[ir.ID]bool{}
	for _, id := range t.OverflowIDs {
		if !checkIDIsFreshAndUnused(m, id, used) {
			return false
		}
	}
	mapping := t.freshIDMapping(m)
	for _, ids := range mapping {
		for _, id := range ids {
			if !checkIDIsFreshAndUnused(m, id, used) {
				return false
			}
		}
	}

	remainingOverflow := len(t.OverflowIDs)
	for _, inst := range needIDs {
		needed := NumFreshIDsNeededByInstruction(m, inst)
		if ids, ok := mapping[inst]; ok {
			if len(ids) < needed {
				return false
			}
			continue
		}
		remainingOverflow -= needed
		if remainingOverflow < 0 {
			return false
		}
	}
	return true
}

// Apply relocates both arms after the header (false arm first, so the true
// arm lands immediately after the header), encloses each side-effecting
// instruction in a fresh conditional, then straightens the header and turns
// the convergence point's value-merges into selects over the original
// condition.
func (t *FlattenConditionalBranch) Apply(m *ir.Module, ctx *Context) {
	fn, header := m.BlockByLabel(t.HeaderBlockID)

	convergence := header.Merge.MergeBlock
	for len(m.Preds(fn, convergence)) == 1 {
		convergence = m.Preds(fn, convergence)[0]
	}

	mapping := t.freshIDMapping(m)
	overflowUsed := 0
	branchInst := header.Terminator()
	conditionID := branchInst.Operands[0]
	firstTrueBlockID := branchInst.Operands[1]
	firstFalseBlockID := branchInst.Operands[2]

	var lastTrueBlock *ir.Block

	// arm 2 is the false arm; processing it first leaves the true arm laid
	// out right after the header.
	for arm := 2; arm >= 1; arm-- {
		block := header
		blockID := branchInst.Operands[arm]
		for blockID != convergence {
			m.MoveBlockAfter(fn, blockID, block.Label)
			_, block = m.BlockByLabel(blockID)
			blockID = block.Terminator().Operands[0]

			var problematic []*ir.Instruction
			for _, inst := range block.Instructions {
				if inst.Opcode != ir.OpBranch && !inst.Opcode.HasNoSideEffects() {
					problematic = append(problematic, inst)
				}
			}
			for _, inst := range problematic {
				freshIDs := mapping[inst]
				if len(freshIDs) == 0 {
					needed := NumFreshIDsNeededByInstruction(m, inst)
					for i := 0; i < needed; i++ {
						freshIDs = append(freshIDs, t.OverflowIDs[overflowUsed])
						overflowUsed++
					}
				}
				block = t.encloseInConditional(m, ctx, fn, block, inst, freshIDs, conditionID, arm == 1)
			}
			if blockID == convergence && arm == 1 {
				lastTrueBlock = block
			}
		}
	}

	// Straighten the header: drop the merge marker and the conditional,
	// branch unconditionally into whichever arm has content.
	afterHeader := firstTrueBlockID
	if firstTrueBlockID == convergence {
		afterHeader = firstFalseBlockID
	}
	m.RemoveTerminator(header)
	m.RemoveMergeMarker(header)
	m.AddInstruction(header, &ir.Instruction{
		Opcode:   ir.OpBranch,
		Operands: []ir.ID{afterHeader},
	})

	// Chain the end of the true arm into the start of the false arm.
	if lastTrueBlock != nil {
		m.SetOperand(lastTrueBlock.Terminator(), 0, firstFalseBlockID)
	}

	// Control flow no longer diverges at the convergence point: every
	// value-merge there becomes a direct two-way select on the original
	// condition.
	_, convergenceBlock := m.BlockByLabel(convergence)
	for _, inst := range convergenceBlock.Instructions {
		if inst.Opcode != ir.OpPhi {
			continue
		}
		operands := []ir.ID{conditionID}
		for i := 0; i < len(inst.Operands); i += 2 {
			operands = append(operands, inst.Operands[i])
		}
		inst.Opcode = ir.OpSelect
		inst.Operands = operands
	}

	m.InvalidateAnalyses()
}

// encloseInConditional splits block around inst so that inst sits alone in
// its own block, then guards that block with a two-way branch on the
// original condition. When the instruction's result is used later, a
// companion block provides an explicitly-undefined placeholder of the same
// type and a value-merge in the new merge block reconciles the two paths
// under the instruction's original result id.
func (t *FlattenConditionalBranch) encloseInConditional(m *ir.Module, ctx *Context, fn *ir.Function, block *ir.Block, inst *ir.Instruction, freshIDs []ir.ID, conditionID ir.ID, execIfTrue bool) *ir.Block {
	instIdx := -1
	for i, candidate := range block.Instructions {
		if candidate == inst {
			instIdx = i
			break
		}
	}

	executeBlock := m.SplitBlock(fn, block, instIdx, freshIDs[0])
	mergeBlock := m.SplitBlock(fn, executeBlock, 1, freshIDs[1])

	if ctx.Facts.BlockIsDead(block.Label) {
		ctx.Facts.AddFactBlockIsDead(executeBlock.Label)
		ctx.Facts.AddFactBlockIsDead(mergeBlock.Label)
	}

	alternativeBlock := mergeBlock
	m.AddInstruction(executeBlock, &ir.Instruction{
		Opcode:   ir.OpBranch,
		Operands: []ir.ID{mergeBlock.Label},
	})

	if NumFreshIDsNeededByInstruction(m, inst) == 5 {
		originalResult := inst.Result
		inst.Result = freshIDs[3]
		m.ReserveID(freshIDs[3])

		alt := &ir.Block{Label: freshIDs[2]}
		alt.Instructions = append(alt.Instructions,
			&ir.Instruction{Opcode: ir.OpUndef, Type: inst.Type, Result: freshIDs[4]},
			&ir.Instruction{Opcode: ir.OpBranch, Operands: []ir.ID{mergeBlock.Label}},
		)
		m.ReserveID(freshIDs[4])
		m.InsertBlockBefore(fn, alt, mergeBlock.Label)
		alternativeBlock = alt

		m.InsertInstructionAt(mergeBlock, 0, &ir.Instruction{
			Opcode:  ir.OpPhi,
			Type:    inst.Type,
			Result:  originalResult,
			Operands: []ir.ID{
				freshIDs[3], executeBlock.Label,
				freshIDs[4], alternativeBlock.Label,
			},
		})

		if ctx.Facts.BlockIsDead(block.Label) {
			ctx.Facts.AddFactBlockIsDead(alternativeBlock.Label)
		}
	}

	ifBlock, elseBlock := executeBlock.Label, alternativeBlock.Label
	if !execIfTrue {
		ifBlock, elseBlock = elseBlock, ifBlock
	}
	block.Merge = &ir.Merge{Kind: ir.SelectionMerge, MergeBlock: mergeBlock.Label}
	m.AddInstruction(block, &ir.Instruction{
		Opcode:   ir.OpBranchConditional,
		Operands: []ir.ID{conditionID, ifBlock, elseBlock},
	})
	return mergeBlock
}

// ToMessage returns the replayable record for this transformation.
func (t *FlattenConditionalBranch) ToMessage() Message {
	return Message{Kind: KindFlattenConditionalBranch, FlattenConditionalBranch: t}
}
