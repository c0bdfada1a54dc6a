package fuzz

import (
	"sort"

	"github.com/stefanomil/SPIRV-Tools/internal/ir"
)

// MergeFunctionReturns collapses every early return of a function into one
// tail return. The body is wrapped in a synthetic one-iteration outer loop;
// each return becomes a branch to its innermost enclosing loop's merge block
// (or straight to the new outer exit), and an is-returning boolean plus, for
// non-void functions, a return-value placeholder are threaded outward through
// every loop merge block in between via value-merge accumulation.
type MergeFunctionReturns struct {
	FunctionID    ir.ID `json:"function_id"`
	OuterHeaderID ir.ID `json:"outer_header_id"`
	OuterReturnID ir.ID `json:"outer_return_id"`
	// ReturnValID is the fresh id for the final value merge in the new exit
	// block. Zero for void functions.
	ReturnValID ir.ID `json:"return_val_id,omitempty"`
	// AnyReturnableValID is a caller-chosen id of the function's return type,
	// available after the entry block, used as a placeholder on paths that
	// are not returning. Zero lets Apply pick any suitable id itself.
	AnyReturnableValID ir.ID               `json:"any_returnable_val_id,omitempty"`
	ReturnMergingInfo  []ReturnMergingInfo `json:"return_merging_info,omitempty"`
}

// ReturnMergingInfo carries the fresh ids and phi placeholders for one loop
// merge block the returning paths thread through. Merge blocks without an
// entry draw their ids from the overflow source instead.
type ReturnMergingInfo struct {
	MergeBlockID  ir.ID `json:"merge_block_id"`
	IsReturningID ir.ID `json:"is_returning_id"`
	// MaybeReturnValID is zero for void functions.
	MaybeReturnValID ir.ID `json:"maybe_return_val_id,omitempty"`
	// PhiToSuitableID maps each existing value-merge in the block to a
	// same-typed id used as its placeholder on the new incoming edges.
	PhiToSuitableID []IDPair `json:"phi_to_suitable_id,omitempty"`
}

// reachableReturnBlocks returns the labels of blocks reachable from fn's
// entry whose terminator is a return, in layout order.
func reachableReturnBlocks(m *ir.Module, fn *ir.Function) []ir.ID {
	reachable := map[ir.ID]bool{fn.Entry().Label: true}
	queue := []ir.ID{fn.Entry().Label}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, s := range m.Succs(fn, id) {
			if !reachable[s] {
				reachable[s] = true
				queue = append(queue, s)
			}
		}
	}
	var out []ir.ID
	for _, b := range fn.Blocks {
		if !reachable[b.Label] {
			continue
		}
		if term := b.Terminator(); term != nil &&
			(term.Opcode == ir.OpReturn || term.Opcode == ir.OpReturnValue) {
			out = append(out, b.Label)
		}
	}
	return out
}

// typesToIDAvailableAfterEntry maps each type for which some id is usable at
// the end of fn's entry block to one such id: the first matching global,
// parameter or entry-block result.
func typesToIDAvailableAfterEntry(m *ir.Module, fn *ir.Function) map[ir.ID]ir.ID {
	result := make(map[ir.ID]ir.ID)
	consider := func(inst *ir.Instruction) {
		if inst.Result == 0 || inst.Type == 0 {
			return
		}
		if _, ok := result[inst.Type]; !ok {
			result[inst.Type] = inst.Result
		}
	}
	for _, g := range m.Globals {
		consider(g)
	}
	for _, p := range fn.Params {
		consider(p)
	}
	for _, inst := range fn.Entry().Instructions {
		consider(inst)
	}
	return result
}

// relevantMergeBlocks returns the merge blocks of every loop lying between a
// reachable return and the function exit, found by walking the
// enclosing-loop-merge chain outward from each return block.
func relevantMergeBlocks(m *ir.Module, fn *ir.Function, returnBlocks []ir.ID) map[ir.ID]bool {
	merges := make(map[ir.ID]bool)
	for _, block := range returnBlocks {
		for mb := m.LoopMergeBlock(fn, block); mb != 0 && !merges[mb]; mb = m.LoopMergeBlock(fn, mb) {
			merges[mb] = true
		}
	}
	return merges
}

func (t *MergeFunctionReturns) infoByMergeBlock() map[ir.ID]*ReturnMergingInfo {
	out := make(map[ir.ID]*ReturnMergingInfo, len(t.ReturnMergingInfo))
	for i := range t.ReturnMergingInfo {
		out[t.ReturnMergingInfo[i].MergeBlockID] = &t.ReturnMergingInfo[i]
	}
	return out
}

func sortedIDs[V any](m map[ir.ID]V) []ir.ID {
	ids := make([]ir.ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsApplicable checks the structural preconditions: the entry ends in an
// unconditional branch, a same-typed returnable value is obtainable for
// non-void functions, every relevant loop merge block holds only value-merges
// and an unconditional branch, boolean constants exist, and every claimed
// fresh id is genuinely fresh and mutually distinct, with the overflow source
// covering merge blocks that lack an explicit info entry.
func (t *MergeFunctionReturns) IsApplicable(m *ir.Module, ctx *Context) bool {
	fn := m.FunctionByID(t.FunctionID)
	if fn == nil {
		return false
	}
	entry := fn.Entry()
	if term := entry.Terminator(); term == nil || term.Opcode != ir.OpBranch {
		return false
	}

	available := typesToIDAvailableAfterEntry(m, fn)
	voidReturn := m.TypeIsVoid(fn.Type)
	if !voidReturn {
		if !m.IsDefined(t.AnyReturnableValID) {
			if _, ok := available[fn.Type]; !ok {
				return false
			}
		} else if m.TypeOf(t.AnyReturnableValID) != fn.Type {
			return false
		} else if !m.IDIsAvailableBefore(fn, entry, len(entry.Instructions)-1, t.AnyReturnableValID) {
			return false
		}
	}

	returnBlocks := reachableReturnBlocks(m, fn)
	merges := relevantMergeBlocks(m, fn, returnBlocks)

	for mb := range merges {
		_, block := m.BlockByLabel(mb)
		for _, inst := range block.Instructions {
			if inst.Opcode != ir.OpPhi && inst.Opcode != ir.OpBranch {
				return false
			}
		}
	}

	if m.BoolConstant(true) == 0 || m.BoolConstant(false) == 0 {
		return false
	}

	used := map[ir.ID]bool{}
	for _, id := range []ir.ID{t.OuterHeaderID, t.OuterReturnID} {
		if !checkIDIsFreshAndUnused(m, id, used) {
			return false
		}
	}
	if !voidReturn && !checkIDIsFreshAndUnused(m, t.ReturnValID, used) {
		return false
	}

	infos := t.infoByMergeBlock()
	for _, mb := range sortedIDs(merges) {
		phiToID := map[ir.ID]ir.ID{}
		if info, ok := infos[mb]; ok {
			if !checkIDIsFreshAndUnused(m, info.IsReturningID, used) {
				return false
			}
			if !voidReturn && !checkIDIsFreshAndUnused(m, info.MaybeReturnValID, used) {
				return false
			}
			for _, pair := range info.PhiToSuitableID {
				phiToID[pair.First] = pair.Second
			}
		} else if !ctx.Overflow.HasOverflowIDs() {
			return false
		}

		_, block := m.BlockByLabel(mb)
		for idx, inst := range block.Instructions {
			if inst.Opcode != ir.OpPhi {
				break
			}
			if placeholder, ok := phiToID[inst.Result]; ok && m.IsDefined(placeholder) {
				if m.TypeOf(placeholder) != inst.Type {
					return false
				}
				if !m.IDIsAvailableBefore(fn, block, idx, placeholder) {
					return false
				}
				continue
			}
			if _, ok := available[inst.Type]; !ok {
				return false
			}
		}
	}
	return true
}

// retInfo records, for one returning predecessor of a merge block, the value
// it would return and the id (or true constant) saying whether it returns.
type retInfo struct {
	val         ir.ID
	isReturning ir.ID
}

// Apply rewrites the returns and threads the returning state outward. Merge
// blocks are processed deepest-first so that by the time an outer merge block
// is adjusted, every inner one has already published its accumulated state.
func (t *MergeFunctionReturns) Apply(m *ir.Module, ctx *Context) {
	fn := m.FunctionByID(t.FunctionID)
	voidReturn := m.TypeIsVoid(fn.Type)
	available := typesToIDAvailableAfterEntry(m, fn)

	// Claim every explicit fresh id up front, so ids minted from the
	// overflow source cannot collide with them.
	m.ReserveID(t.OuterHeaderID)
	m.ReserveID(t.OuterReturnID)
	m.ReserveID(t.ReturnValID)
	for _, info := range t.ReturnMergingInfo {
		m.ReserveID(info.IsReturningID)
		m.ReserveID(info.MaybeReturnValID)
	}

	returnableValID := ir.ID(0)
	if !voidReturn {
		if m.IsDefined(t.AnyReturnableValID) {
			returnableValID = t.AnyReturnableValID
		} else {
			returnableValID = available[fn.Type]
		}
	}

	boolType := m.BoolType()
	constantTrue := m.BoolConstant(true)
	constantFalse := m.BoolConstant(false)

	returnBlocks := reachableReturnBlocks(m, fn)

	// Capture the loop structure before any terminator changes: the innermost
	// enclosing merge of every return block and relevant merge block, and the
	// nesting depth ordering.
	merges := relevantMergeBlocks(m, fn, returnBlocks)
	enclosingMerge := make(map[ir.ID]ir.ID)
	depth := make(map[ir.ID]int)
	for _, block := range returnBlocks {
		enclosingMerge[block] = m.LoopMergeBlock(fn, block)
	}
	for mb := range merges {
		enclosingMerge[mb] = m.LoopMergeBlock(fn, mb)
		depth[mb] = m.LoopNestingDepth(fn, mb)
	}

	// Returning predecessors accumulated per merge block, and the
	// predecessors of the new outer exit with their return values.
	returningPreds := make(map[ir.ID]map[ir.ID]retInfo)
	for mb := range merges {
		returningPreds[mb] = make(map[ir.ID]retInfo)
	}
	outerMergePreds := make(map[ir.ID]ir.ID)

	// Predecessor sets captured before any terminator changes. The value-merge
	// extension below treats every returning predecessor not in here as a new
	// incoming edge.
	originalPreds := make(map[ir.ID]map[ir.ID]bool)
	for mb := range merges {
		preds := make(map[ir.ID]bool)
		for _, p := range m.Preds(fn, mb) {
			preds[p] = true
		}
		originalPreds[mb] = preds
	}

	// Replace each return with a branch to the innermost enclosing loop's
	// merge block, or to the new outer exit when unenclosed.
	for _, blockID := range returnBlocks {
		_, block := m.BlockByLabel(blockID)
		term := block.Terminator()
		retVal := ir.ID(0)
		if term.Opcode == ir.OpReturnValue {
			retVal = term.Operands[0]
		}
		target := enclosingMerge[blockID]
		if target != 0 {
			returningPreds[target][blockID] = retInfo{val: retVal, isReturning: constantTrue}
		} else {
			target = t.OuterReturnID
			outerMergePreds[blockID] = retVal
		}
		term.Opcode = ir.OpBranch
		term.Operands = []ir.ID{target}
	}
	m.InvalidateAnalyses()

	mergeOrder := sortedIDs(merges)
	sort.SliceStable(mergeOrder, func(i, j int) bool {
		return depth[mergeOrder[i]] > depth[mergeOrder[j]]
	})

	infos := t.infoByMergeBlock()
	for _, mbID := range mergeOrder {
		info := infos[mbID]

		isReturningID := ir.ID(0)
		maybeReturnValID := ir.ID(0)
		if info != nil {
			isReturningID = info.IsReturningID
			maybeReturnValID = info.MaybeReturnValID
		} else {
			isReturningID = ctx.Overflow.NextOverflowID()
			if !voidReturn {
				maybeReturnValID = ctx.Overflow.NextOverflowID()
			}
		}

		phiToID := map[ir.ID]ir.ID{}
		if info != nil {
			for _, pair := range info.PhiToSuitableID {
				phiToID[pair.First] = pair.Second
			}
		}

		returning := returningPreds[mbID]
		_, block := m.BlockByLabel(mbID)
		origPreds := originalPreds[mbID]

		// Extend existing value-merges with placeholder values on every new
		// incoming edge.
		for idx := 0; idx < len(block.Instructions); idx++ {
			inst := block.Instructions[idx]
			if inst.Opcode != ir.OpPhi {
				break
			}
			placeholder, ok := phiToID[inst.Result]
			if !ok {
				placeholder = available[inst.Type]
			}
			for _, pred := range sortedIDs(returning) {
				if !origPreds[pred] {
					inst.Operands = append(inst.Operands, placeholder, pred)
				}
			}
		}

		// Accumulate the return value from the returning predecessors, using
		// the returnable placeholder on the non-returning edges.
		if !voidReturn {
			var operands []ir.ID
			for _, pred := range sortedIDs(returning) {
				operands = append(operands, returning[pred].val, pred)
			}
			for _, pred := range sortedIDs(origPreds) {
				if _, ok := returning[pred]; !ok {
					operands = append(operands, returnableValID, pred)
				}
			}
			m.InsertInstructionAt(block, 0, &ir.Instruction{
				Opcode:   ir.OpPhi,
				Type:     fn.Type,
				Result:   maybeReturnValID,
				Operands: operands,
			})
		}

		// Accumulate whether the function is returning.
		{
			var operands []ir.ID
			for _, pred := range sortedIDs(returning) {
				operands = append(operands, returning[pred].isReturning, pred)
			}
			for _, pred := range sortedIDs(origPreds) {
				if _, ok := returning[pred]; !ok {
					operands = append(operands, constantFalse, pred)
				}
			}
			m.InsertInstructionAt(block, 0, &ir.Instruction{
				Opcode:   ir.OpPhi,
				Type:     boolType,
				Result:   isReturningID,
				Operands: operands,
			})
		}

		// Publish this block's accumulated state to the next enclosing scope.
		enclosing := enclosingMerge[mbID]
		if enclosing == 0 {
			enclosing = t.OuterReturnID
			outerMergePreds[mbID] = maybeReturnValID
		} else {
			returningPreds[enclosing][mbID] = retInfo{val: maybeReturnValID, isReturning: isReturningID}
		}

		term := block.Terminator()
		originalSucc := term.Operands[0]
		if originalSucc == enclosing {
			continue
		}
		term.Opcode = ir.OpBranchConditional
		term.Operands = []ir.ID{isReturningID, enclosing, originalSucc}
		m.InvalidateAnalyses()
	}

	// Wrap the body in the one-iteration outer loop. The header is its own
	// continue target, and the back edge is never traversed because the
	// branch condition is constant true.
	entry := fn.Entry()
	blockAfterEntry := entry.Terminator().Operands[0]
	header := &ir.Block{
		Label: t.OuterHeaderID,
		Merge: &ir.Merge{
			Kind:           ir.LoopMerge,
			MergeBlock:     t.OuterReturnID,
			ContinueTarget: t.OuterHeaderID,
		},
	}
	header.Instructions = append(header.Instructions, &ir.Instruction{
		Opcode:   ir.OpBranchConditional,
		Operands: []ir.ID{constantTrue, blockAfterEntry, t.OuterHeaderID},
	})
	m.InsertBlockAfter(fn, header, entry.Label)
	m.SetOperand(entry.Terminator(), 0, t.OuterHeaderID)

	// The outer exit produces the function's single return.
	exit := &ir.Block{Label: t.OuterReturnID}
	if !voidReturn {
		var operands []ir.ID
		for _, pred := range sortedIDs(outerMergePreds) {
			operands = append(operands, outerMergePreds[pred], pred)
		}
		exit.Instructions = append(exit.Instructions,
			&ir.Instruction{Opcode: ir.OpPhi, Type: fn.Type, Result: t.ReturnValID, Operands: operands},
			&ir.Instruction{Opcode: ir.OpReturnValue, Operands: []ir.ID{t.ReturnValID}},
		)
		m.ReserveID(t.ReturnValID)
	} else {
		exit.Instructions = append(exit.Instructions, &ir.Instruction{Opcode: ir.OpReturn})
	}
	m.AppendBlock(fn, exit)

	m.InvalidateAnalyses()
}

// ToMessage returns the replayable record for this transformation.
func (t *MergeFunctionReturns) ToMessage() Message {
	return Message{Kind: KindMergeFunctionReturns, MergeFunctionReturns: t}
}
