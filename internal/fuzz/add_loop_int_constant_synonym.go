package fuzz

import "github.com/stefanomil/SPIRV-Tools/internal/ir"

// AddLoopIntConstantSynonym materializes a counted loop that decrements an
// accumulator from an initial constant I by a step constant S for N
// iterations, and records the final value as a synonym of the constant C,
// relying on C = I - S*N holding componentwise.
type AddLoopIntConstantSynonym struct {
	ConstantID       ir.ID `json:"constant_id"`
	InitialValID     ir.ID `json:"initial_val_id"`
	StepValID        ir.ID `json:"step_val_id"`
	NumIterationsID  ir.ID `json:"num_iterations_id"`
	BlockAfterLoopID ir.ID `json:"block_after_loop_id"`
	SynID            ir.ID `json:"syn_id"`
	LoopID           ir.ID `json:"loop_id"`
	CtrID            ir.ID `json:"ctr_id"`
	TempID           ir.ID `json:"temp_id"`
	EventualSynID    ir.ID `json:"eventual_syn_id"`
	IncrementedCtrID ir.ID `json:"incremented_ctr_id"`
	CondID           ir.ID `json:"cond_id"`
}

// truncate sign-extends the low width bits of v, so arithmetic overflowing
// the component width wraps the same way the loop's instructions would.
func truncate(v int64, width int) int64 {
	if width >= 64 {
		return v
	}
	shift := 64 - uint(width)
	return v << shift >> shift
}

// IsApplicable checks the arithmetic relation and the insertion site. The
// constants are compared componentwise after sign extension, so width and
// signedness do not affect the outcome.
func (t *AddLoopIntConstantSynonym) IsApplicable(m *ir.Module, ctx *Context) bool {
	// A synonym of an explicitly meaningless value would be meaningless.
	if ctx.Facts.IDIsIrrelevant(t.ConstantID) {
		return false
	}

	constant, constWidth, ok := m.IntConstantComponents(t.ConstantID)
	if !ok || constWidth > 64 {
		return false
	}
	initial, initWidth, ok := m.IntConstantComponents(t.InitialValID)
	if !ok || initWidth > 64 {
		return false
	}
	step, stepWidth, ok := m.IntConstantComponents(t.StepValID)
	if !ok || stepWidth > 64 {
		return false
	}

	constType := m.TypeOf(t.ConstantID)
	if !m.TypesEqualUpToSign(constType, m.TypeOf(t.InitialValID)) ||
		!m.TypesEqualUpToSign(constType, m.TypeOf(t.StepValID)) {
		return false
	}

	numType := m.TypeOf(t.NumIterationsID)
	if m.IntTypeWidth(numType) != 32 || !m.IntTypeIsSigned(numType) {
		return false
	}
	n, ok := m.IntConstantValue(t.NumIterationsID)
	if !ok || n <= 0 || n > 32 {
		return false
	}

	for i := range constant {
		if truncate(initial[i]-step[i]*n, constWidth) != truncate(constant[i], constWidth) {
			return false
		}
	}

	// The loop scaffolding needs a signed 32-bit counter, its 0 and 1
	// constants, and the boolean type for the exit condition.
	if m.SignedInt32Constant(0) == 0 || m.SignedInt32Constant(1) == 0 {
		return false
	}
	if m.BoolType() == 0 {
		return false
	}

	fn, block := m.BlockByLabel(t.BlockAfterLoopID)
	if block == nil {
		return false
	}
	if len(m.Preds(fn, t.BlockAfterLoopID)) != 1 {
		return false
	}
	if m.IsMergeBlock(fn, t.BlockAfterLoopID) {
		return false
	}
	for _, b := range fn.Blocks {
		if b.Merge != nil && b.Merge.ContinueTarget == t.BlockAfterLoopID {
			return false
		}
	}

	used := map[ir.ID]bool{}
	for _, id := range []ir.ID{
		t.SynID, t.LoopID, t.CtrID, t.TempID,
		t.EventualSynID, t.IncrementedCtrID, t.CondID,
	} {
		if !checkIDIsFreshAndUnused(m, id, used) {
			return false
		}
	}
	return true
}

// Apply inserts a single-block loop right before the insertion block. The
// block is both the loop header and its own continue target:
//
//	ctr  = phi i32 [0, pred], [incremented, loop]
//	temp = phi T   [initial, pred], [eventual, loop]
//	eventual    = isub temp, step
//	incremented = iadd ctr, 1
//	cond        = slt incremented, n
//	branch-conditional cond, loop, after
//
// After N iterations temp has been decremented N times, so eventual holds
// I - S*N = C when the loop exits.
func (t *AddLoopIntConstantSynonym) Apply(m *ir.Module, ctx *Context) {
	fn, after := m.BlockByLabel(t.BlockAfterLoopID)
	pred := m.Preds(fn, t.BlockAfterLoopID)[0]

	i32Type := m.IntType(32, true)
	boolType := m.BoolType()
	valType := m.TypeOf(t.InitialValID)
	zero := m.SignedInt32Constant(0)
	one := m.SignedInt32Constant(1)

	loop := &ir.Block{
		Label: t.LoopID,
		Merge: &ir.Merge{
			Kind:           ir.LoopMerge,
			MergeBlock:     t.BlockAfterLoopID,
			ContinueTarget: t.LoopID,
		},
	}
	loop.Instructions = append(loop.Instructions,
		&ir.Instruction{Opcode: ir.OpPhi, Type: i32Type, Result: t.CtrID,
			Operands: []ir.ID{zero, pred, t.IncrementedCtrID, t.LoopID}},
		&ir.Instruction{Opcode: ir.OpPhi, Type: valType, Result: t.TempID,
			Operands: []ir.ID{t.InitialValID, pred, t.EventualSynID, t.LoopID}},
		&ir.Instruction{Opcode: ir.OpISub, Type: valType, Result: t.EventualSynID,
			Operands: []ir.ID{t.TempID, t.StepValID}},
		&ir.Instruction{Opcode: ir.OpIAdd, Type: i32Type, Result: t.IncrementedCtrID,
			Operands: []ir.ID{t.CtrID, one}},
		&ir.Instruction{Opcode: ir.OpSLessThan, Type: boolType, Result: t.CondID,
			Operands: []ir.ID{t.IncrementedCtrID, t.NumIterationsID}},
		&ir.Instruction{Opcode: ir.OpBranchConditional,
			Operands: []ir.ID{t.CondID, t.LoopID, t.BlockAfterLoopID}},
	)
	m.InsertBlockBefore(fn, loop, t.BlockAfterLoopID)
	for _, id := range []ir.ID{t.CtrID, t.TempID, t.EventualSynID, t.IncrementedCtrID, t.CondID} {
		m.ReserveID(id)
	}

	// Route the old predecessor through the loop.
	_, predBlock := m.BlockByLabel(pred)
	term := predBlock.Terminator()
	for i, op := range term.Operands {
		if op == t.BlockAfterLoopID && (term.Opcode == ir.OpBranch || i > 0) {
			m.SetOperand(term, i, t.LoopID)
		}
	}

	// The insertion block's value-merges now receive their values via the
	// loop's exit edge.
	for _, inst := range after.Instructions {
		if inst.Opcode != ir.OpPhi {
			break
		}
		for i := 1; i < len(inst.Operands); i += 2 {
			if inst.Operands[i] == pred {
				inst.Operands[i] = t.LoopID
			}
		}
	}

	m.InsertInstructionAt(after, ir.PhiCount(after), &ir.Instruction{
		Opcode:   ir.OpCopyObject,
		Type:     valType,
		Result:   t.SynID,
		Operands: []ir.ID{t.EventualSynID},
	})

	ctx.Facts.AddFactIDSynonym(m, t.SynID, t.ConstantID)
	m.InvalidateAnalyses()
}

// ToMessage returns the replayable record for this transformation.
func (t *AddLoopIntConstantSynonym) ToMessage() Message {
	return Message{Kind: KindAddLoopIntConstantSynonym, AddLoopIntConstantSynonym: t}
}
