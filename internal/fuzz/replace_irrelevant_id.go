package fuzz

import "github.com/stefanomil/SPIRV-Tools/internal/ir"

// ReplaceIrrelevantID overwrites one use of an id whose value is recorded as
// a don't-care with another id of the same type. It is the cheapest
// structure-preserving mutation in the engine and is proposed at high
// frequency.
type ReplaceIrrelevantID struct {
	IDUse         IDUseDescriptor `json:"id_use"`
	ReplacementID ir.ID           `json:"replacement_id"`
}

// idUseCanBeReplaced reports whether the operand at opIdx of inst tolerates
// substitution by an arbitrary same-typed id. Positions where the identity of
// the exact id is structurally required are excluded: value-merge incoming
// labels, branch targets, indexing operands of pointer address computations,
// call targets and image pairing operands.
func idUseCanBeReplaced(inst *ir.Instruction, opIdx int) bool {
	switch inst.Opcode {
	case ir.OpPhi:
		// Odd operand positions are predecessor labels.
		return opIdx%2 == 0
	case ir.OpAccessChain:
		return opIdx == 0
	case ir.OpFunctionCall:
		return opIdx != 0
	case ir.OpSampledImage:
		return false
	}
	if inst.Opcode.IsTerminator() {
		return false
	}
	return true
}

// IsApplicable requires the id of interest to be marked irrelevant, the use
// site to still exist and hold that id, both ids to share a non-pointer type,
// the operand position to tolerate substitution, and the replacement's
// definition to be available at the use point.
func (t *ReplaceIrrelevantID) IsApplicable(m *ir.Module, ctx *Context) bool {
	if !ctx.Facts.IDIsIrrelevant(t.IDUse.IDOfInterest) {
		return false
	}
	fn, blk, idx, inst, ok := FindUse(m, t.IDUse)
	if !ok {
		return false
	}
	typeID := m.TypeOf(t.IDUse.IDOfInterest)
	if typeID == 0 || m.TypeOf(t.ReplacementID) != typeID {
		return false
	}
	if m.TypeIsPointer(typeID) {
		return false
	}
	if !idUseCanBeReplaced(inst, t.IDUse.OperandIndex) {
		return false
	}
	return m.IDIsAvailableBefore(fn, blk, idx, t.ReplacementID)
}

// Apply overwrites the single operand.
func (t *ReplaceIrrelevantID) Apply(m *ir.Module, ctx *Context) {
	_, _, _, inst, _ := FindUse(m, t.IDUse)
	m.SetOperand(inst, t.IDUse.OperandIndex, t.ReplacementID)
}

// ToMessage returns the replayable record for this transformation.
func (t *ReplaceIrrelevantID) ToMessage() Message {
	return Message{Kind: KindReplaceIrrelevantID, ReplaceIrrelevantID: t}
}
