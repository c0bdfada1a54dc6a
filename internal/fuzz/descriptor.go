package fuzz

import "github.com/stefanomil/SPIRV-Tools/internal/ir"

// InstructionDescriptor locates an instruction structurally rather than by
// result id, so the reference survives result-id churn: start from the
// definition of BaseResult (or the start of the block when BaseResult is a
// block label) and take the SkipCount-th following instruction with Opcode.
type InstructionDescriptor struct {
	BaseResult ir.ID `json:"base_result"`
	Opcode     ir.Op `json:"opcode"`
	SkipCount  int   `json:"skip_count"`
}

// MakeInstructionDescriptor builds a descriptor for the instruction at index
// idx of blk: the base is the nearest preceding result id in the block (or
// the block label), and the skip count is the number of same-opcode
// instructions in between.
func MakeInstructionDescriptor(blk *ir.Block, idx int) InstructionDescriptor {
	inst := blk.Instructions[idx]
	base := blk.Label
	start := 0
	for i := idx - 1; i >= 0; i-- {
		if blk.Instructions[i].Result != 0 {
			base = blk.Instructions[i].Result
			start = i + 1
			break
		}
	}
	skip := 0
	for i := start; i < idx; i++ {
		if blk.Instructions[i].Opcode == inst.Opcode {
			skip++
		}
	}
	return InstructionDescriptor{BaseResult: base, Opcode: inst.Opcode, SkipCount: skip}
}

// FindInstruction resolves a descriptor against the current module state.
// It returns the containing function, block, instruction index and the
// instruction, or ok=false if the descriptor no longer matches anything.
func FindInstruction(m *ir.Module, d InstructionDescriptor) (fn *ir.Function, blk *ir.Block, idx int, inst *ir.Instruction, ok bool) {
	start := 0
	if f, b := m.BlockByLabel(d.BaseResult); b != nil {
		fn, blk = f, b
	} else if f, b, i, found := m.ContainingBlock(d.BaseResult); found {
		fn, blk, start = f, b, i+1
	} else {
		return nil, nil, 0, nil, false
	}
	skip := d.SkipCount
	for i := start; i < len(blk.Instructions); i++ {
		if blk.Instructions[i].Opcode != d.Opcode {
			continue
		}
		if skip == 0 {
			return fn, blk, i, blk.Instructions[i], true
		}
		skip--
	}
	return nil, nil, 0, nil, false
}

// IDUseDescriptor pins down one operand position: the instruction that uses
// IDOfInterest, located structurally, and the operand index within it.
type IDUseDescriptor struct {
	IDOfInterest ir.ID                 `json:"id_of_interest"`
	UsingInst    InstructionDescriptor `json:"using_inst"`
	OperandIndex int                   `json:"operand_index"`
}

// MakeIDUseDescriptor builds a use descriptor for operand opIdx of the
// instruction at index idx of blk.
func MakeIDUseDescriptor(blk *ir.Block, idx, opIdx int) IDUseDescriptor {
	return IDUseDescriptor{
		IDOfInterest: blk.Instructions[idx].Operands[opIdx],
		UsingInst:    MakeInstructionDescriptor(blk, idx),
		OperandIndex: opIdx,
	}
}

// FindUse resolves a use descriptor, additionally requiring that the located
// operand still holds IDOfInterest.
func FindUse(m *ir.Module, d IDUseDescriptor) (fn *ir.Function, blk *ir.Block, idx int, inst *ir.Instruction, ok bool) {
	fn, blk, idx, inst, ok = FindInstruction(m, d.UsingInst)
	if !ok {
		return nil, nil, 0, nil, false
	}
	if d.OperandIndex >= len(inst.Operands) || inst.Operands[d.OperandIndex] != d.IDOfInterest {
		return nil, nil, 0, nil, false
	}
	return fn, blk, idx, inst, true
}
