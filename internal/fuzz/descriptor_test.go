package fuzz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanomil/SPIRV-Tools/internal/fuzz"
	"github.com/stefanomil/SPIRV-Tools/internal/ir"
	"github.com/stefanomil/SPIRV-Tools/internal/testutil"
)

func TestInstructionDescriptor_Roundtrip(t *testing.T) {
	m := testutil.ConditionalModule()
	_, blk14 := m.BlockByLabel(14)

	// The return has a preceding result in the same block, so the base is
	// that result rather than the block label.
	d := fuzz.MakeInstructionDescriptor(blk14, 1)
	assert.Equal(t, ir.ID(22), d.BaseResult)
	assert.Equal(t, ir.OpReturnValue, d.Opcode)
	assert.Equal(t, 0, d.SkipCount)

	fn, blk, idx, inst, ok := fuzz.FindInstruction(m, d)
	require.True(t, ok)
	assert.Equal(t, ir.ID(10), fn.Result)
	assert.Equal(t, ir.ID(14), blk.Label)
	assert.Equal(t, 1, idx)
	assert.Equal(t, ir.OpReturnValue, inst.Opcode)
}

func TestInstructionDescriptor_BlockLabelBase(t *testing.T) {
	m := testutil.ConditionalModule()
	_, blk12 := m.BlockByLabel(12)

	d := fuzz.MakeInstructionDescriptor(blk12, 0)
	assert.Equal(t, ir.ID(12), d.BaseResult, "no preceding result, so the base is the label")

	_, blk, idx, _, ok := fuzz.FindInstruction(m, d)
	require.True(t, ok)
	assert.Equal(t, ir.ID(12), blk.Label)
	assert.Equal(t, 0, idx)
}

func TestInstructionDescriptor_SkipCount(t *testing.T) {
	m := testutil.ConditionalModule()
	_, blk12 := m.BlockByLabel(12)
	blk12.Instructions = append([]*ir.Instruction{
		{Opcode: ir.OpIAdd, Type: 3, Result: 19, Operands: []ir.ID{6, 6}},
	}, blk12.Instructions...)
	m.InvalidateAnalyses()

	// The second same-opcode instruction after its base carries skip 1...
	d := fuzz.MakeInstructionDescriptor(blk12, 1)
	assert.Equal(t, ir.ID(19), d.BaseResult)
	assert.Equal(t, 0, d.SkipCount, "the first IAdd after %19 needs no skipping")

	// ...while from the label base both IAdds are in scope.
	first := fuzz.MakeInstructionDescriptor(blk12, 0)
	assert.Equal(t, ir.ID(12), first.BaseResult)
	_, _, idx, inst, ok := fuzz.FindInstruction(m, first)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, ir.ID(19), inst.Result)
}

func TestFindInstruction_StaleDescriptor(t *testing.T) {
	m := testutil.ConditionalModule()
	_, blk12 := m.BlockByLabel(12)
	d := fuzz.MakeInstructionDescriptor(blk12, 0)

	// Removing the instruction invalidates the descriptor.
	blk12.Instructions = blk12.Instructions[1:]
	m.InvalidateAnalyses()
	_, _, _, _, ok := fuzz.FindInstruction(m, d)
	assert.False(t, ok)

	// So does an undefined base.
	_, _, _, _, ok = fuzz.FindInstruction(m, fuzz.InstructionDescriptor{BaseResult: 99, Opcode: ir.OpIAdd})
	assert.False(t, ok)
}

func TestFindUse_RequiresOperandToStillMatch(t *testing.T) {
	m := testutil.ConditionalModule()
	_, blk12 := m.BlockByLabel(12)

	d := fuzz.MakeIDUseDescriptor(blk12, 0, 0)
	assert.Equal(t, ir.ID(5), d.IDOfInterest)

	_, _, _, inst, ok := fuzz.FindUse(m, d)
	require.True(t, ok)

	// Once the operand is rewritten the use descriptor dangles.
	m.SetOperand(inst, 0, 6)
	_, _, _, _, ok = fuzz.FindUse(m, d)
	assert.False(t, ok)
}
