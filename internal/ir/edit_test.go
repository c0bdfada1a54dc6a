package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanomil/SPIRV-Tools/internal/ir"
	"github.com/stefanomil/SPIRV-Tools/internal/testutil"
)

func blockLabels(fn *ir.Function) []ir.ID {
	labels := make([]ir.ID, 0, len(fn.Blocks))
	for _, b := range fn.Blocks {
		labels = append(labels, b.Label)
	}
	return labels
}

func TestSplitBlock(t *testing.T) {
	m := testutil.ConditionalModule()
	fn := m.Functions[0]
	_, blk12 := m.BlockByLabel(12)

	tail := m.SplitBlock(fn, blk12, 1, 23)

	assert.Equal(t, []ir.ID{11, 12, 23, 13, 14}, blockLabels(fn))
	require.Len(t, blk12.Instructions, 1)
	assert.Equal(t, ir.OpIAdd, blk12.Instructions[0].Opcode)
	assert.False(t, blk12.Terminator().Opcode.IsTerminator(),
		"the head is left without a terminator")

	require.Len(t, tail.Instructions, 1)
	assert.Equal(t, ir.OpBranch, tail.Instructions[0].Opcode)
	assert.Equal(t, ir.ID(24), m.IDBound, "the tail label is reserved")
}

func TestSplitBlock_TailInheritsMergeMarker(t *testing.T) {
	m := testutil.ConditionalModule()
	fn := m.Functions[0]
	_, header := m.BlockByLabel(11)

	tail := m.SplitBlock(fn, header, 0, 23)

	assert.Nil(t, header.Merge)
	require.NotNil(t, tail.Merge)
	assert.Equal(t, ir.ID(14), tail.Merge.MergeBlock)
	assert.Equal(t, ir.OpBranchConditional, tail.Terminator().Opcode)
}

func TestMoveBlockAfter(t *testing.T) {
	m := testutil.ConditionalModule()
	fn := m.Functions[0]

	m.MoveBlockAfter(fn, 13, 11)
	assert.Equal(t, []ir.ID{11, 13, 12, 14}, blockLabels(fn))

	// Layout order does not affect derived edges.
	assert.Equal(t, []ir.ID{12, 13}, m.Preds(fn, 14))
}

func TestInsertBlockPrimitives(t *testing.T) {
	m := testutil.ConditionalModule()
	fn := m.Functions[0]

	before := &ir.Block{Label: 23, Instructions: []*ir.Instruction{
		{Opcode: ir.OpBranch, Operands: []ir.ID{14}},
	}}
	m.InsertBlockBefore(fn, before, 14)
	assert.Equal(t, []ir.ID{11, 12, 13, 23, 14}, blockLabels(fn))

	after := &ir.Block{Label: 24, Instructions: []*ir.Instruction{
		{Opcode: ir.OpBranch, Operands: []ir.ID{14}},
	}}
	m.InsertBlockAfter(fn, after, 11)
	assert.Equal(t, []ir.ID{11, 24, 12, 13, 23, 14}, blockLabels(fn))

	tail := &ir.Block{Label: 25, Instructions: []*ir.Instruction{
		{Opcode: ir.OpUnreachable},
	}}
	m.AppendBlock(fn, tail)
	assert.Equal(t, ir.ID(25), fn.Blocks[len(fn.Blocks)-1].Label)
	assert.Equal(t, ir.ID(26), m.IDBound)
}

func TestInstructionPrimitives(t *testing.T) {
	m := testutil.ConditionalModule()
	_, blk := m.BlockByLabel(12)

	term := m.RemoveTerminator(blk)
	require.NotNil(t, term)
	assert.Equal(t, ir.OpBranch, term.Opcode)
	assert.False(t, blk.Terminator().Opcode.IsTerminator())

	m.AddInstruction(blk, &ir.Instruction{Opcode: ir.OpCopyObject, Type: 3, Result: 23, Operands: []ir.ID{20}})
	m.AddInstruction(blk, term)
	assert.Equal(t, ir.ID(24), m.IDBound)
	assert.Equal(t, ir.OpBranch, blk.Terminator().Opcode)

	m.InsertInstructionAt(blk, 0, &ir.Instruction{Opcode: ir.OpCopyObject, Type: 3, Result: 24, Operands: []ir.ID{5}})
	assert.Equal(t, ir.ID(24), blk.Instructions[0].Result)
	assert.Equal(t, ir.ID(25), m.IDBound)
}

func TestPhiCount(t *testing.T) {
	m := testutil.ConditionalModule()
	_, join := m.BlockByLabel(14)
	_, arm := m.BlockByLabel(12)

	assert.Equal(t, 1, ir.PhiCount(join))
	assert.Equal(t, 0, ir.PhiCount(arm))
}

func TestRemoveMergeMarker(t *testing.T) {
	m := testutil.ConditionalModule()
	_, header := m.BlockByLabel(11)

	gen := m.Generation()
	m.RemoveMergeMarker(header)
	assert.Nil(t, header.Merge)
	assert.Greater(t, m.Generation(), gen)
}
