package fuzz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanomil/SPIRV-Tools/internal/fuzz"
	"github.com/stefanomil/SPIRV-Tools/internal/fuzz/fact"
	"github.com/stefanomil/SPIRV-Tools/internal/ir"
	"github.com/stefanomil/SPIRV-Tools/internal/testutil"
)

func newContext(m *ir.Module) *fuzz.Context {
	return &fuzz.Context{
		Facts:    fact.NewManager(),
		Overflow: &fuzz.ModuleOverflowSource{Module: m},
	}
}

func TestFlattenConditionalBranch_PureArms(t *testing.T) {
	m := testutil.ConditionalModule()
	ctx := newContext(m)
	fn := m.Functions[0]

	tr := &fuzz.FlattenConditionalBranch{HeaderBlockID: 11}
	require.True(t, tr.IsApplicable(m, ctx))
	tr.Apply(m, ctx)

	// The header is straightened: no merge marker, one unconditional
	// successor into the true arm.
	_, header := m.BlockByLabel(11)
	assert.Nil(t, header.Merge)
	require.Equal(t, ir.OpBranch, header.Terminator().Opcode)
	assert.Equal(t, ir.ID(12), header.Terminator().Operands[0])

	// The true arm chains into the false arm, which falls through to the
	// old join.
	_, blk12 := m.BlockByLabel(12)
	assert.Equal(t, ir.ID(13), blk12.Terminator().Operands[0])
	_, blk13 := m.BlockByLabel(13)
	assert.Equal(t, ir.ID(14), blk13.Terminator().Operands[0])

	// No conditional branches survive anywhere in the function.
	for _, b := range fn.Blocks {
		assert.NotEqual(t, ir.OpBranchConditional, b.Terminator().Opcode,
			"block %%%d still branches conditionally", b.Label)
	}

	// The join's value-merge became a select over the original condition.
	_, join := m.BlockByLabel(14)
	sel := join.Instructions[0]
	assert.Equal(t, ir.OpSelect, sel.Opcode)
	assert.Equal(t, ir.ID(22), sel.Result, "the result id is preserved")
	assert.Equal(t, []ir.ID{4, 20, 21}, sel.Operands)
}

// storeConditionalModule is the conditional fixture with a module-scope
// variable and a store in the true arm, so flattening must enclose the store
// in a fresh conditional.
func storeConditionalModule() *ir.Module {
	m := testutil.ConditionalModule()
	m.Globals = append(m.Globals,
		&ir.Instruction{Opcode: ir.OpTypePointer, Result: 8, Operands: []ir.ID{3}},
		&ir.Instruction{Opcode: ir.OpVariable, Type: 8, Result: 9},
	)
	_, blk12 := m.BlockByLabel(12)
	blk12.Instructions = []*ir.Instruction{
		blk12.Instructions[0],
		{Opcode: ir.OpStore, Operands: []ir.ID{9, 5}},
		blk12.Instructions[1],
	}
	m.InvalidateAnalyses()
	return m
}

func TestFlattenConditionalBranch_EnclosesSideEffects(t *testing.T) {
	m := storeConditionalModule()
	ctx := newContext(m)

	// A store has no result, so it needs two fresh block labels.
	noIDs := &fuzz.FlattenConditionalBranch{HeaderBlockID: 11}
	assert.False(t, noIDs.IsApplicable(m, ctx), "no ids supplied for the store")

	tr := &fuzz.FlattenConditionalBranch{
		HeaderBlockID: 11,
		OverflowIDs:   []ir.ID{23, 24},
	}
	require.True(t, tr.IsApplicable(m, ctx))
	tr.Apply(m, ctx)

	// The containing block regrew a conditional guarding only the store.
	_, guard := m.BlockByLabel(12)
	require.NotNil(t, guard.Merge)
	assert.Equal(t, ir.SelectionMerge, guard.Merge.Kind)
	assert.Equal(t, ir.ID(24), guard.Merge.MergeBlock)
	require.Equal(t, ir.OpBranchConditional, guard.Terminator().Opcode)
	assert.Equal(t, []ir.ID{4, 23, 24}, guard.Terminator().Operands,
		"the store executes only when the original condition holds")

	_, storeBlock := m.BlockByLabel(23)
	require.Len(t, storeBlock.Instructions, 2)
	assert.Equal(t, ir.OpStore, storeBlock.Instructions[0].Opcode)
}

func TestFlattenConditionalBranch_Inapplicable(t *testing.T) {
	t.Run("not a selection header", func(t *testing.T) {
		m := testutil.ConditionalModule()
		tr := &fuzz.FlattenConditionalBranch{HeaderBlockID: 12}
		assert.False(t, tr.IsApplicable(m, newContext(m)))
	})

	t.Run("unknown block", func(t *testing.T) {
		m := testutil.ConditionalModule()
		tr := &fuzz.FlattenConditionalBranch{HeaderBlockID: 99}
		assert.False(t, tr.IsApplicable(m, newContext(m)))
	})

	t.Run("barrier in the region", func(t *testing.T) {
		m := testutil.ConditionalModule()
		_, blk12 := m.BlockByLabel(12)
		m.InsertInstructionAt(blk12, 1, &ir.Instruction{Opcode: ir.OpControlBarrier})
		tr := &fuzz.FlattenConditionalBranch{HeaderBlockID: 11, OverflowIDs: []ir.ID{23, 24}}
		assert.False(t, tr.IsApplicable(m, newContext(m)))
	})

	t.Run("nested construct in the region", func(t *testing.T) {
		m := testutil.ConditionalModule()
		_, blk12 := m.BlockByLabel(12)
		blk12.Merge = &ir.Merge{Kind: ir.SelectionMerge, MergeBlock: 14}
		m.InvalidateAnalyses()
		tr := &fuzz.FlattenConditionalBranch{HeaderBlockID: 11}
		assert.False(t, tr.IsApplicable(m, newContext(m)))
	})

	t.Run("fresh id already defined", func(t *testing.T) {
		m := storeConditionalModule()
		tr := &fuzz.FlattenConditionalBranch{HeaderBlockID: 11, OverflowIDs: []ir.ID{5, 23}}
		assert.False(t, tr.IsApplicable(m, newContext(m)))
	})

	t.Run("duplicate fresh ids", func(t *testing.T) {
		m := storeConditionalModule()
		tr := &fuzz.FlattenConditionalBranch{HeaderBlockID: 11, OverflowIDs: []ir.ID{23, 23}}
		assert.False(t, tr.IsApplicable(m, newContext(m)))
	})
}

func TestFlattenConditionalBranch_PropagatesDeadBlockFacts(t *testing.T) {
	m := storeConditionalModule()
	ctx := newContext(m)
	ctx.Facts.AddFactBlockIsDead(12)

	tr := &fuzz.FlattenConditionalBranch{
		HeaderBlockID: 11,
		OverflowIDs:   []ir.ID{23, 24},
	}
	require.True(t, tr.IsApplicable(m, ctx))
	tr.Apply(m, ctx)

	assert.True(t, ctx.Facts.BlockIsDead(23), "blocks split off a dead block are dead")
	assert.True(t, ctx.Facts.BlockIsDead(24))
}
