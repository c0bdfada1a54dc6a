package fuzz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanomil/SPIRV-Tools/internal/fuzz"
	"github.com/stefanomil/SPIRV-Tools/internal/ir"
	"github.com/stefanomil/SPIRV-Tools/internal/testutil"
)

// loopSynonymRecord builds a valid record against StraightLineModule:
// 2 = 7 - 1*5 with C=%7, I=%8, S=%5, N=%6, inserted before block %12.
func loopSynonymRecord() *fuzz.AddLoopIntConstantSynonym {
	return &fuzz.AddLoopIntConstantSynonym{
		ConstantID:       7,
		InitialValID:     8,
		StepValID:        5,
		NumIterationsID:  6,
		BlockAfterLoopID: 12,
		SynID:            13,
		LoopID:           14,
		CtrID:            15,
		TempID:           16,
		EventualSynID:    17,
		IncrementedCtrID: 18,
		CondID:           19,
	}
}

func TestAddLoopIntConstantSynonym(t *testing.T) {
	m := testutil.StraightLineModule()
	ctx := newContext(m)
	fn := m.Functions[0]

	tr := loopSynonymRecord()
	require.True(t, tr.IsApplicable(m, ctx))
	tr.Apply(m, ctx)

	// The loop block sits between the old predecessor and the insertion
	// block, heading a self-looping single-block construct.
	require.Equal(t, ir.ID(14), fn.Blocks[1].Label)
	loop := fn.Blocks[1]
	require.NotNil(t, loop.Merge)
	assert.Equal(t, ir.LoopMerge, loop.Merge.Kind)
	assert.Equal(t, ir.ID(12), loop.Merge.MergeBlock)
	assert.Equal(t, ir.ID(14), loop.Merge.ContinueTarget)

	require.Len(t, loop.Instructions, 6)
	ctr, temp := loop.Instructions[0], loop.Instructions[1]
	assert.Equal(t, []ir.ID{4, 11, 18, 14}, ctr.Operands, "counter starts at zero")
	assert.Equal(t, []ir.ID{8, 11, 17, 14}, temp.Operands, "accumulator starts at the initial value")
	assert.Equal(t, ir.OpISub, loop.Instructions[2].Opcode)
	assert.Equal(t, ir.OpSLessThan, loop.Instructions[4].Opcode)
	require.Equal(t, ir.OpBranchConditional, loop.Terminator().Opcode)
	assert.Equal(t, []ir.ID{19, 14, 12}, loop.Terminator().Operands)

	// The old predecessor now routes through the loop.
	_, pred := m.BlockByLabel(11)
	assert.Equal(t, ir.ID(14), pred.Terminator().Operands[0])

	// The synonym is materialized in the insertion block and recorded.
	_, after := m.BlockByLabel(12)
	syn := after.Instructions[0]
	assert.Equal(t, ir.OpCopyObject, syn.Opcode)
	assert.Equal(t, ir.ID(13), syn.Result)
	assert.Equal(t, []ir.ID{17}, syn.Operands)
	assert.True(t, ctx.Facts.Synonymous(13, 7))

	assert.GreaterOrEqual(t, m.IDBound, ir.ID(20), "all fresh ids are reserved")
}

func TestAddLoopIntConstantSynonym_Inapplicable(t *testing.T) {
	t.Run("relation does not hold", func(t *testing.T) {
		m := testutil.StraightLineModule()
		tr := loopSynonymRecord()
		tr.InitialValID = 7 // 2 != 2 - 1*5
		assert.False(t, tr.IsApplicable(m, newContext(m)))
	})

	t.Run("iteration count out of range", func(t *testing.T) {
		m := testutil.StraightLineModule()
		tr := loopSynonymRecord()
		tr.NumIterationsID = 4 // zero iterations
		assert.False(t, tr.IsApplicable(m, newContext(m)))
	})

	t.Run("constant marked irrelevant", func(t *testing.T) {
		m := testutil.StraightLineModule()
		ctx := newContext(m)
		ctx.Facts.AddFactIDIsIrrelevant(m, 7)
		assert.False(t, loopSynonymRecord().IsApplicable(m, ctx))
	})

	t.Run("insertion block is the entry", func(t *testing.T) {
		m := testutil.StraightLineModule()
		tr := loopSynonymRecord()
		tr.BlockAfterLoopID = 11 // no predecessors
		assert.False(t, tr.IsApplicable(m, newContext(m)))
	})

	t.Run("insertion block is a merge block", func(t *testing.T) {
		m := testutil.StraightLineModule()
		m.Functions[0].Blocks[0].Merge = &ir.Merge{Kind: ir.SelectionMerge, MergeBlock: 12}
		m.InvalidateAnalyses()
		assert.False(t, loopSynonymRecord().IsApplicable(m, newContext(m)))
	})

	t.Run("duplicate fresh ids", func(t *testing.T) {
		m := testutil.StraightLineModule()
		tr := loopSynonymRecord()
		tr.CondID = tr.SynID
		assert.False(t, tr.IsApplicable(m, newContext(m)))
	})

	t.Run("fresh id already defined", func(t *testing.T) {
		m := testutil.StraightLineModule()
		tr := loopSynonymRecord()
		tr.TempID = 8
		assert.False(t, tr.IsApplicable(m, newContext(m)))
	})

	t.Run("non-constant operand", func(t *testing.T) {
		m := testutil.StraightLineModule()
		tr := loopSynonymRecord()
		tr.ConstantID = 3 // a type id
		assert.False(t, tr.IsApplicable(m, newContext(m)))
	})
}
