package fuzz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanomil/SPIRV-Tools/internal/fuzz"
	"github.com/stefanomil/SPIRV-Tools/internal/ir"
	"github.com/stefanomil/SPIRV-Tools/internal/testutil"
)

func TestReplaceIrrelevantID(t *testing.T) {
	m := testutil.ConditionalModule()
	ctx := newContext(m)
	ctx.Facts.AddFactIDIsIrrelevant(m, 5)

	_, blk12 := m.BlockByLabel(12)
	tr := &fuzz.ReplaceIrrelevantID{
		IDUse:         fuzz.MakeIDUseDescriptor(blk12, 0, 0),
		ReplacementID: 7,
	}
	require.True(t, tr.IsApplicable(m, ctx))
	tr.Apply(m, ctx)

	assert.Equal(t, []ir.ID{7, 6}, blk12.Instructions[0].Operands)

	// Other uses of the irrelevant id are untouched.
	_, blk13 := m.BlockByLabel(13)
	assert.Equal(t, []ir.ID{5, 6}, blk13.Instructions[0].Operands)
}

func TestReplaceIrrelevantID_RepeatIsNoOp(t *testing.T) {
	m := testutil.ConditionalModule()
	ctx := newContext(m)
	ctx.Facts.AddFactIDIsIrrelevant(m, 5)

	_, blk12 := m.BlockByLabel(12)
	tr := &fuzz.ReplaceIrrelevantID{
		IDUse:         fuzz.MakeIDUseDescriptor(blk12, 0, 0),
		ReplacementID: 7,
	}
	require.True(t, tr.IsApplicable(m, ctx))
	tr.Apply(m, ctx)

	// The operand no longer holds the id of interest, so the same record
	// is now inapplicable and repeating it cannot change the module.
	assert.False(t, tr.IsApplicable(m, ctx))
}

func TestReplaceIrrelevantID_Inapplicable(t *testing.T) {
	t.Run("no irrelevance fact", func(t *testing.T) {
		m := testutil.ConditionalModule()
		_, blk12 := m.BlockByLabel(12)
		tr := &fuzz.ReplaceIrrelevantID{
			IDUse:         fuzz.MakeIDUseDescriptor(blk12, 0, 0),
			ReplacementID: 7,
		}
		assert.False(t, tr.IsApplicable(m, newContext(m)))
	})

	t.Run("type mismatch", func(t *testing.T) {
		m := testutil.ConditionalModule()
		ctx := newContext(m)
		ctx.Facts.AddFactIDIsIrrelevant(m, 5)
		_, blk12 := m.BlockByLabel(12)
		tr := &fuzz.ReplaceIrrelevantID{
			IDUse:         fuzz.MakeIDUseDescriptor(blk12, 0, 0),
			ReplacementID: 4, // boolean
		}
		assert.False(t, tr.IsApplicable(m, ctx))
	})

	t.Run("terminator operand", func(t *testing.T) {
		m := testutil.ConditionalModule()
		ctx := newContext(m)
		ctx.Facts.AddFactIDIsIrrelevant(m, 22)
		_, blk14 := m.BlockByLabel(14)
		tr := &fuzz.ReplaceIrrelevantID{
			IDUse:         fuzz.MakeIDUseDescriptor(blk14, 1, 0),
			ReplacementID: 5,
		}
		assert.False(t, tr.IsApplicable(m, ctx),
			"return operands structurally require their exact id")
	})

	t.Run("replacement not available at use", func(t *testing.T) {
		m := testutil.ConditionalModule()
		ctx := newContext(m)
		ctx.Facts.AddFactIDIsIrrelevant(m, 5)
		_, blk12 := m.BlockByLabel(12)
		tr := &fuzz.ReplaceIrrelevantID{
			IDUse:         fuzz.MakeIDUseDescriptor(blk12, 0, 0),
			ReplacementID: 21, // defined in the other arm
		}
		assert.False(t, tr.IsApplicable(m, ctx))
	})
}
