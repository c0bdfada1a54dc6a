package fuzz_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanomil/SPIRV-Tools/internal/fuzz"
	"github.com/stefanomil/SPIRV-Tools/internal/ir"
	"github.com/stefanomil/SPIRV-Tools/internal/testutil"
)

func encode(t *testing.T, m *ir.Module) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, ir.EncodeJSON(&buf, m))
	return buf.String()
}

func TestReplay_ReproducesAppliedSequence(t *testing.T) {
	original := testutil.ConditionalModule()

	// Apply directly, recording as a pass would.
	fuzzed := testutil.CloneModule(t, original)
	ctx := newContext(fuzzed)
	seq := &fuzz.Sequence{}
	tr := &fuzz.FlattenConditionalBranch{HeaderBlockID: 11}
	require.True(t, tr.IsApplicable(fuzzed, ctx))
	tr.Apply(fuzzed, ctx)
	seq.Append(tr)
	require.Equal(t, 1, seq.Len())

	// Replaying the log against a pristine copy reproduces the result
	// byte for byte.
	replayed := testutil.CloneModule(t, original)
	require.NoError(t, fuzz.Replay(replayed, newContext(replayed), seq))
	assert.Equal(t, encode(t, fuzzed), encode(t, replayed))
}

func TestReplay_StopsAtFirstInapplicableStep(t *testing.T) {
	m := testutil.ConditionalModule()
	seq := &fuzz.Sequence{}
	seq.Append(&fuzz.FlattenConditionalBranch{HeaderBlockID: 11})
	seq.Append(&fuzz.FlattenConditionalBranch{HeaderBlockID: 11})

	err := fuzz.Replay(m, newContext(m), seq)
	require.Error(t, err)

	var replayErr *fuzz.ReplayError
	require.ErrorAs(t, err, &replayErr)
	assert.Equal(t, 1, replayErr.Step, "the construct is gone after the first flattening")
	assert.Equal(t, fuzz.KindFlattenConditionalBranch, replayErr.Kind)
	assert.Contains(t, err.Error(), "not applicable")

	// The first step still took effect.
	_, header := m.BlockByLabel(11)
	assert.Nil(t, header.Merge)
}

func TestReplay_CorruptRecord(t *testing.T) {
	m := testutil.ConditionalModule()
	seq := &fuzz.Sequence{Transformations: []fuzz.Message{{Kind: "mystery"}}}

	err := fuzz.Replay(m, newContext(m), seq)
	var replayErr *fuzz.ReplayError
	require.ErrorAs(t, err, &replayErr)
	assert.Equal(t, 0, replayErr.Step)
	assert.Contains(t, err.Error(), "unknown transformation kind")
}

func TestReplay_FactDependentStepNeedsSeededFacts(t *testing.T) {
	original := testutil.ConditionalModule()
	initial := &fuzz.InitialFacts{IrrelevantIDs: []ir.ID{5}}

	fuzzed := testutil.CloneModule(t, original)
	ctx := newContext(fuzzed)
	initial.Seed(fuzzed, ctx.Facts)

	_, blk12 := fuzzed.BlockByLabel(12)
	seq := &fuzz.Sequence{}
	tr := &fuzz.ReplaceIrrelevantID{
		IDUse:         fuzz.MakeIDUseDescriptor(blk12, 0, 0),
		ReplacementID: 7,
	}
	require.True(t, tr.IsApplicable(fuzzed, ctx))
	tr.Apply(fuzzed, ctx)
	seq.Append(tr)

	// Without the seed facts the replay refuses the step.
	bare := testutil.CloneModule(t, original)
	err := fuzz.Replay(bare, newContext(bare), seq)
	var replayErr *fuzz.ReplayError
	require.ErrorAs(t, err, &replayErr)
	assert.Equal(t, 0, replayErr.Step)

	// With them it reproduces the run.
	seeded := testutil.CloneModule(t, original)
	seededCtx := newContext(seeded)
	initial.Seed(seeded, seededCtx.Facts)
	require.NoError(t, fuzz.Replay(seeded, seededCtx, seq))
	assert.Equal(t, encode(t, fuzzed), encode(t, seeded))
}
