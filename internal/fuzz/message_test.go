package fuzz_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanomil/SPIRV-Tools/internal/fuzz"
)

func TestFromMessage_Roundtrip(t *testing.T) {
	tr := &fuzz.ReplaceIrrelevantID{
		IDUse: fuzz.IDUseDescriptor{
			IDOfInterest: 5,
			UsingInst:    fuzz.InstructionDescriptor{BaseResult: 12, Opcode: "OpIAdd"},
		},
		ReplacementID: 7,
	}

	msg := tr.ToMessage()
	assert.Equal(t, fuzz.KindReplaceIrrelevantID, msg.Kind)

	// Through JSON, as the store round-trips it.
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	var decoded fuzz.Message
	require.NoError(t, json.Unmarshal(data, &decoded))

	back, err := fuzz.FromMessage(decoded)
	require.NoError(t, err)
	restored, ok := back.(*fuzz.ReplaceIrrelevantID)
	require.True(t, ok)
	assert.Equal(t, tr, restored)
}

func TestFromMessage_EveryKind(t *testing.T) {
	records := []fuzz.Transformation{
		&fuzz.FlattenConditionalBranch{HeaderBlockID: 11},
		&fuzz.MergeFunctionReturns{FunctionID: 10},
		&fuzz.ReplaceIrrelevantID{ReplacementID: 7},
		&fuzz.AddLoopIntConstantSynonym{ConstantID: 7},
		&fuzz.AddPhiSynonym{BlockID: 14},
	}
	for _, tr := range records {
		back, err := fuzz.FromMessage(tr.ToMessage())
		require.NoError(t, err)
		assert.Equal(t, tr, back)
	}
}

func TestFromMessage_Corrupt(t *testing.T) {
	_, err := fuzz.FromMessage(fuzz.Message{Kind: "mystery"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transformation kind")

	_, err = fuzz.FromMessage(fuzz.Message{Kind: fuzz.KindAddPhiSynonym})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no payload")
}
