package fuzz

import (
	"fmt"

	"github.com/stefanomil/SPIRV-Tools/internal/ir"
)

// Kind tags a serialized transformation record.
type Kind string

const (
	KindFlattenConditionalBranch  Kind = "flatten_conditional_branch"
	KindMergeFunctionReturns      Kind = "merge_function_returns"
	KindReplaceIrrelevantID       Kind = "replace_irrelevant_id"
	KindAddLoopIntConstantSynonym Kind = "add_loop_int_constant_synonym"
	KindAddPhiSynonym             Kind = "add_phi_synonym"
)

// Message is the wire form of one transformation: a kind tag plus exactly
// one populated variant record. Records are flat and id-only, sufficient for
// lossless reconstruction.
type Message struct {
	Kind Kind `json:"kind"`

	FlattenConditionalBranch  *FlattenConditionalBranch  `json:"flatten_conditional_branch,omitempty"`
	MergeFunctionReturns      *MergeFunctionReturns      `json:"merge_function_returns,omitempty"`
	ReplaceIrrelevantID       *ReplaceIrrelevantID       `json:"replace_irrelevant_id,omitempty"`
	AddLoopIntConstantSynonym *AddLoopIntConstantSynonym `json:"add_loop_int_constant_synonym,omitempty"`
	AddPhiSynonym             *AddPhiSynonym             `json:"add_phi_synonym,omitempty"`
}

// IDPair is one (key id, value id) entry of a flattened map.
type IDPair struct {
	First  ir.ID `json:"first"`
	Second ir.ID `json:"second"`
}

// FromMessage reconstructs the transformation a record describes. The kind
// tag drives a closed constructor table; unknown tags or records whose
// variant payload is missing are corrupt.
func FromMessage(msg Message) (Transformation, error) {
	switch msg.Kind {
	case KindFlattenConditionalBranch:
		if msg.FlattenConditionalBranch != nil {
			return msg.FlattenConditionalBranch, nil
		}
	case KindMergeFunctionReturns:
		if msg.MergeFunctionReturns != nil {
			return msg.MergeFunctionReturns, nil
		}
	case KindReplaceIrrelevantID:
		if msg.ReplaceIrrelevantID != nil {
			return msg.ReplaceIrrelevantID, nil
		}
	case KindAddLoopIntConstantSynonym:
		if msg.AddLoopIntConstantSynonym != nil {
			return msg.AddLoopIntConstantSynonym, nil
		}
	case KindAddPhiSynonym:
		if msg.AddPhiSynonym != nil {
			return msg.AddPhiSynonym, nil
		}
	default:
		return nil, fmt.Errorf("unknown transformation kind %q", msg.Kind)
	}
	return nil, fmt.Errorf("transformation record %q has no payload", msg.Kind)
}
