package fuzz

import (
	"fmt"

	"github.com/stefanomil/SPIRV-Tools/internal/ir"
)

// Sequence is the append-only replay log of a fuzzing run. Replaying it
// against the originating module reproduces the final module exactly.
type Sequence struct {
	Transformations []Message `json:"transformations"`
}

// Append records an applied transformation.
func (s *Sequence) Append(t Transformation) {
	s.Transformations = append(s.Transformations, t.ToMessage())
}

// Len returns the number of recorded transformations.
func (s *Sequence) Len() int {
	return len(s.Transformations)
}

// ReplayError reports the first step of a sequence that failed to apply,
// which happens when the sequence is replayed against a module it was not
// derived from, or when a record is corrupt.
type ReplayError struct {
	Step int
	Kind Kind
	Err  error
}

func (e *ReplayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("replay step %d (%s): %v", e.Step, e.Kind, e.Err)
	}
	return fmt.Sprintf("replay step %d (%s): transformation not applicable", e.Step, e.Kind)
}

func (e *ReplayError) Unwrap() error { return e.Err }

// Replay applies a recorded sequence to m in order. It stops at the first
// transformation whose applicability check fails and reports which step
// failed; it never attempts repair or skipping.
func Replay(m *ir.Module, ctx *Context, s *Sequence) error {
	for i, msg := range s.Transformations {
		t, err := FromMessage(msg)
		if err != nil {
			return &ReplayError{Step: i, Kind: msg.Kind, Err: err}
		}
		if !t.IsApplicable(m, ctx) {
			return &ReplayError{Step: i, Kind: msg.Kind}
		}
		t.Apply(m, ctx)
	}
	return nil
}
