package fuzz

import (
	"github.com/stefanomil/SPIRV-Tools/internal/fuzz/fact"
	"github.com/stefanomil/SPIRV-Tools/internal/ir"
)

// InitialFacts is the serializable set of facts a run was seeded with before
// any transformation ran. Facts created during the run are re-created by the
// transformations themselves on replay; only the seed facts need persisting.
type InitialFacts struct {
	IrrelevantIDs        []ir.ID `json:"irrelevant_ids,omitempty"`
	PointeeIrrelevantIDs []ir.ID `json:"pointee_irrelevant_ids,omitempty"`
	DeadBlockIDs         []ir.ID `json:"dead_block_ids,omitempty"`
}

// Seed asserts the facts into a fresh manager. Panics with a fact contract
// violation if an id does not satisfy its fact's preconditions against m.
func (f *InitialFacts) Seed(m *ir.Module, facts *fact.Manager) {
	for _, id := range f.IrrelevantIDs {
		facts.AddFactIDIsIrrelevant(m, id)
	}
	for _, id := range f.PointeeIrrelevantIDs {
		facts.AddFactPointeeIsIrrelevant(m, id)
	}
	for _, id := range f.DeadBlockIDs {
		facts.AddFactBlockIsDead(id)
	}
}
