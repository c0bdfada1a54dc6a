package fuzz

import (
	"math/rand"

	"github.com/stefanomil/SPIRV-Tools/internal/ir"
)

// Chance ranges from which a fuzzer run draws its per-pass probabilities.
// Each run commits to one concrete percentage per pass, picked uniformly from
// the range at construction, so runs differ in aggressiveness but each run is
// internally consistent.
var (
	chanceOfFlatteningConditionalBranch = [2]uint32{5, 45}
	chanceOfMergingFunctionReturns      = [2]uint32{20, 90}
	chanceOfReplacingIrrelevantID       = [2]uint32{35, 90}
	chanceOfAddingLoopSynonym           = [2]uint32{5, 30}
	chanceOfAddingPhiSynonym            = [2]uint32{5, 70}
)

// FuzzerContext holds the seeded random source and the per-pass chance
// parameters for one fuzzing run. All randomness in the engine flows through
// it, so a run is fully determined by its seed.
type FuzzerContext struct {
	rng       *rand.Rand
	nextFresh ir.ID

	ChanceOfFlatteningConditionalBranch uint32
	ChanceOfMergingFunctionReturns      uint32
	ChanceOfReplacingIrrelevantID       uint32
	ChanceOfAddingLoopSynonym           uint32
	ChanceOfAddingPhiSynonym            uint32
}

// NewFuzzerContext returns a context seeded with seed, with each chance
// parameter drawn from its range.
func NewFuzzerContext(seed int64) *FuzzerContext {
	rng := rand.New(rand.NewSource(seed))
	pick := func(r [2]uint32) uint32 {
		return r[0] + uint32(rng.Intn(int(r[1]-r[0]+1)))
	}
	return &FuzzerContext{
		rng:                                 rng,
		ChanceOfFlatteningConditionalBranch: pick(chanceOfFlatteningConditionalBranch),
		ChanceOfMergingFunctionReturns:      pick(chanceOfMergingFunctionReturns),
		ChanceOfReplacingIrrelevantID:       pick(chanceOfReplacingIrrelevantID),
		ChanceOfAddingLoopSynonym:           pick(chanceOfAddingLoopSynonym),
		ChanceOfAddingPhiSynonym:            pick(chanceOfAddingPhiSynonym),
	}
}

// ChoosePercentage returns true with probability chance/100.
func (f *FuzzerContext) ChoosePercentage(chance uint32) bool {
	return uint32(f.rng.Intn(100)) < chance
}

// RandomIndex returns a uniform index into a collection of length n.
func (f *FuzzerContext) RandomIndex(n int) int {
	return f.rng.Intn(n)
}

// RandomInRange returns a uniform value in [lo, hi].
func (f *FuzzerContext) RandomInRange(lo, hi int) int {
	return lo + f.rng.Intn(hi-lo+1)
}

// FreshID returns an id unused by the module and not yet handed out during
// this run. The module's id bound is not raised here: applying a
// transformation reserves the ids it actually uses, so ids drawn for rejected
// candidates leave no trace and replay arrives at the same bound.
func (f *FuzzerContext) FreshID(m *ir.Module) ir.ID {
	if f.nextFresh < m.IDBound {
		f.nextFresh = m.IDBound
	}
	id := f.nextFresh
	f.nextFresh++
	return id
}

// FreshIDs returns n consecutive ids from FreshID.
func (f *FuzzerContext) FreshIDs(m *ir.Module, n int) []ir.ID {
	ids := make([]ir.ID, n)
	for i := range ids {
		ids[i] = f.FreshID(m)
	}
	return ids
}
