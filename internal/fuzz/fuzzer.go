package fuzz

import (
	"go.uber.org/zap"

	"github.com/stefanomil/SPIRV-Tools/internal/fuzz/fact"
	"github.com/stefanomil/SPIRV-Tools/internal/ir"
)

// Fuzzer drives one fuzzing run: a fixed ordering of passes sweeping one
// module, sharing one fact store, one overflow source and one replay log.
// A run is fully determined by (module, seed).
type Fuzzer struct {
	fctx   *FuzzerContext
	passes []Pass
	log    *zap.Logger
	seed   int64
}

// Option configures a Fuzzer.
type Option func(*Fuzzer)

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(f *Fuzzer) { f.log = log }
}

// WithPasses overrides the default pass ordering.
func WithPasses(passes ...Pass) Option {
	return func(f *Fuzzer) { f.passes = passes }
}

// DefaultPasses returns the standard pass ordering: synonym construction
// first so later passes see richer fact state, structural passes next, and
// the high-frequency id replacement last.
func DefaultPasses() []Pass {
	return []Pass{
		PassAddLoopIntConstantSynonyms{},
		PassAddPhiSynonyms{},
		PassMergeFunctionReturns{},
		PassFlattenConditionalBranches{},
		PassReplaceIrrelevantIDs{},
	}
}

// New returns a Fuzzer seeded with seed.
func New(seed int64, opts ...Option) *Fuzzer {
	f := &Fuzzer{
		fctx:   NewFuzzerContext(seed),
		passes: DefaultPasses(),
		log:    zap.NewNop(),
		seed:   seed,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Seed returns the seed the run was constructed with.
func (f *Fuzzer) Seed() int64 { return f.seed }

// Run mutates m in place through every pass and returns the replay log of
// the transformations that were applied.
func (f *Fuzzer) Run(m *ir.Module, facts *fact.Manager) *Sequence {
	ctx := &Context{
		Facts:    facts,
		Overflow: &ModuleOverflowSource{Module: m},
	}
	seq := &Sequence{}

	f.log.Info("fuzzing run starting",
		zap.Int64("seed", f.seed),
		zap.Uint32("id_bound", uint32(m.IDBound)),
		zap.Int("functions", len(m.Functions)),
	)

	for _, pass := range f.passes {
		before := seq.Len()
		pass.Run(m, ctx, f.fctx, seq)
		f.log.Debug("pass finished",
			zap.String("pass", pass.Name()),
			zap.Int("applied", seq.Len()-before),
		)
	}

	f.log.Info("fuzzing run finished",
		zap.Int("transformations", seq.Len()),
		zap.Uint32("id_bound", uint32(m.IDBound)),
	)
	return seq
}
