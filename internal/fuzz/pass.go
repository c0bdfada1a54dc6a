package fuzz

import "github.com/stefanomil/SPIRV-Tools/internal/ir"

// Pass is one randomized mutation sweep. A pass scans the module with a
// deterministic structure (functions, then blocks, then instructions, at the
// granularity its variant needs) while its content decisions come from the
// FuzzerContext. A pass never backtracks: a discarded candidate is not
// retried within the same sweep.
type Pass interface {
	Name() string
	Run(m *ir.Module, ctx *Context, fctx *FuzzerContext, seq *Sequence)
}

// maybeApply tries a speculatively built transformation: if it applies, it is
// applied and recorded; otherwise it is silently discarded. Construction is
// cheap, so passes probe freely.
func maybeApply(t Transformation, m *ir.Module, ctx *Context, seq *Sequence) bool {
	if !t.IsApplicable(m, ctx) {
		return false
	}
	t.Apply(m, ctx)
	seq.Append(t)
	return true
}

// locateInstruction finds the block position of inst by identity. Needed for
// building descriptors of instructions that have no result id.
func locateInstruction(m *ir.Module, inst *ir.Instruction) (fn *ir.Function, blk *ir.Block, idx int, ok bool) {
	for _, f := range m.Functions {
		for _, b := range f.Blocks {
			for i, candidate := range b.Instructions {
				if candidate == inst {
					return f, b, i, true
				}
			}
		}
	}
	return nil, nil, 0, false
}
