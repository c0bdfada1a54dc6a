package fuzz

import "github.com/stefanomil/SPIRV-Tools/internal/ir"

// PassAddLoopIntConstantSynonyms proposes materializing counted loops whose
// final accumulator value is a synonym of an existing integer constant.
type PassAddLoopIntConstantSynonyms struct{}

func (PassAddLoopIntConstantSynonyms) Name() string { return "add-loop-int-constant-synonyms" }

func (PassAddLoopIntConstantSynonyms) Run(m *ir.Module, ctx *Context, fctx *FuzzerContext, seq *Sequence) {
	constants := intConstantIDs(m)
	if len(constants) == 0 {
		return
	}
	for _, fn := range m.Functions {
		var sites []ir.ID
		for _, b := range fn.Blocks {
			if len(m.Preds(fn, b.Label)) == 1 && !m.IsMergeBlock(fn, b.Label) {
				sites = append(sites, b.Label)
			}
		}
		for _, site := range sites {
			if !fctx.ChoosePercentage(fctx.ChanceOfAddingLoopSynonym) {
				continue
			}
			constantID := constants[fctx.RandomIndex(len(constants))]
			stepID := constants[fctx.RandomIndex(len(constants))]
			if !m.TypesEqualUpToSign(m.TypeOf(constantID), m.TypeOf(stepID)) {
				continue
			}
			n := fctx.RandomInRange(1, 32)
			numIterationsID := m.SignedInt32Constant(int32(n))
			if numIterationsID == 0 {
				continue
			}

			// The initial value must satisfy I = C + S*N componentwise; only
			// propose the site if such a constant already exists.
			c, width, ok := m.IntConstantComponents(constantID)
			if !ok {
				continue
			}
			s, _, ok := m.IntConstantComponents(stepID)
			if !ok {
				continue
			}
			want := make([]int64, len(c))
			for i := range c {
				want[i] = truncate(c[i]+s[i]*int64(n), width)
			}
			initialID := findIntConstant(m, m.TypeOf(constantID), want, width)
			if initialID == 0 {
				continue
			}

			maybeApply(&AddLoopIntConstantSynonym{
				ConstantID:       constantID,
				InitialValID:     initialID,
				StepValID:        stepID,
				NumIterationsID:  numIterationsID,
				BlockAfterLoopID: site,
				SynID:            fctx.FreshID(m),
				LoopID:           fctx.FreshID(m),
				CtrID:            fctx.FreshID(m),
				TempID:           fctx.FreshID(m),
				EventualSynID:    fctx.FreshID(m),
				IncrementedCtrID: fctx.FreshID(m),
				CondID:           fctx.FreshID(m),
			}, m, ctx, seq)
		}
	}
}

// intConstantIDs returns the ids of all scalar integer and vector-of-integer
// constants in the module, in declaration order.
func intConstantIDs(m *ir.Module) []ir.ID {
	var out []ir.ID
	for _, g := range m.Globals {
		if _, _, ok := m.IntConstantComponents(g.Result); ok {
			out = append(out, g.Result)
		}
	}
	return out
}

// findIntConstant returns a declared constant of a type equal up to sign to
// typeID whose sign-extended components match want, or zero.
func findIntConstant(m *ir.Module, typeID ir.ID, want []int64, width int) ir.ID {
	for _, g := range m.Globals {
		values, w, ok := m.IntConstantComponents(g.Result)
		if !ok || w != width || len(values) != len(want) {
			continue
		}
		if !m.TypesEqualUpToSign(g.Type, typeID) {
			continue
		}
		match := true
		for i := range want {
			if truncate(values[i], width) != truncate(want[i], width) {
				match = false
				break
			}
		}
		if match {
			return g.Result
		}
	}
	return 0
}
