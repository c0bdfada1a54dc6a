package fuzz

import (
	"github.com/stefanomil/SPIRV-Tools/internal/fuzz/fact"
	"github.com/stefanomil/SPIRV-Tools/internal/ir"
)

// PassAddPhiSynonyms proposes inserting value-merges over existing synonym
// classes, growing the classes with the merged results.
type PassAddPhiSynonyms struct{}

func (PassAddPhiSynonyms) Name() string { return "add-phi-synonyms" }

func (PassAddPhiSynonyms) Run(m *ir.Module, ctx *Context, fctx *FuzzerContext, seq *Sequence) {
	for _, fn := range m.Functions {
		var blocks []ir.ID
		for _, b := range fn.Blocks {
			blocks = append(blocks, b.Label)
		}
		for _, blockID := range blocks {
			if !fctx.ChoosePercentage(fctx.ChanceOfAddingPhiSynonym) {
				continue
			}
			preds := m.Preds(fn, blockID)
			if len(preds) == 0 {
				continue
			}
			seeds := synonymClassSeeds(m, ctx.Facts)
			if len(seeds) == 0 {
				continue
			}
			seed := seeds[fctx.RandomIndex(len(seeds))]
			candidates := append([]ir.ID{seed}, ctx.Facts.SynonymsFor(seed)...)

			// Pick, for each incoming edge, a class member usable where that
			// edge leaves its predecessor.
			var pairs []IDPair
			ok := true
			for _, pred := range preds {
				_, predBlock := m.BlockByLabel(pred)
				var usable []ir.ID
				for _, id := range candidates {
					if m.IDIsAvailableBefore(fn, predBlock, len(predBlock.Instructions)-1, id) {
						usable = append(usable, id)
					}
				}
				if len(usable) == 0 {
					ok = false
					break
				}
				pairs = append(pairs, IDPair{First: pred, Second: usable[fctx.RandomIndex(len(usable))]})
			}
			if !ok {
				continue
			}
			maybeApply(&AddPhiSynonym{
				BlockID:  blockID,
				PredToID: pairs,
				FreshID:  fctx.FreshID(m),
			}, m, ctx, seq)
		}
	}
}

// synonymClassSeeds returns one representative per non-trivial synonym class,
// in deterministic module order.
func synonymClassSeeds(m *ir.Module, facts *fact.Manager) []ir.ID {
	covered := map[ir.ID]bool{}
	var seeds []ir.ID
	consider := func(id ir.ID) {
		if id == 0 || covered[id] {
			return
		}
		others := facts.SynonymsFor(id)
		if len(others) == 0 {
			return
		}
		seeds = append(seeds, id)
		covered[id] = true
		for _, other := range others {
			covered[other] = true
		}
	}
	for _, g := range m.Globals {
		consider(g.Result)
	}
	for _, fn := range m.Functions {
		for _, p := range fn.Params {
			consider(p.Result)
		}
		for _, b := range fn.Blocks {
			for _, inst := range b.Instructions {
				consider(inst.Result)
			}
		}
	}
	return seeds
}
