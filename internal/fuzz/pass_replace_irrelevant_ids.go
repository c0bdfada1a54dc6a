package fuzz

import "github.com/stefanomil/SPIRV-Tools/internal/ir"

// PassReplaceIrrelevantIDs proposes replacing uses of ids whose values are
// recorded as don't-cares with other same-typed ids. This is the highest
// frequency, cheapest mutation in the engine.
type PassReplaceIrrelevantIDs struct{}

func (PassReplaceIrrelevantIDs) Name() string { return "replace-irrelevant-ids" }

func (PassReplaceIrrelevantIDs) Run(m *ir.Module, ctx *Context, fctx *FuzzerContext, seq *Sequence) {
	for _, id := range ctx.Facts.IrrelevantIDs() {
		typeID := m.TypeOf(id)
		if typeID == 0 {
			continue
		}
		// Candidate uses are materialized before any replacement rewrites
		// operands under iteration.
		uses := m.Uses(id)
		for _, use := range uses {
			if !fctx.ChoosePercentage(fctx.ChanceOfReplacingIrrelevantID) {
				continue
			}
			if !idUseCanBeReplaced(use.Inst, use.OperandIndex) {
				continue
			}
			fn, blk, idx, found := locateInstruction(m, use.Inst)
			if !found {
				continue
			}
			replacements := sameTypedIDsAvailableAt(m, fn, blk, idx, typeID, id)
			if len(replacements) == 0 {
				continue
			}
			maybeApply(&ReplaceIrrelevantID{
				IDUse:         MakeIDUseDescriptor(blk, idx, use.OperandIndex),
				ReplacementID: replacements[fctx.RandomIndex(len(replacements))],
			}, m, ctx, seq)
		}
	}
}

// sameTypedIDsAvailableAt collects every id of the given type, other than
// exclude, whose definition is available at the use point, in deterministic
// module order.
func sameTypedIDsAvailableAt(m *ir.Module, fn *ir.Function, blk *ir.Block, idx int, typeID, exclude ir.ID) []ir.ID {
	var out []ir.ID
	consider := func(id ir.ID) {
		if id == 0 || id == exclude || m.TypeOf(id) != typeID {
			return
		}
		if m.IDIsAvailableBefore(fn, blk, idx, id) {
			out = append(out, id)
		}
	}
	for _, g := range m.Globals {
		consider(g.Result)
	}
	for _, p := range fn.Params {
		consider(p.Result)
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			consider(inst.Result)
		}
	}
	return out
}
