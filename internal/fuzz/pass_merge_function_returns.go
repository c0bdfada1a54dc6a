package fuzz

import "github.com/stefanomil/SPIRV-Tools/internal/ir"

// PassMergeFunctionReturns proposes collapsing the early returns of randomly
// chosen functions into a single tail return.
type PassMergeFunctionReturns struct{}

func (PassMergeFunctionReturns) Name() string { return "merge-function-returns" }

// Run materializes the function list up front, since the mutation restructures
// the function being iterated.
func (PassMergeFunctionReturns) Run(m *ir.Module, ctx *Context, fctx *FuzzerContext, seq *Sequence) {
	var functions []ir.ID
	for _, fn := range m.Functions {
		functions = append(functions, fn.Result)
	}
	for _, fnID := range functions {
		if !fctx.ChoosePercentage(fctx.ChanceOfMergingFunctionReturns) {
			continue
		}
		fn := m.FunctionByID(fnID)

		// Only worth proposing when the function has more than one exit, or
		// an exit buried inside a loop.
		returnBlocks := reachableReturnBlocks(m, fn)
		if len(returnBlocks) == 0 {
			continue
		}
		if len(returnBlocks) == 1 && m.LoopMergeBlock(fn, returnBlocks[0]) == 0 {
			continue
		}

		voidReturn := m.TypeIsVoid(fn.Type)
		available := typesToIDAvailableAfterEntry(m, fn)
		anyReturnable := ir.ID(0)
		if !voidReturn {
			anyReturnable = available[fn.Type]
			if anyReturnable == 0 {
				continue
			}
		}

		var infos []ReturnMergingInfo
		ok := true
		for _, mb := range sortedIDs(relevantMergeBlocks(m, fn, returnBlocks)) {
			info := ReturnMergingInfo{
				MergeBlockID:  mb,
				IsReturningID: fctx.FreshID(m),
			}
			if !voidReturn {
				info.MaybeReturnValID = fctx.FreshID(m)
			}
			_, block := m.BlockByLabel(mb)
			for _, inst := range block.Instructions {
				if inst.Opcode != ir.OpPhi {
					break
				}
				suitable := available[inst.Type]
				if suitable == 0 {
					ok = false
					break
				}
				info.PhiToSuitableID = append(info.PhiToSuitableID, IDPair{First: inst.Result, Second: suitable})
			}
			if !ok {
				break
			}
			infos = append(infos, info)
		}
		if !ok {
			continue
		}

		t := &MergeFunctionReturns{
			FunctionID:         fnID,
			OuterHeaderID:      fctx.FreshID(m),
			OuterReturnID:      fctx.FreshID(m),
			AnyReturnableValID: anyReturnable,
			ReturnMergingInfo:  infos,
		}
		if !voidReturn {
			t.ReturnValID = fctx.FreshID(m)
		}
		maybeApply(t, m, ctx, seq)
	}
}
