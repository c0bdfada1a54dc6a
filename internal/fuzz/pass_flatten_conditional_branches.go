package fuzz

import "github.com/stefanomil/SPIRV-Tools/internal/ir"

// PassFlattenConditionalBranches proposes flattening randomly chosen
// selection constructs into straight-line code.
type PassFlattenConditionalBranches struct{}

func (PassFlattenConditionalBranches) Name() string { return "flatten-conditional-branches" }

// Run materializes the candidate headers per function before mutating, since
// flattening restructures the block list under iteration.
func (PassFlattenConditionalBranches) Run(m *ir.Module, ctx *Context, fctx *FuzzerContext, seq *Sequence) {
	for _, fn := range m.Functions {
		var headers []ir.ID
		for _, b := range fn.Blocks {
			if ir.IsSelectionHeader(b) {
				headers = append(headers, b.Label)
			}
		}
		for _, headerID := range headers {
			if !fctx.ChoosePercentage(fctx.ChanceOfFlatteningConditionalBranch) {
				continue
			}
			f, header := m.BlockByLabel(headerID)
			if header == nil {
				// A previous flattening in this sweep may have removed the
				// construct.
				continue
			}
			var needIDs []*ir.Instruction
			if !ConditionalCanBeFlattened(m, f, header, &needIDs) {
				continue
			}
			var freshLists []InstructionFreshIDs
			ok := true
			for _, inst := range needIDs {
				_, blk, idx, found := locateInstruction(m, inst)
				if !found {
					ok = false
					break
				}
				freshLists = append(freshLists, InstructionFreshIDs{
					Instruction: MakeInstructionDescriptor(blk, idx),
					FreshIDs:    fctx.FreshIDs(m, NumFreshIDsNeededByInstruction(m, inst)),
				})
			}
			if !ok {
				continue
			}
			maybeApply(&FlattenConditionalBranch{
				HeaderBlockID:       headerID,
				InstructionFreshIDs: freshLists,
			}, m, ctx, seq)
		}
	}
}
