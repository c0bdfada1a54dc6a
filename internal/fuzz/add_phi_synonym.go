package fuzz

import "github.com/stefanomil/SPIRV-Tools/internal/ir"

// AddPhiSynonym inserts a value-merge combining ids that are already known
// synonymous, one per predecessor of a block, and records the merged result
// as a new member of their synonym class.
type AddPhiSynonym struct {
	BlockID ir.ID `json:"block_id"`
	// PredToID maps each predecessor label to the id flowing in from it.
	PredToID []IDPair `json:"pred_to_id"`
	FreshID  ir.ID    `json:"fresh_id"`
}

// IsApplicable requires the block to have at least one predecessor, the
// mapping to cover exactly those predecessors, every mapped id to be of one
// shared permitted type, pairwise synonymous, not marked irrelevant, and
// available at the end of its predecessor. The fresh id must be fresh.
func (t *AddPhiSynonym) IsApplicable(m *ir.Module, ctx *Context) bool {
	fn, block := m.BlockByLabel(t.BlockID)
	if block == nil {
		return false
	}
	preds := m.Preds(fn, t.BlockID)
	if len(preds) == 0 || len(t.PredToID) != len(preds) {
		return false
	}

	mapped := make(map[ir.ID]ir.ID, len(t.PredToID))
	for _, pair := range t.PredToID {
		if _, dup := mapped[pair.First]; dup {
			return false
		}
		mapped[pair.First] = pair.Second
	}

	typeID := ir.ID(0)
	first := ir.ID(0)
	for _, pred := range preds {
		id, ok := mapped[pred]
		if !ok || !m.IsDefined(id) {
			return false
		}
		if ctx.Facts.IDIsIrrelevant(id) || ctx.Facts.PointeeValueIsIrrelevant(id) {
			return false
		}
		if typeID == 0 {
			typeID = m.TypeOf(id)
			if !m.TypeIsAllowedInPhiSynonym(typeID) {
				return false
			}
			first = id
		} else if m.TypeOf(id) != typeID {
			return false
		}
		if !ctx.Facts.Synonymous(first, id) {
			return false
		}
		// The id must be usable where the incoming edge leaves its
		// predecessor.
		_, predBlock := m.BlockByLabel(pred)
		if !m.IDIsAvailableBefore(fn, predBlock, len(predBlock.Instructions)-1, id) {
			return false
		}
	}

	return checkIDIsFreshAndUnused(m, t.FreshID, map[ir.ID]bool{})
}

// Apply inserts the value-merge at the top of the block and extends the
// synonym class with its result.
func (t *AddPhiSynonym) Apply(m *ir.Module, ctx *Context) {
	fn, block := m.BlockByLabel(t.BlockID)
	preds := m.Preds(fn, t.BlockID)
	mapped := make(map[ir.ID]ir.ID, len(t.PredToID))
	for _, pair := range t.PredToID {
		mapped[pair.First] = pair.Second
	}

	var operands []ir.ID
	for _, pred := range preds {
		operands = append(operands, mapped[pred], pred)
	}
	m.InsertInstructionAt(block, 0, &ir.Instruction{
		Opcode:   ir.OpPhi,
		Type:     m.TypeOf(mapped[preds[0]]),
		Result:   t.FreshID,
		Operands: operands,
	})

	ctx.Facts.AddFactIDSynonym(m, t.FreshID, mapped[preds[0]])
	m.InvalidateAnalyses()
}

// ToMessage returns the replayable record for this transformation.
func (t *AddPhiSynonym) ToMessage() Message {
	return Message{Kind: KindAddPhiSynonym, AddPhiSynonym: t}
}
