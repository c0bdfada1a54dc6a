package ir

import "fmt"

// In-place edit primitives. Each primitive advances the module generation so
// cached analyses are recomputed on next use. None of them validate
// structured-control-flow well-formedness; that is the calling
// transformation's contract.

func (m *Module) blockIndex(fn *Function, id ID) int {
	for i, b := range fn.Blocks {
		if b.Label == id {
			return i
		}
	}
	return -1
}

// SplitBlock splits b before the instruction at index at. The instructions
// from at onward (including the terminator) move to a new block labelled
// freshLabel, which is inserted immediately after b in layout order and
// inherits b's merge marker. b is left without a terminator; the caller must
// append one. freshLabel is reserved with the id allocator.
func (m *Module) SplitBlock(fn *Function, b *Block, at int, freshLabel ID) *Block {
	if at < 0 || at > len(b.Instructions) {
		panic(fmt.Sprintf("ir: split index %d out of range", at))
	}
	m.ReserveID(freshLabel)
	tail := &Block{
		Label:        freshLabel,
		Merge:        b.Merge,
		Instructions: append([]*Instruction{}, b.Instructions[at:]...),
	}
	b.Merge = nil
	b.Instructions = b.Instructions[:at]
	idx := m.blockIndex(fn, b.Label)
	fn.Blocks = append(fn.Blocks, nil)
	copy(fn.Blocks[idx+2:], fn.Blocks[idx+1:])
	fn.Blocks[idx+1] = tail
	m.InvalidateAnalyses()
	return tail
}

// MoveBlockAfter moves the block labelled id so it immediately follows the
// block labelled after in layout order.
func (m *Module) MoveBlockAfter(fn *Function, id, after ID) {
	from := m.blockIndex(fn, id)
	if from < 0 {
		panic(fmt.Sprintf("ir: no block %%%d in function", id))
	}
	moved := fn.Blocks[from]
	fn.Blocks = append(fn.Blocks[:from], fn.Blocks[from+1:]...)
	to := m.blockIndex(fn, after)
	if to < 0 {
		panic(fmt.Sprintf("ir: no block %%%d in function", after))
	}
	fn.Blocks = append(fn.Blocks, nil)
	copy(fn.Blocks[to+2:], fn.Blocks[to+1:])
	fn.Blocks[to+1] = moved
	m.InvalidateAnalyses()
}

// InsertBlockAfter inserts nb immediately after the block labelled after,
// reserving its label.
func (m *Module) InsertBlockAfter(fn *Function, nb *Block, after ID) {
	idx := m.blockIndex(fn, after)
	if idx < 0 {
		panic(fmt.Sprintf("ir: no block %%%d in function", after))
	}
	m.ReserveID(nb.Label)
	fn.Blocks = append(fn.Blocks, nil)
	copy(fn.Blocks[idx+2:], fn.Blocks[idx+1:])
	fn.Blocks[idx+1] = nb
	m.InvalidateAnalyses()
}

// InsertBlockBefore inserts nb immediately before the block labelled before,
// reserving its label.
func (m *Module) InsertBlockBefore(fn *Function, nb *Block, before ID) {
	idx := m.blockIndex(fn, before)
	if idx < 0 {
		panic(fmt.Sprintf("ir: no block %%%d in function", before))
	}
	m.ReserveID(nb.Label)
	fn.Blocks = append(fn.Blocks, nil)
	copy(fn.Blocks[idx+1:], fn.Blocks[idx:])
	fn.Blocks[idx] = nb
	m.InvalidateAnalyses()
}

// AppendBlock adds nb at the end of fn, reserving its label.
func (m *Module) AppendBlock(fn *Function, nb *Block) {
	m.ReserveID(nb.Label)
	fn.Blocks = append(fn.Blocks, nb)
	m.InvalidateAnalyses()
}

// AddInstruction appends inst to b, reserving its result id if any.
func (m *Module) AddInstruction(b *Block, inst *Instruction) {
	if inst.Result != 0 {
		m.ReserveID(inst.Result)
	}
	b.Instructions = append(b.Instructions, inst)
	m.InvalidateAnalyses()
}

// InsertInstructionAt inserts inst at index at within b, reserving its
// result id if any.
func (m *Module) InsertInstructionAt(b *Block, at int, inst *Instruction) {
	if inst.Result != 0 {
		m.ReserveID(inst.Result)
	}
	b.Instructions = append(b.Instructions, nil)
	copy(b.Instructions[at+1:], b.Instructions[at:])
	b.Instructions[at] = inst
	m.InvalidateAnalyses()
}

// RemoveTerminator removes and returns b's terminator.
func (m *Module) RemoveTerminator(b *Block) *Instruction {
	term := b.Terminator()
	if term == nil {
		return nil
	}
	b.Instructions = b.Instructions[:len(b.Instructions)-1]
	m.InvalidateAnalyses()
	return term
}

// RemoveMergeMarker clears b's merge marker.
func (m *Module) RemoveMergeMarker(b *Block) {
	b.Merge = nil
	m.InvalidateAnalyses()
}

// SetOperand overwrites one operand of inst.
func (m *Module) SetOperand(inst *Instruction, index int, id ID) {
	inst.Operands[index] = id
	m.InvalidateAnalyses()
}

// PhiCount returns the number of leading OpPhi instructions in b.
func PhiCount(b *Block) int {
	n := 0
	for _, inst := range b.Instructions {
		if inst.Opcode != OpPhi {
			break
		}
		n++
	}
	return n
}
