package ir

// Generation returns the module's mutation generation. Cached analyses are
// keyed on this value; any structural edit advances it.
func (m *Module) Generation() uint64 {
	return m.gen
}

// InvalidateAnalyses discards every cached derived analysis. Transformations
// call this after mutating; subsequent queries recompute lazily.
func (m *Module) InvalidateAnalyses() {
	m.gen++
	m.cache = analysisCache{}
}

// FreshID consumes and returns the next unused id, raising the id bound.
func (m *Module) FreshID() ID {
	id := m.IDBound
	m.IDBound++
	return id
}

// ReserveID registers an externally chosen id with the allocator, raising
// the id bound past it. Every id introduced by a mutation must be reserved
// before any later fresh-id request is served.
func (m *Module) ReserveID(id ID) {
	if id >= m.IDBound {
		m.IDBound = id + 1
	}
}

// IsFresh reports whether id is non-zero and defined nowhere in the module.
func (m *Module) IsFresh(id ID) bool {
	return id != 0 && !m.IsDefined(id)
}

// defSite records where an id is defined. Inst is nil for block labels and
// function ids.
type defSite struct {
	Inst  *Instruction
	Fn    *Function
	Block *Block
	Index int // instruction index within Block, -1 otherwise
}

func (m *Module) defs() map[ID]defSite {
	if m.cache.defs != nil && m.cache.defsGen == m.gen {
		return m.cache.defs
	}
	defs := make(map[ID]defSite)
	for _, g := range m.Globals {
		if g.Result != 0 {
			defs[g.Result] = defSite{Inst: g, Index: -1}
		}
	}
	for _, f := range m.Functions {
		if f.Result != 0 {
			defs[f.Result] = defSite{Fn: f, Index: -1}
		}
		for _, p := range f.Params {
			defs[p.Result] = defSite{Inst: p, Fn: f, Index: -1}
		}
		for _, b := range f.Blocks {
			defs[b.Label] = defSite{Fn: f, Block: b, Index: -1}
			for i, inst := range b.Instructions {
				if inst.Result != 0 {
					defs[inst.Result] = defSite{Inst: inst, Fn: f, Block: b, Index: i}
				}
			}
		}
	}
	m.cache.defs = defs
	m.cache.defsGen = m.gen
	return defs
}

// IsDefined reports whether id is defined anywhere in the module, including
// block labels, function ids and parameters.
func (m *Module) IsDefined(id ID) bool {
	_, ok := m.defs()[id]
	return ok
}

// DefInstruction returns the instruction defining id, or nil if id is
// undefined or names a block or function.
func (m *Module) DefInstruction(id ID) *Instruction {
	return m.defs()[id].Inst
}

// TypeOf returns the type id of the value defined by id, or zero if id does
// not define a typed value.
func (m *Module) TypeOf(id ID) ID {
	d, ok := m.defs()[id]
	if !ok {
		return 0
	}
	if d.Inst != nil {
		return d.Inst.Type
	}
	return 0
}

// BlockByLabel returns the function and block labelled id.
func (m *Module) BlockByLabel(id ID) (*Function, *Block) {
	d, ok := m.defs()[id]
	if !ok || d.Block == nil || d.Index != -1 {
		return nil, nil
	}
	return d.Fn, d.Block
}

// FunctionByID returns the function whose id is id, or nil.
func (m *Module) FunctionByID(id ID) *Function {
	d, ok := m.defs()[id]
	if !ok || d.Fn == nil || d.Block != nil || d.Inst != nil {
		return nil
	}
	return d.Fn
}

// ContainingBlock returns the block and instruction index of the local
// instruction defining id. ok is false for non-local definitions.
func (m *Module) ContainingBlock(id ID) (fn *Function, blk *Block, idx int, ok bool) {
	d, found := m.defs()[id]
	if !found || d.Block == nil || d.Index < 0 {
		return nil, nil, 0, false
	}
	return d.Fn, d.Block, d.Index, true
}

// Use is a single operand position referencing an id.
type Use struct {
	Inst         *Instruction
	OperandIndex int
}

// idOperandIndices returns the operand positions of inst that hold ids, as
// opposed to literal words.
func idOperandIndices(inst *Instruction) []int {
	switch inst.Opcode {
	case OpTypeVoid, OpTypeBool, OpTypeInt, OpTypeFloat, OpConstant,
		OpConstantTrue, OpConstantFalse:
		return nil
	case OpTypeVector, OpTypeMatrix:
		// [component/column type, count literal]
		if len(inst.Operands) == 0 {
			return nil
		}
		return []int{0}
	}
	all := make([]int, len(inst.Operands))
	for i := range inst.Operands {
		all[i] = i
	}
	return all
}

// Uses returns every operand position in the module that references id.
// The traversal order is deterministic: globals first, then functions in
// order, blocks in layout order, instructions in block order.
func (m *Module) Uses(id ID) []Use {
	var uses []Use
	collect := func(inst *Instruction) {
		for _, i := range idOperandIndices(inst) {
			if inst.Operands[i] == id {
				uses = append(uses, Use{Inst: inst, OperandIndex: i})
			}
		}
	}
	for _, g := range m.Globals {
		collect(g)
	}
	for _, f := range m.Functions {
		for _, b := range f.Blocks {
			for _, inst := range b.Instructions {
				collect(inst)
			}
		}
	}
	return uses
}

// IDIsAvailableBefore reports whether id is usable as an operand of the
// instruction at useIdx in useBlock of fn. Globals and parameters of fn are
// always available; a local definition is available if its block strictly
// dominates the use block, or if it precedes the use in the same block.
// Passing len(useBlock.Instructions) as useIdx asks for availability at the
// end of the block.
func (m *Module) IDIsAvailableBefore(fn *Function, useBlock *Block, useIdx int, id ID) bool {
	d, ok := m.defs()[id]
	if !ok {
		return false
	}
	if d.Fn == nil {
		// Global type, constant or module-scope variable.
		return d.Inst != nil
	}
	if d.Fn != fn {
		return false
	}
	if d.Block == nil {
		// Parameter of fn.
		return d.Inst != nil
	}
	if d.Index < 0 {
		// Block label: not a value.
		return false
	}
	if d.Block == useBlock {
		return d.Index < useIdx
	}
	return m.Dominators(fn).Dominates(d.Block.Label, useBlock.Label)
}
