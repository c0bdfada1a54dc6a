package ir

// typeInst resolves a type id to its declaring instruction.
func (m *Module) typeInst(typeID ID) *Instruction {
	inst := m.DefInstruction(typeID)
	if inst == nil || !inst.Opcode.IsTypeDecl() {
		return nil
	}
	return inst
}

// TypeIsVoid reports whether typeID declares the void type.
func (m *Module) TypeIsVoid(typeID ID) bool {
	t := m.typeInst(typeID)
	return t != nil && t.Opcode == OpTypeVoid
}

// TypeIsBool reports whether typeID declares the boolean type.
func (m *Module) TypeIsBool(typeID ID) bool {
	t := m.typeInst(typeID)
	return t != nil && t.Opcode == OpTypeBool
}

// TypeIsPointer reports whether typeID declares a pointer type.
func (m *Module) TypeIsPointer(typeID ID) bool {
	t := m.typeInst(typeID)
	return t != nil && t.Opcode == OpTypePointer
}

// TypeIsInteger reports whether typeID declares a scalar integer type.
func (m *Module) TypeIsInteger(typeID ID) bool {
	t := m.typeInst(typeID)
	return t != nil && t.Opcode == OpTypeInt
}

// TypeIsFloat reports whether typeID declares a scalar float type.
func (m *Module) TypeIsFloat(typeID ID) bool {
	t := m.typeInst(typeID)
	return t != nil && t.Opcode == OpTypeFloat
}

// TypeIsVector reports whether typeID declares a vector type.
func (m *Module) TypeIsVector(typeID ID) bool {
	t := m.typeInst(typeID)
	return t != nil && t.Opcode == OpTypeVector
}

// VectorComponentType returns the component type of a vector type, or zero.
func (m *Module) VectorComponentType(typeID ID) ID {
	t := m.typeInst(typeID)
	if t == nil || t.Opcode != OpTypeVector || len(t.Operands) < 1 {
		return 0
	}
	return t.Operands[0]
}

// VectorComponentCount returns the component count of a vector type, or zero.
func (m *Module) VectorComponentCount(typeID ID) int {
	t := m.typeInst(typeID)
	if t == nil || t.Opcode != OpTypeVector || len(t.Operands) < 2 {
		return 0
	}
	return int(t.Operands[1])
}

// IntTypeWidth returns the bit width of a scalar integer type, or zero.
func (m *Module) IntTypeWidth(typeID ID) int {
	t := m.typeInst(typeID)
	if t == nil || t.Opcode != OpTypeInt || len(t.Operands) < 1 {
		return 0
	}
	return int(t.Operands[0])
}

// IntTypeIsSigned reports whether a scalar integer type is signed.
func (m *Module) IntTypeIsSigned(typeID ID) bool {
	t := m.typeInst(typeID)
	return t != nil && t.Opcode == OpTypeInt && len(t.Operands) >= 2 && t.Operands[1] == 1
}

// TypeIsAllowedInPhiSynonym reports whether typeID belongs to the type
// families a value-merge synonym may range over: bool, integer, float,
// vector, matrix, array or struct. Pointers in particular are excluded.
func (m *Module) TypeIsAllowedInPhiSynonym(typeID ID) bool {
	t := m.typeInst(typeID)
	if t == nil {
		return false
	}
	switch t.Opcode {
	case OpTypeBool, OpTypeInt, OpTypeFloat, OpTypeVector, OpTypeMatrix,
		OpTypeArray, OpTypeStruct:
		return true
	}
	return false
}

// TypesEqualUpToSign reports whether two type ids declare the same type,
// ignoring integer signedness. Integer scalars match on width; vectors match
// on count and componentwise equality up to sign.
func (m *Module) TypesEqualUpToSign(a, b ID) bool {
	if a == b {
		return true
	}
	ta, tb := m.typeInst(a), m.typeInst(b)
	if ta == nil || tb == nil || ta.Opcode != tb.Opcode {
		return false
	}
	switch ta.Opcode {
	case OpTypeInt:
		return len(ta.Operands) >= 1 && len(tb.Operands) >= 1 &&
			ta.Operands[0] == tb.Operands[0]
	case OpTypeVector:
		return len(ta.Operands) >= 2 && len(tb.Operands) >= 2 &&
			ta.Operands[1] == tb.Operands[1] &&
			m.TypesEqualUpToSign(ta.Operands[0], tb.Operands[0])
	}
	return false
}

// FindType returns the id of the first global type declaration matching the
// predicate, or zero.
func (m *Module) FindType(match func(*Instruction) bool) ID {
	for _, g := range m.Globals {
		if g.Opcode.IsTypeDecl() && match(g) {
			return g.Result
		}
	}
	return 0
}

// BoolType returns the id of the boolean type, or zero if undeclared.
func (m *Module) BoolType() ID {
	return m.FindType(func(t *Instruction) bool { return t.Opcode == OpTypeBool })
}

// IntType returns the id of the scalar integer type with the given width and
// signedness, or zero if undeclared.
func (m *Module) IntType(width int, signed bool) ID {
	want := ID(0)
	if signed {
		want = 1
	}
	return m.FindType(func(t *Instruction) bool {
		return t.Opcode == OpTypeInt && len(t.Operands) >= 2 &&
			t.Operands[0] == ID(width) && t.Operands[1] == want
	})
}
