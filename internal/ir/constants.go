package ir

// ConstantInst returns the constant declaration for id, or nil if id does
// not name a declared constant.
func (m *Module) ConstantInst(id ID) *Instruction {
	inst := m.DefInstruction(id)
	if inst == nil || !inst.Opcode.IsConstantDecl() {
		return nil
	}
	return inst
}

// signExtend interprets the low width bits of raw as a signed value.
func signExtend(raw uint64, width int) int64 {
	if width >= 64 {
		return int64(raw)
	}
	shift := 64 - uint(width)
	return int64(raw<<shift) >> shift
}

// constantWords assembles the literal words of an OpConstant into a uint64,
// low word first.
func constantWords(inst *Instruction) uint64 {
	var raw uint64
	for i, w := range inst.Operands {
		if i >= 2 {
			break
		}
		raw |= uint64(w) << (32 * uint(i))
	}
	return raw
}

// IntConstantValue returns the sign-extended value of a scalar integer
// constant. Sign extension is applied regardless of the declared
// signedness, so that equality comparisons are width- and sign-agnostic.
func (m *Module) IntConstantValue(id ID) (int64, bool) {
	inst := m.ConstantInst(id)
	if inst == nil || inst.Opcode != OpConstant {
		return 0, false
	}
	width := m.IntTypeWidth(inst.Type)
	if width == 0 || width > 64 {
		return 0, false
	}
	return signExtend(constantWords(inst), width), true
}

// IntConstantComponents returns the sign-extended componentwise values of a
// scalar integer constant or a vector-of-integer composite constant, along
// with the component bit width.
func (m *Module) IntConstantComponents(id ID) (values []int64, width int, ok bool) {
	inst := m.ConstantInst(id)
	if inst == nil {
		return nil, 0, false
	}
	switch inst.Opcode {
	case OpConstant:
		v, valid := m.IntConstantValue(id)
		if !valid {
			return nil, 0, false
		}
		return []int64{v}, m.IntTypeWidth(inst.Type), true
	case OpConstantComposite:
		if !m.TypeIsVector(inst.Type) ||
			!m.TypeIsInteger(m.VectorComponentType(inst.Type)) {
			return nil, 0, false
		}
		width = m.IntTypeWidth(m.VectorComponentType(inst.Type))
		for _, comp := range inst.Operands {
			v, valid := m.IntConstantValue(comp)
			if !valid {
				return nil, 0, false
			}
			values = append(values, v)
		}
		return values, width, true
	}
	return nil, 0, false
}

// BoolConstant returns the id of the OpConstantTrue or OpConstantFalse
// declaration with the given value, or zero if undeclared.
func (m *Module) BoolConstant(value bool) ID {
	want := OpConstantFalse
	if value {
		want = OpConstantTrue
	}
	for _, g := range m.Globals {
		if g.Opcode == want {
			return g.Result
		}
	}
	return 0
}

// SignedInt32Constant returns the id of a declared 32-bit signed integer
// constant with the given value, or zero if undeclared.
func (m *Module) SignedInt32Constant(value int32) ID {
	for _, g := range m.Globals {
		if g.Opcode != OpConstant {
			continue
		}
		if m.IntTypeWidth(g.Type) != 32 || !m.IntTypeIsSigned(g.Type) {
			continue
		}
		if signExtend(constantWords(g), 32) == int64(value) {
			return g.Result
		}
	}
	return 0
}
