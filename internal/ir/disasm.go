package ir

import (
	"fmt"
	"strings"
)

// Disassemble renders the module in a stable textual form, used for
// diagnostics and golden tests. The output depends only on module content.
func Disassemble(m *Module) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; id bound %d\n", m.IDBound)
	for _, g := range m.Globals {
		sb.WriteString(formatInstruction(g))
		sb.WriteByte('\n')
	}
	for _, f := range m.Functions {
		fmt.Fprintf(&sb, "fn %%%d returns %%%d", f.Result, f.Type)
		if len(f.Params) > 0 {
			sb.WriteString(" (")
			for i, p := range f.Params {
				if i > 0 {
					sb.WriteByte(' ')
				}
				fmt.Fprintf(&sb, "%%%d:%%%d", p.Result, p.Type)
			}
			sb.WriteByte(')')
		}
		sb.WriteString(" {\n")
		for _, b := range f.Blocks {
			fmt.Fprintf(&sb, "%%%d:", b.Label)
			if b.Merge != nil {
				fmt.Fprintf(&sb, " ; %s merge %%%d", b.Merge.Kind, b.Merge.MergeBlock)
				if b.Merge.ContinueTarget != 0 {
					fmt.Fprintf(&sb, " continue %%%d", b.Merge.ContinueTarget)
				}
			}
			sb.WriteByte('\n')
			for _, inst := range b.Instructions {
				sb.WriteString("  ")
				sb.WriteString(formatInstruction(inst))
				sb.WriteByte('\n')
			}
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}

func formatInstruction(inst *Instruction) string {
	var sb strings.Builder
	if inst.Result != 0 {
		fmt.Fprintf(&sb, "%%%d = ", inst.Result)
	}
	sb.WriteString(string(inst.Opcode))
	if inst.Type != 0 {
		fmt.Fprintf(&sb, " %%%d", inst.Type)
	}
	idIdx := make(map[int]bool)
	for _, i := range idOperandIndices(inst) {
		idIdx[i] = true
	}
	for i, op := range inst.Operands {
		if idIdx[i] {
			fmt.Fprintf(&sb, " %%%d", op)
		} else {
			fmt.Fprintf(&sb, " %d", op)
		}
	}
	return sb.String()
}
