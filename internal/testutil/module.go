// Package testutil builds the small IR modules the engine's tests mutate.
// Every fixture documents its id layout so tests can reference blocks and
// values directly.
package testutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stefanomil/SPIRV-Tools/internal/ir"
)

// ConditionalModule returns a non-void function with one if/else whose arms
// are pure arithmetic and converge on a value-merge:
//
//	%1 void  %2 bool  %3 int32s
//	%4 true  %5 = 1  %6 = 2  %7 = 10
//	fn %10 returns %3:
//	  %11: selection merge %14; branch-conditional %4, %12, %13
//	  %12: %20 = iadd %5 %6; branch %14
//	  %13: %21 = imul %5 %6; branch %14
//	  %14: %22 = phi [%20,%12] [%21,%13]; return-value %22
func ConditionalModule() *ir.Module {
	return &ir.Module{
		IDBound: 23,
		Globals: []*ir.Instruction{
			{Opcode: ir.OpTypeVoid, Result: 1},
			{Opcode: ir.OpTypeBool, Result: 2},
			{Opcode: ir.OpTypeInt, Result: 3, Operands: []ir.ID{32, 1}},
			{Opcode: ir.OpConstantTrue, Type: 2, Result: 4},
			{Opcode: ir.OpConstant, Type: 3, Result: 5, Operands: []ir.ID{1}},
			{Opcode: ir.OpConstant, Type: 3, Result: 6, Operands: []ir.ID{2}},
			{Opcode: ir.OpConstant, Type: 3, Result: 7, Operands: []ir.ID{10}},
		},
		Functions: []*ir.Function{{
			Result: 10,
			Type:   3,
			Blocks: []*ir.Block{
				{
					Label: 11,
					Merge: &ir.Merge{Kind: ir.SelectionMerge, MergeBlock: 14},
					Instructions: []*ir.Instruction{
						{Opcode: ir.OpBranchConditional, Operands: []ir.ID{4, 12, 13}},
					},
				},
				{
					Label: 12,
					Instructions: []*ir.Instruction{
						{Opcode: ir.OpIAdd, Type: 3, Result: 20, Operands: []ir.ID{5, 6}},
						{Opcode: ir.OpBranch, Operands: []ir.ID{14}},
					},
				},
				{
					Label: 13,
					Instructions: []*ir.Instruction{
						{Opcode: ir.OpIMul, Type: 3, Result: 21, Operands: []ir.ID{5, 6}},
						{Opcode: ir.OpBranch, Operands: []ir.ID{14}},
					},
				},
				{
					Label: 14,
					Instructions: []*ir.Instruction{
						{Opcode: ir.OpPhi, Type: 3, Result: 22, Operands: []ir.ID{20, 12, 21, 13}},
						{Opcode: ir.OpReturnValue, Operands: []ir.ID{22}},
					},
				},
			},
		}},
	}
}

// LoopWithReturnsModule returns a non-void function with an early return
// inside a loop and a tail return after it:
//
//	%1 void  %2 bool  %3 int32s
//	%4 true  %5 false  %6 = 0  %7 = 1
//	fn %10 returns %3:
//	  %11: branch %12
//	  %12: loop merge %15 continue %14; branch-conditional %4, %13, %15
//	  %13: return-value %6
//	  %14: branch %12
//	  %15: branch %16
//	  %16: return-value %7
func LoopWithReturnsModule() *ir.Module {
	return &ir.Module{
		IDBound: 20,
		Globals: []*ir.Instruction{
			{Opcode: ir.OpTypeVoid, Result: 1},
			{Opcode: ir.OpTypeBool, Result: 2},
			{Opcode: ir.OpTypeInt, Result: 3, Operands: []ir.ID{32, 1}},
			{Opcode: ir.OpConstantTrue, Type: 2, Result: 4},
			{Opcode: ir.OpConstantFalse, Type: 2, Result: 5},
			{Opcode: ir.OpConstant, Type: 3, Result: 6, Operands: []ir.ID{0}},
			{Opcode: ir.OpConstant, Type: 3, Result: 7, Operands: []ir.ID{1}},
		},
		Functions: []*ir.Function{{
			Result: 10,
			Type:   3,
			Blocks: []*ir.Block{
				{
					Label: 11,
					Instructions: []*ir.Instruction{
						{Opcode: ir.OpBranch, Operands: []ir.ID{12}},
					},
				},
				{
					Label: 12,
					Merge: &ir.Merge{Kind: ir.LoopMerge, MergeBlock: 15, ContinueTarget: 14},
					Instructions: []*ir.Instruction{
						{Opcode: ir.OpBranchConditional, Operands: []ir.ID{4, 13, 15}},
					},
				},
				{
					Label: 13,
					Instructions: []*ir.Instruction{
						{Opcode: ir.OpReturnValue, Operands: []ir.ID{6}},
					},
				},
				{
					Label: 14,
					Instructions: []*ir.Instruction{
						{Opcode: ir.OpBranch, Operands: []ir.ID{12}},
					},
				},
				{
					Label: 15,
					Instructions: []*ir.Instruction{
						{Opcode: ir.OpBranch, Operands: []ir.ID{16}},
					},
				},
				{
					Label: 16,
					Instructions: []*ir.Instruction{
						{Opcode: ir.OpReturnValue, Operands: []ir.ID{7}},
					},
				},
			},
		}},
	}
}

// StraightLineModule returns a void function of two blocks with the integer
// constants the loop-synonym construction needs:
//
//	%1 void  %2 bool  %3 int32s
//	%4 = 0  %5 = 1  %6 = 5  %7 = 2 (C)  %8 = 7 (I)
//	fn %10 returns %1:
//	  %11: branch %12
//	  %12: return
//
// C = I - S*N holds for C=%7, I=%8, S=%5, N=%6 (2 = 7 - 1*5).
func StraightLineModule() *ir.Module {
	return &ir.Module{
		IDBound: 13,
		Globals: []*ir.Instruction{
			{Opcode: ir.OpTypeVoid, Result: 1},
			{Opcode: ir.OpTypeBool, Result: 2},
			{Opcode: ir.OpTypeInt, Result: 3, Operands: []ir.ID{32, 1}},
			{Opcode: ir.OpConstant, Type: 3, Result: 4, Operands: []ir.ID{0}},
			{Opcode: ir.OpConstant, Type: 3, Result: 5, Operands: []ir.ID{1}},
			{Opcode: ir.OpConstant, Type: 3, Result: 6, Operands: []ir.ID{5}},
			{Opcode: ir.OpConstant, Type: 3, Result: 7, Operands: []ir.ID{2}},
			{Opcode: ir.OpConstant, Type: 3, Result: 8, Operands: []ir.ID{7}},
		},
		Functions: []*ir.Function{{
			Result: 10,
			Type:   1,
			Blocks: []*ir.Block{
				{
					Label: 11,
					Instructions: []*ir.Instruction{
						{Opcode: ir.OpBranch, Operands: []ir.ID{12}},
					},
				},
				{
					Label: 12,
					Instructions: []*ir.Instruction{
						{Opcode: ir.OpReturn},
					},
				},
			},
		}},
	}
}

// CloneModule deep-copies a module through its JSON form.
func CloneModule(t *testing.T, m *ir.Module) *ir.Module {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, ir.EncodeJSON(&buf, m))
	clone, err := ir.DecodeJSON(&buf)
	require.NoError(t, err)
	return clone
}
