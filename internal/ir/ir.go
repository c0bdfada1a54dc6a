// Package ir implements the structured, SSA-like intermediate representation
// that the fuzzing engine mutates.
//
// A Module is an arena of functions, blocks and instructions that refer to
// each other exclusively through integer ids. Ids are dense, process-wide
// unique and non-negative; the module's id bound is the smallest unused id
// and only ever rises. Control-flow edges are derived from terminator
// operands, never stored redundantly. Blocks carry an optional merge marker
// (selection or loop header), which is the only structural annotation on top
// of the instruction list.
package ir

// ID identifies a type, constant, instruction result, block label, function
// or function parameter. Zero is never a valid id.
type ID uint32

// Op is an instruction opcode. Opcodes are stored as strings so that
// serialized modules and replay artifacts stay readable.
type Op string

// Type-declaring opcodes. Operand layouts:
//
//	OpTypeInt      [width, signedness]      (literals)
//	OpTypeFloat    [width]                  (literal)
//	OpTypeVector   [component type, count]  (id, literal)
//	OpTypeMatrix   [column type, count]     (id, literal)
//	OpTypeArray    [element type, length]   (id, constant id)
//	OpTypeStruct   [member types...]        (ids)
//	OpTypePointer  [pointee type]           (id)
//	OpTypeFunction [return type, params...] (ids)
const (
	OpTypeVoid     Op = "OpTypeVoid"
	OpTypeBool     Op = "OpTypeBool"
	OpTypeInt      Op = "OpTypeInt"
	OpTypeFloat    Op = "OpTypeFloat"
	OpTypeVector   Op = "OpTypeVector"
	OpTypeMatrix   Op = "OpTypeMatrix"
	OpTypeArray    Op = "OpTypeArray"
	OpTypeStruct   Op = "OpTypeStruct"
	OpTypePointer  Op = "OpTypePointer"
	OpTypeFunction Op = "OpTypeFunction"
)

// Constant opcodes. OpConstant carries its value as one or two literal words
// (low word first) in Operands; OpConstantComposite carries component
// constant ids.
const (
	OpConstant          Op = "OpConstant"
	OpConstantTrue      Op = "OpConstantTrue"
	OpConstantFalse     Op = "OpConstantFalse"
	OpConstantComposite Op = "OpConstantComposite"
)

// Memory and module-scope opcodes.
const (
	OpVariable    Op = "OpVariable"
	OpLoad        Op = "OpLoad"
	OpStore       Op = "OpStore"
	OpAccessChain Op = "OpAccessChain"
)

// Computation opcodes.
const (
	OpIAdd       Op = "OpIAdd"
	OpISub       Op = "OpISub"
	OpIMul       Op = "OpIMul"
	OpSNegate    Op = "OpSNegate"
	OpSLessThan  Op = "OpSLessThan"
	OpIEqual     Op = "OpIEqual"
	OpLogicalNot Op = "OpLogicalNot"
	OpCopyObject Op = "OpCopyObject"
	OpUndef      Op = "OpUndef"
)

// Control-flow opcodes. OpPhi operands alternate [value, predecessor label];
// OpSelect is [condition, true value, false value]; OpBranchConditional is
// [condition, true label, false label].
const (
	OpPhi               Op = "OpPhi"
	OpSelect            Op = "OpSelect"
	OpBranch            Op = "OpBranch"
	OpBranchConditional Op = "OpBranchConditional"
	OpReturn            Op = "OpReturn"
	OpReturnValue       Op = "OpReturnValue"
	OpUnreachable       Op = "OpUnreachable"
)

// Opcodes the flattening machinery must refuse to relocate.
const (
	OpFunctionCall   Op = "OpFunctionCall"
	OpSampledImage   Op = "OpSampledImage"
	OpControlBarrier Op = "OpControlBarrier"
	OpMemoryBarrier  Op = "OpMemoryBarrier"
	OpNop            Op = "OpNop"
)

// Instruction is a single IR instruction. Type and Result are zero when the
// opcode produces no type or result. Operand meaning is opcode-specific:
// most operands are ids, a few type declarations carry literal words (see
// the opcode comments above).
type Instruction struct {
	Opcode   Op   `json:"opcode"`
	Type     ID   `json:"type,omitempty"`
	Result   ID   `json:"result,omitempty"`
	Operands []ID `json:"operands,omitempty"`
}

// MergeKind distinguishes the two structured-control-flow header kinds.
type MergeKind string

const (
	SelectionMerge MergeKind = "selection"
	LoopMerge      MergeKind = "loop"
)

// Merge is the structured-control-flow marker carried by a header block.
// ContinueTarget is set for loop headers only.
type Merge struct {
	Kind           MergeKind `json:"kind"`
	MergeBlock     ID        `json:"merge_block"`
	ContinueTarget ID        `json:"continue_target,omitempty"`
}

// Block is an ordered list of instructions with a label id and an optional
// merge marker. The last instruction is the terminator; phis, if any, come
// first.
type Block struct {
	Label        ID             `json:"label"`
	Merge        *Merge         `json:"merge,omitempty"`
	Instructions []*Instruction `json:"instructions"`
}

// Function is an ordered list of blocks. Result is the function's own id,
// Type its return type. Blocks[0] is the entry block.
type Function struct {
	Result ID             `json:"result"`
	Type   ID             `json:"type"`
	Params []*Instruction `json:"params,omitempty"`
	Blocks []*Block       `json:"blocks"`
}

// Module is the mutation arena. Globals holds type declarations, constants
// and module-scope variables in definition order. IDBound is the smallest
// unused id and must rise monotonically as ids are consumed.
type Module struct {
	IDBound   ID             `json:"id_bound"`
	Globals   []*Instruction `json:"globals"`
	Functions []*Function    `json:"functions"`

	gen   uint64
	cache analysisCache
}

// Terminator returns the block's final instruction, or nil for a block still
// under construction.
func (b *Block) Terminator() *Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	return b.Instructions[len(b.Instructions)-1]
}

// Entry returns the function's entry block.
func (f *Function) Entry() *Block {
	return f.Blocks[0]
}

// HasResult reports whether instructions with this opcode define a result id.
func (op Op) HasResult() bool {
	switch op {
	case OpStore, OpBranch, OpBranchConditional, OpReturn, OpReturnValue,
		OpUnreachable, OpControlBarrier, OpMemoryBarrier, OpNop:
		return false
	}
	return true
}

// IsTerminator reports whether the opcode ends a block.
func (op Op) IsTerminator() bool {
	switch op {
	case OpBranch, OpBranchConditional, OpReturn, OpReturnValue, OpUnreachable:
		return true
	}
	return false
}

// IsBranch reports whether the opcode transfers control to a labelled block.
func (op Op) IsBranch() bool {
	return op == OpBranch || op == OpBranchConditional
}

// IsTypeDecl reports whether the opcode declares a type.
func (op Op) IsTypeDecl() bool {
	switch op {
	case OpTypeVoid, OpTypeBool, OpTypeInt, OpTypeFloat, OpTypeVector,
		OpTypeMatrix, OpTypeArray, OpTypeStruct, OpTypePointer, OpTypeFunction:
		return true
	}
	return false
}

// IsConstantDecl reports whether the opcode declares a constant.
func (op Op) IsConstantDecl() bool {
	switch op {
	case OpConstant, OpConstantTrue, OpConstantFalse, OpConstantComposite:
		return true
	}
	return false
}

// HasNoSideEffects reports whether an instruction with this opcode can be
// freely re-executed or skipped without observable consequences. Memory
// accesses, calls and barriers are excluded.
func (op Op) HasNoSideEffects() bool {
	switch op {
	case OpNop, OpUndef, OpPhi, OpSelect, OpCopyObject,
		OpIAdd, OpISub, OpIMul, OpSNegate,
		OpSLessThan, OpIEqual, OpLogicalNot,
		OpAccessChain:
		return true
	}
	return false
}
