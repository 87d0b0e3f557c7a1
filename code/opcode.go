// Package code implements the compiler's basic-block assembler and the
// Code object it emits: a byte array of instructions, a constant pool,
// parameter metadata, and flags, ready for the (external) VM.
//
// The opcode table and operand-count table below are grounded on
// vm/opcode.go's OpcodeNames/OpcodeOperandCount maps and on
// informatter-nilan's compiler/code.go OpCodeDefinition table, adapted
// from a fixed per-opcode operand width to a width chosen once per Code
// (see Assembler in assemble.go).
package code

// Op is a bytecode instruction opcode.
type Op byte

const (
	OpPush Op = iota
	OpUnit
	OpTrue
	OpFalse
	OpConst
	OpLoad
	OpLoadC
	OpStore
	OpGetDef
	OpSetDef
	OpCall
	OpCallSelf
	OpCallConst
	OpCallSys
	OpCallSysArgs
	OpApply
	OpBuildClosure
	OpList
	OpSkip
	OpReturn
	OpUnboundToUnit
	OpNull
	OpNot
	OpEq
	OpNotEq
	OpEqConst
	OpNotEqConst
	OpFirst
	OpTail
	OpInit
	OpLast
	OpAppend
	OpComma
	OpCommaAt
	OpQuote
	OpQuasiquote
)

// JumpOp is the opcode of a block's single outgoing jump. A block's
// committed instructions and its jump land in the same flat byte stream
// (code/assemble.go), with no length prefix or block marker separating
// them, so JumpOp's constants start at jumpOpBase — past Op's highest
// value — to keep the two opcode spaces from colliding in a single
// linear decode loop (package vm decodes "is this byte >= jumpOpBase"
// before deciding which enum to interpret it as).
type JumpOp byte

const jumpOpBase JumpOp = 128

// JumpNone is the zero value — every Jump{} zero-initialises to "no
// jump" — so only the non-None jump kinds, the ones ever actually
// written to the byte stream, are shifted past jumpOpBase.
const JumpNone JumpOp = 0

const (
	JumpAlways JumpOp = jumpOpBase + iota
	JumpIf
	JumpIfNot
	JumpIfNull
	JumpIfNotNull
	JumpIfBound    // operand: stack slot
	JumpIfEqConst  // operand: constant-pool index
)

// IsJumpByte reports whether b encodes a JumpOp rather than an Op, per
// the shared-stream convention above.
func IsJumpByte(b byte) bool { return b >= byte(jumpOpBase) }

// NumOperands is how many width-sized operands an Op's encoding carries,
// beyond the one-byte opcode itself. Ops not listed take zero.
var numOperands = map[Op]int{
	OpConst:         1,
	OpLoad:          1,
	OpLoadC:         1,
	OpStore:         1,
	OpGetDef:        1,
	OpSetDef:        1,
	OpCall:          1,
	OpCallSelf:      1,
	OpCallConst:     2,
	OpCallSys:       1,
	OpCallSysArgs:   2,
	OpApply:         1,
	OpBuildClosure:  2,
	OpList:          1,
	OpSkip:          1,
	OpUnboundToUnit: 1,
	OpEqConst:       1,
	OpNotEqConst:    1,
	OpComma:         1,
	OpCommaAt:       1,
	OpQuote:         1,
	OpQuasiquote:    1,
}

// NumOperands returns the operand count for op (0 if op takes none).
func (op Op) NumOperands() int { return numOperands[op] }

// NumOperands is JumpOp's equivalent: every jump encodes a target
// offset (one width-sized field); JumpIfBound and JumpIfEqConst encode
// one extra width-sized operand ahead of the target.
func (j JumpOp) NumOperands() int {
	switch j {
	case JumpIfBound, JumpIfEqConst:
		return 1
	default:
		return 0
	}
}

var opNames = map[Op]string{
	OpPush: "PUSH", OpUnit: "UNIT", OpTrue: "TRUE", OpFalse: "FALSE",
	OpConst: "CONST", OpLoad: "LOAD", OpLoadC: "LOADC", OpStore: "STORE",
	OpGetDef: "GETDEF", OpSetDef: "SETDEF",
	OpCall: "CALL", OpCallSelf: "CALLSELF", OpCallConst: "CALLCONST",
	OpCallSys: "CALLSYS", OpCallSysArgs: "CALLSYSARGS", OpApply: "APPLY",
	OpBuildClosure: "BUILDCLOSURE", OpList: "LIST", OpSkip: "SKIP",
	OpReturn: "RETURN", OpUnboundToUnit: "UNBOUND_TO_UNIT",
	OpNull: "NULL", OpNot: "NOT", OpEq: "EQ", OpNotEq: "NOTEQ",
	OpEqConst: "EQCONST", OpNotEqConst: "NOTEQCONST",
	OpFirst: "FIRST", OpTail: "TAIL", OpInit: "INIT", OpLast: "LAST",
	OpAppend: "APPEND", OpComma: "COMMA", OpCommaAt: "COMMAAT",
	OpQuote: "QUOTE", OpQuasiquote: "QUASIQUOTE",
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return "UNKNOWN"
}

var jumpNames = map[JumpOp]string{
	JumpAlways: "JUMP", JumpIf: "JUMP_IF", JumpIfNot: "JUMP_IF_NOT",
	JumpIfNull: "JUMP_IF_NULL", JumpIfNotNull: "JUMP_IF_NOT_NULL",
	JumpIfBound: "JUMP_IF_BOUND", JumpIfEqConst: "JUMP_IF_EQ_CONST",
}

func (j JumpOp) String() string {
	if s, ok := jumpNames[j]; ok {
		return s
	}
	return "NONE"
}

// Width selects the operand encoding size used uniformly throughout a
// single Code object (spec.md §4.7, §6).
type Width int

const (
	Narrow Width = 1 // one-byte operands, 0..255
	Wide   Width = 2 // two-byte big-endian operands, 0..65535
)

// Max is the largest operand value representable at w.
func (w Width) Max() int {
	if w == Narrow {
		return 0xFF
	}
	return 0xFFFF
}
