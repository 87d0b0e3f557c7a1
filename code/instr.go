package code

import "github.com/emberlisp/ember/value"

// Instr is one abstract instruction before byte-width is chosen: an
// opcode plus up to two generic integer operands (constant-pool index,
// stack slot, closure-value index, argument count, or system-name
// handle numeric value, depending on op — see opcode.go's numOperands).
type Instr struct {
	Op   Op
	A, B int
}

// EncodedSize returns how many bytes this instruction occupies at w:
// one byte for the opcode plus w bytes per operand.
func (ins Instr) EncodedSize(w Width) int {
	return 1 + ins.Op.NumOperands()*int(w)
}

// Jump is a block's single outgoing control-transfer edge: an opcode,
// an optional extra operand (stack slot for JumpIfBound, constant index
// for JumpIfEqConst), and the ordinal of the target block.
type Jump struct {
	Op     JumpOp
	Extra  int
	Target int // target block ordinal, resolved to a byte offset at assembly time
}

// EncodedSize returns how many bytes this jump occupies at w: one byte
// for the opcode, w bytes per extra operand, and w bytes for the target
// offset.
func (j Jump) EncodedSize(w Width) int {
	if j.Op == JumpNone {
		return 0
	}
	return 1 + j.Op.NumOperands()*int(w) + int(w)
}

// Code flag bits (spec.md §3, §6).
const (
	FlagHasName      uint8 = 1 << 0
	FlagHasKwParams   uint8 = 1 << 1
	FlagHasRestParams uint8 = 1 << 2
)

// Code is the compiler's output: a byte-encoded instruction stream, a
// de-duplicated constant pool, keyword-parameter names, positional and
// required parameter counts, a flags bitfield, and an optional name.
//
// Fields are consumed by the (external) VM exactly as spec.md §6
// describes: the byte stream decoded left-to-right, operand fields
// indexing the constant pool at the width recorded in Width.
type Code struct {
	Bytes     []byte
	Constants []value.Value
	KwParams  []string
	NParams   int
	ReqParams int
	Flags     uint8
	Name      string
	Width     Width
}
