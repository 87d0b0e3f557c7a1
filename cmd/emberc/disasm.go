package main

import (
	"fmt"
	"strings"

	"github.com/emberlisp/ember/code"
	"github.com/emberlisp/ember/name"
)

// Disassemble renders compiled's flat instruction/jump byte stream as
// one line per opcode, resolving constant-pool operands to their
// printed value. It is a read-only debugging aid for the disasm
// subcommand, grounded on code/opcode.go's Op/JumpOp name tables and
// code/assemble.go's shared-stream, width-tagged encoding.
func Disassemble(compiled *code.Code, in *name.Interner) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; width=%d nparams=%d reqparams=%d flags=%d\n",
		compiled.Width, compiled.NParams, compiled.ReqParams, compiled.Flags)

	bytes := compiled.Bytes
	width := int(compiled.Width)
	pos := 0
	for pos < len(bytes) {
		start := pos
		b := bytes[pos]
		pos++
		if code.IsJumpByte(b) {
			j := code.JumpOp(b)
			operands := make([]int, 0, 2)
			for i := 0; i < j.NumOperands()+1; i++ {
				operands = append(operands, readOperand(bytes, &pos, width))
			}
			fmt.Fprintf(&sb, "%04d  %-16s %v\n", start, j.String(), operands)
			continue
		}

		op := code.Op(b)
		n := op.NumOperands()
		operands := make([]int, 0, n)
		for i := 0; i < n; i++ {
			operands = append(operands, readOperand(bytes, &pos, width))
		}
		line := fmt.Sprintf("%04d  %-16s", start, op.String())
		for _, o := range operands {
			line += fmt.Sprintf(" %d", o)
			if op == code.OpConst && o < len(compiled.Constants) {
				line += fmt.Sprintf(" ; %s", compiled.Constants[o].String())
			}
		}
		fmt.Fprintln(&sb, line)
	}
	return sb.String()
}

func readOperand(bytes []byte, pos *int, width int) int {
	if *pos+width > len(bytes) {
		v := int(bytes[*pos])
		*pos = len(bytes)
		return v
	}
	if width == 1 {
		v := int(bytes[*pos])
		*pos++
		return v
	}
	v := int(bytes[*pos])<<8 | int(bytes[*pos+1])
	*pos += 2
	return v
}
