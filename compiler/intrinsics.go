package compiler

import (
	"math"

	"github.com/emberlisp/ember/code"
	"github.com/emberlisp/ember/name"
	"github.com/emberlisp/ember/value"
)

// intrinsicFn compiles a call to one of the standard intrinsic names
// directly to its dedicated opcode, bypassing the general CallConst
// path (spec.md §4.3). args are the call's unevaluated argument forms.
type intrinsicFn func(c *Compiler, args []value.Value) error

// intrinsics maps each standard-range name eligible for inline
// compilation to its handler. A name present here is only reached once
// compileListValue has already ruled out a local/closure/self binding
// of the same name, so user code can still shadow an intrinsic by
// binding it as a parameter or let-variable. It is filled in init, since
// its handlers reach compileListValue, which reads this map.
var intrinsics map[name.Name]intrinsicFn

func init() {
	intrinsics = map[name.Name]intrinsicFn{
		name.NameEq:     compileEqOp(code.OpEq, code.OpEqConst),
		name.NameNotEq:  compileEqOp(code.OpNotEq, code.OpNotEqConst),
		name.NameAppend: compileBinaryOp(code.OpAppend),
		name.NameConcat: compileBinaryOp(code.OpAppend),
		name.NameNot:    compileUnaryOp(code.OpNot),
		name.NameNull:   compileUnaryOp(code.OpNull),
		name.NameFirst:  compileUnaryOp(code.OpFirst),
		name.NameTail:   compileUnaryOp(code.OpTail),
		name.NameInit:   compileUnaryOp(code.OpInit),
		name.NameLast:   compileUnaryOp(code.OpLast),
		name.NameList:   compileListIntrinsic,
		name.NameID:     compileIdentity,
		name.NameInf:    compileConstLoader(value.Float(math.Inf(1))),
		name.NameNaN:    compileConstLoader(value.Float(math.NaN())),
	}
}

func compileUnaryOp(op code.Op) intrinsicFn {
	return func(c *Compiler, args []value.Value) error {
		if len(args) != 1 {
			return arityErr(op.String(), Exact(1), len(args))
		}
		if err := c.compileValue(args[0]); err != nil {
			return err
		}
		c.popN(1)
		c.emit(code.Instr{Op: op})
		c.push()
		return nil
	}
}

// isImmediateConst reports whether v may be compared through the
// one-operand EqConst/NotEqConst path, with its addConstant pool entry
// as the operand. Every IsConstEligible value qualifies except a Quote
// deeper than 1, which compileEqOp sends through the two-operand
// Eq/NotEq path instead.
func isImmediateConst(v value.Value) bool {
	if !value.IsConstEligible(v) {
		return false
	}
	if q, ok := v.(value.Quote); ok {
		return q.Depth <= 1
	}
	return true
}

// compileEqOp compiles `eq`/`/=`. When exactly one operand is an
// immediate constant, only the other operand is compiled and the
// constant is compared against it directly via op's *Const variant
// (spec.md §4.3), which reads one operand off the stack instead of two.
func compileEqOp(op, constOp code.Op) intrinsicFn {
	return func(c *Compiler, args []value.Value) error {
		if len(args) != 2 {
			return arityErr(op.String(), Exact(2), len(args))
		}
		lc, rc := isImmediateConst(args[0]), isImmediateConst(args[1])
		switch {
		case rc && !lc:
			if err := c.compileValue(args[0]); err != nil {
				return err
			}
			c.popN(1)
			idx := c.addConstant(args[1])
			c.emit(code.Instr{Op: constOp, A: idx})
			c.push()
			return nil
		case lc && !rc:
			if err := c.compileValue(args[1]); err != nil {
				return err
			}
			c.popN(1)
			idx := c.addConstant(args[0])
			c.emit(code.Instr{Op: constOp, A: idx})
			c.push()
			return nil
		default:
			if err := c.compileValue(args[0]); err != nil {
				return err
			}
			if err := c.compileValue(args[1]); err != nil {
				return err
			}
			c.popN(2)
			c.emit(code.Instr{Op: op})
			c.push()
			return nil
		}
	}
}

func compileBinaryOp(op code.Op) intrinsicFn {
	return func(c *Compiler, args []value.Value) error {
		if len(args) != 2 {
			return arityErr(op.String(), Exact(2), len(args))
		}
		if err := c.compileValue(args[0]); err != nil {
			return err
		}
		if err := c.compileValue(args[1]); err != nil {
			return err
		}
		c.popN(2)
		c.emit(code.Instr{Op: op})
		c.push()
		return nil
	}
}

// compileListIntrinsic compiles `(list a b c...)` to LIST(n), building
// an n-element list from the n values already pushed.
func compileListIntrinsic(c *Compiler, args []value.Value) error {
	if len(args) == 0 {
		c.emit(code.Instr{Op: code.OpUnit})
		c.push()
		return nil
	}
	for _, a := range args {
		if err := c.compileValue(a); err != nil {
			return err
		}
	}
	c.popN(len(args))
	c.emit(code.Instr{Op: code.OpList, A: len(args)})
	c.push()
	return nil
}

// compileIdentity compiles `(id x)` as simply x — id contributes no
// opcode of its own.
func compileIdentity(c *Compiler, args []value.Value) error {
	if len(args) != 1 {
		return arityErr("id", Exact(1), len(args))
	}
	return c.compileValue(args[0])
}

// compileConstLoader returns an intrinsicFn for a zero-argument
// constant-producing name (`inf`, `nan`).
func compileConstLoader(v value.Value) intrinsicFn {
	return func(c *Compiler, args []value.Value) error {
		if len(args) != 0 {
			return arityErr(v.String(), Exact(0), len(args))
		}
		idx := c.addConstant(v)
		c.emit(code.Instr{Op: code.OpConst, A: idx})
		c.push()
		return nil
	}
}
