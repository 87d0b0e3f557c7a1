package compiler

import (
	"github.com/emberlisp/ember/code"
	"github.com/emberlisp/ember/name"
	"github.com/emberlisp/ember/value"
)

// compileListValue compiles a list in expression position: `()` is the
// unit value; otherwise the head decides how the rest is compiled
// (spec.md §4.1).
func (c *Compiler) compileListValue(l value.List) error {
	if len(l.Items) == 0 {
		idx := c.addConstant(value.Unit{})
		c.emit(code.Instr{Op: code.OpConst, A: idx})
		c.push()
		return nil
	}

	head := l.Items[0]
	args := l.Items[1:]

	headName, isName := head.(value.NameVal)
	if !isName {
		return c.compileApply(head, args)
	}
	n := headName.Name

	// A name already bound to a local or captured value calls that
	// value directly, shadowing any macro/operator/intrinsic of the
	// same name (spec.md §4.1).
	if _, ok := c.resolveLocal(n); ok {
		return c.compileNamedCall(n, args)
	}
	if c.hasSelf && n == c.selfName {
		return c.compileSelfCall(args)
	}
	if _, ok := c.peekClosure(n); ok {
		return c.compileNamedCall(n, args)
	}

	if m, ok := c.scope.GetMacro(n); ok {
		expanded, err := c.expandMacro(m, args)
		if err != nil {
			return err
		}
		return c.compileValue(expanded)
	}

	if n.IsSystemOperator() {
		return c.compileOperator(n, args)
	}

	if fn, ok := intrinsics[n]; ok {
		return fn(c, args)
	}

	return c.compileCallConst(n, args)
}

// peekClosure reports whether n resolves via the closure chain without
// committing a new capture entry (used for head-position lookahead: the
// call-emission path below calls compileName, which performs the real
// resolveClosure and capture bookkeeping).
func (c *Compiler) peekClosure(n name.Name) (int, bool) {
	if c.outer == nil {
		return 0, false
	}
	for _, cp := range c.captures {
		if cp.name == n {
			return cp.idx, true
		}
	}
	if _, ok := c.outer.resolveLocal(n); ok {
		return 0, true
	}
	if _, ok := c.outer.peekClosure(n); ok {
		return 0, true
	}
	return 0, false
}

// compileNamedCall compiles `(f arg...)` where f is a local or captured
// value: load f, compile each argument, then OpCall with the argument
// count.
func (c *Compiler) compileNamedCall(n name.Name, args []value.Value) error {
	if err := c.compileName(n); err != nil {
		return err
	}
	c.popN(1) // the function value is consumed by OpCall, not left on the stack as a result
	for _, a := range args {
		if err := c.compileValue(a); err != nil {
			return err
		}
	}
	c.emit(code.Instr{Op: code.OpCall, A: len(args)})
	c.push()
	return nil
}

// compileSelfCall compiles a direct recursive call to the lambda
// currently being compiled via OpCallSelf, avoiding a closure lookup.
func (c *Compiler) compileSelfCall(args []value.Value) error {
	for _, a := range args {
		if err := c.compileValue(a); err != nil {
			return err
		}
	}
	c.emit(code.Instr{Op: code.OpCallSelf, A: len(args)})
	c.push()
	return nil
}

// compileCallConst compiles a call to a top-level definition not bound
// locally: `(f arg...)` becomes CALL_CONST(name_const, argc), letting
// the VM resolve f once at call time instead of through two
// instructions (spec.md §3).
func (c *Compiler) compileCallConst(n name.Name, args []value.Value) error {
	for _, a := range args {
		if err := c.compileValue(a); err != nil {
			return err
		}
	}
	c.emit(code.Instr{Op: code.OpCallConst, A: c.constName(n), B: len(args)})
	c.push()
	return nil
}

// compileApply compiles a call whose head is not a bare name — a
// nested list, a lambda literal — by compiling the head as an
// expression and then calling it like any other function value.
func (c *Compiler) compileApply(head value.Value, args []value.Value) error {
	if err := c.compileValue(head); err != nil {
		return err
	}
	c.popN(1)
	for _, a := range args {
		if err := c.compileValue(a); err != nil {
			return err
		}
	}
	c.emit(code.Instr{Op: code.OpCall, A: len(args)})
	c.push()
	return nil
}
