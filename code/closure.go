package code

import "github.com/emberlisp/ember/value"

// Closure is a compiled Code paired with its captured values, the
// concrete type behind value.Function. compiler/lambda.go stores every
// compiled lambda as a constant *Code; the VM builds a Closure from it
// when it executes `BuildClosure(code_idx, n)`.
type Closure struct {
	Code     *Code
	Captures []value.Value
}

func (*Closure) Kind() value.Kind { return value.KindFunction }
func (c *Closure) String() string {
	if c.Code.Name != "" {
		return "#<function " + c.Code.Name + ">"
	}
	return "#<function>"
}
func (*Closure) IsFunction() {}

// CodeConst wraps a bare *Code as a constant-pool entry. It is used two
// ways: as the operand of OpBuildClosure, where the VM pairs it with N
// freshly popped capture values into a Closure; and, for a lambda with
// no captures, loaded directly via OpConst and treated by the VM as a
// zero-capture function value in its own right, without an intervening
// BuildClosure step.
type CodeConst struct {
	Code *Code
}

func (*CodeConst) Kind() value.Kind { return value.KindFunction }
func (cc *CodeConst) String() string {
	if cc.Code.Name != "" {
		return "#<function " + cc.Code.Name + ">"
	}
	return "#<function>"
}
func (*CodeConst) IsFunction() {}

// NativeFunc wraps a Go function as a value.Function, for builtin module
// bindings (module/builtin.go) that have no compiled Code of their own —
// the VM dispatches a call to one directly rather than executing bytecode.
type NativeFunc struct {
	Name string
	Fn   func(args []value.Value) (value.Value, error)
}

func (*NativeFunc) Kind() value.Kind { return value.KindFunction }
func (n *NativeFunc) String() string { return "#<function " + n.Name + ">" }
func (*NativeFunc) IsFunction()      {}
