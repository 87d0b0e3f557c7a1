package compiler

import "github.com/emberlisp/ember/value"

// Evaluator is the core's only dependency on the (external, out of
// scope per spec.md §1) VM: macro expansion must synchronously invoke
// the compiled macro lambda on the raw, un-evaluated argument values
// (spec.md §4.2). A real VM satisfies this interface; package vm in
// this repository provides a minimal reference implementation used by
// tests and by cmd/emberc, not a production runtime.
type Evaluator interface {
	CallLambda(fn value.Function, args []value.Value) (value.Value, error)
}
