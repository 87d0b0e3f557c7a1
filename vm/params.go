package vm

import "github.com/emberlisp/ember/value"

// unbound is the sentinel a callee's parameter slot holds when the
// caller left it unsupplied. It is never exposed to user code: every
// optional or key parameter's compiled prologue (compiler/lambda.go's
// compileParamDefault) either overwrites it with a computed default or
// coerces it to value.Unit via OpUnboundToUnit before the body can ever
// read the slot, so a bare unbound value can only be observed, inside
// this package, by JumpIfBound's own check.
type unbound struct{}

func (unbound) Kind() value.Kind { return value.KindUnit }
func (unbound) String() string   { return "#<unbound>" }

func isUnbound(v value.Value) bool {
	_, ok := v.(unbound)
	return ok
}

// bindParams lays out a callee's initial stack: one slot per declared
// parameter (positional, then optional, then key, in the order
// compiler/lambda.go's buildLambdaCode declares them), holding the
// supplied argument or unbound if the caller didn't supply one, plus a
// trailing rest-list slot when the callee declares one.
//
// Keyword parameters are bound positionally, exactly like optional
// parameters: this reference VM has no call-site keyword-argument
// syntax (compiler/list.go's call-compiling paths only ever push
// arguments in the order written), so `:key` only affects default-value
// timing, not dispatch order. A real keyword-matching calling
// convention is out of scope for this reference evaluator.
func bindParams(fnName string, nParams, reqParams int, hasRest bool, args []value.Value) ([]value.Value, error) {
	if len(args) < reqParams {
		return nil, runtimeErr("%s: expected at least %d argument(s), got %d", fnLabel(fnName), reqParams, len(args))
	}
	if !hasRest && len(args) > nParams {
		return nil, runtimeErr("%s: expected at most %d argument(s), got %d", fnLabel(fnName), nParams, len(args))
	}

	stack := make([]value.Value, 0, nParams+1)
	for i := 0; i < nParams; i++ {
		if i < len(args) {
			stack = append(stack, args[i])
		} else {
			stack = append(stack, unbound{})
		}
	}
	if hasRest {
		var rest []value.Value
		if len(args) > nParams {
			rest = append(rest, args[nParams:]...)
		}
		stack = append(stack, value.List{Items: rest})
	}
	return stack, nil
}

func fnLabel(name string) string {
	if name == "" {
		return "lambda"
	}
	return name
}
