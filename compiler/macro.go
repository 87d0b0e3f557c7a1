package compiler

import (
	"github.com/emberlisp/ember/code"
	"github.com/emberlisp/ember/value"
)

// expandMacro compiles lam (the uncompiled body a prior `macro` form
// registered) into a callable closure, invokes it through the
// Evaluator on the raw, un-evaluated argument forms, and returns the
// value it produced for re-compilation at the call site (spec.md §4.2).
// Recursion is capped at maxMacroRecursion: a macro whose own expansion
// is itself a macro call nested this deep is almost certainly a bug in
// the macro, not a legitimately deep expansion.
func (c *Compiler) expandMacro(lam value.Lambda, args []value.Value) (value.Value, error) {
	*c.macroDepth++
	defer func() { *c.macroDepth-- }()
	if *c.macroDepth > maxMacroRecursion {
		return nil, &CompileError{Kind: ErrMacroRecursionExceeded}
	}

	fn, err := c.compileMacroLambda(lam)
	if err != nil {
		return nil, err
	}

	arity := lambdaArity(lam)
	if !arity.Accepts(len(args)) {
		return nil, arityErr(lam.Name, arity, len(args))
	}

	return c.evaluator.CallLambda(fn, args)
}

// lambdaArity derives an Arity descriptor from a Lambda's parameter
// list: required parameters set the minimum, a rest parameter makes it
// unbounded, and otherwise optional/key parameters set the maximum.
func lambdaArity(lam value.Lambda) Arity {
	var required, optional int
	hasRest := false
	for _, p := range lam.Params {
		switch p.Kind {
		case value.ParamPositional:
			required++
		case value.ParamOptional, value.ParamKey:
			optional++
		case value.ParamRest:
			hasRest = true
		}
	}
	if hasRest {
		return Min(required)
	}
	if optional == 0 {
		return Exact(required)
	}
	return RangeArity(required, required+optional)
}

// compileMacroLambda compiles lam with no enclosing compiler: a macro
// body is compiled once per expansion against the defining scope only,
// never against a call site's local stack, so it can never capture a
// free variable (any attempt to reference one falls through to GetDef,
// which fails at expansion time exactly like a normal unbound-name
// lookup would).
func (c *Compiler) compileMacroLambda(lam value.Lambda) (value.Function, error) {
	inner := newCompiler(c.scope, c.evaluator, nil, c.macroDepth)
	compiled, err := buildLambdaCode(inner, lam)
	if err != nil {
		return nil, err
	}
	return &code.CodeConst{Code: compiled}, nil
}
