package compiler

import (
	"github.com/emberlisp/ember/code"
	"github.com/emberlisp/ember/name"
	"github.com/emberlisp/ember/value"
)

// parseParams turns a parameter-list's raw forms into value.Param
// descriptors, recognising the `:optional`, `:key` and `:rest` markers
// (spec.md §4.5). Parameters before the first marker are positional and
// required; `:optional`/`:key` entries are either a bare name (default
// is unit) or a `(name default)` pair; `:rest` takes exactly one
// trailing name and must be last.
func parseParams(items []value.Value) ([]value.Param, error) {
	var params []value.Param
	seen := map[name.Name]bool{}
	mode := value.ParamPositional

	add := func(p value.Param) error {
		if seen[p.Name] {
			return &CompileError{Kind: ErrDuplicateParameter, Text: p.Text}
		}
		seen[p.Name] = true
		params = append(params, p)
		return nil
	}

	i := 0
	for i < len(items) {
		// `:optional`/`:key`/`:rest` lex as a `:`-prefixed token, which
		// the parser turns into a value.Keyword (its text has the colon
		// already stripped), never a value.NameVal — an ordinary
		// identifier never collides with these markers.
		if kw, ok := items[i].(value.Keyword); ok {
			switch string(kw) {
			case "optional":
				mode = value.ParamOptional
				i++
				continue
			case "key":
				mode = value.ParamKey
				i++
				continue
			case "rest":
				if i+1 >= len(items) {
					return nil, syntaxErr(":rest requires exactly one name")
				}
				restName, ok := items[i+1].(value.NameVal)
				if !ok {
					return nil, syntaxErr(":rest parameter must be an identifier")
				}
				if i+2 != len(items) {
					return nil, syntaxErr(":rest parameter must be last")
				}
				if err := add(value.Param{Name: restName.Name, Text: restName.Text, Kind: value.ParamRest}); err != nil {
					return nil, err
				}
				i += 2
				continue
			default:
				return nil, syntaxErr("unexpected keyword in parameter list")
			}
		}

		// A bare name is an ordinary parameter, positional or (once a
		// marker switched mode) optional/key; a (name default) pair is
		// only valid once in :optional/:key mode.
		if nv, ok := items[i].(value.NameVal); ok {
			if mode == value.ParamPositional {
				if err := add(value.Param{Name: nv.Name, Text: nv.Text, Kind: value.ParamPositional}); err != nil {
					return nil, err
				}
				i++
				continue
			}
			if err := add(value.Param{Name: nv.Name, Text: nv.Text, Kind: mode}); err != nil {
				return nil, err
			}
			i++
			continue
		}

		pair, ok := items[i].(value.List)
		if !ok || len(pair.Items) != 2 || mode == value.ParamPositional {
			return nil, syntaxErr("parameter must be an identifier, or a (name default) pair after :optional/:key")
		}
		nv, ok := pair.Items[0].(value.NameVal)
		if !ok {
			return nil, syntaxErr("parameter name must be an identifier")
		}
		if err := add(value.Param{Name: nv.Name, Text: nv.Text, Kind: mode, Default: pair.Items[1]}); err != nil {
			return nil, err
		}
		i++
	}
	return params, nil
}

// compileLambda compiles lam as a nested Compiler, producing either a
// bare constant (no free-variable captures) or a BuildClosure sequence
// (one or more captures), and emits the load of that value into the
// current (enclosing) compiler.
func (c *Compiler) compileLambda(lam value.Lambda, selfName name.Name, hasSelf bool) error {
	inner := newCompiler(c.scope, c.evaluator, c, c.macroDepth)
	inner.hasSelf = hasSelf
	inner.selfName = selfName

	compiled, err := buildLambdaCode(inner, lam)
	if err != nil {
		return err
	}

	if len(inner.captures) == 0 {
		idx := c.addConstant(&code.CodeConst{Code: compiled})
		c.emit(code.Instr{Op: code.OpConst, A: idx})
		c.push()
		return nil
	}

	idx := c.addConstant(&code.CodeConst{Code: compiled})
	for _, cp := range inner.captures {
		if err := c.compileName(cp.name); err != nil {
			return err
		}
	}
	c.popN(len(inner.captures))
	c.emit(code.Instr{Op: code.OpBuildClosure, A: idx, B: len(inner.captures)})
	c.push()
	return nil
}

// buildLambdaCode declares lam's parameters on inner, emits the
// default-value prologue and body, and returns the finished Code. It is
// shared by compileLambda (nested lambdas/closures, which may capture
// from their enclosing compiler) and compiler/macro.go (macro bodies,
// which never do — a macro is always compiled with no outer compiler).
func buildLambdaCode(inner *Compiler, lam value.Lambda) (*code.Code, error) {
	inner.lambdaName = lam.Name

	var positional, optional, key []value.Param
	var rest *value.Param
	for _, p := range lam.Params {
		switch p.Kind {
		case value.ParamPositional:
			positional = append(positional, p)
		case value.ParamOptional:
			optional = append(optional, p)
		case value.ParamKey:
			key = append(key, p)
		case value.ParamRest:
			r := p
			rest = &r
		}
	}

	// Every parameter slot starts out bound to name.DummyName (spec.md's
	// stack-pre-population requirement) rather than its real name, so a
	// default expression can never resolve a later parameter's slot via
	// an ordinary Load/GetDef — only JumpIfBound may observe an unbound
	// slot (vm/params.go). Each slot is renamed to its real name only
	// once that parameter's own default handling (if any) has been
	// emitted, so a default may reference preceding parameters but not
	// following ones.
	for range positional {
		inner.declareLocal(name.DummyName)
	}
	for range optional {
		inner.declareLocal(name.DummyName)
	}
	for _, p := range key {
		inner.declareLocal(name.DummyName)
		inner.kwParams = append(inner.kwParams, p.Text)
	}
	inner.nParams = len(positional) + len(optional) + len(key)
	inner.reqParams = len(positional)
	if rest != nil {
		inner.declareLocal(name.DummyName)
		inner.flags |= code.FlagHasRestParams
	}
	if len(key) > 0 {
		inner.flags |= code.FlagHasKwParams
	}
	if lam.Name != "" {
		inner.flags |= code.FlagHasName
	}

	// Positional parameters have no default to compile, so they become
	// visible immediately — before any optional/key default runs.
	for i, p := range positional {
		inner.stack[i] = p.Name
	}

	for i, p := range optional {
		slot := len(positional) + i
		if err := inner.compileParamDefault(slot, p.Default); err != nil {
			return nil, err
		}
		inner.stack[slot] = p.Name
	}
	for i, p := range key {
		slot := len(positional) + len(optional) + i
		if err := inner.compileParamDefault(slot, p.Default); err != nil {
			return nil, err
		}
		inner.stack[slot] = p.Name
	}
	if rest != nil {
		inner.stack[len(positional)+len(optional)+len(key)] = rest.Name
	}

	if err := inner.compileBody(lam.Body); err != nil {
		return nil, err
	}
	inner.emit(code.Instr{Op: code.OpReturn})
	return inner.finish(), nil
}

// compileParamDefault emits a parameter's default-value prologue: if
// the caller left slot unbound, compute the default (or, absent one,
// simply coerce the unbound slot to unit) and store it; otherwise skip.
func (c *Compiler) compileParamDefault(slot int, def value.Value) error {
	if def == nil {
		c.emit(code.Instr{Op: code.OpUnboundToUnit, A: slot})
		return nil
	}
	skip := c.newBlock()
	c.emitJump(code.Jump{Op: code.JumpIfBound, Extra: slot, Target: skip})
	next := c.newBlock()
	c.gotoBlock(next)
	if err := c.compileValue(def); err != nil {
		return err
	}
	c.emit(code.Instr{Op: code.OpStore, A: slot})
	c.popN(1)
	c.gotoBlock(skip)
	return nil
}
