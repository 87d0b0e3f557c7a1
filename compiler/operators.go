package compiler

import (
	"github.com/emberlisp/ember/code"
	"github.com/emberlisp/ember/name"
	"github.com/emberlisp/ember/scope"
	"github.com/emberlisp/ember/value"
)

// compileOperator dispatches one of the fourteen reserved system
// operators (spec.md §4.6).
func (c *Compiler) compileOperator(n name.Name, args []value.Value) error {
	switch n {
	case name.OpApply:
		return c.compileApplyOp(args)
	case name.OpDo:
		return c.compileBody(args)
	case name.OpLet:
		return c.compileLet(args)
	case name.OpDefine:
		return c.compileDefine(args)
	case name.OpMacro:
		return c.compileMacroOp(args)
	case name.OpStruct:
		return c.compileStructOp(args)
	case name.OpIf:
		return c.compileIf(args)
	case name.OpAnd:
		return c.compileAnd(args)
	case name.OpOr:
		return c.compileOr(args)
	case name.OpCase:
		return c.compileCase(args)
	case name.OpCond:
		return c.compileCond(args)
	case name.OpLambda:
		return c.compileLambdaOp(args)
	case name.OpExport:
		return c.compileExport(args)
	case name.OpUse:
		return c.compileUse(args)
	default:
		return syntaxErr("unknown system operator")
	}
}

// pushUnit loads and pushes the unit value — the result every
// side-effecting top-level form (define, macro, struct, export, use)
// produces.
func (c *Compiler) pushUnit() {
	idx := c.addConstant(value.Unit{})
	c.emit(code.Instr{Op: code.OpConst, A: idx})
	c.push()
}

// compileBody compiles a sequence of body expressions: every value but
// the last is computed and then discarded via a single trailing
// OpSkip, which removes the n earlier results from beneath the final
// one without disturbing it — the same "collapse a frame, keep the
// top" contract `let` relies on below.
func (c *Compiler) compileBody(exprs []value.Value) error {
	if len(exprs) == 0 {
		c.pushUnit()
		return nil
	}
	for _, e := range exprs {
		if err := c.compileValue(e); err != nil {
			return err
		}
	}
	if n := len(exprs) - 1; n > 0 {
		c.emit(code.Instr{Op: code.OpSkip, A: n})
		c.popN(n)
	}
	return nil
}

// compileApplyOp compiles `(apply f fixed-arg... arg-list)`: f is
// called with the fixed arguments plus every element of the final
// list, spread at call time.
func (c *Compiler) compileApplyOp(args []value.Value) error {
	if len(args) < 2 {
		return arityErr("apply", Min(2), len(args))
	}
	fixed := args[1 : len(args)-1]
	spread := args[len(args)-1]

	if err := c.compileValue(args[0]); err != nil {
		return err
	}
	c.popN(1)
	for _, a := range fixed {
		if err := c.compileValue(a); err != nil {
			return err
		}
	}
	if err := c.compileValue(spread); err != nil {
		return err
	}
	c.popN(1)
	c.emit(code.Instr{Op: code.OpApply, A: len(fixed)})
	c.push()
	return nil
}

// compileLet compiles `(let ((name value)...) body...)`: each binding
// is evaluated in turn and declared as a new named local visible to
// later bindings and the body, then OpSkip collapses the bindings away
// once the body's result is on top.
func (c *Compiler) compileLet(args []value.Value) error {
	if len(args) < 1 {
		return arityErr("let", Min(1), len(args))
	}
	bindings, ok := args[0].(value.List)
	if !ok {
		return syntaxErr("let bindings must be a list")
	}
	base := len(c.stack)
	seen := map[name.Name]bool{}
	for _, b := range bindings.Items {
		pair, ok := b.(value.List)
		if !ok || len(pair.Items) != 2 {
			return syntaxErr("let binding must be (name value)")
		}
		nv, ok := pair.Items[0].(value.NameVal)
		if !ok {
			return syntaxErr("let binding name must be an identifier")
		}
		if seen[nv.Name] {
			return &CompileError{Kind: ErrDuplicateParameter, Text: nv.Text}
		}
		seen[nv.Name] = true
		if err := c.compileValue(pair.Items[1]); err != nil {
			return err
		}
		c.declareLocal(nv.Name)
	}
	if err := c.compileBody(args[1:]); err != nil {
		return err
	}
	if n := len(c.stack) - base; n > 0 {
		c.emit(code.Instr{Op: code.OpSkip, A: n})
		c.popN(n)
		c.truncateLocals(base)
	}
	return nil
}

// compileDefine compiles `(define name value)` or the function-shorthand
// `(define (name params...) body...)`, binding the result at top level
// via OpSetDef.
func (c *Compiler) compileDefine(args []value.Value) error {
	if len(args) < 2 {
		return arityErr("define", Min(2), len(args))
	}
	switch target := args[0].(type) {
	case value.NameVal:
		if !c.scope.CanDefine(target.Name) {
			return &CompileError{Kind: ErrCannotDefine, Text: target.Text}
		}
		if len(args) != 2 {
			return arityErr("define", Exact(2), len(args))
		}
		if err := c.compileValue(args[1]); err != nil {
			return err
		}
		c.popN(1)
		c.emit(code.Instr{Op: code.OpSetDef, A: c.constName(target.Name)})
		c.pushUnit()
		return nil

	case value.List:
		if len(target.Items) == 0 {
			return syntaxErr("define function form requires a name")
		}
		fnName, ok := target.Items[0].(value.NameVal)
		if !ok {
			return syntaxErr("define function name must be an identifier")
		}
		if !c.scope.CanDefine(fnName.Name) {
			return &CompileError{Kind: ErrCannotDefine, Text: fnName.Text}
		}
		params, err := parseParams(target.Items[1:])
		if err != nil {
			return err
		}
		lam := value.Lambda{Params: params, Body: args[1:], Name: fnName.Text}
		if err := c.compileLambda(lam, fnName.Name, true); err != nil {
			return err
		}
		c.popN(1)
		c.emit(code.Instr{Op: code.OpSetDef, A: c.constName(fnName.Name)})
		c.pushUnit()
		return nil

	default:
		return syntaxErr("define requires a name or (name params...) form")
	}
}

// compileMacroOp compiles `(macro (name params...) body...)`: the
// macro's uncompiled Lambda is registered directly in scope — no
// runtime code is emitted beyond the unit result, since expansion
// happens entirely at compile time (compiler/macro.go).
func (c *Compiler) compileMacroOp(args []value.Value) error {
	if len(args) < 1 {
		return arityErr("macro", Min(1), len(args))
	}
	target, ok := args[0].(value.List)
	if !ok || len(target.Items) == 0 {
		return syntaxErr("macro requires a (name params...) form")
	}
	macroName, ok := target.Items[0].(value.NameVal)
	if !ok {
		return syntaxErr("macro name must be an identifier")
	}
	if !c.scope.CanDefine(macroName.Name) {
		return &CompileError{Kind: ErrCannotDefine, Text: macroName.Text}
	}
	params, err := parseParams(target.Items[1:])
	if err != nil {
		return err
	}
	c.scope.SetMacro(macroName.Name, value.Lambda{Params: params, Body: args[1:], Name: macroName.Text})
	c.pushUnit()
	return nil
}

// compileStructOp compiles `(struct name (field type)...)`, registering
// a StructDef as name's value binding.
func (c *Compiler) compileStructOp(args []value.Value) error {
	if len(args) < 1 {
		return arityErr("struct", Min(1), len(args))
	}
	sname, ok := args[0].(value.NameVal)
	if !ok {
		return syntaxErr("struct name must be an identifier")
	}
	if !c.scope.CanDefine(sname.Name) {
		return &CompileError{Kind: ErrCannotDefine, Text: sname.Text}
	}
	var fields []value.FieldDef
	seen := map[name.Name]bool{}
	for _, f := range args[1:] {
		pair, ok := f.(value.List)
		if !ok || len(pair.Items) != 2 {
			return syntaxErr("struct field must be (name type)")
		}
		fname, ok := pair.Items[0].(value.NameVal)
		if !ok {
			return syntaxErr("struct field name must be an identifier")
		}
		// The field's type name is carried uninterpreted: spec.md's
		// scope excludes type checking, so it is never resolved or
		// validated, only stored for a future type-checking pass.
		ftype, ok := pair.Items[1].(value.NameVal)
		if !ok {
			return syntaxErr("struct field type must be an identifier")
		}
		if seen[fname.Name] {
			return &CompileError{Kind: ErrDuplicateParameter, Text: fname.Text}
		}
		seen[fname.Name] = true
		fields = append(fields, value.FieldDef{Name: fname.Name, TypeName: ftype.Name})
	}
	c.scope.SetValue(sname.Name, value.StructDef{Name: sname.Name, Fields: fields})
	c.pushUnit()
	return nil
}

// compileIf compiles `(if cond then else?)` as a three-block diamond:
// the condition block falls through to `then`, which unconditionally
// jumps past `else` to a shared end block.
func (c *Compiler) compileIf(args []value.Value) error {
	if len(args) < 2 || len(args) > 3 {
		return arityErr("if", RangeArity(2, 3), len(args))
	}
	if err := c.compileValue(args[0]); err != nil {
		return err
	}
	c.popN(1)

	thenBlock := c.newBlock()
	elseBlock := c.newBlock()
	endBlock := c.newBlock()

	c.emitJump(code.Jump{Op: code.JumpIfNot, Target: elseBlock})
	c.gotoBlock(thenBlock)
	if err := c.compileValue(args[1]); err != nil {
		return err
	}
	c.emitJump(code.Jump{Op: code.JumpAlways, Target: endBlock})

	c.gotoBlock(elseBlock)
	if len(args) == 3 {
		if err := c.compileValue(args[2]); err != nil {
			return err
		}
	} else {
		c.pushUnit()
	}
	c.gotoBlock(endBlock)
	return nil
}

// compileAnd compiles `(and e...)`: the first falsy operand short
// circuits the whole form to that value; otherwise the result is the
// last operand.
func (c *Compiler) compileAnd(args []value.Value) error {
	return c.compileShortCircuit(args, code.JumpIfNot, value.Bool(true))
}

// compileOr compiles `(or e...)`: the first truthy operand short
// circuits the whole form to that value; otherwise the result is the
// last operand.
func (c *Compiler) compileOr(args []value.Value) error {
	return c.compileShortCircuit(args, code.JumpIf, value.Bool(false))
}

// compileShortCircuit implements and/or. The running candidate lives in
// one reusable slot: each round reloads it (OpLoad reads a stack slot
// without consuming it, giving a cheap duplicate) and tests the
// duplicate — a conditional jump always consumes the value it tests, so
// a match jumps straight to endBlock with the untouched candidate as the
// sole surviving value. Otherwise the next operand is computed and
// OpSkip(1) discards the old candidate from beneath it, leaving the new
// one in the same slot for the next round. This keeps the stack at a
// constant height across every round and every exit edge into endBlock,
// which a shared jump target requires. emptyResult is the form's value
// with zero operands.
func (c *Compiler) compileShortCircuit(args []value.Value, shortJump code.JumpOp, emptyResult value.Value) error {
	if len(args) == 0 {
		idx := c.addConstant(emptyResult)
		c.emit(code.Instr{Op: code.OpConst, A: idx})
		c.push()
		return nil
	}
	if err := c.compileValue(args[0]); err != nil {
		return err
	}
	if len(args) == 1 {
		return nil
	}
	slot := c.declareLocal(name.DummyName)
	endBlock := c.newBlock()
	for _, a := range args[1:] {
		c.emit(code.Instr{Op: code.OpLoad, A: slot})
		c.push()
		c.popN(1)
		c.emitJump(code.Jump{Op: shortJump, Target: endBlock})
		next := c.newBlock()
		c.gotoBlock(next)
		if err := c.compileValue(a); err != nil {
			return err
		}
		c.emit(code.Instr{Op: code.OpSkip, A: 1})
		c.popN(1)
	}
	c.gotoBlock(endBlock)
	c.truncateLocals(slot)
	return nil
}

// compileCond compiles `(cond (test body...)... (else body...)?)`: the
// first clause whose test is truthy runs its body; an `else` clause, if
// present, must be last.
func (c *Compiler) compileCond(args []value.Value) error {
	if len(args) == 0 {
		return arityErr("cond", Min(1), len(args))
	}
	endBlock := c.newBlock()
	for i, clause := range args {
		cl, ok := clause.(value.List)
		if !ok || len(cl.Items) == 0 {
			return syntaxErr("cond clause must be a non-empty list")
		}
		isElse := false
		if nv, ok := cl.Items[0].(value.NameVal); ok && nv.Name == name.NameElse {
			if i != len(args)-1 {
				return syntaxErr("cond: else clause must be last")
			}
			isElse = true
		}
		bodyBlock := c.newBlock()
		if isElse {
			c.gotoBlock(bodyBlock)
		} else {
			if err := c.compileValue(cl.Items[0]); err != nil {
				return err
			}
			c.popN(1)
			nextBlock := c.newBlock()
			c.emitJump(code.Jump{Op: code.JumpIfNot, Target: nextBlock})
			c.gotoBlock(bodyBlock)
			if err := c.compileBody(cl.Items[1:]); err != nil {
				return err
			}
			c.emitJump(code.Jump{Op: code.JumpAlways, Target: endBlock})
			c.gotoBlock(nextBlock)
			continue
		}
		if err := c.compileBody(cl.Items[1:]); err != nil {
			return err
		}
		c.emitJump(code.Jump{Op: code.JumpAlways, Target: endBlock})
		c.gotoBlock(endBlock)
		return nil // else is necessarily the last clause
	}
	// Every clause's test was a plain test (no else present): fall off
	// the end with unit.
	c.pushUnit()
	c.gotoBlock(endBlock)
	return nil
}

// compileCase compiles `(case key (pattern... body...)... (else body...)?)`.
// key is evaluated once; each clause's patterns are constant values
// compared against it with EqConst.
func (c *Compiler) compileCase(args []value.Value) error {
	if len(args) < 1 {
		return arityErr("case", Min(1), len(args))
	}
	if err := c.compileValue(args[0]); err != nil {
		return err
	}
	slot := c.declareLocal(name.DummyName)

	endBlock := c.newBlock()
	seenElse := false
	for _, clause := range args[1:] {
		cl, ok := clause.(value.List)
		if !ok || len(cl.Items) < 1 {
			return syntaxErr("case clause must be a non-empty list")
		}
		if nv, ok := cl.Items[0].(value.NameVal); ok && nv.Name == name.NameElse {
			if seenElse {
				return syntaxErr("case: duplicate else clause")
			}
			seenElse = true
			bodyBlock := c.newBlock()
			c.gotoBlock(bodyBlock)
			if err := c.compileBody(cl.Items[1:]); err != nil {
				return err
			}
			c.emitJump(code.Jump{Op: code.JumpAlways, Target: endBlock})
			afterElse := c.newBlock()
			c.gotoBlock(afterElse)
			continue
		}

		var patterns []value.Value
		if pl, ok := cl.Items[0].(value.List); ok {
			patterns = pl.Items
		} else {
			patterns = []value.Value{cl.Items[0]}
		}
		bodyBlock := c.newBlock()
		for _, p := range patterns {
			if !value.IsConstEligible(p) {
				return syntaxErr("case pattern must be a constant")
			}
			idx := c.addConstant(p)
			c.emit(code.Instr{Op: code.OpLoad, A: slot})
			c.push()
			c.popN(1)
			c.emitJump(code.Jump{Op: code.JumpIfEqConst, Extra: idx, Target: bodyBlock})
			next := c.newBlock()
			c.gotoBlock(next)
		}
		afterBody := c.newBlock()
		c.emitJump(code.Jump{Op: code.JumpAlways, Target: afterBody})
		c.gotoBlock(bodyBlock)
		if err := c.compileBody(cl.Items[1:]); err != nil {
			return err
		}
		c.emitJump(code.Jump{Op: code.JumpAlways, Target: endBlock})
		c.gotoBlock(afterBody)
	}
	if !seenElse {
		c.pushUnit()
		c.emitJump(code.Jump{Op: code.JumpAlways, Target: endBlock})
	}
	c.gotoBlock(endBlock)
	c.emit(code.Instr{Op: code.OpSkip, A: 1})
	c.popN(1)
	c.truncateLocals(slot)
	return nil
}

// compileLambdaOp compiles an anonymous `(lambda (params...) body...)`.
func (c *Compiler) compileLambdaOp(args []value.Value) error {
	if len(args) < 1 {
		return arityErr("lambda", Min(1), len(args))
	}
	paramList, ok := args[0].(value.List)
	if !ok {
		return syntaxErr("lambda parameter list must be a list")
	}
	params, err := parseParams(paramList.Items)
	if err != nil {
		return err
	}
	return c.compileLambda(value.Lambda{Params: params, Body: args[1:]}, 0, false)
}

// compileExport compiles `(export name...)`, accepting the reserved
// `all` name as shorthand for every currently-defined value and macro.
func (c *Compiler) compileExport(args []value.Value) error {
	var names []name.Name
	for _, a := range args {
		nv, ok := a.(value.NameVal)
		if !ok {
			return syntaxErr("export arguments must be identifiers")
		}
		if nv.Name == name.NameAll {
			names = append(names, c.scope.AllValueNames()...)
			names = append(names, c.scope.AllMacroNames()...)
			continue
		}
		names = append(names, nv.Name)
	}
	if !c.scope.SetExports(names) {
		return &CompileError{Kind: ErrDuplicateExports}
	}
	c.pushUnit()
	return nil
}

// compileUse compiles `(use module-name clause...)`, importing value
// and macro bindings from the module registry. A clause is either a
// bare name, the `:all` keyword, or a `(:dest src)` rename pair.
func (c *Compiler) compileUse(args []value.Value) error {
	if len(args) < 1 {
		return arityErr("use", Min(1), len(args))
	}
	var modText string
	switch m := args[0].(type) {
	case value.NameVal:
		modText = m.Text
	case value.String:
		modText = string(m)
	default:
		return syntaxErr("use requires a module name")
	}
	registry := c.scope.Registry()
	if registry == nil {
		return &CompileError{Kind: ErrModuleError, Text: "no module registry configured"}
	}
	mod, err := registry.GetModule(modText)
	if err != nil {
		return &CompileError{Kind: ErrImportError, Text: err.Error()}
	}
	peer := mod.Scope()

	var names []name.Name
	dest := map[name.Name]name.Name{}
	wantAll := len(args) == 1
	for _, spec := range args[1:] {
		switch s := spec.(type) {
		case value.NameVal:
			names = append(names, s.Name)
		case value.Keyword:
			if string(s) != "all" {
				return syntaxErr("unexpected keyword in use clause")
			}
			wantAll = true
		case value.List:
			if len(s.Items) != 2 {
				return syntaxErr("use rename clause must be (:dest src)")
			}
			destKw, ok1 := s.Items[0].(value.Keyword)
			srcName, ok2 := s.Items[1].(value.NameVal)
			if !ok1 || !ok2 {
				return syntaxErr("use rename clause must be (:dest src)")
			}
			destName := c.scope.Interner().Intern(string(destKw))
			names = append(names, srcName.Name)
			dest[srcName.Name] = destName
		default:
			return syntaxErr("invalid use import clause")
		}
	}
	if wantAll {
		names = append(names, peer.AllValueNames()...)
		names = append(names, peer.AllMacroNames()...)
	}

	for _, n := range names {
		target := n
		if d, ok := dest[n]; ok {
			target = d
		}
		if !c.scope.CanDefine(target) {
			return &CompileError{Kind: ErrImportShadow, Text: c.scope.Interner().Text(target)}
		}
	}

	var valueNames, macroNames []name.Name
	for _, n := range names {
		_, isValue := peer.GetValue(n)
		_, isMacro := peer.GetMacro(n)
		if isValue {
			valueNames = append(valueNames, n)
		}
		if isMacro {
			macroNames = append(macroNames, n)
		}
		if !isValue && !isMacro {
			return &CompileError{Kind: ErrMissingExport, Name: n}
		}
	}
	if err := c.scope.ImportValues(peer, valueNames, dest); err != nil {
		return wrapImportErr(err)
	}
	if err := c.scope.ImportMacros(peer, macroNames, dest); err != nil {
		return wrapImportErr(err)
	}
	c.pushUnit()
	return nil
}

func wrapImportErr(err error) error {
	switch e := err.(type) {
	case scope.ErrMissingExport:
		return &CompileError{Kind: ErrMissingExport, Name: e.Name}
	case scope.ErrPrivacy:
		return &CompileError{Kind: ErrPrivacyError, Name: e.Name}
	default:
		return &CompileError{Kind: ErrImportError, Text: err.Error()}
	}
}
