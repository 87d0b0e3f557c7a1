package vm

import (
	"github.com/emberlisp/ember/code"
	"github.com/emberlisp/ember/scope"
	"github.com/emberlisp/ember/value"
)

// framesMax caps recursion depth, expressed here as a Go call-stack
// depth counter rather than a preallocated frame array, since each
// Ember call recurses into execute rather than pushing onto a flat
// frame table.
const framesMax = 1024

// VM is a minimal reference interpreter bound to a single Scope: every
// GetDef/SetDef a running Code performs resolves against that Scope,
// matching how compiler/compiler.go compiles every lambda nested within
// one top-level Compile call against the same *scope.Scope (see
// compileLambda's newCompiler(c.scope, ...)). A closure invoked after
// being imported into a different module resolves its free top-level
// references against the Scope of the VM that calls it, not the one
// that loaded its defining module. module.FileLoader constructs one VM
// per module rather than sharing a single instance across the registry.
type VM struct {
	scope *scope.Scope
	depth int
}

// New returns a VM that resolves top-level names against s.
func New(s *scope.Scope) *VM {
	return &VM{scope: s}
}

// Scope returns the Scope this VM is bound to.
func (vm *VM) Scope() *scope.Scope { return vm.scope }

// Run executes c as a zero-argument top-level body (a compiled form
// from module.FileLoader, or any ad hoc compiler.Compile result) and
// returns the value it produces.
func (vm *VM) Run(c *code.Code) (value.Value, error) {
	return vm.runCode(c, nil, nil, nil)
}

// CallLambda implements compiler.Evaluator: macro expansion invokes the
// macro's compiled body directly on the raw, un-evaluated argument
// values (compiler/macro.go's expandMacro).
func (vm *VM) CallLambda(fn value.Function, args []value.Value) (value.Value, error) {
	return vm.callFunction(fn, args)
}

func (vm *VM) callValue(fv value.Value, args []value.Value) (value.Value, error) {
	fn, ok := fv.(value.Function)
	if !ok {
		return nil, runtimeErr("cannot call a value of type %s", fv.Kind())
	}
	return vm.callFunction(fn, args)
}

func (vm *VM) callFunction(fn value.Function, args []value.Value) (value.Value, error) {
	switch f := fn.(type) {
	case *code.Closure:
		return vm.runCode(f.Code, f.Captures, f, args)
	case *code.CodeConst:
		return vm.runCode(f.Code, nil, f, args)
	case *code.NativeFunc:
		return f.Fn(args)
	default:
		return nil, runtimeErr("cannot call value of type %T", fn)
	}
}

// runCode binds args into a fresh stack per c's parameter metadata and
// executes c's instruction stream. self is the callable value OpCallSelf
// should recurse into (nil outside a named lambda's own body); captures
// backs OpLoadC.
func (vm *VM) runCode(c *code.Code, captures []value.Value, self value.Function, args []value.Value) (value.Value, error) {
	if vm.depth >= framesMax {
		return nil, runtimeErr("call stack exceeded depth %d", framesMax)
	}
	vm.depth++
	defer func() { vm.depth-- }()

	hasRest := c.Flags&code.FlagHasRestParams != 0
	stack, err := bindParams(c.Name, c.NParams, c.ReqParams, hasRest, args)
	if err != nil {
		return nil, err
	}
	return vm.execute(c, captures, self, stack)
}

// execute is the dispatch loop: inlined operand readers, a flat switch
// over opcode bytes, and an accumulator-and-explicit-push calling
// convention, where a value is committed to the real stack only via a
// separate OpPush (code/opcode.go; see compiler.Compiler.push).
func (vm *VM) execute(c *code.Code, captures []value.Value, self value.Function, stack []value.Value) (value.Value, error) {
	bytes := c.Bytes
	w := c.Width
	var acc value.Value = value.Unit{}
	pc := 0

	readOperand := func() int {
		if w == code.Narrow {
			v := int(bytes[pc])
			pc++
			return v
		}
		v := int(bytes[pc])<<8 | int(bytes[pc+1])
		pc += 2
		return v
	}

	for pc < len(bytes) {
		b := bytes[pc]
		pc++

		if code.IsJumpByte(b) {
			jop := code.JumpOp(b)
			var extra int
			if jop.NumOperands() >= 1 {
				extra = readOperand()
			}
			target := readOperand()

			switch jop {
			case code.JumpAlways:
				pc = target
			case code.JumpIf:
				v := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if truthy(v) {
					pc = target
				}
			case code.JumpIfNot:
				v := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if !truthy(v) {
					pc = target
				}
			case code.JumpIfNull:
				v := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if isNullish(v) {
					pc = target
				}
			case code.JumpIfNotNull:
				v := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if !isNullish(v) {
					pc = target
				}
			case code.JumpIfBound:
				if !isUnbound(stack[extra]) {
					pc = target
				}
			case code.JumpIfEqConst:
				v := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if value.Equal(v, c.Constants[extra]) {
					pc = target
				}
			default:
				return nil, runtimeErr("unknown jump opcode %d", byte(jop))
			}
			continue
		}

		op := code.Op(b)
		switch op {
		case code.OpPush:
			stack = append(stack, acc)

		case code.OpUnit:
			acc = value.Unit{}
		case code.OpTrue:
			acc = value.Bool(true)
		case code.OpFalse:
			acc = value.Bool(false)

		case code.OpConst:
			acc = c.Constants[readOperand()]
		case code.OpQuote:
			acc = requote(c.Constants[readOperand()])

		case code.OpLoad:
			acc = stack[readOperand()]
		case code.OpLoadC:
			acc = captures[readOperand()]
		case code.OpStore:
			slot := readOperand()
			stack[slot] = acc
			stack = stack[:len(stack)-1]

		case code.OpGetDef:
			nv, ok := c.Constants[readOperand()].(value.NameVal)
			if !ok {
				return nil, runtimeErr("getdef: constant is not a name")
			}
			v, ok := vm.scope.GetValue(nv.Name)
			if !ok {
				return nil, runtimeErr("unbound name %q", nv.Text)
			}
			acc = v
		case code.OpSetDef:
			nv, ok := c.Constants[readOperand()].(value.NameVal)
			if !ok {
				return nil, runtimeErr("setdef: constant is not a name")
			}
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			vm.scope.SetValue(nv.Name, v)
			acc = v

		case code.OpCall:
			argc := readOperand()
			args := append([]value.Value{}, stack[len(stack)-argc:]...)
			stack = stack[:len(stack)-argc]
			fv := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			result, err := vm.callValue(fv, args)
			if err != nil {
				return nil, err
			}
			acc = result

		case code.OpCallSelf:
			argc := readOperand()
			args := append([]value.Value{}, stack[len(stack)-argc:]...)
			stack = stack[:len(stack)-argc]
			if self == nil {
				return nil, runtimeErr("callself used outside a named lambda")
			}
			result, err := vm.callFunction(self, args)
			if err != nil {
				return nil, err
			}
			acc = result

		case code.OpCallConst:
			nameIdx := readOperand()
			argc := readOperand()
			args := append([]value.Value{}, stack[len(stack)-argc:]...)
			stack = stack[:len(stack)-argc]
			nv, ok := c.Constants[nameIdx].(value.NameVal)
			if !ok {
				return nil, runtimeErr("callconst: constant is not a name")
			}
			fv, ok := vm.scope.GetValue(nv.Name)
			if !ok {
				return nil, runtimeErr("unbound name %q", nv.Text)
			}
			result, err := vm.callValue(fv, args)
			if err != nil {
				return nil, err
			}
			acc = result

		// OpCallSys and OpCallSysArgs are declared in code/opcode.go but
		// never emitted by the compiler package (no system-call operator
		// currently lowers to them). They are handled here, identically
		// to OpCall/OpCallConst, purely so a hand-assembled Code that
		// exercises them still runs rather than failing as unknown.
		case code.OpCallSys:
			argc := readOperand()
			args := append([]value.Value{}, stack[len(stack)-argc:]...)
			stack = stack[:len(stack)-argc]
			fv := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			result, err := vm.callValue(fv, args)
			if err != nil {
				return nil, err
			}
			acc = result
		case code.OpCallSysArgs:
			nameIdx := readOperand()
			argc := readOperand()
			args := append([]value.Value{}, stack[len(stack)-argc:]...)
			stack = stack[:len(stack)-argc]
			nv, ok := c.Constants[nameIdx].(value.NameVal)
			if !ok {
				return nil, runtimeErr("callsysargs: constant is not a name")
			}
			fv, ok := vm.scope.GetValue(nv.Name)
			if !ok {
				return nil, runtimeErr("unbound name %q", nv.Text)
			}
			result, err := vm.callValue(fv, args)
			if err != nil {
				return nil, err
			}
			acc = result

		case code.OpApply:
			numFixed := readOperand()
			spreadV := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			spread, ok := spreadV.(value.List)
			if !ok {
				return nil, runtimeErr("apply: final argument must be a list")
			}
			fixed := append([]value.Value{}, stack[len(stack)-numFixed:]...)
			stack = stack[:len(stack)-numFixed]
			fv := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			args := make([]value.Value, 0, len(fixed)+len(spread.Items))
			args = append(args, fixed...)
			args = append(args, spread.Items...)
			result, err := vm.callValue(fv, args)
			if err != nil {
				return nil, err
			}
			acc = result

		case code.OpBuildClosure:
			codeIdx := readOperand()
			ncap := readOperand()
			caps := append([]value.Value{}, stack[len(stack)-ncap:]...)
			stack = stack[:len(stack)-ncap]
			cc, ok := c.Constants[codeIdx].(*code.CodeConst)
			if !ok {
				return nil, runtimeErr("buildclosure: constant is not a code object")
			}
			acc = &code.Closure{Code: cc.Code, Captures: caps}

		case code.OpList:
			n := readOperand()
			items := append([]value.Value{}, stack[len(stack)-n:]...)
			stack = stack[:len(stack)-n]
			acc = value.List{Items: items}

		case code.OpSkip:
			n := readOperand()
			top := stack[len(stack)-1]
			stack = append(stack[:len(stack)-1-n], top)

		case code.OpReturn:
			if len(stack) == 0 {
				return acc, nil
			}
			return stack[len(stack)-1], nil

		case code.OpUnboundToUnit:
			slot := readOperand()
			if isUnbound(stack[slot]) {
				stack[slot] = value.Unit{}
			}

		case code.OpNull:
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			acc = value.Bool(isNullish(v))
		case code.OpNot:
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			acc = value.Bool(!truthy(v))

		case code.OpEq, code.OpNotEq, code.OpAppend:
			b := stack[len(stack)-1]
			a := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			switch op {
			case code.OpEq:
				acc = value.Bool(value.Equal(a, b))
			case code.OpNotEq:
				acc = value.Bool(!value.Equal(a, b))
			case code.OpAppend:
				al, ok1 := a.(value.List)
				bl, ok2 := b.(value.List)
				if !ok1 || !ok2 {
					return nil, runtimeErr("append: both arguments must be lists")
				}
				items := make([]value.Value, 0, len(al.Items)+len(bl.Items))
				items = append(items, al.Items...)
				items = append(items, bl.Items...)
				acc = value.List{Items: items}
			}

		case code.OpEqConst:
			idx := readOperand()
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			acc = value.Bool(value.Equal(v, c.Constants[idx]))
		case code.OpNotEqConst:
			idx := readOperand()
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			acc = value.Bool(!value.Equal(v, c.Constants[idx]))

		case code.OpFirst, code.OpTail, code.OpInit, code.OpLast:
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			l, ok := v.(value.List)
			if !ok || len(l.Items) == 0 {
				return nil, runtimeErr("%s: argument must be a non-empty list", op)
			}
			switch op {
			case code.OpFirst:
				acc = l.Items[0]
			case code.OpLast:
				acc = l.Items[len(l.Items)-1]
			case code.OpTail:
				acc = value.List{Items: append([]value.Value{}, l.Items[1:]...)}
			case code.OpInit:
				acc = value.List{Items: append([]value.Value{}, l.Items[:len(l.Items)-1]...)}
			}

		case code.OpComma:
			depth := readOperand()
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			acc = value.Comma{Inner: v, Depth: depth}
		case code.OpCommaAt:
			depth := readOperand()
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			acc = value.CommaAt{Inner: v, Depth: depth}

		case code.OpQuasiquote:
			n := readOperand()
			subs := append([]value.Value{}, stack[len(stack)-n:]...)
			stack = stack[:len(stack)-n]
			template := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			acc = reconstructQuasiquote(template, subs)

		default:
			return nil, runtimeErr("unknown opcode %d", byte(op))
		}
	}

	// The assembler always appends an OpReturn to a block chain that
	// falls off the end (code/assemble.go's layoutBlock.appendRet), so
	// this is only reached by a hand-assembled Code with no explicit
	// Return at all.
	if len(stack) == 0 {
		return acc, nil
	}
	return stack[len(stack)-1], nil
}

func truthy(v value.Value) bool {
	if b, ok := v.(value.Bool); ok {
		return bool(b)
	}
	return true
}

// isNullish reports whether v is the value `null` (compiler/intrinsics.go's
// `(null x)`) treats as empty: the unit value or an empty list.
func isNullish(v value.Value) bool {
	switch n := v.(type) {
	case value.Unit:
		return true
	case value.List:
		return len(n.Items) == 0
	default:
		return false
	}
}
