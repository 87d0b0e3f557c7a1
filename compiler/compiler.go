package compiler

import (
	"github.com/emberlisp/ember/code"
	"github.com/emberlisp/ember/name"
	"github.com/emberlisp/ember/scope"
	"github.com/emberlisp/ember/value"
)

// maxMacroRecursion is the depth cap spec.md §4.2 and §8 require.
const maxMacroRecursion = 100

// capture is one entry in a lambda's closure capture list: a name
// resolved against an outer compiler, recorded in first-reference
// order and deduplicated by name.
type capture struct {
	name name.Name
	// idx is this capture's position in the owning compiler's capture
	// list — the operand a LoadC(idx) instruction carries.
	idx int
}

// Compiler is the core traversal. It owns a list of blocks (via
// code.Assembler), a constant pool with structural-equality
// de-duplication, a simulated stack of named locals, a capture set for
// the lambda currently being compiled, a chain of enclosing compilers
// for nested lambdas, and a macro-recursion depth counter shared with
// every compiler spawned from the same top-level Compile call
// (spec.md §3).
type Compiler struct {
	scope     *scope.Scope
	evaluator Evaluator

	asm      *code.Assembler
	curBlock int

	constants []value.Value

	// stack holds one entry per named local currently reachable, at
	// the VM stack slot equal to its index. stackOffset is the total
	// VM stack height at the current point (named locals plus
	// transient pushes).
	stack       []name.Name
	stackOffset int

	captures []capture

	outer    *Compiler
	selfName name.Name
	hasSelf  bool

	macroDepth *int

	nParams    int
	reqParams  int
	kwParams   []string
	flags      uint8
	lambdaName string
}

// New creates a top-level Compiler: no enclosing lambda, a fresh macro
// recursion counter.
func New(s *scope.Scope, ev Evaluator) *Compiler {
	depth := 0
	return newCompiler(s, ev, nil, &depth)
}

func newCompiler(s *scope.Scope, ev Evaluator, outer *Compiler, macroDepth *int) *Compiler {
	return &Compiler{
		scope:      s,
		evaluator:  ev,
		asm:        code.NewAssembler(),
		curBlock:   0,
		outer:      outer,
		macroDepth: macroDepth,
	}
}

// Compile walks v, emits instructions, finalises with jump fix-up, and
// returns a Code with zero parameters and no name (a top-level body).
// Blocks, constants and locals from an earlier Compile call are dropped
// first, so a Compiler can be reused for successive top-level forms.
func (c *Compiler) Compile(v value.Value) (*code.Code, error) {
	c.asm = code.NewAssembler()
	c.curBlock = 0
	c.constants = nil
	c.stack = nil
	c.stackOffset = 0
	if err := c.compileValue(v); err != nil {
		return nil, err
	}
	return c.finish(), nil
}

// finish runs block assembly and packages the result into a code.Code.
func (c *Compiler) finish() *code.Code {
	bytes, width := c.asm.Assemble()
	return &code.Code{
		Bytes:     bytes,
		Constants: c.constants,
		KwParams:  c.kwParams,
		NParams:   c.nParams,
		ReqParams: c.reqParams,
		Flags:     c.flags,
		Name:      c.lambdaName,
		Width:     width,
	}
}

// block returns the block currently being emitted into.
func (c *Compiler) block() *code.Block { return c.asm.Block(c.curBlock) }

// newBlock allocates a fresh block and returns its ordinal.
func (c *Compiler) newBlock() int { return c.asm.NewBlock() }

// gotoBlock makes i the block subsequent emission targets, linking the
// previously current block to fall through into it.
func (c *Compiler) gotoBlock(i int) {
	c.block().Next = i
	c.curBlock = i
}

func (c *Compiler) emit(ins code.Instr) { c.block().Emit(ins) }

func (c *Compiler) emitJump(j code.Jump) { c.block().SetJump(j) }

// push records that the value register has been committed to the VM
// stack (an OpPush), bumping stackOffset by one.
func (c *Compiler) push() {
	c.emit(code.Instr{Op: code.OpPush})
	c.stackOffset++
}

// popN accounts for n values being removed from the VM stack (e.g. by
// an OpSkip the caller has already emitted), without emitting anything.
func (c *Compiler) popN(n int) { c.stackOffset -= n }

// addConstant returns the existing index if some stored constant is
// structurally identical to v (spec.md §4.8). A one-deep Quote is
// stored as its inner value; deeper quotes are stored with depth
// decremented by one. Either way the stored entry is the value that
// evaluating the quote yields.
func (c *Compiler) addConstant(v value.Value) int {
	if q, ok := v.(value.Quote); ok {
		if q.Depth <= 1 {
			v = q.Inner
		} else {
			v = value.Quote{Inner: q.Inner, Depth: q.Depth - 1}
		}
	}
	for i, existing := range c.constants {
		if value.Equal(existing, v) {
			return i
		}
	}
	c.constants = append(c.constants, v)
	return len(c.constants) - 1
}

// constName interns n as a value.NameVal constant and returns its pool
// index — the pattern GetDef/SetDef/CallConst all use.
func (c *Compiler) constName(n name.Name) int {
	return c.addConstant(value.NameVal{Name: n, Text: c.scope.Interner().Text(n)})
}

// compileValue dispatches on v's variant (spec.md §4.1).
func (c *Compiler) compileValue(v value.Value) error {
	switch node := v.(type) {
	case value.NameVal:
		return c.compileName(node.Name)
	case value.List:
		return c.compileListValue(node)
	case value.Comma:
		return &CompileError{Kind: ErrUnbalancedComma}
	case value.CommaAt:
		return &CompileError{Kind: ErrInvalidCommaAt}
	case value.Quasiquote:
		return c.compileQuasiquoteTop(node)
	case value.Quote:
		// addConstant stores a Quote one depth shallower than node (a
		// depth-1 Quote is stored as its bare Inner), which is exactly the
		// value evaluating node yields, so a plain OpConst loads it.
		idx := c.addConstant(node)
		c.emit(code.Instr{Op: code.OpConst, A: idx})
		c.push()
		return nil
	default:
		// unit, bool, int, ratio, float, char, string, or keyword.
		idx := c.addConstant(v)
		c.emit(code.Instr{Op: code.OpConst, A: idx})
		c.push()
		return nil
	}
}

// compileName resolves a bare name reference: local stack (rightmost
// match wins), then the enclosing lambda's own name, then the closure
// chain, then a top-level GetDef.
func (c *Compiler) compileName(n name.Name) error {
	if slot, ok := c.resolveLocal(n); ok {
		c.emit(code.Instr{Op: code.OpLoad, A: slot})
		c.push()
		return nil
	}
	if c.hasSelf && n == c.selfName {
		c.emit(code.Instr{Op: code.OpGetDef, A: c.constName(n)})
		c.push()
		return nil
	}
	if idx, ok := c.resolveClosure(n); ok {
		c.emit(code.Instr{Op: code.OpLoadC, A: idx})
		c.push()
		return nil
	}
	c.emit(code.Instr{Op: code.OpGetDef, A: c.constName(n)})
	c.push()
	return nil
}

// resolveLocal searches the named-local stack from the top down: the
// most recently declared binding of a name shadows any earlier one.
func (c *Compiler) resolveLocal(n name.Name) (int, bool) {
	for i := len(c.stack) - 1; i >= 0; i-- {
		if c.stack[i] == n {
			return i, true
		}
	}
	return 0, false
}

// resolveClosure looks for n in this compiler's own capture list first,
// then asks the enclosing compiler to resolve it (as a local or,
// recursively, as one of its own captures), appending a new capture
// entry on first success.
func (c *Compiler) resolveClosure(n name.Name) (int, bool) {
	if c.outer == nil {
		return 0, false
	}
	for _, cp := range c.captures {
		if cp.name == n {
			return cp.idx, true
		}
	}
	if _, ok := c.outer.resolveLocal(n); ok {
		idx := len(c.captures)
		c.captures = append(c.captures, capture{name: n, idx: idx})
		return idx, true
	}
	if c.outer.hasSelf && n == c.outer.selfName {
		return 0, false // the enclosing lambda's own name is not capturable; nested use resolves via GetDef
	}
	if _, ok := c.outer.resolveClosure(n); ok {
		idx := len(c.captures)
		c.captures = append(c.captures, capture{name: n, idx: idx})
		return idx, true
	}
	return 0, false
}

// declareLocal appends n as a new named local and returns its slot.
func (c *Compiler) declareLocal(n name.Name) int {
	c.stack = append(c.stack, n)
	return len(c.stack) - 1
}

// truncateLocals drops every local declared at slot >= n, e.g. at the
// end of a `let` body.
func (c *Compiler) truncateLocals(n int) {
	c.stack = c.stack[:n]
}
