package vm_test

import (
	"testing"

	"github.com/emberlisp/ember/compiler"
	"github.com/emberlisp/ember/name"
	"github.com/emberlisp/ember/scope"
	"github.com/emberlisp/ember/value"
	"github.com/emberlisp/ember/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness builds a fresh Interner/Scope/Compiler/VM wired together the
// way module.FileLoader wires one per module.
type harness struct {
	in *name.Interner
	sc *scope.Scope
	c  *compiler.Compiler
	vm *vm.VM
}

func newHarness() *harness {
	in := name.New()
	sc := scope.New(in, nil)
	machine := vm.New(sc)
	return &harness{in: in, sc: sc, c: compiler.New(sc, machine), vm: machine}
}

func (h *harness) nv(text string) value.NameVal {
	return value.NameVal{Name: h.in.Intern(text), Text: text}
}

func (h *harness) list(items ...value.Value) value.List {
	return value.List{Items: items}
}

func (h *harness) run(t *testing.T, v value.Value) value.Value {
	t.Helper()
	compiled, err := h.c.Compile(v)
	require.NoError(t, err)
	result, err := h.vm.Run(compiled)
	require.NoError(t, err)
	return result
}

func TestIfBranches(t *testing.T) {
	h := newHarness()
	got := h.run(t, h.list(h.nv("if"), value.Bool(true), value.Int(1), value.Int(2)))
	assert.Equal(t, value.Int(1), got)

	h = newHarness()
	got = h.run(t, h.list(h.nv("if"), value.Bool(false), value.Int(1), value.Int(2)))
	assert.Equal(t, value.Int(2), got)

	h = newHarness()
	got = h.run(t, h.list(h.nv("if"), value.Bool(false), value.Int(1)))
	assert.Equal(t, value.Unit{}, got)
}

func TestLetBindingsAndEq(t *testing.T) {
	h := newHarness()
	bindings := h.list(
		h.list(h.nv("a"), value.Int(1)),
		h.list(h.nv("b"), value.Int(2)),
	)
	got := h.run(t, h.list(h.nv("let"), bindings, h.list(h.nv("eq"), h.nv("a"), h.nv("b"))))
	assert.Equal(t, value.Bool(false), got)

	h = newHarness()
	bindings = h.list(
		h.list(h.nv("a"), value.Int(1)),
		h.list(h.nv("b"), value.Int(1)),
	)
	got = h.run(t, h.list(h.nv("let"), bindings, h.list(h.nv("eq"), h.nv("a"), h.nv("b"))))
	assert.Equal(t, value.Bool(true), got)
}

func TestAndShortCircuit(t *testing.T) {
	h := newHarness()
	got := h.run(t, h.list(h.nv("and"), value.Int(1), value.Int(2), value.Int(3)))
	assert.Equal(t, value.Int(3), got)

	h = newHarness()
	got = h.run(t, h.list(h.nv("and"), value.Int(1), value.Bool(false), value.Int(3)))
	assert.Equal(t, value.Bool(false), got)

	h = newHarness()
	got = h.run(t, h.list(h.nv("and")))
	assert.Equal(t, value.Bool(true), got)
}

func TestOrShortCircuit(t *testing.T) {
	h := newHarness()
	got := h.run(t, h.list(h.nv("or"), value.Bool(false), value.Bool(false), value.Int(5)))
	assert.Equal(t, value.Int(5), got)

	h = newHarness()
	got = h.run(t, h.list(h.nv("or")))
	assert.Equal(t, value.Bool(false), got)
}

func TestCaseClauses(t *testing.T) {
	h := newHarness()
	form := h.list(
		h.nv("case"), value.Int(2),
		h.list(value.Int(1), value.Keyword("one")),
		h.list(value.Int(2), value.Keyword("two")),
		h.list(h.nv("else"), value.Keyword("other")),
	)
	got := h.run(t, form)
	assert.Equal(t, value.Keyword("two"), got)

	h = newHarness()
	form = h.list(
		h.nv("case"), value.Int(9),
		h.list(value.Int(1), value.Keyword("one")),
		h.list(h.nv("else"), value.Keyword("other")),
	)
	got = h.run(t, form)
	assert.Equal(t, value.Keyword("other"), got)
}

func TestQuoteAndQuasiquote(t *testing.T) {
	h := newHarness()
	got := h.run(t, value.Quote{Inner: h.list(value.Int(1), value.Int(2), value.Int(3)), Depth: 1})
	assert.Equal(t, h.list(value.Int(1), value.Int(2), value.Int(3)), got)

	h = newHarness()
	qq := value.Quasiquote{
		Inner: h.list(
			value.Int(1),
			value.Comma{Inner: h.list(h.nv("eq"), value.Int(1), value.Int(1)), Depth: 1},
			value.Int(3),
		),
		Depth: 1,
	}
	got = h.run(t, qq)
	assert.Equal(t, h.list(value.Int(1), value.Bool(true), value.Int(3)), got)
}

func TestQuasiquoteSplice(t *testing.T) {
	h := newHarness()
	qq := value.Quasiquote{
		Inner: h.list(
			value.Int(0),
			value.CommaAt{Inner: h.list(h.nv("list"), value.Int(1), value.Int(2)), Depth: 1},
			value.Int(3),
		),
		Depth: 1,
	}
	got := h.run(t, qq)
	assert.Equal(t, h.list(value.Int(0), value.Int(1), value.Int(2), value.Int(3)), got)
}

func TestDefineAndCallConst(t *testing.T) {
	h := newHarness()
	h.run(t, h.list(h.nv("define"), h.list(h.nv("ident"), h.nv("x")), h.nv("x")))
	got := h.run(t, h.list(h.nv("ident"), value.Int(42)))
	assert.Equal(t, value.Int(42), got)
}

// TestRecursiveSelfCall walks a list down to empty via OpCallSelf,
// exercising the compiler's direct-recursion path (compiler/list.go's
// compileSelfCall) end to end.
func TestRecursiveSelfCall(t *testing.T) {
	h := newHarness()
	h.run(t, h.list(
		h.nv("define"), h.list(h.nv("drain"), h.nv("lst")),
		h.list(h.nv("if"), h.list(h.nv("null"), h.nv("lst")),
			value.Keyword("done"),
			h.list(h.nv("drain"), h.list(h.nv("tail"), h.nv("lst"))),
		),
	))
	got := h.run(t, h.list(h.nv("drain"), h.list(h.nv("list"), value.Int(1), value.Int(2), value.Int(3))))
	assert.Equal(t, value.Keyword("done"), got)
}

func TestClosureCapture(t *testing.T) {
	h := newHarness()
	// (define (adder n) (lambda (x) (eq x n)))
	h.run(t, h.list(h.nv("define"), h.list(h.nv("adder"), h.nv("n")),
		h.list(h.nv("lambda"), h.list(h.nv("x")), h.list(h.nv("eq"), h.nv("x"), h.nv("n"))),
	))
	// (define (needle) (adder 7))
	h.run(t, h.list(h.nv("define"), h.list(h.nv("needle")), h.list(h.nv("adder"), value.Int(7))))
	fn := h.run(t, h.list(h.nv("needle")))
	_, ok := fn.(value.Function)
	require.True(t, ok, "expected a function value, got %T", fn)

	got, err := h.vm.CallLambda(fn.(value.Function), []value.Value{value.Int(7)})
	require.NoError(t, err)
	assert.Equal(t, value.Bool(true), got)

	got, err = h.vm.CallLambda(fn.(value.Function), []value.Value{value.Int(8)})
	require.NoError(t, err)
	assert.Equal(t, value.Bool(false), got)
}

func TestApplySpreadsFinalList(t *testing.T) {
	h := newHarness()
	h.run(t, h.list(h.nv("define"), h.list(h.nv("four"), h.nv("a"), h.nv("b"), h.nv("c"), h.nv("d")),
		h.list(h.nv("list"), h.nv("a"), h.nv("b"), h.nv("c"), h.nv("d")),
	))
	got := h.run(t, h.list(h.nv("apply"), h.nv("four"), value.Int(1), value.Int(2),
		h.list(h.nv("list"), value.Int(3), value.Int(4))))
	assert.Equal(t, h.list(value.Int(1), value.Int(2), value.Int(3), value.Int(4)), got)
}

func TestOptionalAndRestParams(t *testing.T) {
	h := newHarness()
	// (define (greet name (greeting "hi") :rest extra) (list name greeting extra))
	// :optional/:rest are lexed as value.Keyword, never value.NameVal —
	// built here the way the real reader would produce them, not via
	// h.nv, so this test exercises the same marker recognition real
	// source hits.
	h.run(t, h.list(h.nv("define"),
		h.list(h.nv("greet"), h.nv("name"), value.Keyword("optional"),
			h.list(h.nv("greeting"), value.String("hi")),
			value.Keyword("rest"), h.nv("extra")),
		h.list(h.nv("list"), h.nv("name"), h.nv("greeting"), h.nv("extra")),
	))

	got := h.run(t, h.list(h.nv("greet"), value.String("ada")))
	assert.Equal(t, h.list(value.String("ada"), value.String("hi"), h.list()), got)

	got = h.run(t, h.list(h.nv("greet"), value.String("ada"), value.String("yo"), value.Int(1), value.Int(2)))
	assert.Equal(t, h.list(value.String("ada"), value.String("yo"), h.list(value.Int(1), value.Int(2))), got)
}
