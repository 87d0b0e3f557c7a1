package module

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/emberlisp/ember/code"
	"github.com/emberlisp/ember/name"
	"github.com/emberlisp/ember/scope"
	"github.com/emberlisp/ember/value"
)

// BuiltinLoader serves a fixed set of modules implemented natively in
// Go rather than parsed from source: `math` and `random`, plus a `code`
// module exposing disassembly helpers built on the same instruction
// naming as package code's opcode table. It reports ErrNotFound for any
// other name; placed ahead of a FileLoader in a Registry, it shadows a
// user source file named after one of these three modules.
type BuiltinLoader struct {
	interner *name.Interner
	modules  map[string]func(*name.Interner) *scope.Scope
}

// NewBuiltinLoader constructs a BuiltinLoader backed by interner (shared
// with the registry's compiler, so builtin-module bindings use the same
// Name handles user code resolves against).
func NewBuiltinLoader(interner *name.Interner) *BuiltinLoader {
	return &BuiltinLoader{
		interner: interner,
		modules: map[string]func(*name.Interner) *scope.Scope{
			"math":   buildMathModule,
			"random": buildRandomModule,
			"code":   buildCodeModule,
		},
	}
}

func (b *BuiltinLoader) Load(reg *Registry, moduleName string) (*Module, error) {
	build, ok := b.modules[moduleName]
	if !ok {
		return nil, ErrNotFound{Name: moduleName}
	}
	return &Module{Name: moduleName, scope: build(b.interner)}, nil
}

func nativeFn(s *scope.Scope, n string, fn func([]value.Value) (value.Value, error)) {
	s.SetValue(s.Intern(n), &code.NativeFunc{Name: n, Fn: fn})
}

func argErr(fn string, want int, got int) error {
	return fmt.Errorf("%s: expected %d argument(s), got %d", fn, want, got)
}

func asFloat(v value.Value) (float64, bool) {
	switch n := v.(type) {
	case value.Int:
		return float64(n), true
	case value.Float:
		return float64(n), true
	case value.Ratio:
		return float64(n.Num) / float64(n.Den), true
	default:
		return 0, false
	}
}

func buildMathModule(interner *name.Interner) *scope.Scope {
	s := scope.New(interner, nil)
	s.SetValue(s.Intern("pi"), value.Float(math.Pi))
	s.SetValue(s.Intern("e"), value.Float(math.E))

	unary := func(n string, f func(float64) float64) {
		nm := n
		nativeFn(s, nm, func(args []value.Value) (value.Value, error) {
			if len(args) != 1 {
				return nil, argErr(nm, 1, len(args))
			}
			x, ok := asFloat(args[0])
			if !ok {
				return nil, fmt.Errorf("%s: argument must be numeric", nm)
			}
			return value.Float(f(x)), nil
		})
	}
	unary("sqrt", math.Sqrt)
	unary("sin", math.Sin)
	unary("cos", math.Cos)
	unary("tan", math.Tan)
	unary("log", math.Log)
	unary("exp", math.Exp)
	unary("floor", math.Floor)
	unary("ceil", math.Ceil)
	unary("abs", math.Abs)

	nativeFn(s, "pow", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, argErr("pow", 2, len(args))
		}
		x, ok1 := asFloat(args[0])
		y, ok2 := asFloat(args[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("pow: arguments must be numeric")
		}
		return value.Float(math.Pow(x, y)), nil
	})
	return s
}

func buildRandomModule(interner *name.Interner) *scope.Scope {
	s := scope.New(interner, nil)
	nativeFn(s, "float", func(args []value.Value) (value.Value, error) {
		if len(args) != 0 {
			return nil, argErr("float", 0, len(args))
		}
		return value.Float(rand.Float64()), nil
	})
	nativeFn(s, "int", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, argErr("int", 1, len(args))
		}
		n, ok := args[0].(value.Int)
		if !ok || n <= 0 {
			return nil, fmt.Errorf("int: argument must be a positive integer")
		}
		return value.Int(rand.Int63n(int64(n))), nil
	})
	nativeFn(s, "seed", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, argErr("seed", 1, len(args))
		}
		n, ok := args[0].(value.Int)
		if !ok {
			return nil, fmt.Errorf("seed: argument must be an integer")
		}
		rand.Seed(int64(n))
		return value.Unit{}, nil
	})
	return s
}

// buildCodeModule exposes the disassembled instruction name for an
// opcode byte, for tooling and tests; it does not expose bytecode
// objects themselves, which have no literal syntax in spec.md.
func buildCodeModule(interner *name.Interner) *scope.Scope {
	s := scope.New(interner, nil)
	nativeFn(s, "opcode-name", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, argErr("opcode-name", 1, len(args))
		}
		n, ok := args[0].(value.Int)
		if !ok {
			return nil, fmt.Errorf("opcode-name: argument must be an integer")
		}
		return value.String(code.Op(n).String()), nil
	})
	return s
}
