// Package value defines the tagged-variant datatype produced by the
// reader (lexer+parser) and manipulated by the compiler: unit, booleans,
// integers, ratios, floats, characters, strings, keywords, names,
// quoted/quasiquoted wrappers with depth, comma/comma-at wrappers with
// depth, lists, lambdas, struct definitions, and compiled functions.
//
// A single Value type is used for both the tree the reader produces and
// the values a compiled program's constant pool holds, matching how
// Lisp-family implementations (including ketos, the original this
// spec was distilled from) avoid a separate AST type.
package value

import (
	"fmt"

	"github.com/emberlisp/ember/name"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindUnit Kind = iota
	KindBool
	KindInt
	KindRatio
	KindFloat
	KindChar
	KindString
	KindKeyword
	KindName
	KindList
	KindQuote
	KindQuasiquote
	KindComma
	KindCommaAt
	KindLambda
	KindStructDef
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindInt:
		return "integer"
	case KindRatio:
		return "ratio"
	case KindFloat:
		return "float"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindKeyword:
		return "keyword"
	case KindName:
		return "name"
	case KindList:
		return "list"
	case KindQuote:
		return "quote"
	case KindQuasiquote:
		return "quasiquote"
	case KindComma:
		return "comma"
	case KindCommaAt:
		return "comma-at"
	case KindLambda:
		return "lambda"
	case KindStructDef:
		return "struct-def"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Value is any node in the expression tree: a constant-eligible leaf,
// a Name reference, a List, a reader-macro wrapper (Quote/Quasiquote/
// Comma/CommaAt), or a value that only exists post-compilation
// (Function). See IsConstEligible.
type Value interface {
	Kind() Kind
	String() string
}

// Pos is an opaque source-map offset attached by the parser to list
// nodes. The compiler never interprets it; it is only carried through
// to diagnostics.
type Pos struct {
	Offset int
	Line   int
}

// IsConstEligible reports whether v may be embedded directly in a
// Code's constant pool (spec.md §3). Name, List, Comma, CommaAt and
// Quasiquote require compilation instead.
func IsConstEligible(v Value) bool {
	switch v.(type) {
	case Unit, Bool, Int, Ratio, Float, Char, String, Keyword, Quote:
		return true
	default:
		return false
	}
}

// ---- Unit ----

type Unit struct{}

func (Unit) Kind() Kind     { return KindUnit }
func (Unit) String() string { return "()" }

// ---- Bool ----

type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

// ---- Int ----

type Int int64

func (Int) Kind() Kind        { return KindInt }
func (i Int) String() string  { return fmt.Sprintf("%d", int64(i)) }

// ---- Ratio ----

// Ratio is always stored reduced (gcd divided out) with a positive
// denominator, matching ketos's rational representation.
type Ratio struct {
	Num int64
	Den int64
}

// NewRatio reduces num/den and returns a Ratio.
func NewRatio(num, den int64) Ratio {
	if den < 0 {
		num, den = -num, -den
	}
	if g := gcd(abs(num), den); g > 1 {
		num, den = num/g, den/g
	}
	return Ratio{Num: num, Den: den}
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func abs(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}

func (Ratio) Kind() Kind { return KindRatio }
func (r Ratio) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// ---- Float ----

type Float float64

func (Float) Kind() Kind       { return KindFloat }
func (f Float) String() string { return fmt.Sprintf("%g", float64(f)) }

// ---- Char ----

type Char rune

func (Char) Kind() Kind       { return KindChar }
func (c Char) String() string { return fmt.Sprintf("%c", rune(c)) }

// ---- String ----

type String string

func (String) Kind() Kind       { return KindString }
func (s String) String() string { return string(s) }

// ---- Keyword ----

type Keyword string

func (Keyword) Kind() Kind       { return KindKeyword }
func (k Keyword) String() string { return ":" + string(k) }

// ---- Name ----

// NameVal wraps a name.Name as a Value (an identifier reference).
type NameVal struct {
	Name name.Name
	Text string // retained for diagnostics; not used for equality
}

func (NameVal) Kind() Kind       { return KindName }
func (n NameVal) String() string { return n.Text }

// ---- List ----

type List struct {
	Items []Value
	Pos   Pos
}

func (List) Kind() Kind { return KindList }
func (l List) String() string {
	s := "("
	for i, it := range l.Items {
		if i > 0 {
			s += " "
		}
		s += it.String()
	}
	return s + ")"
}

// ---- Quote / Quasiquote / Comma / CommaAt (depth-carrying wrappers) ----

type Quote struct {
	Inner Value
	Depth int // always >= 1
}

func (Quote) Kind() Kind       { return KindQuote }
func (q Quote) String() string { return "'" + q.Inner.String() }

type Quasiquote struct {
	Inner Value
	Depth int // always >= 1
}

func (Quasiquote) Kind() Kind       { return KindQuasiquote }
func (q Quasiquote) String() string { return "`" + q.Inner.String() }

type Comma struct {
	Inner Value
	Depth int // always >= 1
}

func (Comma) Kind() Kind       { return KindComma }
func (c Comma) String() string { return "," + c.Inner.String() }

type CommaAt struct {
	Inner Value
	Depth int // always >= 1
}

func (CommaAt) Kind() Kind       { return KindCommaAt }
func (c CommaAt) String() string { return ",@" + c.Inner.String() }

// ---- Lambda (uncompiled lambda literal, as it appears in source before
// compiler/lambda.go turns it into a Function) ----

type ParamKind int

const (
	ParamPositional ParamKind = iota
	ParamOptional
	ParamKey
	ParamRest
)

type Param struct {
	Name    name.Name
	Text    string
	Kind    ParamKind
	Default Value // nil if none
}

type Lambda struct {
	Params []Param
	Body   []Value
	Name   string // set when compiled via (define (name ...) ...)
}

func (Lambda) Kind() Kind       { return KindLambda }
func (l Lambda) String() string { return "#<lambda>" }

// ---- StructDef ----

type FieldDef struct {
	Name     name.Name
	TypeName name.Name
}

type StructDef struct {
	Name   name.Name
	Fields []FieldDef
}

func (StructDef) Kind() Kind       { return KindStructDef }
func (s StructDef) String() string { return "#<struct>" }

// ---- Function ----
//
// Function is implemented by package code's compiled-closure type. It is
// declared as an interface here (rather than a concrete struct holding
// *code.Code) so that value, the lower-level package, never imports
// code, the package that emits it — code depends on value for its
// constant pool and capture values, not the other way around.
type Function interface {
	Value
	IsFunction()
}
