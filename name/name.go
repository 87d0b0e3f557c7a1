// Package name implements the compiler's name interner: a mapping from
// textual identifiers to small integer handles. A contiguous reserved
// sub-range identifies the fourteen system operators; another identifies
// the standard intrinsic names. Reserving the ranges lets the compiler
// dispatch on a handle with a plain numeric comparison instead of a
// string lookup.
package name

// Name is an opaque handle produced by an Interner. Handles are stable
// for the lifetime of the Interner that produced them.
type Name uint32

// DummyName is the sentinel used for placeholder stack slots (lambda
// parameters before their default-handling code replaces the slot with
// the real parameter name).
const DummyName Name = 0xFFFFFFFF

// systemOperatorNames are the fourteen reserved special forms dispatched
// by compiler/operators.go. Order fixes their Name handles.
var systemOperatorNames = []string{
	"apply", "do", "let", "define", "macro", "struct", "if",
	"and", "or", "case", "cond", "lambda", "export", "use",
}

// standardNames are the reserved intrinsic/keyword names spec.md §3
// calls out by name. Order fixes their Name handles.
var standardNames = []string{
	"eq", "not", "list", "first", "tail", "init", "last", "append",
	"null", "id", "inf", "nan", "/=", "concat",
	"else", ":key", ":optional", ":rest", "macro-name", "all",
}

const (
	systemOperatorsBegin Name = 1
)

var (
	systemOperatorsEnd = systemOperatorsBegin + Name(len(systemOperatorNames))
	standardBegin      = systemOperatorsEnd
	standardEnd        = standardBegin + Name(len(standardNames))
	firstUserName      = standardEnd
)

// IsSystemOperator reports whether n falls in the reserved
// system-operator range.
func (n Name) IsSystemOperator() bool {
	return n >= systemOperatorsBegin && n < systemOperatorsEnd
}

// IsStandard reports whether n falls in the reserved standard-intrinsic
// range.
func (n Name) IsStandard() bool {
	return n >= standardBegin && n < standardEnd
}

// IsReserved reports whether n cannot be redefined by user code: either
// a system operator or a standard name.
func (n Name) IsReserved() bool {
	return n.IsSystemOperator() || n.IsStandard()
}

// systemOperatorIndex returns the index into systemOperatorNames, or -1.
func systemOperatorIndex(n Name) int {
	if !n.IsSystemOperator() {
		return -1
	}
	return int(n - systemOperatorsBegin)
}

// standardIndex returns the index into standardNames, or -1.
func standardIndex(n Name) int {
	if !n.IsStandard() {
		return -1
	}
	return int(n - standardBegin)
}

// Well-known standard Name handles, fixed at package init so the
// compiler's intrinsic/operator tables can use them as constants.
var (
	NameEq       = standardBegin + 0
	NameNot      = standardBegin + 1
	NameList     = standardBegin + 2
	NameFirst    = standardBegin + 3
	NameTail     = standardBegin + 4
	NameInit     = standardBegin + 5
	NameLast     = standardBegin + 6
	NameAppend   = standardBegin + 7
	NameNull     = standardBegin + 8
	NameID       = standardBegin + 9
	NameInf      = standardBegin + 10
	NameNaN      = standardBegin + 11
	NameNotEq    = standardBegin + 12
	NameConcat   = standardBegin + 13
	NameElse     = standardBegin + 14
	NameKey      = standardBegin + 15
	NameOptional = standardBegin + 16
	NameRest     = standardBegin + 17
	NameMacro    = standardBegin + 18
	NameAll      = standardBegin + 19
)

// Well-known system-operator Name handles.
var (
	OpApply  = systemOperatorsBegin + 0
	OpDo     = systemOperatorsBegin + 1
	OpLet    = systemOperatorsBegin + 2
	OpDefine = systemOperatorsBegin + 3
	OpMacro  = systemOperatorsBegin + 4
	OpStruct = systemOperatorsBegin + 5
	OpIf     = systemOperatorsBegin + 6
	OpAnd    = systemOperatorsBegin + 7
	OpOr     = systemOperatorsBegin + 8
	OpCase   = systemOperatorsBegin + 9
	OpCond   = systemOperatorsBegin + 10
	OpLambda = systemOperatorsBegin + 11
	OpExport = systemOperatorsBegin + 12
	OpUse    = systemOperatorsBegin + 13
)
