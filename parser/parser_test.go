package parser_test

import (
	"testing"

	"github.com/emberlisp/ember/lexer"
	"github.com/emberlisp/ember/name"
	"github.com/emberlisp/ember/parser"
	"github.com/emberlisp/ember/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, src string) value.Value {
	t.Helper()
	in := name.New()
	p := parser.New(lexer.New(src), in, "<test>")
	forms, err := p.ParseAll()
	require.NoError(t, err)
	require.Len(t, forms, 1)
	return forms[0]
}

func TestParseEmptyListIsUnit(t *testing.T) {
	got := parseOne(t, "()")
	assert.Equal(t, value.Unit{}, got)
}

func TestParseNestedList(t *testing.T) {
	got := parseOne(t, "(a (b c) 3)")
	lst, ok := got.(value.List)
	require.True(t, ok)
	require.Len(t, lst.Items, 3)

	a, ok := lst.Items[0].(value.NameVal)
	require.True(t, ok)
	assert.Equal(t, "a", a.Text)

	inner, ok := lst.Items[1].(value.List)
	require.True(t, ok)
	require.Len(t, inner.Items, 2)

	assert.Equal(t, value.Int(3), lst.Items[2])
}

func TestParseQuoteCollapsesRun(t *testing.T) {
	got := parseOne(t, "''x")
	q, ok := got.(value.Quote)
	require.True(t, ok)
	assert.Equal(t, 2, q.Depth)
	assert.Equal(t, value.NameVal{Name: q.Inner.(value.NameVal).Name, Text: "x"}, q.Inner)
}

func TestParseQuasiquoteCommaAt(t *testing.T) {
	got := parseOne(t, "`(1 ,@xs 2)")
	qq, ok := got.(value.Quasiquote)
	require.True(t, ok)
	assert.Equal(t, 1, qq.Depth)

	lst, ok := qq.Inner.(value.List)
	require.True(t, ok)
	require.Len(t, lst.Items, 3)

	ca, ok := lst.Items[1].(value.CommaAt)
	require.True(t, ok)
	assert.Equal(t, 1, ca.Depth)
}

func TestParseLiterals(t *testing.T) {
	assert.Equal(t, value.Bool(true), parseOne(t, "#t"))
	assert.Equal(t, value.Bool(false), parseOne(t, "#f"))
	assert.Equal(t, value.String("hi"), parseOne(t, `"hi"`))
	assert.Equal(t, value.Keyword("rest"), parseOne(t, ":rest"))
	assert.Equal(t, value.Char('a'), parseOne(t, `#\a`))
	assert.Equal(t, value.Char(' '), parseOne(t, `#\space`))
	assert.Equal(t, value.Int(42), parseOne(t, "42"))
	assert.Equal(t, value.Float(1.5), parseOne(t, "1.5"))
}

func TestParseRatio(t *testing.T) {
	got := parseOne(t, "3/4")
	r, ok := got.(value.Ratio)
	require.True(t, ok)
	assert.Equal(t, value.NewRatio(3, 4), r)
}

func TestParseAllMultipleForms(t *testing.T) {
	in := name.New()
	p := parser.New(lexer.New("1 2 3"), in, "<test>")
	forms, err := p.ParseAll()
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Int(1), value.Int(2), value.Int(3)}, forms)
}

func TestParseUnterminatedListErrors(t *testing.T) {
	in := name.New()
	p := parser.New(lexer.New("(a b"), in, "<test>")
	_, err := p.ParseAll()
	assert.Error(t, err)
}

func TestReaderParseAll(t *testing.T) {
	in := name.New()
	r := &parser.Reader{Interner: in}
	forms, err := r.ParseAll([]byte("(eq 1 1)"), "<test>")
	require.NoError(t, err)
	require.Len(t, forms, 1)
	lst, ok := forms[0].(value.List)
	require.True(t, ok)
	assert.Len(t, lst.Items, 3)
}
