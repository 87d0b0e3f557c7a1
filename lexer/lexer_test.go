package lexer_test

import (
	"testing"

	"github.com/emberlisp/ember/lexer"
	"github.com/emberlisp/ember/token"
	"github.com/stretchr/testify/assert"
)

func collect(input string) []token.Token {
	l := lexer.New(input)
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func types(toks []token.Token) []token.TokenType {
	out := make([]token.TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestLexerBasicList(t *testing.T) {
	toks := collect("(first '(1 2 3))")
	assert.Equal(t, []token.TokenType{
		token.LPAREN, token.IDENT, token.QUOTE, token.LPAREN,
		token.INT, token.INT, token.INT, token.RPAREN, token.RPAREN, token.EOF,
	}, types(toks))
}

func TestLexerNumbers(t *testing.T) {
	toks := collect("1 -2 3/4 1.5 2e10")
	assert.Equal(t, []token.TokenType{
		token.INT, token.INT, token.RATIO, token.FLOAT, token.FLOAT, token.EOF,
	}, types(toks))
	assert.Equal(t, "3/4", toks[2].Literal)
	assert.Equal(t, "2e10", toks[4].Literal)
}

func TestLexerStringEscapes(t *testing.T) {
	toks := collect(`"hi\nthere"`)
	assert.Equal(t, token.STRING, toks[0].Type)
	assert.Equal(t, "hi\nthere", toks[0].Literal)
}

func TestLexerCommaFamily(t *testing.T) {
	toks := collect("`(a ,b ,@c)")
	assert.Equal(t, []token.TokenType{
		token.QUASIQUOTE, token.LPAREN, token.IDENT,
		token.COMMA, token.IDENT, token.COMMA_AT, token.IDENT,
		token.RPAREN, token.EOF,
	}, types(toks))
}

func TestLexerBoolAndChar(t *testing.T) {
	toks := collect(`#t #f #\a #\space`)
	assert.Equal(t, []token.TokenType{token.BOOL, token.BOOL, token.CHAR, token.CHAR, token.EOF}, types(toks))
	assert.Equal(t, "true", toks[0].Literal)
	assert.Equal(t, "false", toks[1].Literal)
	assert.Equal(t, "a", toks[2].Literal)
	assert.Equal(t, "space", toks[3].Literal)
}

func TestLexerKeyword(t *testing.T) {
	toks := collect(":rest")
	assert.Equal(t, token.KEYWORD, toks[0].Type)
	assert.Equal(t, "rest", toks[0].Literal)
}

func TestLexerCommentSkipped(t *testing.T) {
	toks := collect("1 ; a comment\n2")
	assert.Equal(t, []token.TokenType{token.INT, token.INT, token.EOF}, types(toks))
}

func TestLexerSymbolPunctuation(t *testing.T) {
	toks := collect("/= -> eq?")
	assert.Equal(t, []token.TokenType{token.IDENT, token.IDENT, token.IDENT, token.EOF}, types(toks))
	assert.Equal(t, "/=", toks[0].Literal)
	assert.Equal(t, "->", toks[1].Literal)
	assert.Equal(t, "eq?", toks[2].Literal)
}
