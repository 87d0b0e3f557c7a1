package token_test

import (
	"testing"

	"github.com/emberlisp/ember/token"
	"github.com/stretchr/testify/assert"
)

func TestTokenTypesAreDistinct(t *testing.T) {
	seen := map[token.TokenType]bool{}
	for _, tt := range []token.TokenType{
		token.ILLEGAL, token.EOF, token.LPAREN, token.RPAREN,
		token.QUOTE, token.QUASIQUOTE, token.COMMA, token.COMMA_AT,
		token.IDENT, token.INT, token.RATIO, token.FLOAT, token.CHAR,
		token.STRING, token.KEYWORD, token.BOOL, token.UNIT,
	} {
		assert.False(t, seen[tt], "duplicate token type %q", tt)
		seen[tt] = true
	}
}
