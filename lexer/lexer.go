package lexer

import (
	"strings"

	"github.com/emberlisp/ember/token"
)

// Lexer scans Ember source text into a flat token stream. It keeps
// Pidgin's byte-scanner shape (readChar/peekChar, an explicit skip
// pass, dedicated read* helpers per token class) adapted from an infix
// grammar's operator/keyword tokens to an s-expression reader's
// parens, quote-family markers, and literal classes.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	line         int
}

// New creates a new Lexer instance.
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	line := l.line
	offset := l.position

	var tok token.Token
	switch l.ch {
	case '(':
		tok = l.simple(token.LPAREN)
	case ')':
		tok = l.simple(token.RPAREN)
	case '\'':
		tok = l.simple(token.QUOTE)
	case '`':
		tok = l.simple(token.QUASIQUOTE)
	case ',':
		if l.peekChar() == '@' {
			l.readChar()
			tok = token.Token{Type: token.COMMA_AT, Literal: ",@", Line: line, Offset: offset}
			l.readChar()
			return tok
		}
		tok = l.simple(token.COMMA)
	case '"':
		s, ok := l.readString()
		if !ok {
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated string", Line: line, Offset: offset}
		}
		return token.Token{Type: token.STRING, Literal: s, Line: line, Offset: offset}
	case '#':
		return l.readHash(line, offset)
	case ':':
		l.readChar()
		sym := l.readSymbol()
		return token.Token{Type: token.KEYWORD, Literal: sym, Line: line, Offset: offset}
	case 0:
		return token.Token{Type: token.EOF, Literal: "", Line: line, Offset: offset}
	default:
		if isDigit(l.ch) || ((l.ch == '-' || l.ch == '+') && isDigit(l.peekChar())) {
			lit, typ := l.readNumber()
			return token.Token{Type: typ, Literal: lit, Line: line, Offset: offset}
		}
		if isSymbolChar(l.ch) {
			sym := l.readSymbol()
			return token.Token{Type: token.IDENT, Literal: sym, Line: line, Offset: offset}
		}
		tok = token.Token{Type: token.ILLEGAL, Literal: string(l.ch), Line: line, Offset: offset}
		l.readChar()
		return tok
	}

	l.readChar()
	return tok
}

func (l *Lexer) simple(t token.TokenType) token.Token {
	return token.Token{Type: t, Literal: string(l.ch), Line: l.line, Offset: l.position}
}

// readHash handles the `#` reader-macro prefix: `#t`/`#f` booleans and
// `#\x` character literals (`#\space`/`#\newline`/`#\tab` by name).
func (l *Lexer) readHash(line, offset int) token.Token {
	l.readChar() // consume '#'
	switch l.ch {
	case 't':
		l.readChar()
		return token.Token{Type: token.BOOL, Literal: "true", Line: line, Offset: offset}
	case 'f':
		l.readChar()
		return token.Token{Type: token.BOOL, Literal: "false", Line: line, Offset: offset}
	case '\\':
		l.readChar()
		start := l.position
		l.readChar()
		for isSymbolChar(l.ch) || isDigit(l.ch) {
			l.readChar()
		}
		return token.Token{Type: token.CHAR, Literal: l.input[start:l.position], Line: line, Offset: offset}
	default:
		return token.Token{Type: token.ILLEGAL, Literal: "#" + string(l.ch), Line: line, Offset: offset}
	}
}

// readNumber reads an integer, ratio (n/d) or float, distinguishing by
// the presence of a `/`, `.` or exponent marker.
func (l *Lexer) readNumber() (string, token.TokenType) {
	start := l.position
	if l.ch == '-' || l.ch == '+' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '/' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
		return l.input[start:l.position], token.RATIO
	}
	isFloat := false
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		isFloat = true
		l.readChar()
		if l.ch == '-' || l.ch == '+' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if isFloat {
		return l.input[start:l.position], token.FLOAT
	}
	return l.input[start:l.position], token.INT
}

// readSymbol reads an identifier: a run of symbol characters. Ember
// identifiers may contain the punctuation Lisp symbols conventionally
// use (`/=`, `->`, `eq?`, `set!`), so the charset is everything except
// whitespace, parens, quote-family markers, and the string/keyword/hash
// prefixes.
func (l *Lexer) readSymbol() string {
	start := l.position
	for isSymbolChar(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readString reads a double-quoted string literal, honoring the
// standard `\n \t \r \\ \"` escapes.
func (l *Lexer) readString() (string, bool) {
	var sb strings.Builder
	l.readChar() // consume opening quote
	for {
		if l.ch == 0 {
			return "", false
		}
		if l.ch == '"' {
			l.readChar()
			return sb.String(), true
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			default:
				sb.WriteByte(l.ch)
			}
			l.readChar()
			continue
		}
		if l.ch == '\n' {
			l.line++
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
}

// skipWhitespace skips spaces, tabs, newlines, carriage returns, and
// `;`-prefixed line comments.
func (l *Lexer) skipWhitespace() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '\n':
			l.line++
			l.readChar()
		case l.ch == ';':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// isSymbolChar reports whether ch may appear in an identifier, outside
// of the characters reserved as standalone syntax (parens, quote
// markers, comma, whitespace, `"`, `#`, `:`, `;`).
func isSymbolChar(ch byte) bool {
	switch ch {
	case '(', ')', '\'', '`', ',', '"', '#', ':', ';', 0, ' ', '\t', '\n', '\r':
		return false
	default:
		return true
	}
}
