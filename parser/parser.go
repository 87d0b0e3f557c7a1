package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emberlisp/ember/lexer"
	"github.com/emberlisp/ember/name"
	"github.com/emberlisp/ember/token"
	"github.com/emberlisp/ember/value"
)

// Parser reads a token stream into value.Value trees. It keeps
// Pidgin's curToken/peekToken/New shape and accumulated-errors-list
// style, but replaces the Pratt infix machinery (there is no operator
// precedence in an s-expression reader) with a small recursive-descent
// reader: parseValue dispatches on the current token, parseList loops
// until a matching `)`, and the quote-family markers each wrap the
// following value in the corresponding reader-macro Value variant.
type Parser struct {
	l   *lexer.Lexer
	in  *name.Interner
	src string

	curToken  token.Token
	peekToken token.Token

	errors []string
}

// New creates a Parser reading src through l, interning identifiers
// with in.
func New(l *lexer.Lexer, in *name.Interner, src string) *Parser {
	p := &Parser{l: l, in: in, src: src}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, fmt.Sprintf("line %d: %s", p.curToken.Line, fmt.Sprintf(format, args...)))
}

// ParseAll reads every top-level form in the input. Reader.ParseAll
// wraps it to implement module.SourceParser.
func (p *Parser) ParseAll() ([]value.Value, error) {
	var forms []value.Value
	for p.curToken.Type != token.EOF {
		v, ok := p.parseValue()
		if !ok {
			break
		}
		forms = append(forms, v)
	}
	if len(p.errors) > 0 {
		return nil, &ParseError{Messages: p.errors}
	}
	return forms, nil
}

// Reader adapts Parser to module.SourceParser, letting FileLoader
// depend on the narrow `ParseAll(src, path) ([]value.Value, error)`
// shape instead of on this package's Parser/lexer construction
// directly.
type Reader struct {
	Interner *name.Interner
}

func (r *Reader) ParseAll(src []byte, path string) ([]value.Value, error) {
	p := New(lexer.New(string(src)), r.Interner, path)
	return p.ParseAll()
}

// ParseError reports every syntax error a ParseAll pass accumulated,
// rather than stopping at the first one, matching Pidgin's parser's
// accumulated-errors-list convention.
type ParseError struct {
	Messages []string
}

func (e *ParseError) Error() string {
	return "parse error: " + strings.Join(e.Messages, "; ")
}

func (p *Parser) parseValue() (value.Value, bool) {
	switch p.curToken.Type {
	case token.EOF:
		p.errorf("unexpected end of input")
		return nil, false
	case token.LPAREN:
		return p.parseList()
	case token.RPAREN:
		p.errorf("unexpected ')'")
		p.nextToken()
		return nil, false
	case token.QUOTE:
		return p.parseWrapped(1, func(v value.Value, d int) value.Value {
			return value.Quote{Inner: v, Depth: d}
		})
	case token.QUASIQUOTE:
		return p.parseWrapped(1, func(v value.Value, d int) value.Value {
			return value.Quasiquote{Inner: v, Depth: d}
		})
	case token.COMMA:
		return p.parseWrapped(1, func(v value.Value, d int) value.Value {
			return value.Comma{Inner: v, Depth: d}
		})
	case token.COMMA_AT:
		return p.parseWrapped(1, func(v value.Value, d int) value.Value {
			return value.CommaAt{Inner: v, Depth: d}
		})
	case token.INT:
		return p.parseInt()
	case token.RATIO:
		return p.parseRatio()
	case token.FLOAT:
		return p.parseFloat()
	case token.STRING:
		lit := p.curToken.Literal
		p.nextToken()
		return value.String(lit), true
	case token.CHAR:
		return p.parseChar()
	case token.KEYWORD:
		lit := p.curToken.Literal
		p.nextToken()
		return value.Keyword(lit), true
	case token.BOOL:
		b := p.curToken.Literal == "true"
		p.nextToken()
		return value.Bool(b), true
	case token.IDENT:
		text := p.curToken.Literal
		p.nextToken()
		return value.NameVal{Name: p.in.Intern(text), Text: text}, true
	default:
		p.errorf("unexpected token %q", p.curToken.Literal)
		p.nextToken()
		return nil, false
	}
}

// parseWrapped consumes a single quote-family marker token and reads
// the value it prefixes, collapsing a run of identical markers
// (`''x`, ``,,x``) into one wrapper with an accumulated depth, per
// spec.md §3's "treat equivalent encodings as equivalent".
func (p *Parser) parseWrapped(depth int, wrap func(value.Value, int) value.Value) (value.Value, bool) {
	marker := p.curToken.Type
	p.nextToken()
	if p.curToken.Type == marker {
		inner, ok := p.parseWrapped(depth+1, wrap)
		if !ok {
			return nil, false
		}
		return inner, true
	}
	v, ok := p.parseValue()
	if !ok {
		return nil, false
	}
	return wrap(v, depth), true
}

func (p *Parser) parseList() (value.Value, bool) {
	pos := value.Pos{Offset: p.curToken.Offset, Line: p.curToken.Line}
	p.nextToken() // consume '('

	var items []value.Value
	for p.curToken.Type != token.RPAREN {
		if p.curToken.Type == token.EOF {
			p.errorf("unterminated list")
			return nil, false
		}
		v, ok := p.parseValue()
		if !ok {
			return nil, false
		}
		items = append(items, v)
	}
	p.nextToken() // consume ')'

	if len(items) == 0 {
		return value.Unit{}, true
	}
	return value.List{Items: items, Pos: pos}, true
}

func (p *Parser) parseInt() (value.Value, bool) {
	lit := p.curToken.Literal
	n, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		p.errorf("invalid integer literal %q", lit)
		p.nextToken()
		return nil, false
	}
	p.nextToken()
	return value.Int(n), true
}

func (p *Parser) parseRatio() (value.Value, bool) {
	lit := p.curToken.Literal
	parts := strings.SplitN(lit, "/", 2)
	num, err1 := strconv.ParseInt(parts[0], 10, 64)
	den, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil || den == 0 {
		p.errorf("invalid ratio literal %q", lit)
		p.nextToken()
		return nil, false
	}
	p.nextToken()
	return value.NewRatio(num, den), true
}

func (p *Parser) parseFloat() (value.Value, bool) {
	lit := p.curToken.Literal
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		p.errorf("invalid float literal %q", lit)
		p.nextToken()
		return nil, false
	}
	p.nextToken()
	return value.Float(f), true
}

// namedChars are the `#\name` character literals with no single-rune
// spelling.
var namedChars = map[string]rune{
	"space":   ' ',
	"newline": '\n',
	"tab":     '\t',
	"nul":     0,
}

func (p *Parser) parseChar() (value.Value, bool) {
	lit := p.curToken.Literal
	if len(lit) == 0 {
		p.errorf("empty character literal")
		p.nextToken()
		return nil, false
	}
	if r, ok := namedChars[lit]; ok {
		p.nextToken()
		return value.Char(r), true
	}
	runes := []rune(lit)
	if len(runes) != 1 {
		p.errorf("invalid character literal %q", lit)
		p.nextToken()
		return nil, false
	}
	p.nextToken()
	return value.Char(runes[0]), true
}
