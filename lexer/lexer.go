// Package lexer tokenizes the listing syntax the compiler front end
// consumes upstream of the HIR. It is deliberately minimal: a forward
// iterator over spanned tokens, with no diagnostics plumbing beyond
// the position carried on a LexError.
package lexer

import (
	"math"
	"math/big"
	"strings"

	"github.com/hansihe/eirgo/diag"
)

// Kind identifies the lexical category of a Token.
type Kind int

const (
	EOF Kind = iota
	Comma
	Dot
	Pipe
	SquareOpen
	SquareClose
	CurlyOpen
	CurlyClose
	Atom
	String
	Integer
	Float
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Comma:
		return "Comma"
	case Dot:
		return "Dot"
	case Pipe:
		return "Pipe"
	case SquareOpen:
		return "SquareOpen"
	case SquareClose:
		return "SquareClose"
	case CurlyOpen:
		return "CurlyOpen"
	case CurlyClose:
		return "CurlyClose"
	case Atom:
		return "Atom"
	case String:
		return "String"
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	default:
		return "?"
	}
}

// Token is one lexical unit. Only the field matching Kind is meaningful:
// Text for Atom/String, Int for Integer, Float64 for Float.
type Token struct {
	Kind    Kind
	Text    string
	Int     *big.Int
	Float64 float64
}

// Equal reports whether a and b carry the same kind and payload. Float
// comparison is bitwise-total, so two NaN tokens with the same bit
// pattern compare equal even though the IEEE float comparison
// a.Float64 == b.Float64 would not.
func (a Token) Equal(b Token) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Atom, String:
		return a.Text == b.Text
	case Integer:
		if a.Int == nil || b.Int == nil {
			return a.Int == b.Int
		}
		return a.Int.Cmp(b.Int) == 0
	case Float:
		return math.Float64bits(a.Float64) == math.Float64bits(b.Float64)
	default:
		return true
	}
}

// Spanned pairs a Token with its half-open range of rune indices in the
// source.
type Spanned struct {
	Start int
	Token Token
	End   int
}

// Lexer is a forward iterator over a source string's tokens.
type Lexer struct {
	src []rune
	pos int
}

// New returns a Lexer over src.
func New(src string) *Lexer {
	return &Lexer{src: []rune(src)}
}

func (l *Lexer) eof() bool { return l.pos >= len(l.src) }

func (l *Lexer) peek() rune {
	if l.eof() {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) rune {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) skipWhitespace() {
	for !l.eof() && isSpace(l.peek()) {
		l.pos++
	}
}

func isSpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isUnquotedAtomStart(c rune) bool {
	return c >= 'a' && c <= 'z'
}

func isUnquotedAtomCont(c rune) bool {
	return c == '_' || c == '@' || (c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

// Next returns the next token and its span, or a *diag.LexError if the
// source contains an unrecognized character, a backslash inside a quoted
// atom or string (no escape sequence is accepted), or an unterminated
// quoted atom or string. At end of input it returns a single EOF token
// repeatedly.
func (l *Lexer) Next() (Spanned, error) {
	l.skipWhitespace()
	start := l.pos

	if l.eof() {
		return Spanned{Start: start, Token: Token{Kind: EOF}, End: start}, nil
	}

	c := l.peek()
	switch {
	case c == '{':
		l.pos++
		return l.spanned(start, Token{Kind: CurlyOpen}), nil
	case c == '}':
		l.pos++
		return l.spanned(start, Token{Kind: CurlyClose}), nil
	case c == '[':
		l.pos++
		return l.spanned(start, Token{Kind: SquareOpen}), nil
	case c == ']':
		l.pos++
		return l.spanned(start, Token{Kind: SquareClose}), nil
	case c == ',':
		l.pos++
		return l.spanned(start, Token{Kind: Comma}), nil
	case c == '.':
		l.pos++
		return l.spanned(start, Token{Kind: Dot}), nil
	case c == '|':
		l.pos++
		return l.spanned(start, Token{Kind: Pipe}), nil
	case isUnquotedAtomStart(c):
		return l.lexUnquotedAtom(start), nil
	case isDigit(c):
		return l.lexNumber(start)
	case c == '\'':
		return l.lexQuotedAtom(start)
	case c == '"':
		return l.lexString(start)
	default:
		return Spanned{}, &diag.LexError{Pos: start, Msg: "unrecognized character " + string(c)}
	}
}

func (l *Lexer) spanned(start int, tok Token) Spanned {
	return Spanned{Start: start, Token: tok, End: l.pos}
}

func (l *Lexer) lexUnquotedAtom(start int) Spanned {
	l.pos++ // first char already validated by caller
	for !l.eof() && isUnquotedAtomCont(l.peek()) {
		l.pos++
	}
	text := string(l.src[start:l.pos])
	return l.spanned(start, Token{Kind: Atom, Text: text})
}

func (l *Lexer) lexQuotedAtom(start int) (Spanned, error) {
	l.pos++ // opening '
	var b strings.Builder
	for {
		if l.eof() {
			return Spanned{}, &diag.LexError{Pos: l.pos, Msg: "unterminated quoted atom"}
		}
		c := l.peek()
		if c == '\\' {
			return Spanned{}, &diag.LexError{Pos: l.pos, Msg: "escapes in quoted atoms are not supported"}
		}
		if c == '\'' {
			l.pos++
			break
		}
		b.WriteRune(c)
		l.pos++
	}
	return l.spanned(start, Token{Kind: Atom, Text: b.String()}), nil
}

func (l *Lexer) lexString(start int) (Spanned, error) {
	l.pos++ // opening "
	var b strings.Builder
	for {
		if l.eof() {
			return Spanned{}, &diag.LexError{Pos: l.pos, Msg: "unterminated string"}
		}
		c := l.peek()
		if c == '\\' {
			return Spanned{}, &diag.LexError{Pos: l.pos, Msg: "escapes in strings are not supported"}
		}
		if c == '"' {
			l.pos++
			break
		}
		b.WriteRune(c)
		l.pos++
	}
	return l.spanned(start, Token{Kind: String, Text: b.String()}), nil
}

// lexNumber handles both the integer and dotted-float forms. A dot is
// only consumed as a decimal point when followed by at least one digit,
// so `12.`-style trailing dots lex as Integer then Dot.
func (l *Lexer) lexNumber(start int) (Spanned, error) {
	for !l.eof() && isDigit(l.peek()) {
		l.pos++
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.pos++ // consume '.'
		for !l.eof() && isDigit(l.peek()) {
			l.pos++
		}
		text := string(l.src[start:l.pos])
		f, _, err := big.ParseFloat(text, 10, 64, big.ToNearestEven)
		if err != nil {
			return Spanned{}, &diag.LexError{Pos: start, Msg: "malformed float literal"}
		}
		v, _ := f.Float64()
		return l.spanned(start, Token{Kind: Float, Float64: v}), nil
	}

	text := string(l.src[start:l.pos])
	n, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return Spanned{}, &diag.LexError{Pos: start, Msg: "malformed integer literal"}
	}
	return l.spanned(start, Token{Kind: Integer, Int: n}), nil
}

// All lexes the full source into a slice of Spanned tokens, including
// the trailing EOF, stopping at the first LexError.
func All(src string) ([]Spanned, error) {
	l := New(src)
	var out []Spanned
	for {
		sp, err := l.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
		if sp.Token.Kind == EOF {
			return out, nil
		}
	}
}
