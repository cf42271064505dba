// Package lexer converts raw TuskLang document text into a token stream.
//
// The lexer recognizes all three interchangeable block notations
// (`name { ... }`, `[name]` headers, and `name > ... <`) and lexes string
// interpolation markers (`#{...}`) into nested sub-token sequences without
// evaluating them.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tusklang/tusk-go/internal/token"
)

// Error is a fatal lexing failure, such as an unterminated string literal.
type Error struct {
	Pos token.Pos
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("lex error at %s: %s", e.Pos, e.Msg)
}

// Lex scans src and returns the full token sequence, terminated by an EOF
// token. Whitespace and '#' comments are discarded; runs of line breaks
// collapse into a single Newline token.
func Lex(src string) ([]token.Token, error) {
	s := newScanner(src, token.Pos{Line: 1, Column: 1})
	return s.run(true)
}

type scanner struct {
	src         string
	off         int
	pos         token.Pos
	atLineStart bool
}

func newScanner(src string, start token.Pos) *scanner {
	return &scanner{src: src, pos: start, atLineStart: true}
}

func (s *scanner) run(topLevel bool) ([]token.Token, error) {
	var toks []token.Token
	for {
		tok, err := s.next(topLevel)
		if err != nil {
			return nil, err
		}
		// Collapse consecutive newlines, and drop a leading one.
		if tok.Kind == token.Newline {
			if len(toks) == 0 || toks[len(toks)-1].Kind == token.Newline {
				continue
			}
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

func (s *scanner) peek() rune {
	if s.off >= len(s.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.src[s.off:])
	return r
}

func (s *scanner) peekAt(n int) rune {
	off := s.off
	for ; n > 0 && off < len(s.src); n-- {
		_, w := utf8.DecodeRuneInString(s.src[off:])
		off += w
	}
	if off >= len(s.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.src[off:])
	return r
}

func (s *scanner) advance() rune {
	r, w := utf8.DecodeRuneInString(s.src[s.off:])
	s.off += w
	s.pos.Offset += w
	if r == '\n' {
		s.pos.Line++
		s.pos.Column = 1
	} else {
		s.pos.Column++
	}
	return r
}

func (s *scanner) errorf(pos token.Pos, format string, args ...any) error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// next produces one token. topLevel enables section-header recognition for
// '[' at the start of a line.
func (s *scanner) next(topLevel bool) (token.Token, error) {
	// Skip horizontal whitespace and comments.
	for {
		r := s.peek()
		if r == ' ' || r == '\t' || r == '\r' {
			s.advance()
			continue
		}
		if r == '#' && s.peekAt(1) != '{' {
			for s.off < len(s.src) && s.peek() != '\n' {
				s.advance()
			}
			continue
		}
		break
	}

	start := s.pos
	if s.off >= len(s.src) {
		return token.Token{Kind: token.EOF, Pos: start}, nil
	}

	r := s.peek()
	switch {
	case r == '\n':
		s.advance()
		s.atLineStart = true
		return token.Token{Kind: token.Newline, Pos: start}, nil

	case r == '[' && topLevel && s.atLineStart:
		return s.lexHeader()

	case r == '"':
		return s.lexDoubleQuoted()

	case r == '\'':
		return s.lexSingleQuoted()

	case unicode.IsDigit(r):
		s.atLineStart = false
		return s.lexNumber(false)

	case r == '-' && unicode.IsDigit(s.peekAt(1)):
		s.atLineStart = false
		s.advance()
		return s.lexNumber(true)

	case r == '$':
		s.atLineStart = false
		s.advance()
		name := s.lexIdentText()
		if name == "" {
			return token.Token{}, s.errorf(start, "expected identifier after '$'")
		}
		return token.Token{Kind: token.GlobalVar, Lit: name, Pos: start}, nil

	case r == '@':
		s.atLineStart = false
		s.advance()
		name := s.lexIdentText()
		if name == "" {
			return token.Token{}, s.errorf(start, "expected operator name after '@'")
		}
		for s.peek() == '.' && isIdentStart(s.peekAt(1)) {
			s.advance()
			name += "." + s.lexIdentText()
		}
		return token.Token{Kind: token.AtIdent, Lit: name, Pos: start}, nil

	case isIdentStart(r):
		s.atLineStart = false
		return token.Token{Kind: token.Ident, Lit: s.lexIdentText(), Pos: start}, nil
	}

	s.atLineStart = false
	s.advance()
	kind := token.Illegal
	switch r {
	case ':':
		kind = token.Colon
	case '=':
		if s.peek() == '=' {
			s.advance()
			return token.Token{Kind: token.EqEq, Lit: "==", Pos: start}, nil
		}
		kind = token.Assign
	case '!':
		if s.peek() == '=' {
			s.advance()
			return token.Token{Kind: token.NotEq, Lit: "!=", Pos: start}, nil
		}
	case ',':
		kind = token.Comma
	case '.':
		kind = token.Dot
	case '{':
		kind = token.LBrace
	case '}':
		kind = token.RBrace
	case '[':
		kind = token.LBracket
	case ']':
		kind = token.RBracket
	case '(':
		kind = token.LParen
	case ')':
		kind = token.RParen
	case '>':
		if s.peek() == '=' {
			s.advance()
			return token.Token{Kind: token.GtEq, Lit: ">=", Pos: start}, nil
		}
		kind = token.Gt
	case '<':
		if s.peek() == '=' {
			s.advance()
			return token.Token{Kind: token.LtEq, Lit: "<=", Pos: start}, nil
		}
		kind = token.Lt
	case '?':
		kind = token.Question
	case '+':
		kind = token.Plus
	}
	if kind == token.Illegal {
		return token.Token{}, s.errorf(start, "unexpected character %q", r)
	}
	return token.Token{Kind: kind, Lit: string(r), Pos: start}, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (s *scanner) lexIdentText() string {
	var b strings.Builder
	if !isIdentStart(s.peek()) {
		return ""
	}
	for s.off < len(s.src) && isIdentPart(s.peek()) {
		b.WriteRune(s.advance())
	}
	return b.String()
}

// lexNumber scans an integer or float. A bare "8000-9000" (no whitespace
// around the dash) lexes as a single Range token.
func (s *scanner) lexNumber(negative bool) (token.Token, error) {
	start := s.pos
	if negative {
		start.Column--
		start.Offset--
	}
	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	for unicode.IsDigit(s.peek()) {
		b.WriteRune(s.advance())
	}
	if s.peek() == '.' && unicode.IsDigit(s.peekAt(1)) {
		b.WriteRune(s.advance())
		for unicode.IsDigit(s.peek()) {
			b.WriteRune(s.advance())
		}
		return token.Token{Kind: token.Number, Lit: b.String(), Pos: start}, nil
	}
	if !negative && s.peek() == '-' && unicode.IsDigit(s.peekAt(1)) {
		b.WriteRune(s.advance())
		for unicode.IsDigit(s.peek()) {
			b.WriteRune(s.advance())
		}
		return token.Token{Kind: token.Range, Lit: b.String(), Pos: start}, nil
	}
	return token.Token{Kind: token.Number, Lit: b.String(), Pos: start}, nil
}

// lexHeader consumes a "[dotted.path]" section header as one token. The
// literal is the raw text between the brackets.
func (s *scanner) lexHeader() (token.Token, error) {
	start := s.pos
	s.advance() // '['
	var b strings.Builder
	for {
		if s.off >= len(s.src) || s.peek() == '\n' {
			return token.Token{}, s.errorf(start, "unterminated section header")
		}
		if s.peek() == ']' {
			s.advance()
			break
		}
		b.WriteRune(s.advance())
	}
	s.atLineStart = false
	lit := strings.TrimSpace(b.String())
	if lit == "" {
		return token.Token{}, s.errorf(start, "empty section header")
	}
	return token.Token{Kind: token.Header, Lit: lit, Pos: start}, nil
}

func (s *scanner) lexSingleQuoted() (token.Token, error) {
	start := s.pos
	s.advance() // opening quote
	var b strings.Builder
	for {
		if s.off >= len(s.src) || s.peek() == '\n' {
			return token.Token{}, s.errorf(start, "unterminated string literal")
		}
		r := s.advance()
		if r == '\'' {
			return token.Token{Kind: token.String, Lit: b.String(), Pos: start}, nil
		}
		if r == '\\' {
			if s.off >= len(s.src) {
				return token.Token{}, s.errorf(start, "unterminated string literal")
			}
			esc := s.advance()
			switch esc {
			case '\'', '\\':
				b.WriteRune(esc)
			default:
				b.WriteByte('\\')
				b.WriteRune(esc)
			}
			continue
		}
		b.WriteRune(r)
	}
}

// lexDoubleQuoted scans a double-quoted string. If the literal contains
// #{...} markers, the result is a Template token whose expression segments
// hold the nested sub-token sequences; otherwise a plain String token.
func (s *scanner) lexDoubleQuoted() (token.Token, error) {
	start := s.pos
	s.advance() // opening quote
	var segs []token.Segment
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			segs = append(segs, token.Segment{Text: text.String()})
			text.Reset()
		}
	}
	for {
		if s.off >= len(s.src) || s.peek() == '\n' {
			return token.Token{}, s.errorf(start, "unterminated string literal")
		}
		r := s.advance()
		switch r {
		case '"':
			flush()
			if len(segs) == 1 && !segs[0].IsExpr {
				return token.Token{Kind: token.String, Lit: segs[0].Text, Pos: start}, nil
			}
			if len(segs) == 0 {
				return token.Token{Kind: token.String, Lit: "", Pos: start}, nil
			}
			hasExpr := false
			for _, seg := range segs {
				if seg.IsExpr {
					hasExpr = true
					break
				}
			}
			if !hasExpr {
				// Multiple text segments cannot occur, but keep the fallback.
				return token.Token{Kind: token.String, Lit: segs[0].Text, Pos: start}, nil
			}
			return token.Token{Kind: token.Template, Pos: start, Segments: segs}, nil

		case '\\':
			if s.off >= len(s.src) {
				return token.Token{}, s.errorf(start, "unterminated string literal")
			}
			esc := s.advance()
			switch esc {
			case '"', '\\':
				text.WriteRune(esc)
			case 'n':
				text.WriteByte('\n')
			case 't':
				text.WriteByte('\t')
			case '#':
				text.WriteByte('#')
			default:
				text.WriteByte('\\')
				text.WriteRune(esc)
			}

		case '#':
			if s.peek() != '{' {
				text.WriteByte('#')
				continue
			}
			s.advance() // '{'
			exprStart := s.pos
			var expr strings.Builder
			depth := 1
			for {
				if s.off >= len(s.src) || s.peek() == '\n' {
					return token.Token{}, s.errorf(exprStart, "unterminated interpolation")
				}
				c := s.advance()
				if c == '{' {
					depth++
				} else if c == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				expr.WriteRune(c)
			}
			sub := newScanner(expr.String(), exprStart)
			subToks, err := sub.run(false)
			if err != nil {
				return token.Token{}, err
			}
			flush()
			segs = append(segs, token.Segment{Expr: subToks, IsExpr: true})

		default:
			text.WriteRune(r)
		}
	}
}
