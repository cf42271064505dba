// Package token defines the lexical tokens of the TuskLang configuration
// language and the source positions attached to them.
package token

import "fmt"

// Kind identifies the lexical class of a token.
type Kind int

const (
	EOF Kind = iota
	Illegal

	// Literals and identifiers.
	Ident     // server, true, null
	String    // 'single quoted' or "double quoted" without interpolation
	Template  // double-quoted string containing #{...} markers
	Number    // 8080, 3.14
	Range     // 8000-9000
	GlobalVar // $app_name
	AtIdent   // @env, @date.now, @config.database.get
	Header    // [server] or [web.route./] (whole bracketed header)

	// Punctuation.
	Colon    // :
	Assign   // =
	Comma    // ,
	Dot      // .
	LBrace   // {
	RBrace   // }
	LBracket // [
	RBracket // ]
	LParen   // (
	RParen   // )
	Gt       // >
	Lt       // <
	Question // ?
	Plus     // +
	EqEq     // ==
	NotEq    // !=
	GtEq     // >=
	LtEq     // <=
	Newline  // one or more line breaks
)

var kindNames = map[Kind]string{
	EOF:       "end of file",
	Illegal:   "illegal token",
	Ident:     "identifier",
	String:    "string",
	Template:  "string template",
	Number:    "number",
	Range:     "range",
	GlobalVar: "global variable",
	AtIdent:   "operator",
	Header:    "section header",
	Colon:     "':'",
	Assign:    "'='",
	Comma:     "','",
	Dot:       "'.'",
	LBrace:    "'{'",
	RBrace:    "'}'",
	LBracket:  "'['",
	RBracket:  "']'",
	LParen:    "'('",
	RParen:    "')'",
	Gt:        "'>'",
	Lt:        "'<'",
	Question:  "'?'",
	Plus:      "'+'",
	EqEq:      "'=='",
	NotEq:     "'!='",
	GtEq:      "'>='",
	LtEq:      "'<='",
	Newline:   "newline",
}

// String returns a human readable name for the kind, suitable for error
// messages.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Pos is a location in the source document.
type Pos struct {
	Line   int // 1-based
	Column int // 1-based, in runes
	Offset int // 0-based byte offset
}

// String renders the position as "line:column".
func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Segment is one piece of a Template token: either literal text or a nested
// sub-token sequence lexed from a #{...} interpolation marker. Exactly one of
// the two fields is meaningful; interpolation segments carry Expr.
type Segment struct {
	Text   string
	Expr   []Token
	IsExpr bool
}

// Token is a single lexical unit. Tokens are immutable once produced.
type Token struct {
	Kind Kind
	Lit  string
	Pos  Pos

	// Segments is populated only for Template tokens.
	Segments []Segment
}

// String renders the token for diagnostics.
func (t Token) String() string {
	switch t.Kind {
	case String, Template, Ident, Number, Range, Header:
		return fmt.Sprintf("%s %q", t.Kind, t.Lit)
	case GlobalVar:
		return fmt.Sprintf("global variable $%s", t.Lit)
	case AtIdent:
		return fmt.Sprintf("operator @%s", t.Lit)
	}
	return t.Kind.String()
}
