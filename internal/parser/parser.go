// Package parser builds the canonical document AST from a token stream.
//
// All three block notations produce identical tree shapes: a section named
// "server" holding two pairs parses to the same Object regardless of whether
// it was written as `[server]`, `server { ... }`, or `server > ... <`.
// Operator names are never validated here; unknown operators surface at
// evaluation time.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/ast"
	"github.com/tusklang/tusk-go/internal/lexer"
	"github.com/tusklang/tusk-go/internal/token"
)

// Error is a fatal parse failure. No partial trees are exposed.
type Error struct {
	Pos      token.Pos
	Expected string
	Found    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse error at %s: expected %s, found %s", e.Pos, e.Expected, e.Found)
}

// Parse lexes and parses one document. name is recorded as Document.Path and
// used in diagnostics only.
func Parse(name, src string) (*ast.Document, error) {
	toks, err := lexer.Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseDocument(name)
}

type parser struct {
	toks []token.Token
	i    int
}

func (p *parser) cur() token.Token { return p.toks[p.i] }

func (p *parser) peek() token.Token {
	if p.i+1 < len(p.toks) {
		return p.toks[p.i+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) advance() token.Token {
	t := p.toks[p.i]
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return t
}

func (p *parser) skipNewlines() {
	for p.cur().Kind == token.Newline {
		p.advance()
	}
}

func (p *parser) errExpected(expected string) error {
	t := p.cur()
	return &Error{Pos: t.Pos, Expected: expected, Found: t.String()}
}

func (p *parser) expect(kind token.Kind) (token.Token, error) {
	if p.cur().Kind != kind {
		return token.Token{}, p.errExpected(kind.String())
	}
	return p.advance(), nil
}

func (p *parser) parseDocument(name string) (*ast.Document, error) {
	doc := &ast.Document{
		Path:    name,
		Root:    ast.NewObject(token.Pos{Line: 1, Column: 1}),
		Globals: make(map[string]ast.Node),
	}
	target := doc.Root

	for {
		p.skipNewlines()
		t := p.cur()
		switch t.Kind {
		case token.EOF:
			return doc, nil

		case token.GlobalVar:
			p.advance()
			if err := p.expectSeparator(); err != nil {
				return nil, err
			}
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, dup := doc.Globals[t.Lit]; !dup {
				doc.GlobalOrder = append(doc.GlobalOrder, t.Lit)
			}
			doc.Globals[t.Lit] = val

		case token.Header:
			p.advance()
			target = doc.Root
			for _, seg := range strings.Split(t.Lit, ".") {
				target = target.Child(seg, t.Pos)
			}

		case token.Ident, token.String:
			if err := p.parseStatement(target); err != nil {
				return nil, err
			}

		default:
			return nil, p.errExpected("a key, section header, or global variable")
		}
	}
}

func (p *parser) expectSeparator() error {
	if k := p.cur().Kind; k == token.Colon || k == token.Assign {
		p.advance()
		return nil
	}
	return p.errExpected("':' or '='")
}

// parseStatement parses one `key: value` pair or block (brace or angle form,
// optionally labeled) into target.
func (p *parser) parseStatement(target *ast.Object) error {
	key := p.advance() // Ident or String

	switch p.cur().Kind {
	case token.Colon, token.Assign:
		p.advance()
		val, err := p.parseExpr()
		if err != nil {
			return err
		}
		target.Put(key.Lit, val)
		return nil

	case token.String, token.Ident:
		// Labeled block: `route "/" { ... }`.
		label := p.advance()
		obj := target.Child(key.Lit, key.Pos).Child(label.Lit, label.Pos)
		return p.parseBlockBody(obj)

	case token.LBrace, token.Gt:
		obj := target.Child(key.Lit, key.Pos)
		return p.parseBlockBody(obj)
	}
	return p.errExpected("':', '=', or a block body")
}

// parseBlockBody parses `{ ... }` or `> ... <` into obj.
func (p *parser) parseBlockBody(obj *ast.Object) error {
	var close token.Kind
	switch p.cur().Kind {
	case token.LBrace:
		close = token.RBrace
	case token.Gt:
		close = token.Lt
	default:
		return p.errExpected("'{' or '>'")
	}
	p.advance()

	for {
		for p.cur().Kind == token.Newline || p.cur().Kind == token.Comma {
			p.advance()
		}
		switch p.cur().Kind {
		case close:
			p.advance()
			return nil
		case token.EOF:
			return p.errExpected(close.String())
		case token.Ident, token.String:
			if err := p.parseStatement(obj); err != nil {
				return err
			}
		default:
			return p.errExpected("a key or " + close.String())
		}
	}
}

// Expression grammar: ternary over comparison over concatenation.

func (p *parser) parseExpr() (ast.Node, error) {
	cond, err := p.parseCompare()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != token.Question {
		return cond, nil
	}
	pos := p.advance().Pos
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Colon); err != nil {
		return nil, err
	}
	els, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Cond{P: pos, If: cond, Then: then, Else: els}, nil
}

var compareOps = map[token.Kind]string{
	token.EqEq:  "==",
	token.NotEq: "!=",
	token.Gt:    ">",
	token.GtEq:  ">=",
	token.Lt:    "<",
	token.LtEq:  "<=",
}

func (p *parser) parseCompare() (ast.Node, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := compareOps[p.cur().Kind]
		if !ok {
			return left, nil
		}
		pos := p.advance().Pos
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{P: pos, Op: op, L: left, R: right}
	}
}

func (p *parser) parseSum() (ast.Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == token.Plus {
		pos := p.advance().Pos
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{P: pos, Op: "+", L: left, R: right}
	}
	return left, nil
}

func (p *parser) parsePrimary() (ast.Node, error) {
	t := p.cur()
	switch t.Kind {
	case token.Number:
		p.advance()
		return numberScalar(t)

	case token.Range:
		p.advance()
		return rangeScalar(t)

	case token.String:
		p.advance()
		return &ast.Scalar{P: t.Pos, Val: cty.StringVal(t.Lit)}, nil

	case token.Template:
		p.advance()
		return p.parseTemplate(t)

	case token.GlobalVar:
		p.advance()
		return &ast.Ref{P: t.Pos, Name: t.Lit, Global: true}, nil

	case token.Ident:
		p.advance()
		switch t.Lit {
		case "true":
			return &ast.Scalar{P: t.Pos, Val: cty.True}, nil
		case "false":
			return &ast.Scalar{P: t.Pos, Val: cty.False}, nil
		case "null":
			return &ast.Scalar{P: t.Pos, Val: cty.NullVal(cty.DynamicPseudoType)}, nil
		}
		return &ast.Ref{P: t.Pos, Name: t.Lit}, nil

	case token.AtIdent:
		return p.parseOperatorCall()

	case token.LBracket:
		return p.parseArray()

	case token.LBrace:
		return p.parseObjectLiteral()
	}
	return nil, p.errExpected("a value")
}

func numberScalar(t token.Token) (ast.Node, error) {
	if !strings.Contains(t.Lit, ".") {
		n, err := strconv.ParseInt(t.Lit, 10, 64)
		if err != nil {
			return nil, &Error{Pos: t.Pos, Expected: "an integer", Found: t.Lit}
		}
		return &ast.Scalar{P: t.Pos, Val: cty.NumberIntVal(n)}, nil
	}
	f, err := strconv.ParseFloat(t.Lit, 64)
	if err != nil {
		return nil, &Error{Pos: t.Pos, Expected: "a number", Found: t.Lit}
	}
	return &ast.Scalar{P: t.Pos, Val: cty.NumberFloatVal(f)}, nil
}

// rangeScalar desugars "8000-9000" to {min: 8000, max: 9000, type: "range"},
// matching the original language semantics.
func rangeScalar(t token.Token) (ast.Node, error) {
	parts := strings.SplitN(t.Lit, "-", 2)
	lo, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, &Error{Pos: t.Pos, Expected: "a range", Found: t.Lit}
	}
	hi, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, &Error{Pos: t.Pos, Expected: "a range", Found: t.Lit}
	}
	obj := ast.NewObject(t.Pos)
	obj.Put("min", &ast.Scalar{P: t.Pos, Val: cty.NumberIntVal(lo)})
	obj.Put("max", &ast.Scalar{P: t.Pos, Val: cty.NumberIntVal(hi)})
	obj.Put("type", &ast.Scalar{P: t.Pos, Val: cty.StringVal("range")})
	return obj, nil
}

func (p *parser) parseTemplate(t token.Token) (ast.Node, error) {
	interp := &ast.Interp{P: t.Pos}
	for _, seg := range t.Segments {
		if !seg.IsExpr {
			interp.Parts = append(interp.Parts, &ast.Scalar{P: t.Pos, Val: cty.StringVal(seg.Text)})
			continue
		}
		sub := &parser{toks: seg.Expr}
		sub.skipNewlines()
		expr, err := sub.parseExpr()
		if err != nil {
			return nil, err
		}
		sub.skipNewlines()
		if sub.cur().Kind != token.EOF {
			return nil, sub.errExpected("end of interpolation")
		}
		interp.Parts = append(interp.Parts, expr)
	}
	return interp, nil
}

func (p *parser) parseOperatorCall() (ast.Node, error) {
	t := p.advance() // AtIdent
	name := t.Lit

	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var args []ast.Node
	p.skipNewlines()
	for p.cur().Kind != token.RParen {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		p.skipNewlines()
		if p.cur().Kind == token.Comma {
			p.advance()
			p.skipNewlines()
			continue
		}
		if p.cur().Kind != token.RParen {
			return nil, p.errExpected("',' or ')'")
		}
	}
	p.advance() // ')'

	// A trailing {option: value} object becomes the call's config object.
	var options *ast.Object
	if len(args) > 0 {
		if obj, ok := args[len(args)-1].(*ast.Object); ok {
			options = obj
			args = args[:len(args)-1]
		}
	}

	// `@variable(name)` is reference syntax, not an operator.
	if name == "variable" {
		if len(args) != 1 {
			return nil, &Error{Pos: t.Pos, Expected: "@variable(name)", Found: fmt.Sprintf("%d arguments", len(args))}
		}
		refName, ok := stringArg(args[0])
		if !ok {
			return nil, &Error{Pos: t.Pos, Expected: "a variable name", Found: "expression"}
		}
		return &ast.Ref{P: t.Pos, Name: refName, Global: true}, nil
	}

	// Cross-file references: `@config.<file>.get(key)` and `@<file>.tsk.get(key)`.
	if file, ok := crossFileTarget(name); ok {
		if strings.HasSuffix(name, ".set") {
			return nil, &Error{Pos: t.Pos, Expected: "a read-only reference", Found: "cross-file set"}
		}
		if len(args) < 1 {
			return nil, &Error{Pos: t.Pos, Expected: "a key path argument", Found: "0 arguments"}
		}
		key, ok := stringArg(args[0])
		if !ok {
			return nil, &Error{Pos: t.Pos, Expected: "a literal key path", Found: "expression"}
		}
		ref := &ast.FileRef{P: t.Pos, File: file, Key: key}
		if len(args) > 1 {
			ref.Default = args[1]
		}
		return ref, nil
	}

	return &ast.Call{P: t.Pos, Name: name, Args: args, Options: options}, nil
}

func stringArg(n ast.Node) (string, bool) {
	switch t := n.(type) {
	case *ast.Scalar:
		if t.Val.Type() == cty.String && !t.Val.IsNull() {
			return t.Val.AsString(), true
		}
	case *ast.Ref:
		if !t.Global {
			return t.Name, true
		}
	}
	return "", false
}

// crossFileTarget maps an operator name to a referenced file, or reports
// that the name is an ordinary operator.
func crossFileTarget(name string) (string, bool) {
	if i := strings.Index(name, ".tsk."); i >= 0 {
		return name[:i] + ".tsk", true
	}
	if rest, ok := strings.CutPrefix(name, "config."); ok {
		for _, suffix := range []string{".get", ".set"} {
			if file, ok := strings.CutSuffix(rest, suffix); ok {
				if !strings.HasSuffix(file, ".tsk") {
					file += ".tsk"
				}
				return file, true
			}
		}
	}
	return "", false
}

func (p *parser) parseArray() (ast.Node, error) {
	open := p.advance() // '['
	arr := &ast.Array{P: open.Pos}
	for {
		p.skipNewlines()
		if p.cur().Kind == token.RBracket {
			p.advance()
			return arr, nil
		}
		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		arr.Elems = append(arr.Elems, elem)
		p.skipNewlines()
		switch p.cur().Kind {
		case token.Comma:
			p.advance()
		case token.RBracket:
			p.advance()
			return arr, nil
		default:
			return nil, p.errExpected("',' or ']'")
		}
	}
}

func (p *parser) parseObjectLiteral() (ast.Node, error) {
	open := p.advance() // '{'
	obj := ast.NewObject(open.Pos)
	for {
		for p.cur().Kind == token.Newline || p.cur().Kind == token.Comma {
			p.advance()
		}
		if p.cur().Kind == token.RBrace {
			p.advance()
			return obj, nil
		}
		key := p.cur()
		if key.Kind != token.Ident && key.Kind != token.String {
			return nil, p.errExpected("a key or '}'")
		}
		p.advance()
		if err := p.expectSeparator(); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		obj.Put(key.Lit, val)
	}
}
