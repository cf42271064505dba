// Package ast defines the canonical document AST shared by all three
// TuskLang surface notations. The tree is structurally static once built;
// evaluation never mutates it.
package ast

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/token"
)

// Node is a single AST vertex.
type Node interface {
	Pos() token.Pos
	node()
}

// Scalar is a literal value: null, bool, number, or plain string.
type Scalar struct {
	P   token.Pos
	Val cty.Value
}

// Ref is a reference to a previously resolved value. Global references come
// from `$name` syntax or `@variable(name)`; bare references (interpolation
// identifiers) resolve against globals first, then the enclosing section.
type Ref struct {
	P      token.Pos
	Name   string
	Global bool
}

// FileRef is a cross-file reference: `@config.<file>.get("dotted.key")` or
// the `@<file>.tsk.get(...)` spelling. Default, when present, substitutes
// for a missing file or key.
type FileRef struct {
	P       token.Pos
	File    string
	Key     string
	Default Node
}

// Call is an operator invocation `@name(args..., {options})`. The parser
// never validates operator existence; unknown names fail at evaluation.
type Call struct {
	P       token.Pos
	Name    string
	Args    []Node
	Options *Object
}

// Object is an ordered key→Node mapping. Sections, brace blocks, angle
// blocks, and inline `{...}` literals all produce Objects.
type Object struct {
	P    token.Pos
	Keys []string
	Vals []Node
}

// Array is an ordered node sequence from an `[...]` literal.
type Array struct {
	P     token.Pos
	Elems []Node
}

// Interp is a double-quoted string with `#{...}` interpolation. Parts
// alternate between Scalar string fragments and embedded expressions.
type Interp struct {
	P     token.Pos
	Parts []Node
}

// Binary is a comparison or string-concatenation expression.
type Binary struct {
	P    token.Pos
	Op   string // "+", "==", "!=", ">", ">=", "<", "<="
	L, R Node
}

// Cond is a ternary conditional `cond ? then : else`.
type Cond struct {
	P              token.Pos
	If, Then, Else Node
}

func (n *Scalar) Pos() token.Pos  { return n.P }
func (n *Ref) Pos() token.Pos     { return n.P }
func (n *FileRef) Pos() token.Pos { return n.P }
func (n *Call) Pos() token.Pos    { return n.P }
func (n *Object) Pos() token.Pos  { return n.P }
func (n *Array) Pos() token.Pos   { return n.P }
func (n *Interp) Pos() token.Pos  { return n.P }
func (n *Binary) Pos() token.Pos  { return n.P }
func (n *Cond) Pos() token.Pos    { return n.P }

func (*Scalar) node()  {}
func (*Ref) node()     {}
func (*FileRef) node() {}
func (*Call) node()    {}
func (*Object) node()  {}
func (*Array) node()   {}
func (*Interp) node()  {}
func (*Binary) node()  {}
func (*Cond) node()    {}

// Document is one parsed input: the root section plus the flat table of
// global variable declarations in declaration order.
type Document struct {
	Path        string
	Root        *Object
	Globals     map[string]Node
	GlobalOrder []string
}

// NewObject returns an empty ordered object.
func NewObject(pos token.Pos) *Object {
	return &Object{P: pos}
}

// Get returns the value for key and whether it exists.
func (o *Object) Get(key string) (Node, bool) {
	for i, k := range o.Keys {
		if k == key {
			return o.Vals[i], true
		}
	}
	return nil, false
}

// Put sets key to val, replacing an existing entry in place so ordering is
// stable under re-assignment.
func (o *Object) Put(key string, val Node) {
	for i, k := range o.Keys {
		if k == key {
			o.Vals[i] = val
			return
		}
	}
	o.Keys = append(o.Keys, key)
	o.Vals = append(o.Vals, val)
}

// Child returns the nested object at key, creating it when absent. An
// existing non-object entry is replaced.
func (o *Object) Child(key string, pos token.Pos) *Object {
	if v, ok := o.Get(key); ok {
		if obj, ok := v.(*Object); ok {
			return obj
		}
	}
	child := NewObject(pos)
	o.Put(key, child)
	return child
}

// Len returns the number of entries.
func (o *Object) Len() int { return len(o.Keys) }

// Walk calls fn for every node reachable from n, including n itself,
// in depth-first order.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch t := n.(type) {
	case *FileRef:
		Walk(t.Default, fn)
	case *Call:
		for _, a := range t.Args {
			Walk(a, fn)
		}
		if t.Options != nil {
			Walk(t.Options, fn)
		}
	case *Object:
		for _, v := range t.Vals {
			Walk(v, fn)
		}
	case *Array:
		for _, e := range t.Elems {
			Walk(e, fn)
		}
	case *Interp:
		for _, p := range t.Parts {
			Walk(p, fn)
		}
	case *Binary:
		Walk(t.L, fn)
		Walk(t.R, fn)
	case *Cond:
		Walk(t.If, fn)
		Walk(t.Then, fn)
		Walk(t.Else, fn)
	}
}

// CmpOptions returns go-cmp options that compare trees structurally,
// ignoring source positions. Used to assert notation equivalence.
func CmpOptions() cmp.Options {
	return cmp.Options{
		cmpopts.IgnoreFields(Scalar{}, "P"),
		cmpopts.IgnoreFields(Ref{}, "P"),
		cmpopts.IgnoreFields(FileRef{}, "P"),
		cmpopts.IgnoreFields(Call{}, "P"),
		cmpopts.IgnoreFields(Object{}, "P"),
		cmpopts.IgnoreFields(Array{}, "P"),
		cmpopts.IgnoreFields(Interp{}, "P"),
		cmpopts.IgnoreFields(Binary{}, "P"),
		cmpopts.IgnoreFields(Cond{}, "P"),
		cmp.Comparer(func(a, b cty.Value) bool { return a.RawEquals(b) }),
	}
}
