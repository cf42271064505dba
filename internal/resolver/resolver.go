// Package resolver orders evaluation of a parsed document so that every
// reference is computed after its target. Global variables form one
// dependency graph; within each object, sibling keys form another, so a key
// may reference a sibling declared after it. A cycle is fatal for the whole
// document, since cyclic configuration has no well-defined value.
package resolver

import (
	"strings"

	"github.com/tusklang/tusk-go/internal/ast"
)

// CycleError reports a reference cycle among global variables.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

// Order is the evaluation plan for one document.
type Order struct {
	// Globals lists global variable names in dependency order.
	Globals []string
	// Sections lists top-level keys in document order. Sections depend only
	// on globals and may be evaluated concurrently with one another.
	Sections []string
}

// Resolve builds the dependency graph for doc and returns a valid evaluation
// order, or a *CycleError.
func Resolve(doc *ast.Document) (*Order, error) {
	g := NewGraph()
	for _, name := range doc.GlobalOrder {
		g.AddNode(name)
	}
	for _, name := range doc.GlobalOrder {
		for _, dep := range referencedGlobals(doc, doc.Globals[name]) {
			if dep == name {
				return nil, &CycleError{Path: []string{name, name}}
			}
			if err := g.AddEdge(dep, name); err != nil {
				return nil, err
			}
		}
	}

	globals, err := g.TopoSort()
	if err != nil {
		return nil, err
	}

	return &Order{
		Globals:  globals,
		Sections: append([]string{}, doc.Root.Keys...),
	}, nil
}

// ObjectOrder orders the keys of one object so that a bare reference to a
// sibling key is computed after that sibling, wherever the two appear in the
// document. Keys with no local references keep document order. declaredGlobal
// reports names bound by a $global; globals shadow sibling keys, so those
// references add no local edge.
func ObjectOrder(obj *ast.Object, declaredGlobal func(string) bool) ([]string, error) {
	g := NewGraph()
	local := make(map[string]bool, len(obj.Keys))
	for _, key := range obj.Keys {
		g.AddNode(key)
		local[key] = true
	}
	for i, key := range obj.Keys {
		for _, dep := range referencedKeys(obj.Vals[i], local, declaredGlobal) {
			if dep == key {
				return nil, &CycleError{Path: []string{key, key}}
			}
			if err := g.AddEdge(dep, key); err != nil {
				return nil, err
			}
		}
	}
	return g.TopoSort()
}

// referencedKeys collects the sibling keys that n depends on.
func referencedKeys(n ast.Node, local map[string]bool, declaredGlobal func(string) bool) []string {
	seen := make(map[string]bool)
	var out []string
	ast.Walk(n, func(child ast.Node) {
		ref, ok := child.(*ast.Ref)
		if !ok || ref.Global || seen[ref.Name] {
			return
		}
		if !local[ref.Name] || declaredGlobal(ref.Name) {
			return
		}
		seen[ref.Name] = true
		out = append(out, ref.Name)
	})
	return out
}

// referencedGlobals collects the names of global variables that n depends
// on. Bare references count only when a matching global is declared; they
// otherwise resolve against the enclosing section at evaluation time.
func referencedGlobals(doc *ast.Document, n ast.Node) []string {
	seen := make(map[string]bool)
	var out []string
	ast.Walk(n, func(child ast.Node) {
		ref, ok := child.(*ast.Ref)
		if !ok || seen[ref.Name] {
			return
		}
		if _, declared := doc.Globals[ref.Name]; !declared {
			return
		}
		seen[ref.Name] = true
		out = append(out, ref.Name)
	})
	return out
}
