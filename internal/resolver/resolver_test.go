package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusklang/tusk-go/internal/ast"
	"github.com/tusklang/tusk-go/internal/parser"
)

func TestResolveOrdersGlobals(t *testing.T) {
	doc, err := parser.Parse("test.tsk", `
$full: "#{base}-suffix"
$base: "app"

[server]
name: $full
`)
	require.NoError(t, err)

	order, err := Resolve(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "full"}, order.Globals)
	assert.Equal(t, []string{"server"}, order.Sections)
}

func TestResolveSectionsKeepDocumentOrder(t *testing.T) {
	doc, err := parser.Parse("test.tsk", `
[b]
x: 1
[a]
y: 2
[c]
z: 3
`)
	require.NoError(t, err)

	order, err := Resolve(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, order.Sections)
}

func TestResolveCycle(t *testing.T) {
	doc, err := parser.Parse("test.tsk", `
$a: "#{b}"
$b: "#{c}"
$c: "#{a}"
`)
	require.NoError(t, err)

	_, err = Resolve(doc)
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.GreaterOrEqual(t, len(cycleErr.Path), 4)
	// The path closes on its own start.
	assert.Equal(t, cycleErr.Path[0], cycleErr.Path[len(cycleErr.Path)-1])
}

func TestResolveSelfReference(t *testing.T) {
	doc, err := parser.Parse("test.tsk", `$a: "#{a}!"`)
	require.NoError(t, err)

	_, err = Resolve(doc)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"a", "a"}, cycleErr.Path)
}

func TestResolveIgnoresSectionLocalNames(t *testing.T) {
	// `port` is not a declared global, so the reference resolves against the
	// section at evaluation time and creates no graph edge.
	doc, err := parser.Parse("test.tsk", `
[server]
port: 8080
url: "host:#{port}"
`)
	require.NoError(t, err)

	order, err := Resolve(doc)
	require.NoError(t, err)
	assert.Empty(t, order.Globals)
}

func TestObjectOrderForwardReference(t *testing.T) {
	doc, err := parser.Parse("test.tsk", `
[server]
url: "host:#{port}"
port: 8080
`)
	require.NoError(t, err)

	section, ok := doc.Root.Get("server")
	require.True(t, ok)
	obj := section.(*ast.Object)

	order, err := ObjectOrder(obj, func(string) bool { return false })
	require.NoError(t, err)
	assert.Equal(t, []string{"port", "url"}, order)
}

func TestObjectOrderGlobalShadowsSibling(t *testing.T) {
	// `port` is also a declared global; the reference binds to the global,
	// so the sibling keys stay in document order.
	doc, err := parser.Parse("test.tsk", `
$port: 9090
[server]
url: "host:#{port}"
port: 8080
`)
	require.NoError(t, err)

	section, ok := doc.Root.Get("server")
	require.True(t, ok)
	obj := section.(*ast.Object)

	order, err := ObjectOrder(obj, func(name string) bool { return name == "port" })
	require.NoError(t, err)
	assert.Equal(t, []string{"url", "port"}, order)
}

func TestObjectOrderCycle(t *testing.T) {
	doc, err := parser.Parse("test.tsk", `
[server]
a: "#{b}"
b: "#{a}"
`)
	require.NoError(t, err)

	section, ok := doc.Root.Get("server")
	require.True(t, ok)
	obj := section.(*ast.Object)

	_, err = ObjectOrder(obj, func(string) bool { return false })
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
}

func TestGraphTopoSortDeterministic(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"c", "a", "b"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("a", "c"))

	sorted, err := g.TopoSort()
	require.NoError(t, err)
	// Insertion order breaks ties; "c" waits for "a".
	assert.Equal(t, []string{"a", "b", "c"}, sorted)
}

func TestGraphAddEdgeErrors(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")
	assert.Error(t, g.AddEdge("a", "a"))
	assert.Error(t, g.AddEdge("missing", "a"))
	assert.Error(t, g.AddEdge("a", "missing"))
}
