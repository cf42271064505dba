package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/ast"
)

func mustParse(t *testing.T, src string) *ast.Document {
	t.Helper()
	doc, err := Parse("test.tsk", src)
	require.NoError(t, err)
	return doc
}

func TestNotationEquivalence(t *testing.T) {
	header := `
[server]
host: "localhost"
port: 8080
`
	braces := `
server {
  host: "localhost"
  port: 8080
}
`
	angles := `
server >
  host: "localhost"
  port: 8080
<
`
	ref := mustParse(t, header)
	for name, src := range map[string]string{"braces": braces, "angles": angles} {
		t.Run(name, func(t *testing.T) {
			doc := mustParse(t, src)
			if diff := cmp.Diff(ref.Root, doc.Root, ast.CmpOptions()); diff != "" {
				t.Errorf("tree mismatch (-header +%s):\n%s", name, diff)
			}
		})
	}
}

func TestDottedHeaderNesting(t *testing.T) {
	doc := mustParse(t, "[a.b.c]\nx: 1\n")
	a, ok := doc.Root.Get("a")
	require.True(t, ok)
	b, ok := a.(*ast.Object).Get("b")
	require.True(t, ok)
	c, ok := b.(*ast.Object).Get("c")
	require.True(t, ok)
	_, ok = c.(*ast.Object).Get("x")
	assert.True(t, ok)
}

func TestLabeledBlockEqualsDottedHeader(t *testing.T) {
	labeled := mustParse(t, `
route "/" {
  handler: "home"
}
`)
	dotted := mustParse(t, "[route./]\nhandler: \"home\"\n")
	if diff := cmp.Diff(dotted.Root, labeled.Root, ast.CmpOptions()); diff != "" {
		t.Errorf("tree mismatch (-dotted +labeled):\n%s", diff)
	}
}

func TestGlobalVariables(t *testing.T) {
	doc := mustParse(t, "$app: \"demo\"\n$retries: 3\n")
	assert.Equal(t, []string{"app", "retries"}, doc.GlobalOrder)
	app := doc.Globals["app"].(*ast.Scalar)
	assert.True(t, app.Val.RawEquals(cty.StringVal("demo")))
}

func TestSeparators(t *testing.T) {
	colon := mustParse(t, "x: 1\n")
	equals := mustParse(t, "x = 1\n")
	if diff := cmp.Diff(colon.Root, equals.Root, ast.CmpOptions()); diff != "" {
		t.Errorf("':' and '=' should parse identically:\n%s", diff)
	}
}

func TestScalars(t *testing.T) {
	doc := mustParse(t, `
a: true
b: false
c: null
d: 3.14
e: -7
`)
	get := func(key string) cty.Value {
		n, ok := doc.Root.Get(key)
		require.True(t, ok)
		return n.(*ast.Scalar).Val
	}
	assert.True(t, get("a").RawEquals(cty.True))
	assert.True(t, get("b").RawEquals(cty.False))
	assert.True(t, get("c").IsNull())
	assert.True(t, get("d").RawEquals(cty.NumberFloatVal(3.14)))
	assert.True(t, get("e").RawEquals(cty.NumberIntVal(-7)))
}

func TestRangeDesugar(t *testing.T) {
	doc := mustParse(t, "ports: 8000-9000\n")
	n, ok := doc.Root.Get("ports")
	require.True(t, ok)
	obj, ok := n.(*ast.Object)
	require.True(t, ok)
	assert.Equal(t, []string{"min", "max", "type"}, obj.Keys)
	typ, _ := obj.Get("type")
	assert.True(t, typ.(*ast.Scalar).Val.RawEquals(cty.StringVal("range")))
}

func TestOperatorCall(t *testing.T) {
	t.Run("args and trailing options", func(t *testing.T) {
		doc := mustParse(t, `key: @env("HOME", "/root", {default: "x"})`)
		n, _ := doc.Root.Get("key")
		call := n.(*ast.Call)
		assert.Equal(t, "env", call.Name)
		assert.Len(t, call.Args, 2)
		require.NotNil(t, call.Options)
		_, ok := call.Options.Get("default")
		assert.True(t, ok)
	})

	t.Run("unknown operators still parse", func(t *testing.T) {
		doc := mustParse(t, `key: @no.such.operator(1)`)
		n, _ := doc.Root.Get("key")
		assert.Equal(t, "no.such.operator", n.(*ast.Call).Name)
	})

	t.Run("nested calls", func(t *testing.T) {
		doc := mustParse(t, `key: @cache("5m", @query("SELECT 1"))`)
		n, _ := doc.Root.Get("key")
		call := n.(*ast.Call)
		require.Len(t, call.Args, 2)
		inner := call.Args[1].(*ast.Call)
		assert.Equal(t, "query", inner.Name)
	})
}

func TestVariableSyntax(t *testing.T) {
	a := mustParse(t, `x: $name`)
	b := mustParse(t, `x: @variable("name")`)
	if diff := cmp.Diff(a.Root, b.Root, ast.CmpOptions()); diff != "" {
		t.Errorf("$name and @variable(\"name\") should parse identically:\n%s", diff)
	}
}

func TestCrossFileReferences(t *testing.T) {
	t.Run("config spelling", func(t *testing.T) {
		doc := mustParse(t, `x: @config.app.get("server.port")`)
		n, _ := doc.Root.Get("x")
		ref := n.(*ast.FileRef)
		assert.Equal(t, "app.tsk", ref.File)
		assert.Equal(t, "server.port", ref.Key)
		assert.Nil(t, ref.Default)
	})

	t.Run("tsk spelling with default", func(t *testing.T) {
		doc := mustParse(t, `x: @app.tsk.get("server.port", 8080)`)
		n, _ := doc.Root.Get("x")
		ref := n.(*ast.FileRef)
		assert.Equal(t, "app.tsk", ref.File)
		require.NotNil(t, ref.Default)
	})

	t.Run("set is rejected", func(t *testing.T) {
		_, err := Parse("test.tsk", `x: @config.app.set("k", 1)`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read-only")
	})
}

func TestExpressions(t *testing.T) {
	t.Run("ternary with comparison", func(t *testing.T) {
		doc := mustParse(t, `level: $n > 3 ? "high" : "low"`)
		n, _ := doc.Root.Get("level")
		cond := n.(*ast.Cond)
		bin := cond.If.(*ast.Binary)
		assert.Equal(t, ">", bin.Op)
	})

	t.Run("string concatenation", func(t *testing.T) {
		doc := mustParse(t, `greeting: "hello " + $who`)
		n, _ := doc.Root.Get("greeting")
		bin := n.(*ast.Binary)
		assert.Equal(t, "+", bin.Op)
	})

	t.Run("interpolation", func(t *testing.T) {
		doc := mustParse(t, `name: "#{app}-server"`)
		n, _ := doc.Root.Get("name")
		interp := n.(*ast.Interp)
		require.Len(t, interp.Parts, 2)
		ref := interp.Parts[0].(*ast.Ref)
		assert.Equal(t, "app", ref.Name)
		assert.False(t, ref.Global)
	})
}

func TestArraysAndObjects(t *testing.T) {
	doc := mustParse(t, `
hosts: ["a", "b", "c"]
limits: {cpu: 2, mem: 512}
`)
	hosts, _ := doc.Root.Get("hosts")
	assert.Len(t, hosts.(*ast.Array).Elems, 3)
	limits, _ := doc.Root.Get("limits")
	assert.Equal(t, []string{"cpu", "mem"}, limits.(*ast.Object).Keys)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"missing separator":  "x 1 2\n",
		"unclosed brace":     "server {\nx: 1\n",
		"unclosed angle":     "server >\nx: 1\n",
		"value at top level": ": 1\n",
		"unclosed call":      "x: @env(\"A\"\n",
		"ternary missing":    "x: a ? 1\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("test.tsk", src)
			require.Error(t, err)
			var parseErr *Error
			assert.ErrorAs(t, err, &parseErr)
		})
	}
}
