package providers

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"go.starlark.net/starlark"

	"github.com/tusklang/tusk-go/internal/ctyutil"
	"github.com/tusklang/tusk-go/internal/registry"
)

// maxScriptSteps bounds Starlark execution so a runaway snippet cannot hang
// document evaluation.
const maxScriptSteps = 1 << 22

// StarlarkRunner executes sandboxed Starlark snippets embedded in documents.
// Snippets have no load() and no filesystem or network access; they see only
// the globals the call passes in.
type StarlarkRunner struct{}

// NewStarlarkRunner returns the default sandboxed script runner.
func NewStarlarkRunner() *StarlarkRunner {
	return &StarlarkRunner{}
}

// Run implements registry.ScriptRunner. A single-line source is evaluated
// as an expression; a multi-line source is executed as a program whose
// `result` global becomes the value.
func (r *StarlarkRunner) Run(ctx context.Context, source string, globals map[string]cty.Value) (cty.Value, error) {
	thread := &starlark.Thread{Name: "tusk-script"}
	thread.SetMaxExecutionSteps(maxScriptSteps)
	go func() {
		<-ctx.Done()
		thread.Cancel("context canceled")
	}()

	env := make(starlark.StringDict, len(globals))
	for k, v := range globals {
		env[k] = toStarlark(v)
	}

	if !strings.Contains(source, "\n") {
		out, err := starlark.Eval(thread, "<config>", source, env)
		if err != nil {
			return cty.NilVal, registry.MapTimeout(fmt.Errorf("script failed: %w", err))
		}
		return fromStarlark(out), nil
	}

	result, err := starlark.ExecFile(thread, "<config>", source, env)
	if err != nil {
		return cty.NilVal, registry.MapTimeout(fmt.Errorf("script failed: %w", err))
	}
	out, ok := result["result"]
	if !ok {
		return cty.NilVal, fmt.Errorf("script did not assign a 'result' global")
	}
	return fromStarlark(out), nil
}

func toStarlark(v cty.Value) starlark.Value {
	if v.IsNull() {
		return starlark.None
	}
	ty := v.Type()
	switch {
	case ty == cty.Bool:
		return starlark.Bool(v.True())
	case ty == cty.String:
		return starlark.String(v.AsString())
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if i, acc := bf.Int64(); acc == big.Exact {
			return starlark.MakeInt64(i)
		}
		f, _ := bf.Float64()
		return starlark.Float(f)
	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		var elems []starlark.Value
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			elems = append(elems, toStarlark(ev))
		}
		return starlark.NewList(elems)
	case ty.IsMapType() || ty.IsObjectType():
		d := starlark.NewDict(0)
		for k, ev := range v.AsValueMap() {
			d.SetKey(starlark.String(k), toStarlark(ev))
		}
		return d
	}
	return starlark.String(ctyutil.Stringify(v))
}

func fromStarlark(v starlark.Value) cty.Value {
	switch t := v.(type) {
	case starlark.NoneType:
		return cty.NullVal(cty.DynamicPseudoType)
	case starlark.Bool:
		return cty.BoolVal(bool(t))
	case starlark.String:
		return cty.StringVal(string(t))
	case starlark.Int:
		if i, ok := t.Int64(); ok {
			return cty.NumberIntVal(i)
		}
		f, _ := starlark.AsFloat(t)
		return cty.NumberFloatVal(f)
	case starlark.Float:
		return cty.NumberFloatVal(float64(t))
	case *starlark.List:
		elems := make([]cty.Value, 0, t.Len())
		for i := 0; i < t.Len(); i++ {
			elems = append(elems, fromStarlark(t.Index(i)))
		}
		if len(elems) == 0 {
			return cty.EmptyTupleVal
		}
		return cty.TupleVal(elems)
	case starlark.Tuple:
		elems := make([]cty.Value, 0, t.Len())
		for i := 0; i < t.Len(); i++ {
			elems = append(elems, fromStarlark(t.Index(i)))
		}
		if len(elems) == 0 {
			return cty.EmptyTupleVal
		}
		return cty.TupleVal(elems)
	case *starlark.Dict:
		attrs := make(map[string]cty.Value)
		for _, item := range t.Items() {
			key, ok := starlark.AsString(item[0])
			if !ok {
				key = item[0].String()
			}
			attrs[key] = fromStarlark(item[1])
		}
		if len(attrs) == 0 {
			return cty.EmptyObjectVal
		}
		return cty.ObjectVal(attrs)
	}
	return cty.StringVal(v.String())
}
