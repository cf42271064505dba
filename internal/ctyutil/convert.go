// Package ctyutil converts between cty values and plain Go values at the
// edges of the engine: collaborator results coming in, exported trees going
// out.
package ctyutil

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// FromGo converts a plain Go value (as produced by database rows, JSON
// decoding, or script runtimes) into a cty value.
func FromGo(v any) cty.Value {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case bool:
		return cty.BoolVal(t)
	case string:
		return cty.StringVal(t)
	case int:
		return cty.NumberIntVal(int64(t))
	case int32:
		return cty.NumberIntVal(int64(t))
	case int64:
		return cty.NumberIntVal(t)
	case uint64:
		return cty.NumberUIntVal(t)
	case float32:
		return cty.NumberFloatVal(float64(t))
	case float64:
		return cty.NumberFloatVal(t)
	case *big.Float:
		return cty.NumberVal(t)
	case []byte:
		return cty.StringVal(string(t))
	case []any:
		if len(t) == 0 {
			return cty.EmptyTupleVal
		}
		elems := make([]cty.Value, len(t))
		for i, e := range t {
			elems[i] = FromGo(e)
		}
		return cty.TupleVal(elems)
	case map[string]any:
		if len(t) == 0 {
			return cty.EmptyObjectVal
		}
		attrs := make(map[string]cty.Value, len(t))
		for k, e := range t {
			attrs[k] = FromGo(e)
		}
		return cty.ObjectVal(attrs)
	}
	return cty.StringVal(fmt.Sprintf("%v", v))
}

// ToGo converts a cty value into plain Go data: nil, bool, string, int64 or
// float64, []any, and map[string]any.
func ToGo(v cty.Value) any {
	if v.IsNull() {
		return nil
	}
	ty := v.Type()
	switch {
	case ty == cty.Bool:
		return v.True()
	case ty == cty.String:
		return v.AsString()
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if i, acc := bf.Int64(); acc == big.Exact {
			return i
		}
		f, _ := bf.Float64()
		return f
	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		var out []any
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			out = append(out, ToGo(ev))
		}
		if out == nil {
			out = []any{}
		}
		return out
	case ty.IsMapType() || ty.IsObjectType():
		out := make(map[string]any)
		for k, ev := range v.AsValueMap() {
			out[k] = ToGo(ev)
		}
		return out
	}
	return v.GoString()
}

// Stringify renders a value the way string interpolation does: scalars
// without quoting, composites in a stable literal form.
func Stringify(v cty.Value) string {
	if v.IsNull() {
		return ""
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString()
	case ty == cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	case ty == cty.Number:
		return v.AsBigFloat().Text('g', -1)
	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		s := "["
		first := true
		for it := v.ElementIterator(); it.Next(); {
			if !first {
				s += ", "
			}
			first = false
			_, ev := it.Element()
			s += Stringify(ev)
		}
		return s + "]"
	case ty.IsMapType() || ty.IsObjectType():
		vals := v.AsValueMap()
		keys := make([]string, 0, len(vals))
		for k := range vals {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s := "{"
		for i, k := range keys {
			if i > 0 {
				s += ", "
			}
			s += k + ": " + Stringify(vals[k])
		}
		return s + "}"
	}
	return v.GoString()
}
