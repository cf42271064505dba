package eval

import (
	"strings"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/tusklang/tusk-go/internal/ctyutil"
)

// Tree is the fully resolved output of one evaluated document. It is
// side-effect free: lookups never trigger further evaluation.
type Tree struct {
	keys []string
	vals map[string]cty.Value
}

func newTree() *Tree {
	return &Tree{vals: make(map[string]cty.Value)}
}

func (t *Tree) put(key string, v cty.Value) {
	if _, ok := t.vals[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.vals[key] = v
}

// Keys returns the top-level keys in document order.
func (t *Tree) Keys() []string {
	return append([]string{}, t.keys...)
}

// Get resolves a dotted key path, descending through nested objects and
// maps. The second result reports whether the full path exists.
func (t *Tree) Get(path string) (cty.Value, bool) {
	segs := strings.Split(path, ".")
	v, ok := t.vals[segs[0]]
	if !ok {
		return cty.NilVal, false
	}
	for _, seg := range segs[1:] {
		if v.IsNull() {
			return cty.NilVal, false
		}
		ty := v.Type()
		switch {
		case ty.IsObjectType():
			if !ty.HasAttribute(seg) {
				return cty.NilVal, false
			}
			v = v.GetAttr(seg)
		case ty.IsMapType():
			if !v.HasIndex(cty.StringVal(seg)).True() {
				return cty.NilVal, false
			}
			v = v.Index(cty.StringVal(seg))
		default:
			return cty.NilVal, false
		}
	}
	return v, true
}

// Walk visits every leaf value with its dotted path, in key order.
func (t *Tree) Walk(fn func(path string, v cty.Value)) {
	for _, k := range t.keys {
		walkValue(k, t.vals[k], fn)
	}
}

func walkValue(path string, v cty.Value, fn func(string, cty.Value)) {
	if !v.IsNull() && v.Type().IsObjectType() {
		for it := v.ElementIterator(); it.Next(); {
			kv, ev := it.Element()
			walkValue(path+"."+kv.AsString(), ev, fn)
		}
		return
	}
	fn(path, v)
}

// Object returns the whole tree as a single cty object value.
func (t *Tree) Object() cty.Value {
	if len(t.vals) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(t.vals))
	for k, v := range t.vals {
		attrs[k] = v
	}
	return cty.ObjectVal(attrs)
}

// JSON renders the tree as a JSON document.
func (t *Tree) JSON() ([]byte, error) {
	obj := t.Object()
	return ctyjson.Marshal(obj, obj.Type())
}

// Go converts the tree to plain Go maps and slices, for YAML export and
// host-application consumption.
func (t *Tree) Go() map[string]any {
	out := make(map[string]any, len(t.vals))
	for k, v := range t.vals {
		out[k] = ctyutil.ToGo(v)
	}
	return out
}
