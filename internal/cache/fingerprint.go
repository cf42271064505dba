package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Fingerprint derives the deterministic identity of an operator call from
// its name, resolved arguments, and config options. Two calls with the same
// fingerprint are treated as semantically interchangeable; operators with
// non-deterministic effects must declare themselves non-cacheable instead.
func Fingerprint(name string, args []cty.Value, options map[string]cty.Value) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		writeCanonical(&b, a)
	}
	b.WriteByte(')')
	if len(options) > 0 {
		keys := make([]string, 0, len(options))
		for k := range options {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			writeCanonical(&b, options[k])
		}
		b.WriteByte('}')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// writeCanonical serializes v with a stable ordering for every composite
// type, so structurally equal values always produce equal text.
func writeCanonical(b *strings.Builder, v cty.Value) {
	if v.IsNull() {
		b.WriteString("null")
		return
	}
	ty := v.Type()
	switch {
	case ty == cty.Bool:
		if v.True() {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case ty == cty.Number:
		bf := v.AsBigFloat()
		b.WriteString(bf.Text('g', -1))
	case ty == cty.String:
		b.WriteString(strconv.Quote(v.AsString()))
	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		b.WriteByte('[')
		first := true
		for it := v.ElementIterator(); it.Next(); {
			if !first {
				b.WriteByte(',')
			}
			first = false
			_, ev := it.Element()
			writeCanonical(b, ev)
		}
		b.WriteByte(']')
	case ty.IsMapType() || ty.IsObjectType():
		vals := v.AsValueMap()
		keys := make([]string, 0, len(vals))
		for k := range vals {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			writeCanonical(b, vals[k])
		}
		b.WriteByte('}')
	default:
		b.WriteString(v.GoString())
	}
}
