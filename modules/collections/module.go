// Package collections provides the pure list, comparison, and logic
// operators. Everything here is deterministic over its arguments, so the
// whole family is cacheable, though in practice these calls are cheap enough
// that no TTL is set.
package collections

import (
	"context"
	"fmt"
	"math/big"
	"regexp"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/ctyutil"
	"github.com/tusklang/tusk-go/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

func pure(f registry.OperatorFunc) (registry.Operator, registry.Meta) {
	return f, registry.Meta{Cacheable: true}
}

// field extracts a named attribute from an object or map element.
func field(v cty.Value, name string) (cty.Value, bool) {
	ty := v.Type()
	switch {
	case ty.IsObjectType() && ty.HasAttribute(name):
		return v.GetAttr(name), true
	case ty.IsMapType():
		if v.HasIndex(cty.StringVal(name)).True() {
			return v.Index(cty.StringVal(name)), true
		}
	}
	return cty.NilVal, false
}

func asFloat(v cty.Value) (float64, bool) {
	if v == cty.NilVal || v.IsNull() || v.Type() != cty.Number {
		return 0, false
	}
	f, _ := v.AsBigFloat().Float64()
	return f, true
}

// lessValues orders two values: numbers numerically, everything else by
// string rendering.
func lessValues(a, b cty.Value) bool {
	if a.Type() == cty.Number && b.Type() == cty.Number {
		return a.AsBigFloat().Cmp(b.AsBigFloat()) < 0
	}
	return ctyutil.Stringify(a) < ctyutil.Stringify(b)
}

// onMap is the handler for `@map(list, key)`: plucks the named field from
// every element.
func onMap(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	items, err := call.ListArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	key, err := call.StringArg(1)
	if err != nil {
		return cty.NilVal, err
	}
	out := make([]cty.Value, 0, len(items))
	for _, item := range items {
		v, ok := field(item, key)
		if !ok {
			v = cty.NullVal(cty.DynamicPseudoType)
		}
		out = append(out, v)
	}
	return tupleVal(out), nil
}

// onFilter is the handler for `@filter(list, key, value)`: keeps elements
// whose field equals value. The two-argument form `@filter(list, value)`
// compares elements directly.
func onFilter(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	items, err := call.ListArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	var out []cty.Value
	if len(call.Args) >= 3 {
		key, err := call.StringArg(1)
		if err != nil {
			return cty.NilVal, err
		}
		want := call.Arg(2)
		for _, item := range items {
			if v, ok := field(item, key); ok && v.RawEquals(want) {
				out = append(out, item)
			}
		}
	} else {
		want := call.Arg(1)
		for _, item := range items {
			if item.RawEquals(want) {
				out = append(out, item)
			}
		}
	}
	return tupleVal(out), nil
}

// onSort is the handler for `@sort(list, key?)`. Sorting is stable so equal
// elements keep their document order.
func onSort(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	items, err := call.ListArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	key, err := call.OptionalStringArg(1, "")
	if err != nil {
		return cty.NilVal, err
	}
	out := make([]cty.Value, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if key != "" {
			if fa, ok := field(a, key); ok {
				a = fa
			}
			if fb, ok := field(b, key); ok {
				b = fb
			}
		}
		return lessValues(a, b)
	})
	return tupleVal(out), nil
}

// onReduce is the handler for `@reduce(list, op)` where op is one of the
// aggregate names: sum, avg, min, max, concat.
func onReduce(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	items, err := call.ListArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	op, err := call.StringArg(1)
	if err != nil {
		return cty.NilVal, err
	}
	switch op {
	case "sum":
		return aggregate(call.Name, items, aggSum)
	case "avg":
		return aggregate(call.Name, items, aggAvg)
	case "min":
		return aggregate(call.Name, items, aggMin)
	case "max":
		return aggregate(call.Name, items, aggMax)
	case "concat":
		var b strings.Builder
		for _, item := range items {
			b.WriteString(ctyutil.Stringify(item))
		}
		return cty.StringVal(b.String()), nil
	default:
		return cty.NilVal, fmt.Errorf("@reduce: unknown aggregate %q", op)
	}
}

// onFirst is the handler for `@first(list, default?)`.
func onFirst(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	items, err := call.ListArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	if len(items) > 0 {
		return items[0], nil
	}
	if def := call.Arg(1); def != cty.NilVal {
		return def, nil
	}
	return cty.NilVal, fmt.Errorf("@first: empty array and no default")
}

// onSlice is the handler for `@slice(list, start, end?)`. Bounds clamp to
// the list, and end defaults to its length.
func onSlice(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	items, err := call.ListArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	startF, err := call.NumberArg(1)
	if err != nil {
		return cty.NilVal, err
	}
	start := int(startF)
	end := len(items)
	if v := call.Arg(2); v != cty.NilVal && !v.IsNull() {
		endF, err := call.NumberArg(2)
		if err != nil {
			return cty.NilVal, err
		}
		end = int(endF)
	}
	if start < 0 {
		start = 0
	}
	if end > len(items) {
		end = len(items)
	}
	if start > end {
		start = end
	}
	return tupleVal(items[start:end]), nil
}

// onLength is the handler for `@length(value)`: element count for arrays and
// objects, rune count for strings.
func onLength(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	v := call.Arg(0)
	if v == cty.NilVal || v.IsNull() {
		return cty.NumberIntVal(0), nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return cty.NumberIntVal(int64(len([]rune(v.AsString())))), nil
	case ty.IsTupleType(), ty.IsListType(), ty.IsSetType(), ty.IsObjectType(), ty.IsMapType():
		return cty.NumberIntVal(int64(v.LengthInt())), nil
	}
	return cty.NilVal, fmt.Errorf("@length: cannot measure %s", ty.FriendlyName())
}

// onJoin is the handler for `@join(list, separator?)`.
func onJoin(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	items, err := call.ListArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	sep, err := call.OptionalStringArg(1, ",")
	if err != nil {
		return cty.NilVal, err
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, ctyutil.Stringify(item))
	}
	return cty.StringVal(strings.Join(parts, sep)), nil
}

// onSplit is the handler for `@split(string, separator?)`.
func onSplit(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	s, err := call.StringArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	sep, err := call.OptionalStringArg(1, ",")
	if err != nil {
		return cty.NilVal, err
	}
	parts := strings.Split(s, sep)
	out := make([]cty.Value, len(parts))
	for i, p := range parts {
		out[i] = cty.StringVal(p)
	}
	return tupleVal(out), nil
}

type aggKind int

const (
	aggSum aggKind = iota
	aggAvg
	aggMin
	aggMax
)

func aggregate(name string, items []cty.Value, kind aggKind) (cty.Value, error) {
	if len(items) == 0 {
		if kind == aggSum {
			return cty.Zero, nil
		}
		return cty.NilVal, fmt.Errorf("@%s: empty array", name)
	}
	acc := new(big.Float)
	var minV, maxV *big.Float
	for i, item := range items {
		if item.Type() != cty.Number {
			return cty.NilVal, fmt.Errorf("@%s: element %d is %s, want number", name, i, item.Type().FriendlyName())
		}
		f := item.AsBigFloat()
		acc.Add(acc, f)
		if minV == nil || f.Cmp(minV) < 0 {
			minV = f
		}
		if maxV == nil || f.Cmp(maxV) > 0 {
			maxV = f
		}
	}
	switch kind {
	case aggAvg:
		return cty.NumberVal(new(big.Float).Quo(acc, big.NewFloat(float64(len(items))))), nil
	case aggMin:
		return cty.NumberVal(minV), nil
	case aggMax:
		return cty.NumberVal(maxV), nil
	default:
		return cty.NumberVal(acc), nil
	}
}

func aggHandler(kind aggKind) registry.OperatorFunc {
	return func(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
		// Accept either a single array argument or spread numbers.
		items, err := call.ListArg(0)
		if err != nil {
			if len(call.Args) < 2 {
				return cty.NilVal, err
			}
			items = call.Args
		}
		return aggregate(call.Name, items, kind)
	}
}

// onEquals is the handler for `@equals(a, b)` and `@eq(a, b)`.
func onEquals(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	if len(call.Args) < 2 {
		return cty.NilVal, registry.ArgCountError(call, "2")
	}
	return cty.BoolVal(call.Arg(0).RawEquals(call.Arg(1))), nil
}

func cmpHandler(want func(int) bool) registry.OperatorFunc {
	return func(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
		a, b := call.Arg(0), call.Arg(1)
		if a == cty.NilVal || b == cty.NilVal {
			return cty.NilVal, registry.ArgCountError(call, "2")
		}
		var c int
		switch {
		case a.Type() == cty.Number && b.Type() == cty.Number:
			c = a.AsBigFloat().Cmp(b.AsBigFloat())
		case a.Type() == cty.String && b.Type() == cty.String:
			c = strings.Compare(a.AsString(), b.AsString())
		default:
			return cty.NilVal, fmt.Errorf("@%s: cannot order %s and %s",
				call.Name, a.Type().FriendlyName(), b.Type().FriendlyName())
		}
		return cty.BoolVal(want(c)), nil
	}
}

// onInRange is the handler for `@in_range(value, min, max)`; the range
// object form `@in_range(value, {min, max})` works too, so range literals
// plug straight in.
func onInRange(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	v, ok := asFloat(call.Arg(0))
	if !ok {
		return cty.NilVal, fmt.Errorf("@%s: argument 1 must be a number", call.Name)
	}
	minArg, maxArg := call.Arg(1), call.Arg(2)
	if minArg != cty.NilVal && !minArg.IsNull() && minArg.Type().IsObjectType() {
		if m, ok := field(minArg, "max"); ok {
			maxArg = m
		}
		if m, ok := field(minArg, "min"); ok {
			minArg = m
		}
	}
	lo, okLo := asFloat(minArg)
	hi, okHi := asFloat(maxArg)
	if !okLo || !okHi {
		return cty.NilVal, fmt.Errorf("@%s: bounds must be numbers", call.Name)
	}
	return cty.BoolVal(v >= lo && v <= hi), nil
}

// onMatches is the handler for `@matches(value, pattern)` with RE2 syntax.
func onMatches(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	s, err := call.StringArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	pattern, err := call.StringArg(1)
	if err != nil {
		return cty.NilVal, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return cty.NilVal, fmt.Errorf("@matches: invalid pattern: %w", err)
	}
	return cty.BoolVal(re.MatchString(s)), nil
}

// onIf is the handler for `@if(cond, then, else?)`. The else branch
// defaults to null. Arguments are already evaluated by the time the call
// dispatches; documents wanting laziness use the `cond ? a : b` form.
func onIf(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	cond := call.Arg(0)
	if cond == cty.NilVal {
		return cty.NilVal, registry.ArgCountError(call, "2 or 3")
	}
	if truthy(cond) {
		return call.Arg(1), nil
	}
	if v := call.Arg(2); v != cty.NilVal {
		return v, nil
	}
	return cty.NullVal(cty.DynamicPseudoType), nil
}

// onDefault is the handler for `@default(value, fallback)`: the fallback
// applies when value is null or an empty string.
func onDefault(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	v := call.Arg(0)
	if v == cty.NilVal || v.IsNull() || (v.Type() == cty.String && v.AsString() == "") {
		return call.Arg(1), nil
	}
	return v, nil
}

// onAnd is the handler for `@and(args...)`; true when every argument is
// truthy.
func onAnd(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	for _, v := range call.Args {
		if !truthy(v) {
			return cty.False, nil
		}
	}
	return cty.True, nil
}

// onOr is the handler for `@or(args...)`; true when any argument is truthy.
func onOr(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	for _, v := range call.Args {
		if truthy(v) {
			return cty.True, nil
		}
	}
	return cty.False, nil
}

// onNot is the handler for `@not(value)`.
func onNot(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	if len(call.Args) != 1 {
		return cty.NilVal, registry.ArgCountError(call, "1")
	}
	return cty.BoolVal(!truthy(call.Arg(0))), nil
}

// truthy mirrors the evaluator's conditional semantics: false, null, zero,
// and "" are false; everything else is true.
func truthy(v cty.Value) bool {
	if v == cty.NilVal || v.IsNull() {
		return false
	}
	switch v.Type() {
	case cty.Bool:
		return v.True()
	case cty.String:
		return v.AsString() != ""
	case cty.Number:
		return v.AsBigFloat().Sign() != 0
	}
	return true
}

func tupleVal(items []cty.Value) cty.Value {
	if len(items) == 0 {
		return cty.EmptyTupleVal
	}
	return cty.TupleVal(items)
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	ops := map[string]registry.OperatorFunc{
		"map":      onMap,
		"filter":   onFilter,
		"sort":     onSort,
		"reduce":   onReduce,
		"first":    onFirst,
		"slice":    onSlice,
		"length":   onLength,
		"join":     onJoin,
		"split":    onSplit,
		"sum":      aggHandler(aggSum),
		"avg":      aggHandler(aggAvg),
		"min":      aggHandler(aggMin),
		"max":      aggHandler(aggMax),
		"equals":   onEquals,
		"in_range": onInRange,
		"matches":  onMatches,
		"if":       onIf,
		"default":  onDefault,
		"and":      onAnd,
		"or":       onOr,
		"not":      onNot,
		"gt":       cmpHandler(func(c int) bool { return c > 0 }),
		"gte":      cmpHandler(func(c int) bool { return c >= 0 }),
		"lt":       cmpHandler(func(c int) bool { return c < 0 }),
		"lte":      cmpHandler(func(c int) bool { return c <= 0 }),
	}
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		op, meta := pure(ops[name])
		r.Register(name, op, meta)
	}
	r.Alias("eq", "equals")
	r.Register("ne", registry.OperatorFunc(func(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
		v, err := onEquals(ctx, rc, call)
		if err != nil {
			return cty.NilVal, err
		}
		return cty.BoolVal(!v.True()), nil
	}), registry.Meta{Cacheable: true})
}
