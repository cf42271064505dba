package collections

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/registry"
)

func callOp(t *testing.T, name string, args []cty.Value, options map[string]cty.Value) (cty.Value, error) {
	t.Helper()
	r := registry.New()
	(&Module{}).Register(r)
	reg, method, err := r.Lookup(name)
	require.NoError(t, err)
	return reg.Op.Evaluate(context.Background(), &registry.Context{}, &registry.Call{
		Name:    name,
		Method:  method,
		Args:    args,
		Options: options,
	})
}

func mustCall(t *testing.T, name string, args ...cty.Value) cty.Value {
	t.Helper()
	v, err := callOp(t, name, args, nil)
	require.NoError(t, err)
	return v
}

func nums(vals ...int64) cty.Value {
	out := make([]cty.Value, len(vals))
	for i, n := range vals {
		out[i] = cty.NumberIntVal(n)
	}
	return cty.TupleVal(out)
}

func strs(vals ...string) cty.Value {
	out := make([]cty.Value, len(vals))
	for i, s := range vals {
		out[i] = cty.StringVal(s)
	}
	return cty.TupleVal(out)
}

func TestAggregates(t *testing.T) {
	list := nums(3, 1, 2)
	assert.True(t, mustCall(t, "sum", list).RawEquals(cty.NumberIntVal(6)))
	assert.True(t, mustCall(t, "avg", list).RawEquals(cty.NumberIntVal(2)))
	assert.True(t, mustCall(t, "min", list).RawEquals(cty.NumberIntVal(1)))
	assert.True(t, mustCall(t, "max", list).RawEquals(cty.NumberIntVal(3)))
}

func TestAggregateSpreadArguments(t *testing.T) {
	v := mustCall(t, "sum", cty.NumberIntVal(1), cty.NumberIntVal(2), cty.NumberIntVal(3))
	assert.True(t, v.RawEquals(cty.NumberIntVal(6)))
}

func TestAggregateEmpty(t *testing.T) {
	assert.True(t, mustCall(t, "sum", cty.EmptyTupleVal).RawEquals(cty.Zero))
	_, err := callOp(t, "max", []cty.Value{cty.EmptyTupleVal}, nil)
	require.Error(t, err)
}

func TestAggregateRejectsNonNumbers(t *testing.T) {
	_, err := callOp(t, "sum", []cty.Value{strs("a")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want number")
}

func TestJoinSplit(t *testing.T) {
	joined := mustCall(t, "join", strs("a", "b", "c"), cty.StringVal("-"))
	assert.True(t, joined.RawEquals(cty.StringVal("a-b-c")))

	split := mustCall(t, "split", cty.StringVal("a,b,c"))
	assert.True(t, split.RawEquals(strs("a", "b", "c")))
}

func TestLength(t *testing.T) {
	assert.True(t, mustCall(t, "length", strs("a", "b")).RawEquals(cty.NumberIntVal(2)))
	assert.True(t, mustCall(t, "length", cty.StringVal("héllo")).RawEquals(cty.NumberIntVal(5)))
	assert.True(t, mustCall(t, "length", cty.NullVal(cty.String)).RawEquals(cty.NumberIntVal(0)))
}

func TestSort(t *testing.T) {
	t.Run("numbers", func(t *testing.T) {
		v := mustCall(t, "sort", nums(3, 1, 2))
		assert.True(t, v.RawEquals(nums(1, 2, 3)))
	})

	t.Run("by field", func(t *testing.T) {
		list := cty.TupleVal([]cty.Value{
			cty.ObjectVal(map[string]cty.Value{"n": cty.NumberIntVal(2)}),
			cty.ObjectVal(map[string]cty.Value{"n": cty.NumberIntVal(1)}),
		})
		v := mustCall(t, "sort", list, cty.StringVal("n"))
		first := v.Index(cty.NumberIntVal(0))
		assert.True(t, first.GetAttr("n").RawEquals(cty.NumberIntVal(1)))
	})
}

func TestMapPlucksField(t *testing.T) {
	list := cty.TupleVal([]cty.Value{
		cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal("a")}),
		cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal("b")}),
	})
	v := mustCall(t, "map", list, cty.StringVal("name"))
	assert.True(t, v.RawEquals(strs("a", "b")))
}

func TestFilter(t *testing.T) {
	list := cty.TupleVal([]cty.Value{
		cty.ObjectVal(map[string]cty.Value{"env": cty.StringVal("prod")}),
		cty.ObjectVal(map[string]cty.Value{"env": cty.StringVal("dev")}),
	})
	v := mustCall(t, "filter", list, cty.StringVal("env"), cty.StringVal("prod"))
	assert.Equal(t, 1, v.LengthInt())
}

func TestReduce(t *testing.T) {
	assert.True(t, mustCall(t, "reduce", nums(1, 2, 3), cty.StringVal("sum")).RawEquals(cty.NumberIntVal(6)))
	assert.True(t, mustCall(t, "reduce", strs("a", "b"), cty.StringVal("concat")).RawEquals(cty.StringVal("ab")))
	_, err := callOp(t, "reduce", []cty.Value{nums(1), cty.StringVal("nope")}, nil)
	require.Error(t, err)
}

func TestFirstAndSlice(t *testing.T) {
	assert.True(t, mustCall(t, "first", strs("x", "y")).RawEquals(cty.StringVal("x")))
	assert.True(t, mustCall(t, "first", cty.EmptyTupleVal, cty.StringVal("def")).RawEquals(cty.StringVal("def")))

	v := mustCall(t, "slice", nums(1, 2, 3, 4), cty.NumberIntVal(1), cty.NumberIntVal(3))
	assert.True(t, v.RawEquals(nums(2, 3)))

	// Bounds clamp instead of failing.
	v = mustCall(t, "slice", nums(1, 2), cty.NumberIntVal(0), cty.NumberIntVal(10))
	assert.True(t, v.RawEquals(nums(1, 2)))
}

func TestComparisons(t *testing.T) {
	assert.True(t, mustCall(t, "eq", cty.StringVal("a"), cty.StringVal("a")).True())
	assert.False(t, mustCall(t, "ne", cty.StringVal("a"), cty.StringVal("a")).True())
	assert.True(t, mustCall(t, "gt", cty.NumberIntVal(2), cty.NumberIntVal(1)).True())
	assert.True(t, mustCall(t, "gte", cty.NumberIntVal(2), cty.NumberIntVal(2)).True())
	assert.True(t, mustCall(t, "lt", cty.StringVal("a"), cty.StringVal("b")).True())
	assert.True(t, mustCall(t, "lte", cty.NumberIntVal(2), cty.NumberIntVal(2)).True())

	_, err := callOp(t, "gt", []cty.Value{cty.StringVal("a"), cty.NumberIntVal(1)}, nil)
	require.Error(t, err)
}

func TestLogic(t *testing.T) {
	assert.True(t, mustCall(t, "and", cty.True, cty.NumberIntVal(1), cty.StringVal("x")).True())
	assert.False(t, mustCall(t, "and", cty.True, cty.StringVal("")).True())
	assert.True(t, mustCall(t, "or", cty.False, cty.NumberIntVal(0), cty.StringVal("x")).True())
	assert.True(t, mustCall(t, "not", cty.False).True())
}

func TestIfAndDefault(t *testing.T) {
	assert.True(t, mustCall(t, "if", cty.True, cty.StringVal("a"), cty.StringVal("b")).RawEquals(cty.StringVal("a")))
	assert.True(t, mustCall(t, "if", cty.False, cty.StringVal("a"), cty.StringVal("b")).RawEquals(cty.StringVal("b")))

	assert.True(t, mustCall(t, "default", cty.NullVal(cty.String), cty.StringVal("d")).RawEquals(cty.StringVal("d")))
	assert.True(t, mustCall(t, "default", cty.StringVal(""), cty.StringVal("d")).RawEquals(cty.StringVal("d")))
	assert.True(t, mustCall(t, "default", cty.StringVal("v"), cty.StringVal("d")).RawEquals(cty.StringVal("v")))
}

func TestInRange(t *testing.T) {
	assert.True(t, mustCall(t, "in_range", cty.NumberIntVal(5), cty.NumberIntVal(1), cty.NumberIntVal(10)).True())
	assert.False(t, mustCall(t, "in_range", cty.NumberIntVal(50), cty.NumberIntVal(1), cty.NumberIntVal(10)).True())

	// Range-literal object form.
	rangeObj := cty.ObjectVal(map[string]cty.Value{
		"min":  cty.NumberIntVal(8000),
		"max":  cty.NumberIntVal(9000),
		"type": cty.StringVal("range"),
	})
	assert.True(t, mustCall(t, "in_range", cty.NumberIntVal(8500), rangeObj).True())
}

func TestMatches(t *testing.T) {
	assert.True(t, mustCall(t, "matches", cty.StringVal("v1.2.3"), cty.StringVal(`^v\d+\.\d+\.\d+$`)).True())
	_, err := callOp(t, "matches", []cty.Value{cty.StringVal("x"), cty.StringVal("(")}, nil)
	require.Error(t, err)
}
