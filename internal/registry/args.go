package registry

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Arg returns the i-th positional argument, or cty.NilVal when absent.
func (c *Call) Arg(i int) cty.Value {
	if i < 0 || i >= len(c.Args) {
		return cty.NilVal
	}
	return c.Args[i]
}

// StringArg returns the i-th argument as a string.
func (c *Call) StringArg(i int) (string, error) {
	v := c.Arg(i)
	if v == cty.NilVal || v.IsNull() {
		return "", fmt.Errorf("@%s: argument %d must be a string", c.Name, i+1)
	}
	if v.Type() != cty.String {
		return "", fmt.Errorf("@%s: argument %d must be a string, got %s", c.Name, i+1, v.Type().FriendlyName())
	}
	return v.AsString(), nil
}

// OptionalStringArg returns the i-th argument as a string, or def when the
// argument is absent or null.
func (c *Call) OptionalStringArg(i int, def string) (string, error) {
	v := c.Arg(i)
	if v == cty.NilVal || v.IsNull() {
		return def, nil
	}
	if v.Type() != cty.String {
		return "", fmt.Errorf("@%s: argument %d must be a string, got %s", c.Name, i+1, v.Type().FriendlyName())
	}
	return v.AsString(), nil
}

// NumberArg returns the i-th argument as a float64.
func (c *Call) NumberArg(i int) (float64, error) {
	v := c.Arg(i)
	if v == cty.NilVal || v.IsNull() || v.Type() != cty.Number {
		return 0, fmt.Errorf("@%s: argument %d must be a number", c.Name, i+1)
	}
	f, _ := v.AsBigFloat().Float64()
	return f, nil
}

// ListArg returns the i-th argument's elements. Lists, sets, and tuples all
// qualify.
func (c *Call) ListArg(i int) ([]cty.Value, error) {
	v := c.Arg(i)
	if v == cty.NilVal || v.IsNull() {
		return nil, fmt.Errorf("@%s: argument %d must be an array", c.Name, i+1)
	}
	ty := v.Type()
	if !ty.IsListType() && !ty.IsSetType() && !ty.IsTupleType() {
		return nil, fmt.Errorf("@%s: argument %d must be an array, got %s", c.Name, i+1, ty.FriendlyName())
	}
	var out []cty.Value
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		out = append(out, ev)
	}
	return out, nil
}
