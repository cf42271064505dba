package eval

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zclconf/go-cty/cty"
)

func bothNumbers(a, b cty.Value) bool {
	return !a.IsNull() && !b.IsNull() && a.Type() == cty.Number && b.Type() == cty.Number
}

// valuesEqual is the `==` semantics of the language: null equals only null,
// otherwise raw structural equality.
func valuesEqual(a, b cty.Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	if a.Type() == cty.Number && b.Type() == cty.Number {
		return a.AsBigFloat().Cmp(b.AsBigFloat()) == 0
	}
	return a.RawEquals(b)
}

// compareOrder orders two numbers or two strings; anything else is a type
// mismatch.
func compareOrder(a, b cty.Value) (int, error) {
	if bothNumbers(a, b) {
		return a.AsBigFloat().Cmp(b.AsBigFloat()), nil
	}
	if !a.IsNull() && !b.IsNull() && a.Type() == cty.String && b.Type() == cty.String {
		return strings.Compare(a.AsString(), b.AsString()), nil
	}
	return 0, fmt.Errorf("mismatched types %s and %s", typeName(a), typeName(b))
}

func typeName(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	return v.Type().FriendlyName()
}

// truthy implements conditional semantics: null and false are false, zero
// and the empty string are false, everything else is true.
func truthy(v cty.Value) bool {
	if v.IsNull() {
		return false
	}
	switch v.Type() {
	case cty.Bool:
		return v.True()
	case cty.Number:
		return v.AsBigFloat().Sign() != 0
	case cty.String:
		return v.AsString() != ""
	}
	return true
}

// parseTTL accepts a duration string ("5m", "30s", "7d") or a bare number
// of seconds.
func parseTTL(v cty.Value) (time.Duration, error) {
	if v.IsNull() {
		return 0, fmt.Errorf("ttl must not be null")
	}
	switch v.Type() {
	case cty.String:
		d, err := time.ParseDuration(expandDays(v.AsString()))
		if err != nil {
			return 0, fmt.Errorf("invalid ttl %q: %w", v.AsString(), err)
		}
		return d, nil
	case cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return time.Duration(f * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("ttl must be a duration string or seconds, got %s", typeName(v))
}

// expandDays rewrites each "<n>d" segment as hours, since
// time.ParseDuration has no day unit. "1d12h" becomes "24h12h".
func expandDays(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); {
		j := i
		for j < len(s) && (s[j] >= '0' && s[j] <= '9' || s[j] == '.') {
			j++
		}
		if j > i && j < len(s) && s[j] == 'd' {
			if n, err := strconv.ParseFloat(s[i:j], 64); err == nil {
				out.WriteString(strconv.FormatFloat(n*24, 'f', -1, 64))
				out.WriteByte('h')
				i = j + 1
				continue
			}
		}
		out.WriteByte(s[i])
		i++
	}
	return out.String()
}
