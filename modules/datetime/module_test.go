package datetime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/registry"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testTime = time.Date(2024, 6, 15, 13, 45, 30, 0, time.UTC)

func callDate(t *testing.T, name string, args []cty.Value, options map[string]cty.Value) (cty.Value, error) {
	t.Helper()
	r := registry.New()
	(&Module{}).Register(r)
	reg, method, err := r.Lookup(name)
	require.NoError(t, err)
	return reg.Op.Evaluate(context.Background(), &registry.Context{Clock: fixedClock{testTime}}, &registry.Call{
		Name:    name,
		Method:  method,
		Args:    args,
		Options: options,
	})
}

func TestGoLayout(t *testing.T) {
	cases := map[string]string{
		"Y":           "2006",
		"Y-m-d":       "2006-01-02",
		"Y-m-d H:i:s": "2006-01-02 15:04:05",
		"c":           time.RFC3339,
		"D, d M Y":    "Mon, 02 Jan 2006",
		"g:i A":       "3:04 PM",
		`\Y`:          "Y",
	}
	for php, want := range cases {
		assert.Equal(t, want, goLayout(php), "format %q", php)
	}
}

func TestDate(t *testing.T) {
	t.Run("default format", func(t *testing.T) {
		v, err := callDate(t, "date", nil, nil)
		require.NoError(t, err)
		assert.True(t, v.RawEquals(cty.StringVal("2024-06-15 13:45:30")))
	})

	t.Run("explicit format", func(t *testing.T) {
		v, err := callDate(t, "date", []cty.Value{cty.StringVal("Y")}, nil)
		require.NoError(t, err)
		assert.True(t, v.RawEquals(cty.StringVal("2024")))
	})

	t.Run("timezone option", func(t *testing.T) {
		v, err := callDate(t, "date", []cty.Value{cty.StringVal("H:i")}, map[string]cty.Value{
			"timezone": cty.StringVal("UTC"),
		})
		require.NoError(t, err)
		assert.True(t, v.RawEquals(cty.StringVal("13:45")))
	})

	t.Run("bad timezone", func(t *testing.T) {
		_, err := callDate(t, "date", []cty.Value{cty.StringVal("Y")}, map[string]cty.Value{
			"timezone": cty.StringVal("Mars/Olympus"),
		})
		require.Error(t, err)
	})
}

func TestDateNow(t *testing.T) {
	v, err := callDate(t, "date.now", nil, nil)
	require.NoError(t, err)
	assert.True(t, v.RawEquals(cty.StringVal("2024-06-15T13:45:30Z")))

	// "now" aliases "date.now".
	alias, err := callDate(t, "now", nil, nil)
	require.NoError(t, err)
	assert.True(t, alias.RawEquals(v))
}

func TestDateSubtract(t *testing.T) {
	v, err := callDate(t, "date.subtract", []cty.Value{cty.StringVal("24h")}, nil)
	require.NoError(t, err)
	assert.True(t, v.RawEquals(cty.StringVal("2024-06-14T13:45:30Z")))

	_, err = callDate(t, "date.subtract", []cty.Value{cty.StringVal("soon")}, nil)
	require.Error(t, err)
}
