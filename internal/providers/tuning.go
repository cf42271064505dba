package providers

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/registry"
)

// NopTuner is the default Adaptive Tuning Provider: it reports itself
// unavailable, so `@learn` and `@optimize` always fall back to their
// declared defaults.
type NopTuner struct{}

// Suggest implements registry.TuningProvider.
func (NopTuner) Suggest(ctx context.Context, key string, def cty.Value, features map[string]cty.Value) (cty.Value, error) {
	return cty.NilVal, registry.ErrUnavailable
}

// StaticTuner serves suggestions from a fixed table. Useful for tests and
// for hosts that precompute tuning values out of band.
type StaticTuner struct {
	Hints map[string]cty.Value
}

// Suggest implements registry.TuningProvider.
func (t StaticTuner) Suggest(ctx context.Context, key string, def cty.Value, features map[string]cty.Value) (cty.Value, error) {
	if v, ok := t.Hints[key]; ok {
		return v, nil
	}
	return cty.NilVal, registry.ErrUnavailable
}
