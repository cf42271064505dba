// Package metrics provides the `@metrics` operator: documents publish
// gauges and counters to the configured sink and resolve to the value they
// recorded.
package metrics

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// onMetrics is the handler for `@metrics(name, value?)`. With a numeric
// value the named gauge is set; without one the named counter increments.
func onMetrics(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	name, err := call.StringArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	if rc.Metrics == nil {
		return cty.NilVal, registry.ErrUnavailable
	}
	v := call.Arg(1)
	if v == cty.NilVal || v.IsNull() {
		if err := rc.Metrics.Inc(name); err != nil {
			return cty.NilVal, err
		}
		return cty.True, nil
	}
	f, err := call.NumberArg(1)
	if err != nil {
		return cty.NilVal, err
	}
	if err := rc.Metrics.Gauge(name, f); err != nil {
		return cty.NilVal, err
	}
	return v, nil
}

// Register registers the handlers with the engine. Recording is a side
// effect, so the operator is never cached.
func (m *Module) Register(r *registry.Registry) {
	r.Register("metrics", registry.OperatorFunc(onMetrics), registry.Meta{})
}
