// Package cachectl registers the `@cache` operator name. The evaluator
// intercepts @cache before dispatch so the wrapped expression stays lazy and
// is computed at most once per TTL window; registration here exists so the
// name resolves, appears in listings, and carries metadata.
package cachectl

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// onCache handles the degenerate case where the evaluator did not intercept
// the call, which happens when the wrapped argument is a plain value rather
// than an operator call. Caching a constant is a no-op, so the value passes
// through.
func onCache(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	if _, err := call.StringArg(0); err != nil {
		return cty.NilVal, err
	}
	if v := call.Arg(1); v != cty.NilVal {
		return v, nil
	}
	return cty.NilVal, registry.ArgCountError(call, "2")
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("cache", registry.OperatorFunc(onCache), registry.Meta{})
}
