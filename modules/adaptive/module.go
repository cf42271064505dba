// Package adaptive provides the `@learn` and `@optimize` operators. Both
// consult the tuning provider and fall back to the supplied default when it
// declines, so documents stay evaluable without a tuning backend.
package adaptive

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/ctxlog"
	"github.com/tusklang/tusk-go/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// onSuggest is the shared handler for `@learn(key, default, {features})` and
// `@optimize(key, default, {features})`.
func onSuggest(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	key, err := call.StringArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	def := call.Arg(1)
	if def == cty.NilVal {
		return cty.NilVal, registry.ArgCountError(call, "2")
	}
	if rc.Tuning == nil {
		return def, nil
	}

	ioCtx, cancel := rc.IOContext(ctx)
	defer cancel()
	v, err := rc.Tuning.Suggest(ioCtx, key, def, call.Options)
	if err != nil {
		// An unreachable or undecided tuner must not fail the document.
		ctxlog.FromContext(ctx).Debug("Tuning suggestion unavailable, using default.",
			"operator", call.Name, "key", key, "error", err)
		return def, nil
	}
	return v, nil
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("learn", registry.OperatorFunc(onSuggest), registry.Meta{IO: true})
	r.Register("optimize", registry.OperatorFunc(onSuggest), registry.Meta{IO: true})
}
