// Package env_vars provides the environment lookup operators.
package env_vars

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// onEnv is the handler for `@env(name, default)`.
func onEnv(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	name, err := call.StringArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	if rc.Env == nil {
		return cty.NilVal, registry.ErrUnavailable
	}
	if v, ok := rc.Env.Get(name); ok {
		return cty.StringVal(v), nil
	}
	if def := call.Arg(1); def != cty.NilVal {
		return def, nil
	}
	return cty.NilVal, fmt.Errorf("environment variable %q is not set", name)
}

// Register registers the handlers with the engine. The secure variant has
// identical lookup semantics but marks its result sensitive, so it is never
// logged or persisted to a durable cache store.
func (m *Module) Register(r *registry.Registry) {
	r.Register("env", registry.OperatorFunc(onEnv), registry.Meta{Cacheable: true})
	r.Register("env.secure", registry.OperatorFunc(onEnv), registry.Meta{Cacheable: true, Sensitive: true})
}
