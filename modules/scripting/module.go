// Package scripting provides the `@script` operator. Scripts run in the
// injected sandbox; the engine never executes host-language code from a
// document.
package scripting

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// onScript is the handler for `@script(source, {globals...})`. Options are
// exposed to the script as global bindings.
func onScript(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	source, err := call.StringArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	if rc.Script == nil {
		return cty.NilVal, registry.ErrUnavailable
	}
	ioCtx, cancel := rc.IOContext(ctx)
	defer cancel()
	v, err := rc.Script.Run(ioCtx, source, call.Options)
	if err != nil {
		return cty.NilVal, registry.MapTimeout(err)
	}
	return v, nil
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("script", registry.OperatorFunc(onScript), registry.Meta{Cacheable: true, IO: true})
}
