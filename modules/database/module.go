// Package database provides the `@query` operator backed by the injected
// query executor.
package database

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// onQuery is the handler for `@query(sql, params...)`.
func onQuery(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	sql, err := call.StringArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	if rc.Query == nil {
		return cty.NilVal, registry.ErrUnavailable
	}
	var params []cty.Value
	if len(call.Args) > 1 {
		params = call.Args[1:]
	}
	ioCtx, cancel := rc.IOContext(ctx)
	defer cancel()
	v, err := rc.Query.Execute(ioCtx, sql, params)
	if err != nil {
		return cty.NilVal, registry.MapTimeout(err)
	}
	return v, nil
}

// Register registers the handlers with the engine. "q" is the short form
// used by older documents.
func (m *Module) Register(r *registry.Registry) {
	r.Register("query", registry.OperatorFunc(onQuery), registry.Meta{Cacheable: true, IO: true})
	r.Alias("q", "query")
}
