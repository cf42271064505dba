// Package filesystem provides the `@file` operators.
package filesystem

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// onRead is the handler for `@file.read(path)` and bare `@file(path)`.
func onRead(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	path, err := call.StringArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	if rc.Files == nil {
		return cty.NilVal, registry.ErrUnavailable
	}
	data, err := rc.Files.Read(path)
	if err != nil {
		return cty.NilVal, err
	}
	return cty.StringVal(string(data)), nil
}

// onExists is the handler for `@file.exists(path)`.
func onExists(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	path, err := call.StringArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	if rc.Files == nil {
		return cty.NilVal, registry.ErrUnavailable
	}
	return cty.BoolVal(rc.Files.Exists(path)), nil
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("file", registry.OperatorFunc(onRead), registry.Meta{Cacheable: true, IO: true})
	r.Register("file.read", registry.OperatorFunc(onRead), registry.Meta{Cacheable: true, IO: true})
	r.Register("file.exists", registry.OperatorFunc(onExists), registry.Meta{IO: true})
}
