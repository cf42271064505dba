// Package http_client provides the `@http` operator.
package http_client

import (
	"context"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/ctyutil"
	"github.com/tusklang/tusk-go/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// onHTTP is the handler for `@http(method, url, {headers, body, timeout})`.
// Responses resolve to an object with status, body, and headers so documents
// can pick the part they need.
func onHTTP(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	method, err := call.StringArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	url, err := call.StringArg(1)
	if err != nil {
		return cty.NilVal, err
	}
	if rc.HTTP == nil {
		return cty.NilVal, registry.ErrUnavailable
	}

	var opts registry.HTTPOptions
	if h := call.Option("headers"); h != cty.NilVal && !h.IsNull() && h.Type().IsObjectType() {
		opts.Headers = make(map[string]string)
		for name, v := range h.AsValueMap() {
			opts.Headers[name] = ctyutil.Stringify(v)
		}
	}
	if b := call.Option("body"); b != cty.NilVal && !b.IsNull() {
		opts.Body = ctyutil.Stringify(b)
	}

	ioCtx, cancel := rc.IOContext(ctx)
	defer cancel()
	resp, err := rc.HTTP.Request(ioCtx, strings.ToUpper(method), url, opts)
	if err != nil {
		return cty.NilVal, registry.MapTimeout(err)
	}

	headers := make(map[string]cty.Value, len(resp.Headers))
	for name, v := range resp.Headers {
		headers[name] = cty.StringVal(v)
	}
	out := map[string]cty.Value{
		"status": cty.NumberIntVal(int64(resp.StatusCode)),
		"body":   cty.StringVal(resp.Body),
	}
	if len(headers) > 0 {
		out["headers"] = cty.ObjectVal(headers)
	} else {
		out["headers"] = cty.EmptyObjectVal
	}
	return cty.ObjectVal(out), nil
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("http", registry.OperatorFunc(onHTTP), registry.Meta{Cacheable: true, IO: true})
}
