// Package socketio provides the `@socketio` operator: connect to a
// socket.io endpoint, optionally emit an event, and resolve to the payload
// of the awaited response event.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/zclconf/go-cty/cty"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/tusklang/tusk-go/internal/ctxlog"
	"github.com/tusklang/tusk-go/internal/ctyutil"
	"github.com/tusklang/tusk-go/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// opResult is a private struct to safely pass results through the done
// channel.
type opResult struct {
	value cty.Value
	err   error
}

// onSocketIO is the handler for
// `@socketio(url, on_event, {namespace, emit_event, emit_data, insecure_skip_verify})`.
func onSocketIO(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	rawURL, err := call.StringArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	onEvent, err := call.StringArg(1)
	if err != nil {
		return cty.NilVal, err
	}
	namespace := ""
	if v := call.Option("namespace"); v != cty.NilVal && !v.IsNull() {
		namespace = v.AsString()
	}
	emitEvent := ""
	if v := call.Option("emit_event"); v != cty.NilVal && !v.IsNull() {
		emitEvent = v.AsString()
	}

	logger := ctxlog.FromContext(ctx).With("operator", "socketio", "url", rawURL, "onEvent", onEvent)
	logger.Debug("Handler started")
	defer logger.Debug("Handler finished")

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to parse URL: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if v := call.Option("insecure_skip_verify"); v != cty.NilVal && !v.IsNull() && v.True() {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	var isConnected atomic.Bool
	done := make(chan opResult, 1)
	opCtx, cancel := rc.IOContext(ctx)
	defer cancel()

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Info("Successfully connected", "namespace", namespace, "sid", io.Id())
		if emitEvent != "" {
			data := ctyutil.ToGo(call.Option("emit_data"))
			logger.Debug("Emitting event", "event", emitEvent)
			io.Emit(emitEvent, data)
		}
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		done <- opResult{err: errs[0].(error)}
	})

	io.On(types.EventName(onEvent), func(data ...any) {
		var payload any
		if len(data) > 0 {
			payload = data[0]
		}
		done <- opResult{value: ctyutil.FromGo(payload)}
	})

	io.Connect()

	select {
	case <-opCtx.Done():
		if isConnected.Load() {
			return cty.NilVal, fmt.Errorf("%w: connected but no '%s' event", registry.ErrTimeout, onEvent)
		}
		return cty.NilVal, fmt.Errorf("%w: waiting for initial connection", registry.ErrTimeout)
	case res := <-done:
		return res.value, res.err
	}
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("socketio", registry.OperatorFunc(onSocketIO), registry.Meta{IO: true})
}
