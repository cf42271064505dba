// Package security provides the encryption, hashing, and encoding
// operators.
package security

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/ctyutil"
	"github.com/tusklang/tusk-go/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// onEncrypt is the handler for `@encrypt(value, algorithm)`.
func onEncrypt(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	value, err := call.StringArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	algorithm, err := call.OptionalStringArg(1, "")
	if err != nil {
		return cty.NilVal, err
	}
	if rc.Crypto == nil {
		return cty.NilVal, registry.ErrUnavailable
	}
	out, err := rc.Crypto.Encrypt(value, algorithm)
	if err != nil {
		return cty.NilVal, err
	}
	return cty.StringVal(out), nil
}

// onDecrypt is the handler for `@decrypt(value, algorithm)`.
func onDecrypt(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	value, err := call.StringArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	algorithm, err := call.OptionalStringArg(1, "")
	if err != nil {
		return cty.NilVal, err
	}
	if rc.Crypto == nil {
		return cty.NilVal, registry.ErrUnavailable
	}
	out, err := rc.Crypto.Decrypt(value, algorithm)
	if err != nil {
		return cty.NilVal, err
	}
	return cty.StringVal(out), nil
}

// onHash is the handler for `@hash(value, algorithm)`. Defaults to sha256.
func onHash(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	value, err := call.StringArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	algorithm, err := call.OptionalStringArg(1, "sha256")
	if err != nil {
		return cty.NilVal, err
	}
	if rc.Crypto == nil {
		return cty.NilVal, registry.ErrUnavailable
	}
	out, err := rc.Crypto.Hash(algorithm, value)
	if err != nil {
		return cty.NilVal, err
	}
	return cty.StringVal(out), nil
}

// onBase is the handler for `@base(value)` encode and `@base.decode(value)`.
// Only base64 is supported, matching the original language's @base64.
func onBase(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	raw := call.Arg(0)
	if raw == cty.NilVal || raw.IsNull() {
		return cty.NilVal, registry.ArgCountError(call, "1")
	}
	value := ctyutil.Stringify(raw)
	switch call.Method {
	case "", "encode":
		return cty.StringVal(base64.StdEncoding.EncodeToString([]byte(value))), nil
	case "decode":
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return cty.NilVal, fmt.Errorf("invalid base64 input: %w", err)
		}
		return cty.StringVal(string(decoded)), nil
	default:
		return cty.NilVal, fmt.Errorf("@base: unknown method %q", call.Method)
	}
}

// Register registers the handlers with the engine. Encryption results are
// sensitive: the evaluator keeps them out of logs and durable cache stores.
func (m *Module) Register(r *registry.Registry) {
	r.Register("encrypt", registry.OperatorFunc(onEncrypt), registry.Meta{Sensitive: true})
	r.Register("decrypt", registry.OperatorFunc(onDecrypt), registry.Meta{Sensitive: true})
	r.Register("hash", registry.OperatorFunc(onHash), registry.Meta{Cacheable: true})
	r.Register("base", registry.OperatorFunc(onBase), registry.Meta{Cacheable: true})
	r.Alias("base64", "base")
}
