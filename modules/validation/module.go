// Package validation provides the `@validate` operator family. The rule
// kind rides in the dotted method: `@validate.email(v)` checks v against the
// "email" rule.
package validation

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// onValidate is the handler for `@validate.<kind>(value, {rules...})`.
// A failed check is an error, so the usual default-option fallback applies.
func onValidate(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	kind := call.Method
	if kind == "" {
		k, err := call.StringArg(0)
		if err != nil {
			return cty.NilVal, fmt.Errorf("@validate: missing rule kind: %w", err)
		}
		kind = k
		call = &registry.Call{Name: call.Name, Args: call.Args[1:], Options: call.Options, Pos: call.Pos}
	}
	value := call.Arg(0)
	if value == cty.NilVal {
		return cty.NilVal, registry.ArgCountError(call, "1")
	}
	if rc.Checker == nil {
		return cty.NilVal, registry.ErrUnavailable
	}

	rules := make(map[string]cty.Value, len(call.Options)+1)
	// A positional argument after the value parameterizes the rule itself,
	// e.g. `@validate.min(v, 3)` checks v against min=3.
	if param := call.Arg(1); param != cty.NilVal {
		rules[kind] = param
	}
	for name, v := range call.Options {
		rules[name] = v
	}

	ok, err := rc.Checker.Validate(kind, value, rules)
	if err != nil {
		return cty.NilVal, err
	}
	if !ok {
		return cty.NilVal, &registry.ValidationError{Kind: kind}
	}
	return value, nil
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("validate", registry.OperatorFunc(onValidate), registry.Meta{Cacheable: true})
}
