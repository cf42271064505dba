// Package datetime provides the time operators. All of them depend on the
// injected clock and are non-cacheable.
package datetime

import (
	"context"
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

func now(rc *registry.Context) time.Time {
	if rc.Clock != nil {
		return rc.Clock.Now()
	}
	return time.Now()
}

// onDate is the handler for `@date(format, {timezone})`. The format uses
// PHP date() characters, as in the original language.
func onDate(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	format, err := call.OptionalStringArg(0, "Y-m-d H:i:s")
	if err != nil {
		return cty.NilVal, err
	}
	t := now(rc)
	if tz := call.Option("timezone"); tz != cty.NilVal && !tz.IsNull() {
		loc, err := time.LoadLocation(tz.AsString())
		if err != nil {
			return cty.NilVal, fmt.Errorf("unknown timezone %q", tz.AsString())
		}
		t = t.In(loc)
	}
	return cty.StringVal(t.Format(goLayout(format))), nil
}

// onNow is the handler for `@date.now()`.
func onNow(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	return cty.StringVal(now(rc).Format(time.RFC3339)), nil
}

// onSubtract is the handler for `@date.subtract(duration, format?)`.
func onSubtract(ctx context.Context, rc *registry.Context, call *registry.Call) (cty.Value, error) {
	durStr, err := call.StringArg(0)
	if err != nil {
		return cty.NilVal, err
	}
	dur, err := time.ParseDuration(durStr)
	if err != nil {
		return cty.NilVal, fmt.Errorf("invalid duration %q: %w", durStr, err)
	}
	t := now(rc).Add(-dur)
	format, err := call.OptionalStringArg(1, "c")
	if err != nil {
		return cty.NilVal, err
	}
	return cty.StringVal(t.Format(goLayout(format))), nil
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("date", registry.OperatorFunc(onDate), registry.Meta{})
	r.Register("date.now", registry.OperatorFunc(onNow), registry.Meta{})
	r.Register("date.subtract", registry.OperatorFunc(onSubtract), registry.Meta{})
	r.Alias("now", "date.now")
}
