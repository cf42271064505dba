package registry

import (
	"context"
	"errors"
	"fmt"
)

// UnknownOperatorError reports a call to a name no module registered.
type UnknownOperatorError struct {
	Name string
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("unknown operator @%s", e.Name)
}

// ValidationError reports a failed `@validate` rule.
type ValidationError struct {
	Kind string
	Msg  string
}

func (e *ValidationError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("validation failed: %s", e.Kind)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Kind, e.Msg)
}

// ErrTimeout is returned when an I/O operator exceeds the caller-supplied
// timeout. It is treated like any other operator error: fall back to the
// call's default when present, otherwise propagate.
var ErrTimeout = errors.New("operator timed out")

// ErrUnavailable is returned when an optional collaborator is not
// configured or cannot be reached.
var ErrUnavailable = errors.New("collaborator unavailable")

// MapTimeout converts a context deadline failure into ErrTimeout, leaving
// other errors untouched.
func MapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// ArgCountError reports a call with the wrong number of arguments.
func ArgCountError(call *Call, want string) error {
	return fmt.Errorf("@%s expects %s arguments, got %d", call.Name, want, len(call.Args))
}
