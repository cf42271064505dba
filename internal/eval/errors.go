package eval

import (
	"fmt"
	"strings"
)

// UndefinedReferenceError reports a reference to a name that is neither a
// global variable nor a previously resolved key in scope.
type UndefinedReferenceError struct {
	Name string
}

func (e *UndefinedReferenceError) Error() string {
	return fmt.Sprintf("undefined reference %q", e.Name)
}

// OperatorError wraps a failure inside an operator call.
type OperatorError struct {
	Name string
	Err  error
}

func (e *OperatorError) Error() string {
	return fmt.Sprintf("operator @%s: %s", e.Name, e.Err)
}

func (e *OperatorError) Unwrap() error { return e.Err }

// KeyError is one failed key path in a document.
type KeyError struct {
	Path string
	Err  error
}

// Warning records a non-fatal fallback: an operator failed but the call
// site supplied a default, so evaluation continued.
type Warning struct {
	Path    string
	Message string
}

// Report aggregates every failed key path from one evaluation pass, so a
// caller sees all broken keys at once rather than only the first. A
// non-empty report means no value tree is returned.
type Report struct {
	Errors   []KeyError
	Warnings []Warning
}

// Error implements the error interface.
func (r *Report) Error() string {
	if len(r.Errors) == 0 {
		return "evaluation failed"
	}
	parts := make([]string, len(r.Errors))
	for i, ke := range r.Errors {
		parts[i] = fmt.Sprintf("%s: %s", ke.Path, ke.Err)
	}
	return fmt.Sprintf("evaluation failed for %d key(s): %s", len(r.Errors), strings.Join(parts, "; "))
}
