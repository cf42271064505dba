package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/token"
)

// Module is the interface all operator modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Call is one resolved operator invocation. Method carries the dotted
// remainder when the registered name is a prefix of the document name:
// `@validate.email(...)` dispatches to "validate" with Method "email".
type Call struct {
	Name    string
	Method  string
	Args    []cty.Value
	Options map[string]cty.Value
	Pos     token.Pos
}

// Option returns the named config option, or cty.NilVal when absent.
func (c *Call) Option(name string) cty.Value {
	if v, ok := c.Options[name]; ok {
		return v
	}
	return cty.NilVal
}

// Operator evaluates one call against the injected collaborators.
type Operator interface {
	Evaluate(ctx context.Context, rc *Context, call *Call) (cty.Value, error)
}

// OperatorFunc adapts a plain function to the Operator interface.
type OperatorFunc func(ctx context.Context, rc *Context, call *Call) (cty.Value, error)

// Evaluate implements Operator.
func (f OperatorFunc) Evaluate(ctx context.Context, rc *Context, call *Call) (cty.Value, error) {
	return f(ctx, rc, call)
}

// Meta classifies an operator's effects for the evaluator and cache layer.
type Meta struct {
	// Cacheable operators may have results stored by fingerprint. Operators
	// with non-deterministic effects (time, randomness) must leave this off.
	Cacheable bool
	// DefaultTTL applies when a cacheable call is not wrapped in @cache.
	// Zero means no implicit caching.
	DefaultTTL time.Duration
	// Sensitive results are never logged and never written to a durable
	// cache store.
	Sensitive bool
	// IO marks network, database, and filesystem operators. Concurrent
	// identical I/O calls collapse into one via single-flight, and the
	// caller-supplied timeout applies.
	IO bool
}

// Registered pairs an operator with its metadata.
type Registered struct {
	Op   Operator
	Meta Meta
}

// Registry holds all registered operators for one engine instance.
type Registry struct {
	ops map[string]*Registered
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{ops: make(map[string]*Registered)}
}

// Register registers op under name. Registering a duplicate name is a
// programmer error and panics.
func (r *Registry) Register(name string, op Operator, meta Meta) {
	if _, exists := r.ops[name]; exists {
		panic(fmt.Sprintf("operator with name '%s' already registered", name))
	}
	slog.Debug("Registering operator.", "name", name)
	r.ops[name] = &Registered{Op: op, Meta: meta}
}

// Alias registers an additional name for an already registered operator.
func (r *Registry) Alias(alias, name string) {
	reg, ok := r.ops[name]
	if !ok {
		panic(fmt.Sprintf("cannot alias unknown operator '%s'", name))
	}
	r.Register(alias, reg.Op, reg.Meta)
}

// Lookup resolves a document operator name. It tries the exact name first,
// then successively shorter dotted prefixes; the trimmed remainder is
// returned as the call method. An unmatched name yields
// *UnknownOperatorError.
func (r *Registry) Lookup(name string) (*Registered, string, error) {
	if reg, ok := r.ops[name]; ok {
		return reg, "", nil
	}
	prefix := name
	for {
		i := strings.LastIndex(prefix, ".")
		if i < 0 {
			break
		}
		prefix = prefix[:i]
		if reg, ok := r.ops[prefix]; ok {
			return reg, name[len(prefix)+1:], nil
		}
	}
	return nil, "", &UnknownOperatorError{Name: name}
}

// Names returns all registered operator names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
