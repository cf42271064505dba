// Package eval walks a parsed document in dependency order and materializes
// the resolved value tree, dispatching operator calls through the registry
// and the cache layer.
package eval

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/ast"
	"github.com/tusklang/tusk-go/internal/cache"
	"github.com/tusklang/tusk-go/internal/ctxlog"
	"github.com/tusklang/tusk-go/internal/ctyutil"
	"github.com/tusklang/tusk-go/internal/registry"
	"github.com/tusklang/tusk-go/internal/resolver"
)

// DefaultWorkers bounds concurrent section evaluation when Options.Workers
// is unset.
const DefaultWorkers = 4

// Options configures one evaluation pass.
type Options struct {
	Registry *registry.Registry
	Collab   *registry.Context
	Cache    *cache.Cache

	// Workers bounds the pool evaluating independent top-level sections.
	Workers int

	// Lookup resolves cross-file references. When nil, any FileRef without
	// a default fails.
	Lookup func(ctx context.Context, file, key string) (cty.Value, error)
}

// Evaluate resolves doc into a value tree. On failure the returned error is
// a *Report listing every broken key; partial trees are never returned.
// Warnings (operator failures absorbed by a call-site default) are returned
// in both the success and failure cases.
func Evaluate(ctx context.Context, doc *ast.Document, opts Options) (*Tree, []Warning, error) {
	order, err := resolver.Resolve(doc)
	if err != nil {
		return nil, nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(cache.NewMemoryStore())
	}
	if opts.Collab == nil {
		opts.Collab = &registry.Context{}
	}

	ev := &evaluator{doc: doc, opts: opts, globals: make(map[string]cty.Value)}
	logger := ctxlog.FromContext(ctx)

	// Globals resolve sequentially in topological order.
	for _, name := range order.Globals {
		v, err := ev.evalNode(ctx, nil, doc.Globals[name], "$"+name)
		if err != nil {
			ev.record("$"+name, err)
			continue
		}
		ev.globals[name] = v
	}

	// Top-level sections are independent of one another and evaluate
	// concurrently on a bounded pool.
	results := make(map[string]cty.Value, len(order.Sections))
	sem := make(chan struct{}, opts.Workers)
	var wg sync.WaitGroup
	for _, name := range order.Sections {
		node, _ := doc.Root.Get(name)
		wg.Add(1)
		go func(name string, node ast.Node) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			v, err := ev.evalNode(ctx, newScope(nil), node, name)
			ev.mu.Lock()
			defer ev.mu.Unlock()
			if err != nil {
				ev.report.Errors = append(ev.report.Errors, KeyError{Path: name, Err: err})
				return
			}
			results[name] = v
		}(name, node)
	}
	wg.Wait()

	if len(ev.report.Errors) > 0 {
		logger.Debug("Evaluation failed.", "errors", len(ev.report.Errors), "warnings", len(ev.report.Warnings))
		return nil, ev.report.Warnings, &ev.report
	}

	tree := newTree()
	for _, name := range doc.GlobalOrder {
		if v, ok := ev.globals[name]; ok {
			tree.put(name, v)
		}
	}
	for _, name := range order.Sections {
		if v, ok := results[name]; ok {
			tree.put(name, v)
		}
	}
	logger.Debug("Evaluation complete.", "keys", len(tree.keys), "warnings", len(ev.report.Warnings))
	return tree, ev.report.Warnings, nil
}

type evaluator struct {
	doc  *ast.Document
	opts Options

	globals map[string]cty.Value

	mu     sync.Mutex
	report Report
}

func (ev *evaluator) record(path string, err error) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	ev.report.Errors = append(ev.report.Errors, KeyError{Path: path, Err: err})
}

func (ev *evaluator) warn(path, message string) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	ev.report.Warnings = append(ev.report.Warnings, Warning{Path: path, Message: message})
}

// scope holds section-local keys resolved so far, chained through nested
// objects.
type scope struct {
	parent *scope
	vals   map[string]cty.Value
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vals: make(map[string]cty.Value)}
}

func (s *scope) lookup(name string) (cty.Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vals[name]; ok {
			return v, true
		}
	}
	return cty.NilVal, false
}

func (ev *evaluator) evalNode(ctx context.Context, sc *scope, n ast.Node, path string) (cty.Value, error) {
	switch t := n.(type) {
	case *ast.Scalar:
		return t.Val, nil

	case *ast.Ref:
		if v, ok := ev.globals[t.Name]; ok {
			return v, nil
		}
		if !t.Global && sc != nil {
			if v, ok := sc.lookup(t.Name); ok {
				return v, nil
			}
		}
		return cty.NilVal, &UndefinedReferenceError{Name: t.Name}

	case *ast.FileRef:
		return ev.evalFileRef(ctx, sc, t, path)

	case *ast.Call:
		return ev.evalCall(ctx, sc, t, path)

	case *ast.Object:
		return ev.evalObject(ctx, sc, t, path)

	case *ast.Array:
		elems := make([]cty.Value, len(t.Elems))
		for i, e := range t.Elems {
			v, err := ev.evalNode(ctx, sc, e, path)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = v
		}
		if len(elems) == 0 {
			return cty.EmptyTupleVal, nil
		}
		return cty.TupleVal(elems), nil

	case *ast.Interp:
		var out string
		for _, part := range t.Parts {
			v, err := ev.evalNode(ctx, sc, part, path)
			if err != nil {
				return cty.NilVal, err
			}
			out += ctyutil.Stringify(v)
		}
		return cty.StringVal(out), nil

	case *ast.Binary:
		return ev.evalBinary(ctx, sc, t, path)

	case *ast.Cond:
		cond, err := ev.evalNode(ctx, sc, t.If, path)
		if err != nil {
			return cty.NilVal, err
		}
		if truthy(cond) {
			return ev.evalNode(ctx, sc, t.Then, path)
		}
		return ev.evalNode(ctx, sc, t.Else, path)
	}
	return cty.NilVal, fmt.Errorf("unhandled node type %T", n)
}

// evalObject resolves entries in dependency order, so a bare reference to a
// sibling key works regardless of declaration order. A failed entry aborts
// that key only: the error is recorded at its path and siblings continue. A
// sibling cycle fails the whole object.
func (ev *evaluator) evalObject(ctx context.Context, sc *scope, obj *ast.Object, path string) (cty.Value, error) {
	order, err := resolver.ObjectOrder(obj, func(name string) bool {
		_, ok := ev.doc.Globals[name]
		return ok
	})
	if err != nil {
		return cty.NilVal, err
	}

	child := newScope(sc)
	attrs := make(map[string]cty.Value, obj.Len())
	for _, key := range order {
		node, _ := obj.Get(key)
		keyPath := path + "." + key
		v, err := ev.evalNode(ctx, child, node, keyPath)
		if err != nil {
			ev.record(keyPath, err)
			continue
		}
		child.vals[key] = v
		attrs[key] = v
	}
	if len(attrs) == 0 {
		return cty.EmptyObjectVal, nil
	}
	return cty.ObjectVal(attrs), nil
}

func (ev *evaluator) evalFileRef(ctx context.Context, sc *scope, ref *ast.FileRef, path string) (cty.Value, error) {
	var v cty.Value
	err := registry.ErrUnavailable
	if ev.opts.Lookup != nil {
		v, err = ev.opts.Lookup(ctx, ref.File, ref.Key)
	}
	if err == nil {
		return v, nil
	}
	if ref.Default != nil {
		ev.warn(path, fmt.Sprintf("cross-file reference %s:%s failed (%s); using default", ref.File, ref.Key, err))
		return ev.evalNode(ctx, sc, ref.Default, path)
	}
	return cty.NilVal, fmt.Errorf("cross-file reference %s:%s: %w", ref.File, ref.Key, err)
}

func (ev *evaluator) evalCall(ctx context.Context, sc *scope, call *ast.Call, path string) (cty.Value, error) {
	// @cache(ttl, inner) forces caching of its inner call.
	if call.Name == "cache" && len(call.Args) == 2 {
		ttlVal, err := ev.evalNode(ctx, sc, call.Args[0], path)
		if err != nil {
			return cty.NilVal, err
		}
		ttl, err := parseTTL(ttlVal)
		if err != nil {
			return cty.NilVal, &OperatorError{Name: "cache", Err: err}
		}
		if inner, ok := call.Args[1].(*ast.Call); ok {
			return ev.dispatch(ctx, sc, inner, path, ttl)
		}
		return ev.evalNode(ctx, sc, call.Args[1], path)
	}
	return ev.dispatch(ctx, sc, call, path, 0)
}

// dispatch resolves arguments bottom-up, consults the cache for cacheable
// calls, and invokes the operator. ttlOverride > 0 forces caching.
func (ev *evaluator) dispatch(ctx context.Context, sc *scope, call *ast.Call, path string, ttlOverride time.Duration) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	args := make([]cty.Value, len(call.Args))
	for i, a := range call.Args {
		v, err := ev.evalNode(ctx, sc, a, path)
		if err != nil {
			return cty.NilVal, err
		}
		args[i] = v
	}
	var options map[string]cty.Value
	if call.Options != nil {
		options = make(map[string]cty.Value, call.Options.Len())
		for i, key := range call.Options.Keys {
			v, err := ev.evalNode(ctx, sc, call.Options.Vals[i], path)
			if err != nil {
				return cty.NilVal, err
			}
			options[key] = v
		}
	}

	v, err := ev.invoke(ctx, call, args, options, ttlOverride)
	if err == nil {
		return v, nil
	}

	// Per-call fallback policy: a supplied default downgrades the failure
	// to a warning.
	if def, ok := options["default"]; ok {
		ev.warn(path, fmt.Sprintf("@%s failed (%s); using default", call.Name, err))
		logger.Warn("Operator failed, using default.", "operator", call.Name, "path", path)
		return def, nil
	}
	return cty.NilVal, err
}

func (ev *evaluator) invoke(ctx context.Context, call *ast.Call, args []cty.Value, options map[string]cty.Value, ttlOverride time.Duration) (cty.Value, error) {
	reg, method, err := ev.opts.Registry.Lookup(call.Name)
	if err != nil {
		return cty.NilVal, &OperatorError{Name: call.Name, Err: err}
	}

	rcall := &registry.Call{
		Name:    call.Name,
		Method:  method,
		Args:    args,
		Options: options,
		Pos:     call.P,
	}
	run := func(ictx context.Context) (cty.Value, error) {
		v, err := reg.Op.Evaluate(ictx, ev.opts.Collab, rcall)
		if err != nil {
			return cty.NilVal, &OperatorError{Name: call.Name, Err: err}
		}
		return v, nil
	}

	ttl := reg.Meta.DefaultTTL
	cacheable := reg.Meta.Cacheable
	if ttlOverride > 0 {
		ttl = ttlOverride
		cacheable = true
	}

	switch {
	case cacheable && ttl > 0:
		fp := cache.Fingerprint(call.Name, args, options)
		return ev.opts.Cache.GetOrCompute(ctx, fp, ttl, reg.Meta.Sensitive, run)
	case reg.Meta.IO:
		// No storage, but concurrent identical I/O calls collapse to one.
		fp := cache.Fingerprint(call.Name, args, options)
		return ev.opts.Cache.Do(ctx, fp, run)
	default:
		return run(ctx)
	}
}

func (ev *evaluator) evalBinary(ctx context.Context, sc *scope, b *ast.Binary, path string) (cty.Value, error) {
	l, err := ev.evalNode(ctx, sc, b.L, path)
	if err != nil {
		return cty.NilVal, err
	}
	r, err := ev.evalNode(ctx, sc, b.R, path)
	if err != nil {
		return cty.NilVal, err
	}

	switch b.Op {
	case "+":
		if bothNumbers(l, r) {
			return cty.NumberVal(new(big.Float).Add(l.AsBigFloat(), r.AsBigFloat())), nil
		}
		return cty.StringVal(ctyutil.Stringify(l) + ctyutil.Stringify(r)), nil
	case "==":
		return cty.BoolVal(valuesEqual(l, r)), nil
	case "!=":
		return cty.BoolVal(!valuesEqual(l, r)), nil
	}

	cmp, err := compareOrder(l, r)
	if err != nil {
		return cty.NilVal, fmt.Errorf("cannot compare with %q: %w", b.Op, err)
	}
	switch b.Op {
	case ">":
		return cty.BoolVal(cmp > 0), nil
	case ">=":
		return cty.BoolVal(cmp >= 0), nil
	case "<":
		return cty.BoolVal(cmp < 0), nil
	case "<=":
		return cty.BoolVal(cmp <= 0), nil
	}
	return cty.NilVal, fmt.Errorf("unknown binary operator %q", b.Op)
}
