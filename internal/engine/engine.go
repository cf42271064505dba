// Package engine assembles the parser, resolver, evaluator, cache, and
// operator registry into one embeddable facade. A host constructs an Engine
// once, then loads documents through it; cross-file references resolve
// against sibling documents and share the engine's cache.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/cache"
	"github.com/tusklang/tusk-go/internal/ctxlog"
	"github.com/tusklang/tusk-go/internal/eval"
	"github.com/tusklang/tusk-go/internal/parser"
	"github.com/tusklang/tusk-go/internal/providers"
	"github.com/tusklang/tusk-go/internal/registry"
)

// Options configures a new Engine.
type Options struct {
	// Workers bounds concurrent top-level section evaluation.
	Workers int

	// Timeout bounds each I/O operator call.
	Timeout time.Duration

	// BaseDir anchors relative @file paths and cross-file references for
	// in-memory documents. Documents loaded from disk anchor at their own
	// directory.
	BaseDir string

	// CacheFile enables the durable bbolt-backed cache store when set. The
	// default store is in-memory and process-local.
	CacheFile string

	// QueryDriver and QueryDSN configure the @query backend. The driver
	// defaults to the bundled pure-Go sqlite.
	QueryDriver string
	QueryDSN    string

	// SecretKey derives the @encrypt/@decrypt key. Empty disables both.
	SecretKey string

	// Tuning overrides the @learn/@optimize backend. Defaults to a no-op
	// tuner, so those operators resolve to their declared defaults.
	Tuning registry.TuningProvider

	// Modules overrides the compiled-in operator set. Mostly for tests.
	Modules []registry.Module

	// Logger receives engine diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Engine is the long-lived document evaluation facade.
type Engine struct {
	opts     Options
	logger   *slog.Logger
	registry *registry.Registry
	cache    *cache.Cache
	collab   *registry.Context

	boltStore *cache.BoltStore
	querier   *providers.SQLQuerier
	httpc     *providers.RestyClient
	metrics   *providers.PromMetrics

	mu   sync.Mutex
	docs map[string]*docState
}

// docState tracks one document the engine has loaded. done closes when the
// result fields are populated; concurrent loaders of the same path wait on
// it instead of re-evaluating.
type docState struct {
	done     chan struct{}
	tree     *eval.Tree
	warnings []eval.Warning
	err      error
}

// loadChainKey carries the set of documents being resolved on the current
// cross-file reference chain. Membership means a cycle: the same document
// is asking for itself, however indirectly.
type loadChainKey struct{}

func loadChain(ctx context.Context) map[string]bool {
	chain, _ := ctx.Value(loadChainKey{}).(map[string]bool)
	return chain
}

// New builds an Engine: registers the operator modules, wires the default
// collaborator providers, and opens the configured backends.
func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reg := registry.New()
	modules := opts.Modules
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All operator modules registered.", "count", len(modules))

	e := &Engine{
		opts:     opts,
		logger:   logger,
		registry: reg,
		metrics:  providers.NewPromMetrics(),
		httpc:    providers.NewRestyClient(),
		docs:     make(map[string]*docState),
	}

	var store cache.Store = cache.NewMemoryStore()
	if opts.CacheFile != "" {
		bs, err := cache.OpenBoltStore(opts.CacheFile)
		if err != nil {
			return nil, err
		}
		e.boltStore = bs
		store = bs
		logger.Debug("Durable cache store opened.", "path", opts.CacheFile)
	}
	e.cache = cache.New(store)

	collab := &registry.Context{
		Env:     providers.OSEnv{},
		Clock:   providers.SystemClock{},
		HTTP:    e.httpc,
		Files:   providers.OSFileReader{Base: opts.BaseDir},
		Checker: providers.NewPlaygroundValidator(),
		Script:  providers.NewStarlarkRunner(),
		Metrics: e.metrics,
		Timeout: opts.Timeout,
		BaseDir: opts.BaseDir,
	}
	if opts.QueryDSN != "" {
		driver := opts.QueryDriver
		if driver == "" {
			driver = "sqlite"
		}
		q, err := providers.NewSQLQuerier(driver, opts.QueryDSN)
		if err != nil {
			return nil, err
		}
		e.querier = q
		collab.Query = q
	}
	if opts.SecretKey != "" {
		collab.Crypto = providers.NewSecretboxCrypto(opts.SecretKey)
	}
	collab.Tuning = opts.Tuning
	if collab.Tuning == nil {
		collab.Tuning = providers.NopTuner{}
	}
	e.collab = collab

	return e, nil
}

// Close releases the engine's backends.
func (e *Engine) Close() error {
	var firstErr error
	if e.boltStore != nil {
		if err := e.boltStore.Close(); err != nil {
			firstErr = err
		}
	}
	if e.querier != nil {
		if err := e.querier.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.httpc != nil {
		if err := e.httpc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Registry returns the engine's operator registry. Primarily for testing
// and for hosts listing available operators.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Metrics exposes the Prometheus registry behind the @metrics operator so
// hosts can mount it on an HTTP handler.
func (e *Engine) Metrics() *providers.PromMetrics {
	return e.metrics
}

// Load parses and evaluates the document at path. Repeated loads of the
// same file return the first result; Invalidate drops it.
func (e *Engine) Load(ctx context.Context, path string) (*eval.Tree, []eval.Warning, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, err
	}

	if loadChain(ctx)[abs] {
		return nil, nil, fmt.Errorf("cross-file reference cycle through %s", path)
	}

	e.mu.Lock()
	if st, ok := e.docs[abs]; ok {
		e.mu.Unlock()
		// Another caller owns this load. Its chain cannot include ours (the
		// check above catches that), so waiting is safe.
		select {
		case <-st.done:
			return st.tree, st.warnings, st.err
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	st := &docState{done: make(chan struct{})}
	e.docs[abs] = st
	e.mu.Unlock()

	chain := make(map[string]bool, len(loadChain(ctx))+1)
	for p := range loadChain(ctx) {
		chain[p] = true
	}
	chain[abs] = true
	st.tree, st.warnings, st.err = e.loadFile(context.WithValue(ctx, loadChainKey{}, chain), abs)

	e.mu.Lock()
	if st.err != nil {
		// A failed load is retryable: forget it before waking waiters.
		delete(e.docs, abs)
	}
	e.mu.Unlock()
	close(st.done)
	return st.tree, st.warnings, st.err
}

// Invalidate forgets a previously loaded document so the next Load re-reads
// it. The operator cache is unaffected; entries expire by TTL.
func (e *Engine) Invalidate(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		e.mu.Lock()
		delete(e.docs, abs)
		e.mu.Unlock()
	}
}

func (e *Engine) loadFile(ctx context.Context, abs string) (*eval.Tree, []eval.Warning, error) {
	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("reading document: %w", err)
	}
	return e.evalSource(ctx, abs, string(src), filepath.Dir(abs))
}

// LoadSource parses and evaluates an in-memory document. Cross-file
// references resolve relative to the engine's base directory.
func (e *Engine) LoadSource(ctx context.Context, name, src string) (*eval.Tree, []eval.Warning, error) {
	return e.evalSource(ctx, name, src, e.opts.BaseDir)
}

func (e *Engine) evalSource(ctx context.Context, name, src, dir string) (*eval.Tree, []eval.Warning, error) {
	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID, "document", name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Loading document.")

	doc, err := parser.Parse(name, src)
	if err != nil {
		return nil, nil, err
	}

	tree, warnings, err := eval.Evaluate(ctx, doc, eval.Options{
		Registry: e.registry,
		Collab:   e.collab,
		Cache:    e.cache,
		Workers:  e.opts.Workers,
		Lookup: func(ctx context.Context, file, key string) (cty.Value, error) {
			return e.lookupCrossFile(ctx, dir, file, key)
		},
	})
	if err != nil {
		logger.Debug("Document evaluation failed.", "error", err)
		return nil, warnings, err
	}
	logger.Debug("Document evaluated.", "warnings", len(warnings))
	return tree, warnings, nil
}

// lookupCrossFile resolves `@config.<name>.get(key)` against the sibling
// document <name>.tsk, loading and caching it on first use.
func (e *Engine) lookupCrossFile(ctx context.Context, dir, file, key string) (cty.Value, error) {
	name := file
	if !strings.HasSuffix(name, ".tsk") {
		name += ".tsk"
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, name)
	}

	tree, _, err := e.Load(ctx, path)
	if err != nil {
		return cty.NilVal, err
	}
	v, ok := tree.Get(key)
	if !ok {
		return cty.NilVal, fmt.Errorf("key %q not found in %s", key, name)
	}
	return v, nil
}
