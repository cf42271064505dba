package registry

import (
	"context"
	"time"

	"github.com/zclconf/go-cty/cty"
)

// The collaborator interfaces below form the dependency-inversion boundary
// of the engine: operators call out through them and never construct the
// implementations themselves.

// EnvProvider looks up process environment values.
type EnvProvider interface {
	Get(name string) (string, bool)
}

// Clock supplies the current time; injected so time-dependent operators and
// cache expiry are testable.
type Clock interface {
	Now() time.Time
}

// QueryExecutor runs a database query and shapes the result as a value.
type QueryExecutor interface {
	Execute(ctx context.Context, sql string, params []cty.Value) (cty.Value, error)
}

// HTTPOptions carries the optional parts of an HTTP request.
type HTTPOptions struct {
	Headers map[string]string
	Body    string
	Timeout time.Duration
}

// HTTPResponse is the subset of a response visible to documents.
type HTTPResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// HTTPClient performs HTTP requests.
type HTTPClient interface {
	Request(ctx context.Context, method, url string, opts HTTPOptions) (HTTPResponse, error)
}

// FileReader reads files on behalf of `@file` operators.
type FileReader interface {
	Read(path string) ([]byte, error)
	Exists(path string) bool
}

// CryptoProvider encrypts, decrypts, and hashes values.
type CryptoProvider interface {
	Encrypt(plain, algorithm string) (string, error)
	Decrypt(cipher, algorithm string) (string, error)
	Hash(algorithm, value string) (string, error)
}

// Validator checks a value against a named rule kind.
type Validator interface {
	Validate(kind string, value cty.Value, rules map[string]cty.Value) (bool, error)
}

// TuningProvider suggests adaptive values for `@learn` and `@optimize`.
// Implementations must not block indefinitely; callers fall back to the
// supplied default on error or timeout.
type TuningProvider interface {
	Suggest(ctx context.Context, key string, def cty.Value, features map[string]cty.Value) (cty.Value, error)
}

// ScriptRunner executes a sandboxed script snippet. The core only defines
// this calling contract; it never runs host-language code directly.
type ScriptRunner interface {
	Run(ctx context.Context, source string, globals map[string]cty.Value) (cty.Value, error)
}

// MetricsSink records document-driven metrics.
type MetricsSink interface {
	Gauge(name string, value float64) error
	Inc(name string) error
}

// Context bundles the collaborators injected into every operator call.
type Context struct {
	Env     EnvProvider
	Clock   Clock
	Query   QueryExecutor
	HTTP    HTTPClient
	Files   FileReader
	Crypto  CryptoProvider
	Checker Validator
	Tuning  TuningProvider
	Script  ScriptRunner
	Metrics MetricsSink

	// Timeout bounds each I/O operator call. Zero disables the bound.
	Timeout time.Duration

	// BaseDir anchors relative paths in `@file` operators and cross-file
	// references.
	BaseDir string
}

// IOContext derives a context honoring the configured I/O timeout. The
// returned cancel function must always be called.
func (rc *Context) IOContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if rc.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, rc.Timeout)
}
