// Package registry provides the central "glue" for the operator system.
//
// The Registry stores mappings between the operator names used in documents
// (e.g., "env", "date.now", "validate.email") and the compiled Go
// implementations behind them, together with their effect metadata: whether
// a call is cacheable, its default TTL, whether its result is sensitive,
// and whether it performs I/O.
//
// Operator implementations receive their external collaborators (environment,
// clock, query executor, HTTP client, and so on) through a Context assembled
// by the engine. The core never constructs collaborators itself.
package registry
