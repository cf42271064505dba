// Package cache stores operator results keyed by call fingerprint with
// TTL-based lazy expiry. Concurrent requests for the same uncached
// fingerprint collapse into a single in-flight computation.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/singleflight"
)

// Entry is one cached operator result. Entries are owned by the store; the
// evaluator never mutates them.
type Entry struct {
	Fingerprint string
	Value       cty.Value
	ComputedAt  time.Time
	TTL         time.Duration

	// Volatile marks values derived from sensitive operators. A durable
	// store must keep them in memory only.
	Volatile bool
}

// Store is the entry backend. The default is in-memory and process-local;
// durable stores are strictly opt-in.
type Store interface {
	Get(fingerprint string) (Entry, bool)
	Put(e Entry)
}

// MemoryStore is the default process-local store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Get returns the entry for fingerprint, expired or not.
func (s *MemoryStore) Get(fingerprint string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[fingerprint]
	return e, ok
}

// Put inserts or replaces the entry.
func (s *MemoryStore) Put(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Fingerprint] = e
}

// Cache coordinates reads, writes, and in-flight deduplication on top of a
// Store. Expiry is checked lazily on read; there is no background eviction.
type Cache struct {
	store  Store
	now    func() time.Time
	flight singleflight.Group
}

// New returns a cache over store using the wall clock.
func New(store Store) *Cache {
	return NewWithClock(store, time.Now)
}

// NewWithClock returns a cache with an injected clock, used by tests.
func NewWithClock(store Store, now func() time.Time) *Cache {
	return &Cache{store: store, now: now}
}

func (c *Cache) fresh(e Entry) bool {
	return c.now().Before(e.ComputedAt.Add(e.TTL))
}

// GetOrCompute returns the cached value for fingerprint if a fresh entry
// exists, otherwise invokes compute exactly once across concurrent callers
// and stores the result for ttl.
func (c *Cache) GetOrCompute(ctx context.Context, fingerprint string, ttl time.Duration, volatile bool, compute func(context.Context) (cty.Value, error)) (cty.Value, error) {
	if e, ok := c.store.Get(fingerprint); ok && c.fresh(e) {
		return e.Value, nil
	}

	v, err, _ := c.flight.Do(fingerprint, func() (any, error) {
		// A concurrent caller may have completed the computation while this
		// one was queued behind the flight.
		if e, ok := c.store.Get(fingerprint); ok && c.fresh(e) {
			return e.Value, nil
		}
		val, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.store.Put(Entry{
			Fingerprint: fingerprint,
			Value:       val,
			ComputedAt:  c.now(),
			TTL:         ttl,
			Volatile:    volatile,
		})
		return val, nil
	})
	if err != nil {
		return cty.NilVal, err
	}
	return v.(cty.Value), nil
}

// Do runs compute with single-flight semantics but without storing the
// result. Non-cacheable I/O operators use this so concurrent identical
// calls collapse to one.
func (c *Cache) Do(ctx context.Context, fingerprint string, compute func(context.Context) (cty.Value, error)) (cty.Value, error) {
	v, err, _ := c.flight.Do(fingerprint, func() (any, error) {
		return compute(ctx)
	})
	if err != nil {
		return cty.NilVal, err
	}
	return v.(cty.Value), nil
}
