package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// fakeClock is a manually advanced clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestGetOrComputeCachesWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := NewWithClock(NewMemoryStore(), clock.Now)

	var calls atomic.Int32
	compute := func(context.Context) (cty.Value, error) {
		calls.Add(1)
		return cty.NumberIntVal(int64(calls.Load())), nil
	}

	v1, err := c.GetOrCompute(context.Background(), "fp", time.Minute, false, compute)
	require.NoError(t, err)
	v2, err := c.GetOrCompute(context.Background(), "fp", time.Minute, false, compute)
	require.NoError(t, err)

	assert.True(t, v1.RawEquals(v2))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrComputeRecomputesAfterExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := NewWithClock(NewMemoryStore(), clock.Now)

	var calls atomic.Int32
	compute := func(context.Context) (cty.Value, error) {
		calls.Add(1)
		return cty.NumberIntVal(int64(calls.Load())), nil
	}

	_, err := c.GetOrCompute(context.Background(), "fp", time.Minute, false, compute)
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, err = c.GetOrCompute(context.Background(), "fp", time.Minute, false, compute)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "entry should still be fresh")

	clock.Advance(2 * time.Second)
	v, err := c.GetOrCompute(context.Background(), "fp", time.Minute, false, compute)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "entry should have expired")
	assert.True(t, v.RawEquals(cty.NumberIntVal(2)))
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	c := New(NewMemoryStore())

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (cty.Value, error) {
		calls.Add(1)
		<-release
		return cty.StringVal("v"), nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]cty.Value, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute(context.Background(), "fp", time.Minute, false, compute)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Let the goroutines pile onto the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent callers should share one computation")
	for _, v := range results {
		assert.True(t, v.RawEquals(cty.StringVal("v")))
	}
}

func TestDoDeduplicatesWithoutStoring(t *testing.T) {
	c := New(NewMemoryStore())

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (cty.Value, error) {
		calls.Add(1)
		<-release
		return cty.StringVal("v"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Do(context.Background(), "fp", compute)
			require.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())

	// Sequential calls compute again: Do never stores.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := c.Do(context.Background(), "fp", func(context.Context) (cty.Value, error) {
			calls.Add(1)
			return cty.StringVal("v2"), nil
		})
		require.NoError(t, err)
	}()
	<-done
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	c := New(NewMemoryStore())

	var calls atomic.Int32
	_, err := c.GetOrCompute(context.Background(), "fp", time.Minute, false, func(context.Context) (cty.Value, error) {
		calls.Add(1)
		return cty.NilVal, assert.AnError
	})
	require.Error(t, err)

	v, err := c.GetOrCompute(context.Background(), "fp", time.Minute, false, func(context.Context) (cty.Value, error) {
		calls.Add(1)
		return cty.StringVal("ok"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "failed computations must not be cached")
	assert.True(t, v.RawEquals(cty.StringVal("ok")))
}

func TestFingerprint(t *testing.T) {
	t.Run("deterministic across option order", func(t *testing.T) {
		a := Fingerprint("op", []cty.Value{cty.StringVal("x")}, map[string]cty.Value{
			"b": cty.NumberIntVal(2),
			"a": cty.NumberIntVal(1),
		})
		b := Fingerprint("op", []cty.Value{cty.StringVal("x")}, map[string]cty.Value{
			"a": cty.NumberIntVal(1),
			"b": cty.NumberIntVal(2),
		})
		assert.Equal(t, a, b)
	})

	t.Run("sensitive to name and args", func(t *testing.T) {
		base := Fingerprint("op", []cty.Value{cty.StringVal("x")}, nil)
		assert.NotEqual(t, base, Fingerprint("other", []cty.Value{cty.StringVal("x")}, nil))
		assert.NotEqual(t, base, Fingerprint("op", []cty.Value{cty.StringVal("y")}, nil))
		assert.NotEqual(t, base, Fingerprint("op", nil, nil))
	})

	t.Run("object keys are canonical", func(t *testing.T) {
		obj1 := cty.ObjectVal(map[string]cty.Value{"a": cty.NumberIntVal(1), "b": cty.NumberIntVal(2)})
		obj2 := cty.ObjectVal(map[string]cty.Value{"b": cty.NumberIntVal(2), "a": cty.NumberIntVal(1)})
		assert.Equal(t,
			Fingerprint("op", []cty.Value{obj1}, nil),
			Fingerprint("op", []cty.Value{obj2}, nil),
		)
	})
}

func TestBoltStoreVolatileEntriesStayInMemory(t *testing.T) {
	path := t.TempDir() + "/cache.db"
	store, err := OpenBoltStore(path)
	require.NoError(t, err)

	store.Put(Entry{
		Fingerprint: "secret",
		Value:       cty.StringVal("hunter2"),
		ComputedAt:  time.Now(),
		TTL:         time.Hour,
		Volatile:    true,
	})
	store.Put(Entry{
		Fingerprint: "plain",
		Value:       cty.StringVal("visible"),
		ComputedAt:  time.Now(),
		TTL:         time.Hour,
	})
	require.NoError(t, store.Close())

	// Reopen: only the non-volatile entry survives.
	store, err = OpenBoltStore(path)
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.Get("secret")
	assert.False(t, ok, "volatile entries must not be persisted")
	e, ok := store.Get("plain")
	require.True(t, ok)
	assert.True(t, e.Value.RawEquals(cty.StringVal("visible")))
}
