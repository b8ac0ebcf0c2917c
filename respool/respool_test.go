package respool

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamflow/errors"
	"github.com/c360/streamflow/pkg/retry"
)

// building tracks create invocations per key.
type building struct {
	calls map[string]int
}

func newBuilding() *building {
	return &building{calls: map[string]int{}}
}

func (b *building) create(key string, _ int64) (string, error) {
	b.calls[key]++
	return "res-" + key, nil
}

func TestPoolLookupCreatesOncePerKey(t *testing.T) {
	p := New[string, string]()
	b := newBuilding()

	v, err := p.Lookup("a", b.create)
	require.NoError(t, err)
	assert.Equal(t, "res-a", v)

	v, err = p.Lookup("a", b.create)
	require.NoError(t, err)
	assert.Equal(t, "res-a", v)
	assert.Equal(t, 1, b.calls["a"])
	assert.Equal(t, int64(2), p.RequestCount("a"))

	stats := p.Statistics()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestPoolEvictTrimsLeastRequested(t *testing.T) {
	p := New[string, string]()
	b := newBuilding()

	for _, key := range []string{"a", "b", "c"} {
		_, err := p.Lookup(key, b.create)
		require.NoError(t, err)
	}
	// "a" earns a higher count
	_, err := p.Lookup("a", b.create)
	require.NoError(t, err)
	_, err = p.Lookup("a", b.create)
	require.NoError(t, err)

	evicted := p.Evict(2, 0)
	require.Len(t, evicted, 1)
	assert.Equal(t, "res-c", evicted[0])
	assert.Equal(t, 2, p.Len())
}

func TestPoolEvictScenario(t *testing.T) {
	p := New[string, string]()
	b := newBuilding()

	for _, key := range []string{"a", "b", "c"} {
		_, err := p.Lookup(key, b.create)
		require.NoError(t, err)
	}

	evicted := p.Evict(2, 1000)
	require.Len(t, evicted, 1)
	assert.Equal(t, 2, p.Len())

	// The survivors come back without a rebuild
	for _, key := range []string{"a", "b"} {
		v, err := p.Lookup(key, b.create)
		require.NoError(t, err)
		assert.Equal(t, "res-"+key, v)
		assert.Equal(t, 1, b.calls[key])
	}
}

func TestPoolScrubDecaysCounts(t *testing.T) {
	p := New[string, string]()
	b := newBuilding()

	_, err := p.Lookup("hot", b.create)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = p.Lookup("hot", b.create)
		require.NoError(t, err)
	}
	_, err = p.Lookup("cold", b.create)
	require.NoError(t, err)

	// 5 lookups so far: the scrub halves hot 4->2 and evicts cold 1->0
	evicted := p.Evict(10, 5)
	require.Len(t, evicted, 1)
	assert.Equal(t, "res-cold", evicted[0])
	assert.Equal(t, int64(2), p.RequestCount("hot"))

	// Without further lookups the next scrub interval is not reached
	assert.Empty(t, p.Evict(10, 5))
	assert.Equal(t, int64(2), p.RequestCount("hot"))
}

func TestPoolScrubEventuallyEvictsIdleEntries(t *testing.T) {
	p := New[string, string]()
	b := newBuilding()

	for i := 0; i < 8; i++ {
		_, err := p.Lookup("idle", b.create)
		require.NoError(t, err)
	}

	// Counts only ever shrink once the key stops being requested
	last := p.RequestCount("idle")
	for p.Len() > 0 {
		_, err := p.Lookup("other", b.create)
		require.NoError(t, err)
		p.Evict(10, 1)
		if p.Len() > 1 {
			cur := p.RequestCount("idle")
			assert.LessOrEqual(t, cur, last)
			last = cur
		}
		if b.calls["other"] > 0 && p.RequestCount("idle") == 0 {
			break
		}
	}
	assert.Zero(t, p.RequestCount("idle"))
}

func TestPoolNotReadyLeavesEntryUnset(t *testing.T) {
	p := New[string, string]()

	notReady := func(key string, _ int64) (string, error) {
		return "", errors.WrapTransient(errors.ErrResourceNotReady, "loader", "create", key)
	}

	_, err := p.Lookup("a", notReady)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrResourceNotReady)
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, int64(1), p.RequestCount("a"))

	// The retry accrues the request count and succeeds
	b := newBuilding()
	v, err := p.Lookup("a", b.create)
	require.NoError(t, err)
	assert.Equal(t, "res-a", v)
	assert.Equal(t, int64(2), p.RequestCount("a"))
	assert.Equal(t, int64(1), p.Statistics().NotReady)
}

func TestPoolInvalidCreateRemovesEntry(t *testing.T) {
	p := New[string, string]()

	_, err := p.Lookup("bad", func(string, int64) (string, error) {
		return "", errors.WrapInvalid(errors.ErrInvalidConfig, "loader", "create", "bad spec")
	})
	require.Error(t, err)
	assert.Equal(t, 0, p.Len())
}

func TestPoolCreateRetry(t *testing.T) {
	cfg := retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
	}
	p := New[string, string](WithCreateRetry[string, string](cfg))

	attempts := 0
	flaky := func(key string, _ int64) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.WrapTransient(errors.ErrResourceNotReady, "loader", "create", key)
		}
		return "res-" + key, nil
	}

	v, err := p.Lookup("a", flaky)
	require.NoError(t, err)
	assert.Equal(t, "res-a", v)
	assert.Equal(t, 3, attempts)
}

func TestPoolCreateRetryPolicy(t *testing.T) {
	policy := errors.RetryConfig{
		MaxRetries:    2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1.0,
	}
	p := New[string, string](WithCreateRetryPolicy[string, string](policy))

	attempts := 0
	flaky := func(key string, _ int64) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.WrapTransient(errors.ErrResourceNotReady, "loader", "create", key)
		}
		return "res-" + key, nil
	}

	// MaxRetries counts additional attempts beyond the first
	v, err := p.Lookup("a", flaky)
	require.NoError(t, err)
	assert.Equal(t, "res-a", v)
	assert.Equal(t, 3, attempts)
}

func TestPoolCreateRetryStopsOnInvalid(t *testing.T) {
	p := New[string, string](WithCreateRetry[string, string](retry.Config{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
	}))

	attempts := 0
	_, err := p.Lookup("bad", func(string, int64) (string, error) {
		attempts++
		return "", errors.WrapInvalid(errors.ErrInvalidConfig, "loader", "create", "bad spec")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestPoolEvictionCallback(t *testing.T) {
	var disposed []string
	p := New[string, string](WithEvictionCallback[string, string](func(key, value string) {
		disposed = append(disposed, fmt.Sprintf("%s=%s", key, value))
	}))
	b := newBuilding()

	for _, key := range []string{"a", "b", "c"} {
		_, err := p.Lookup(key, b.create)
		require.NoError(t, err)
	}

	evicted := p.Evict(1, 0)
	assert.Len(t, evicted, 2)
	assert.Equal(t, []string{"c=res-c", "b=res-b"}, disposed)
	assert.Equal(t, int64(2), p.Statistics().Evictions)
}
