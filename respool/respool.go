// Package respool provides a generic keyed resource cache with
// request-count eviction.
//
// Entries are held in a list sorted by how often they were requested, most
// requested first. Eviction trims from the tail and periodically halves
// every entry's count, so resources that stopped being requested decay out
// instead of being pinned by a stale high-water count.
package respool

import (
	"context"
	"fmt"
	"sync"

	"github.com/c360/streamflow/errors"
	"github.com/c360/streamflow/pkg/retry"
)

// CreateFunc builds the resource for a key. requestCount is how many times
// the key has been looked up, including the current call. A transient
// "not ready" error leaves the entry unset; a later lookup retries the
// build with the accrued count.
type CreateFunc[K comparable, V any] func(key K, requestCount int64) (V, error)

// Statistics tracks pool activity.
type Statistics struct {
	Hits      int64
	Misses    int64
	NotReady  int64
	Evictions int64
	Scrubs    int64
}

const nilIndex = -1

type slot[K comparable, V any] struct {
	key          K
	value        V
	set          bool
	requestCount int64
	prev, next   int
}

// Pool is a keyed resource cache. All operations take an exclusive lock;
// create functions run under it, so a slow build briefly serializes other
// lookups rather than racing a duplicate build for the same key.
type Pool[K comparable, V any] struct {
	mu    sync.Mutex
	slots []slot[K, V]
	free  []int
	index map[K]int
	head  int
	tail  int

	lookups int64 // since the last scrub
	stats   Statistics
	opts    *poolOptions[K, V]
}

// New creates an empty pool.
func New[K comparable, V any](options ...Option[K, V]) *Pool[K, V] {
	p := &Pool[K, V]{
		index: make(map[K]int),
		head:  nilIndex,
		tail:  nilIndex,
		opts:  &poolOptions[K, V]{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(p.opts)
		}
	}
	return p
}

// Lookup returns the resource for key, building it through create on a miss
// or when a previous build left the entry unset.
func (p *Pool[K, V]) Lookup(key K, create CreateFunc[K, V]) (V, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lookups++

	if i, ok := p.index[key]; ok {
		s := &p.slots[i]
		s.requestCount++
		p.bubbleUp(i)
		if !s.set {
			v, err := p.runCreate(key, s.requestCount, create)
			if err != nil {
				p.noteNotReady()
				var zero V
				return zero, err
			}
			s.value, s.set = v, true
		}
		p.stats.Hits++
		p.recordLookup("hit")
		return s.value, nil
	}

	p.stats.Misses++

	i := p.insertTail(key)
	v, err := p.runCreate(key, 1, create)
	if err != nil {
		if errors.IsTransient(err) {
			// Entry stays, unset, so the request count accrues across
			// retries.
			p.noteNotReady()
		} else {
			p.removeSlot(i)
		}
		var zero V
		return zero, err
	}
	p.slots[i].value, p.slots[i].set = v, true
	p.recordLookup("miss")
	return v, nil
}

// Evict trims the pool to maxCount entries, least requested first, and runs
// a count-halving scrub once scrubInterval lookups have accumulated. The
// removed resources are returned for disposal.
func (p *Pool[K, V]) Evict(maxCount int, scrubInterval int64) []V {
	p.mu.Lock()
	defer p.mu.Unlock()

	var evicted []V
	for len(p.index) > maxCount && p.tail != nilIndex {
		evicted = p.evictSlot(p.tail, evicted)
	}

	if scrubInterval > 0 && p.lookups >= scrubInterval {
		p.lookups = 0
		p.stats.Scrubs++
		// Halving preserves the sort order, so a single tail-to-head walk
		// suffices.
		i := p.tail
		for i != nilIndex {
			prev := p.slots[i].prev
			p.slots[i].requestCount /= 2
			if p.slots[i].requestCount == 0 {
				evicted = p.evictSlot(i, evicted)
			}
			i = prev
		}
	}
	return evicted
}

// Len returns the number of live entries, set or not.
func (p *Pool[K, V]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.index)
}

// Statistics returns a snapshot of pool activity counters.
func (p *Pool[K, V]) Statistics() Statistics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// RequestCount reports the accrued request count for key, zero when absent.
func (p *Pool[K, V]) RequestCount(key K) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i, ok := p.index[key]; ok {
		return p.slots[i].requestCount
	}
	return 0
}

func (p *Pool[K, V]) runCreate(key K, count int64, create CreateFunc[K, V]) (V, error) {
	if p.opts.retryCfg == nil {
		return create(key, count)
	}
	return retry.DoWithResult(context.Background(), *p.opts.retryCfg, func() (V, error) {
		v, err := create(key, count)
		if err != nil && !errors.IsTransient(err) {
			return v, retry.NonRetryable(err)
		}
		return v, err
	})
}

func (p *Pool[K, V]) noteNotReady() {
	p.stats.NotReady++
	p.recordLookup("not_ready")
}

// insertTail allocates a slot for key with request count 1 and links it at
// the tail. New entries never outrank existing ones, so no bubbling is
// needed.
func (p *Pool[K, V]) insertTail(key K) int {
	var i int
	if n := len(p.free); n > 0 {
		i = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		p.slots = append(p.slots, slot[K, V]{})
		i = len(p.slots) - 1
	}

	var zero V
	p.slots[i] = slot[K, V]{
		key:          key,
		value:        zero,
		requestCount: 1,
		prev:         p.tail,
		next:         nilIndex,
	}
	if p.tail != nilIndex {
		p.slots[p.tail].next = i
	} else {
		p.head = i
	}
	p.tail = i
	p.index[key] = i
	return i
}

// bubbleUp restores the descending count order after slot i's count grew by
// one. The list is otherwise sorted, so it only walks past equal-count
// neighbors.
func (p *Pool[K, V]) bubbleUp(i int) {
	target := p.slots[i].prev
	for target != nilIndex && p.slots[target].requestCount < p.slots[i].requestCount {
		target = p.slots[target].prev
	}
	if target == p.slots[i].prev {
		return
	}
	p.unlink(i)
	if target == nilIndex {
		// new head
		p.slots[i].prev = nilIndex
		p.slots[i].next = p.head
		p.slots[p.head].prev = i
		p.head = i
		return
	}
	next := p.slots[target].next
	p.slots[i].prev = target
	p.slots[i].next = next
	p.slots[target].next = i
	if next != nilIndex {
		p.slots[next].prev = i
	} else {
		p.tail = i
	}
}

func (p *Pool[K, V]) unlink(i int) {
	s := &p.slots[i]
	if s.prev != nilIndex {
		p.slots[s.prev].next = s.next
	} else {
		p.head = s.next
	}
	if s.next != nilIndex {
		p.slots[s.next].prev = s.prev
	} else {
		p.tail = s.prev
	}
	s.prev, s.next = nilIndex, nilIndex
}

func (p *Pool[K, V]) removeSlot(i int) {
	p.unlink(i)
	delete(p.index, p.slots[i].key)
	p.slots[i] = slot[K, V]{prev: nilIndex, next: nilIndex}
	p.free = append(p.free, i)
}

func (p *Pool[K, V]) evictSlot(i int, evicted []V) []V {
	s := p.slots[i]
	p.removeSlot(i)
	p.stats.Evictions++
	if p.opts.metricsReg != nil {
		p.opts.metricsReg.Core.PoolEvictions.WithLabelValues(p.opts.metricsName).Inc()
	}
	if s.set {
		if p.opts.onEvict != nil {
			p.opts.onEvict(s.key, s.value)
		}
		evicted = append(evicted, s.value)
	}
	return evicted
}

func (p *Pool[K, V]) recordLookup(result string) {
	if p.opts.metricsReg != nil {
		p.opts.metricsReg.Core.PoolLookups.WithLabelValues(p.opts.metricsName, result).Inc()
	}
}

// String summarizes the pool for logs.
func (p *Pool[K, V]) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("respool(%d entries, %d hits, %d misses)",
		len(p.index), p.stats.Hits, p.stats.Misses)
}
