package limiter

import (
	"sort"

	"github.com/c360/streamflow/timestamp"
)

// allowMap records the allow/disallow decision per released or dropped
// timestamp as a sparse step function over the timestamp domain: the
// decision for t is the entry with the greatest timestamp <= t. It replays
// decisions for auxiliary-stream packets that arrive after the primary
// packet at the same timestamp was already processed.
type allowMap struct {
	entries []allowEntry
}

type allowEntry struct {
	ts    timestamp.Timestamp
	allow bool
}

// set records the decision at ts. Timestamps are recorded in increasing
// order by the limiter, so appending keeps the entries sorted.
func (m *allowMap) set(ts timestamp.Timestamp, allow bool) {
	if n := len(m.entries); n > 0 && m.entries[n-1].ts == ts {
		m.entries[n-1].allow = allow
		return
	}
	m.entries = append(m.entries, allowEntry{ts: ts, allow: allow})
}

// at returns the decision covering ts. Undecided timestamps disallow.
func (m *allowMap) at(ts timestamp.Timestamp) bool {
	i := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].ts > ts
	})
	if i == 0 {
		return false
	}
	return m.entries[i-1].allow
}

// prune discards entries for ranges entirely before keep, retaining the one
// entry whose range still covers keep.
func (m *allowMap) prune(keep timestamp.Timestamp) {
	i := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].ts > keep
	})
	// entries[i-1] covers keep; everything before it is dead
	if i > 1 {
		m.entries = append(m.entries[:0], m.entries[i-1:]...)
	}
}

// len returns the number of live entries.
func (m *allowMap) len() int {
	return len(m.entries)
}
