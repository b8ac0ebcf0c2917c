// Package timestamp provides the totally ordered logical time domain used to
// correlate packets that belong together across independent streams.
//
// A Timestamp is a 64-bit signed ordinal plus named sentinels outside the
// regular range:
//
//   - Unset: no value was ever assigned
//   - PreStream: logically before the first stream value (headers, priming)
//   - Min / Max: the bounds of the regular value range
//   - PostStream: logically after the last stream value (final flushes)
//   - Done: the stream is closed; no value below it will ever arrive
//
// Ordering is total: Unset < PreStream < Min <= regular values <= Max <
// PostStream < Done.
//
// Invariant: timestamps delivered on any single stream are strictly
// increasing. A bound announcement on a stream asserts that no future value
// on that stream will be less than the bound.
//
// Usage:
//
//	ts := timestamp.FromInt64(42)
//	next := ts.NextAllowedInStream() // 43
//	if ts.IsRangeValue() { ... }
package timestamp

import (
	"fmt"
	"math"
)

// Timestamp is a point in the logical time domain.
type Timestamp int64

// Sentinel values. The regular value range is [Min, Max]; everything outside
// it is a special value with reserved meaning.
const (
	// Unset means no timestamp was ever assigned.
	Unset Timestamp = math.MinInt64
	// PreStream is logically before the first regular stream value.
	PreStream Timestamp = math.MinInt64 + 1
	// Min is the smallest regular timestamp.
	Min Timestamp = math.MinInt64 + 2
	// Max is the largest regular timestamp.
	Max Timestamp = math.MaxInt64 - 2
	// PostStream is logically after the last regular stream value.
	PostStream Timestamp = math.MaxInt64 - 1
	// Done announces stream closure: no more values will arrive below it.
	Done Timestamp = math.MaxInt64
)

// FromInt64 converts a plain ordinal into a Timestamp. Values outside the
// regular range are clamped to Min/Max so arithmetic on caller-provided
// ordinals can never produce an accidental sentinel.
func FromInt64(v int64) Timestamp {
	t := Timestamp(v)
	if t < Min {
		return Min
	}
	if t > Max {
		return Max
	}
	return t
}

// Value returns the underlying ordinal.
func (t Timestamp) Value() int64 {
	return int64(t)
}

// IsSpecial reports whether t is one of the reserved sentinels.
func (t Timestamp) IsSpecial() bool {
	return !t.IsRangeValue()
}

// IsRangeValue reports whether t lies in the regular range [Min, Max].
func (t Timestamp) IsRangeValue() bool {
	return t >= Min && t <= Max
}

// IsAllowedInStream reports whether a packet may carry t on a stream.
// Regular values, PreStream and PostStream are allowed; Unset, Min-adjacent
// sentinels and Done are not packet timestamps.
func (t Timestamp) IsAllowedInStream() bool {
	return t.IsRangeValue() || t == PreStream || t == PostStream
}

// NextAllowedInStream returns the smallest timestamp strictly greater than t
// that a stream may still carry. It is used to construct bound updates that
// do not claim a specific value was skipped.
//
// PreStream occurs alone on a stream, so its successor is Min. Anything at or
// beyond Max has no regular successor; the stream is done.
func (t Timestamp) NextAllowedInStream() Timestamp {
	switch {
	case t == PreStream:
		return Min
	case t >= Max:
		return Done
	default:
		return t + 1
	}
}

// Add returns t shifted by delta ordinals, saturating at the regular range
// bounds. Special values are returned unchanged: shifting "after everything"
// is still after everything.
func (t Timestamp) Add(delta int64) Timestamp {
	if t.IsSpecial() {
		return t
	}
	d := Timestamp(delta)
	if d >= 0 && t > Max-d {
		return Max
	}
	if d < 0 && t < Min-d {
		return Min
	}
	return t + d
}

// Diff returns the ordinal distance t - o. Both timestamps must be regular
// range values; sentinel distances are meaningless.
func (t Timestamp) Diff(o Timestamp) int64 {
	return int64(t) - int64(o)
}

// Before reports whether t orders strictly before o.
func (t Timestamp) Before(o Timestamp) bool {
	return t < o
}

// After reports whether t orders strictly after o.
func (t Timestamp) After(o Timestamp) bool {
	return t > o
}

// String names the sentinels and prints regular values as plain integers.
func (t Timestamp) String() string {
	switch t {
	case Unset:
		return "Unset"
	case PreStream:
		return "PreStream"
	case Min:
		return "Min"
	case Max:
		return "Max"
	case PostStream:
		return "PostStream"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("%d", int64(t))
	}
}
