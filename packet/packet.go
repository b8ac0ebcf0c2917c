// Package packet provides the immutable, timestamped unit of data flowing
// along streams between nodes.
//
// A Packet wraps one type-erased value plus a timestamp. Ownership is either
// exclusive (the single holder may move the value out via a one-time Consume)
// or shared (claimed by more than one holder; the value is immutable and
// Consume is unavailable). Sharing is tracked with a reference count on the
// underlying holder; garbage collection takes care of the value's lifetime,
// the count only enforces the exclusivity contract.
package packet

import (
	"fmt"
	"sync/atomic"

	"github.com/c360/streamflow/errors"
	"github.com/c360/streamflow/timestamp"
)

// holder is the shared payload cell behind one or more Packet values.
type holder struct {
	value    any
	refs     atomic.Int32
	consumed atomic.Bool
}

// Packet is an immutable value plus a timestamp. The zero Packet is empty
// with an Unset timestamp.
type Packet struct {
	h  *holder
	ts timestamp.Timestamp
}

// New creates an exclusively owned packet with an Unset timestamp.
func New(value any) Packet {
	h := &holder{value: value}
	h.refs.Store(1)
	return Packet{h: h, ts: timestamp.Unset}
}

// NewAt creates an exclusively owned packet carrying ts.
func NewAt(value any, ts timestamp.Timestamp) Packet {
	p := New(value)
	p.ts = ts
	return p
}

// Empty returns an empty packet. Empty packets mark "no value at this
// invocation" on a stream entry.
func Empty() Packet {
	return Packet{ts: timestamp.Unset}
}

// At returns the same payload claim rebound to a new timestamp. The
// receiver's ownership claim transfers to the returned packet; callers
// forwarding p.At(ts) downstream must not keep using p.
func (p Packet) At(ts timestamp.Timestamp) Packet {
	return Packet{h: p.h, ts: ts}
}

// Timestamp returns the packet's timestamp.
func (p Packet) Timestamp() timestamp.Timestamp {
	return p.ts
}

// IsEmpty reports whether the packet carries no value. A consumed packet is
// empty: its value has been moved out.
func (p Packet) IsEmpty() bool {
	return p.h == nil || p.h.consumed.Load()
}

// Value returns the payload without transferring ownership, or nil for an
// empty packet.
func (p Packet) Value() any {
	if p.IsEmpty() {
		return nil
	}
	return p.h.value
}

// Share registers an additional holder of the payload and returns the new
// holder's packet. Once shared, the payload is immutable and Consume fails
// on every copy until claims are released back to one.
func (p Packet) Share() Packet {
	if p.h != nil {
		p.h.refs.Add(1)
	}
	return p
}

// Release drops this holder's claim. A holder that is done with its copy may
// release so a remaining single holder regains the right to Consume.
func (p Packet) Release() {
	if p.h != nil {
		p.h.refs.Add(-1)
	}
}

// IsShared reports whether more than one holder currently claims the payload.
func (p Packet) IsShared() bool {
	return p.h != nil && p.h.refs.Load() > 1
}

// As borrows the payload as type T without consuming it.
func As[T any](p Packet) (T, error) {
	var zero T
	if p.IsEmpty() {
		return zero, errors.WrapInvalid(errors.ErrPacketEmpty, "Packet", "As", "payload access")
	}
	v, ok := p.h.value.(T)
	if !ok {
		return zero, errors.WrapInvalid(
			fmt.Errorf("%w: have %T", errors.ErrTypeMismatch, p.h.value),
			"Packet", "As", "payload type assertion")
	}
	return v, nil
}

// Consume moves the payload out of the packet. It is a one-time operation:
// it fails if the packet is empty, shared, or was already consumed. After a
// successful Consume the packet (and every copy of it) is empty.
func Consume[T any](p Packet) (T, error) {
	var zero T
	if p.h == nil {
		return zero, errors.WrapInvalid(errors.ErrPacketEmpty, "Packet", "Consume", "ownership transfer")
	}
	if p.h.refs.Load() > 1 {
		return zero, errors.WrapInvalid(errors.ErrPacketShared, "Packet", "Consume", "ownership transfer")
	}
	// CompareAndSwap makes the move one-time even under racing copies.
	if !p.h.consumed.CompareAndSwap(false, true) {
		return zero, errors.WrapInvalid(errors.ErrPacketConsumed, "Packet", "Consume", "ownership transfer")
	}
	v, ok := p.h.value.(T)
	if !ok {
		p.h.consumed.Store(false)
		return zero, errors.WrapInvalid(
			fmt.Errorf("%w: have %T", errors.ErrTypeMismatch, p.h.value),
			"Packet", "Consume", "payload type assertion")
	}
	p.h.value = nil
	return v, nil
}

// Bool borrows the payload as a boolean. Convenience for control packets.
func (p Packet) Bool() (bool, error) {
	return As[bool](p)
}

// Int borrows the payload as an int. Convenience for selector packets.
func (p Packet) Int() (int, error) {
	return As[int](p)
}

// String renders the packet for logs and test failures.
func (p Packet) String() string {
	if p.IsEmpty() {
		return fmt.Sprintf("Packet{empty @%s}", p.ts)
	}
	return fmt.Sprintf("Packet{%T @%s}", p.h.value, p.ts)
}
