// Package stream provides the node-facing view of named/indexed input and
// output streams.
//
// Each entry in a collection holds the current packet for this invocation
// (possibly empty), a header packet set once before processing begins, a
// monotonically non-decreasing next-timestamp bound, and a closed flag. The
// external scheduler populates input entries between invocations; nodes
// write packets and bound updates to output entries during Process.
package stream

import (
	"fmt"

	"github.com/c360/streamflow/errors"
	"github.com/c360/streamflow/packet"
	"github.com/c360/streamflow/timestamp"
)

// ID identifies one stream entry by tag and index. Data streams that carry
// no semantic tag use the empty tag with increasing indexes.
type ID struct {
	Tag   string
	Index int
}

// String renders the id in "TAG:index" form for error messages.
func (id ID) String() string {
	if id.Tag == "" {
		return fmt.Sprintf(":%d", id.Index)
	}
	return fmt.Sprintf("%s:%d", id.Tag, id.Index)
}

// Input is one input stream entry as seen during an invocation.
type Input struct {
	id     ID
	header packet.Packet
	value  packet.Packet
	last   timestamp.Timestamp
	bound  timestamp.Timestamp
	closed bool
}

// ID returns the entry's identifier.
func (in *Input) ID() ID { return in.id }

// Tag returns the entry's tag.
func (in *Input) Tag() string { return in.id.Tag }

// Header returns the header packet, empty if none was set.
func (in *Input) Header() packet.Packet { return in.header }

// Packet returns the current packet for this invocation. An empty packet
// means no value arrived on this stream this round.
func (in *Input) Packet() packet.Packet { return in.value }

// IsEmpty reports whether no packet is present this invocation.
func (in *Input) IsEmpty() bool { return in.value.IsEmpty() }

// Bound returns the entry's next-timestamp bound: no future packet on this
// stream will carry a timestamp below it.
func (in *Input) Bound() timestamp.Timestamp { return in.bound }

// Closed reports whether the upstream closed this stream.
func (in *Input) Closed() bool { return in.closed }

// SetHeader installs the header packet. Headers are set once, before the
// first Process invocation.
func (in *Input) SetHeader(p packet.Packet) {
	in.header = p
}

// SetPacket delivers a packet for the current invocation. Timestamps on a
// single stream must be strictly increasing and allowed in-stream.
func (in *Input) SetPacket(p packet.Packet) error {
	if in.closed {
		return errors.WrapFatal(errors.ErrStreamClosed, "Input", "SetPacket",
			fmt.Sprintf("delivery on %s", in.id))
	}
	ts := p.Timestamp()
	if !ts.IsAllowedInStream() {
		return errors.WrapFatal(errors.ErrTimestampInvalid, "Input", "SetPacket",
			fmt.Sprintf("timestamp %s on %s", ts, in.id))
	}
	if in.last != timestamp.Unset && ts <= in.last {
		return errors.WrapFatal(errors.ErrTimestampOrder, "Input", "SetPacket",
			fmt.Sprintf("timestamp %s after %s on %s", ts, in.last, in.id))
	}
	in.value = p
	in.last = ts
	if b := ts.NextAllowedInStream(); b > in.bound {
		in.bound = b
	}
	return nil
}

// SetBound advances the next-timestamp bound. Bounds never regress: a lower
// value than the current bound is ignored.
func (in *Input) SetBound(b timestamp.Timestamp) {
	if b > in.bound {
		in.bound = b
	}
}

// ClearPacket resets the current value between invocations.
func (in *Input) ClearPacket() {
	in.value = packet.Empty()
}

// Close marks the stream closed. A closed stream delivers no further
// packets and its bound is pinned at Done.
func (in *Input) Close() {
	in.closed = true
	in.bound = timestamp.Done
}

// Output is one output stream entry written by a node during Process.
type Output struct {
	id      ID
	header  packet.Packet
	last    timestamp.Timestamp
	bound   timestamp.Timestamp
	closed  bool
	emitted []packet.Packet
}

// ID returns the entry's identifier.
func (out *Output) ID() ID { return out.id }

// Tag returns the entry's tag.
func (out *Output) Tag() string { return out.id.Tag }

// Header returns the header packet, empty if none was set.
func (out *Output) Header() packet.Packet { return out.header }

// SetHeader installs the header packet before processing begins.
func (out *Output) SetHeader(p packet.Packet) {
	out.header = p
}

// AddPacket emits a packet downstream. Timestamps must be allowed in-stream,
// strictly increasing, and not below the already-announced bound.
func (out *Output) AddPacket(p packet.Packet) error {
	if out.closed {
		return errors.WrapFatal(errors.ErrStreamClosed, "Output", "AddPacket",
			fmt.Sprintf("emit on %s", out.id))
	}
	ts := p.Timestamp()
	if !ts.IsAllowedInStream() {
		return errors.WrapFatal(errors.ErrTimestampInvalid, "Output", "AddPacket",
			fmt.Sprintf("timestamp %s on %s", ts, out.id))
	}
	if out.last != timestamp.Unset && ts <= out.last {
		return errors.WrapFatal(errors.ErrTimestampOrder, "Output", "AddPacket",
			fmt.Sprintf("timestamp %s after %s on %s", ts, out.last, out.id))
	}
	if ts < out.bound {
		return errors.WrapFatal(errors.ErrBoundRegression, "Output", "AddPacket",
			fmt.Sprintf("timestamp %s below bound %s on %s", ts, out.bound, out.id))
	}
	out.emitted = append(out.emitted, p)
	out.last = ts
	if b := ts.NextAllowedInStream(); b > out.bound {
		out.bound = b
	}
	return nil
}

// SetNextTimestampBound announces that no future packet on this stream will
// carry a timestamp below b. Bounds never regress: lower values are ignored.
func (out *Output) SetNextTimestampBound(b timestamp.Timestamp) error {
	if out.closed {
		return errors.WrapFatal(errors.ErrStreamClosed, "Output", "SetNextTimestampBound",
			fmt.Sprintf("bound update on %s", out.id))
	}
	if b > out.bound {
		out.bound = b
	}
	return nil
}

// NextTimestampBound returns the current announced bound.
func (out *Output) NextTimestampBound() timestamp.Timestamp {
	return out.bound
}

// LastTimestamp returns the timestamp of the most recently emitted packet,
// Unset if nothing was emitted yet.
func (out *Output) LastTimestamp() timestamp.Timestamp {
	return out.last
}

// Close ends the stream. The bound is pinned at Done.
func (out *Output) Close() {
	out.closed = true
	out.bound = timestamp.Done
}

// Closed reports whether the stream was closed.
func (out *Output) Closed() bool { return out.closed }

// Emitted returns the packets emitted so far, in emission order. The
// external runtime drains these between invocations; tests inspect them.
func (out *Output) Emitted() []packet.Packet {
	return out.emitted
}

// DrainEmitted returns and clears the emitted packets.
func (out *Output) DrainEmitted() []packet.Packet {
	drained := out.emitted
	out.emitted = nil
	return drained
}
