package muxer

import (
	"github.com/c360/streamflow/node"
	"github.com/c360/streamflow/packet"
	"github.com/c360/streamflow/pkg/channeltag"
	"github.com/c360/streamflow/pkg/deque"
	"github.com/c360/streamflow/timestamp"
)

// Mux folds the active channel's prefixed streams onto the base-tagged
// outputs.
//
// In immediate mode it relays strictly from whatever channel is active when
// a packet shows up. In synchronized mode it buffers every channel's packets
// and the selector values by timestamp, releasing a timestamp only once its
// selector is known: the selector and the data need not arrive in the same
// invocation, and relaying against a stale selector would emit from the
// wrong channel.
type Mux struct {
	cfg MuxConfig
	sel *selector

	// synchronized-mode buffers
	selQ deque.Deque[selEntry]
	buf  [][]*deque.Deque[packet.Packet] // [baseIdx][channel]
}

type selEntry struct {
	ts      timestamp.Timestamp
	channel int
}

// NewMux creates a mux with the given configuration.
func NewMux(cfg MuxConfig) (*Mux, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Mux{cfg: cfg}, nil
}

// NewMuxFromOptions builds a mux from encoded options over defaults. It is
// the registry factory for the "mux" kind.
func NewMuxFromOptions(raw []byte) (node.Interface, error) {
	cfg := DefaultMuxConfig()
	if err := node.DecodeOptions(raw, &cfg); err != nil {
		return nil, err
	}
	return NewMux(cfg)
}

// DeclarePorts declares every channel's prefixed inputs, the base output
// streams, and the control ports.
func (m *Mux) DeclarePorts(c *node.Contract) error {
	for _, base := range m.cfg.BaseTags {
		for ch := 0; ch < m.cfg.NumChannels; ch++ {
			c.Input(channeltag.Format(ch, base))
		}
		c.Output(base)
	}
	declareSelectorPorts(c)
	c.BoundOnlyUpdates = true
	return c.Err()
}

// Open resolves the control wiring and resets the synchronized buffers.
func (m *Mux) Open(ctx *node.Context) error {
	sel, err := openSelector(ctx, m.cfg.Select, m.cfg.NumChannels)
	if err != nil {
		return err
	}
	m.sel = sel

	m.selQ.Clear()
	m.buf = make([][]*deque.Deque[packet.Packet], len(m.cfg.BaseTags))
	for i := range m.buf {
		m.buf[i] = make([]*deque.Deque[packet.Packet], m.cfg.NumChannels)
		for ch := range m.buf[i] {
			m.buf[i][ch] = deque.New[packet.Packet](4)
		}
	}

	ctx.SetOffset(0)
	return nil
}

// Process folds this invocation's packets onto the base outputs.
func (m *Mux) Process(ctx *node.Context) error {
	ctl, err := m.sel.update(ctx)
	if err != nil {
		return err
	}

	// Synchronization only matters when the selector arrives on a stream;
	// side-packet and static selection never go stale.
	if !m.cfg.SynchronizeIO || m.sel.streamTag == "" {
		return m.relayImmediate(ctx)
	}

	if !ctl.IsEmpty() {
		m.selQ.PushBack(selEntry{ts: ctl.Timestamp(), channel: m.sel.active})
	}
	for i, base := range m.cfg.BaseTags {
		for ch := 0; ch < m.cfg.NumChannels; ch++ {
			in := ctx.Inputs.Get(channeltag.Format(ch, base))
			if in != nil && !in.IsEmpty() {
				m.buf[i][ch].PushBack(in.Packet())
			}
		}
	}
	return m.releaseResolved(ctx)
}

func (m *Mux) relayImmediate(ctx *node.Context) error {
	for _, base := range m.cfg.BaseTags {
		in := ctx.Inputs.Get(channeltag.Format(m.sel.active, base))
		if in == nil || in.IsEmpty() {
			continue
		}
		if err := ctx.Outputs.Get(base).AddPacket(in.Packet()); err != nil {
			return err
		}
	}
	return nil
}

// releaseResolved emits buffered timestamps in order, stopping at the first
// one whose data is not yet provably complete.
func (m *Mux) releaseResolved(ctx *node.Context) error {
	for {
		e, ok := m.selQ.Front()
		if !ok {
			return nil
		}

		// Fronts older than the oldest selector belong to timestamps whose
		// selection already passed; they can never be emitted.
		for i := range m.buf {
			for ch := range m.buf[i] {
				for {
					front, ok := m.buf[i][ch].Front()
					if !ok || !front.Timestamp().Before(e.ts) {
						break
					}
					m.buf[i][ch].PopFront()
				}
			}
		}

		resolved := true
		for i, base := range m.cfg.BaseTags {
			front, ok := m.buf[i][e.channel].Front()
			if ok && front.Timestamp() == e.ts {
				continue
			}
			in := ctx.Inputs.Get(channeltag.Format(e.channel, base))
			if in == nil || in.Bound() == timestamp.Unset || in.Bound() <= e.ts {
				// The active channel could still deliver at e.ts; resume
				// next invocation rather than emit out of order.
				resolved = false
				break
			}
		}
		if !resolved {
			return nil
		}

		for i, base := range m.cfg.BaseTags {
			out := ctx.Outputs.Get(base)
			if front, ok := m.buf[i][e.channel].Front(); ok && front.Timestamp() == e.ts {
				p, _ := m.buf[i][e.channel].PopFront()
				if err := out.AddPacket(p); err != nil {
					return err
				}
			}
			if err := out.SetNextTimestampBound(e.ts.NextAllowedInStream()); err != nil {
				return err
			}
		}
		m.selQ.PopFront()
	}
}

// Close drops any unresolved buffered packets.
func (m *Mux) Close(_ *node.Context) error {
	m.selQ.Clear()
	m.buf = nil
	return nil
}

// ActiveChannel reports the channel selected as of the latest invocation.
func (m *Mux) ActiveChannel() int {
	return m.sel.active
}
