// Package muxer provides the channel routing pair: a demux fanning base
// streams out to one of N prefixed channels, and a mux folding the active
// channel's prefixed streams back onto the base tags.
//
// Channels follow the "C<N>__<BASE>" tag convention from pkg/channeltag. The
// active channel comes from a SELECT or ENABLE control stream, a side packet
// of the same tags, or static configuration, in that order of precedence.
package muxer

import (
	"github.com/c360/streamflow/errors"
	"github.com/c360/streamflow/node"
	"github.com/c360/streamflow/pkg/channeltag"
)

// Demux routes every base stream's packet to the active channel's prefixed
// output. Non-active channel outputs stay live through bound-only updates,
// so downstream nodes never stall waiting on a channel that is simply not
// selected.
type Demux struct {
	cfg DemuxConfig
	sel *selector
}

// NewDemux creates a demux with the given configuration.
func NewDemux(cfg DemuxConfig) (*Demux, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Demux{cfg: cfg}, nil
}

// NewDemuxFromOptions builds a demux from encoded options over defaults. It
// is the registry factory for the "demux" kind.
func NewDemuxFromOptions(raw []byte) (node.Interface, error) {
	cfg := DefaultDemuxConfig()
	if err := node.DecodeOptions(raw, &cfg); err != nil {
		return nil, err
	}
	return NewDemux(cfg)
}

// DeclarePorts declares the base input streams, every channel's prefixed
// outputs, the control ports, and the relayed side packets.
func (d *Demux) DeclarePorts(c *node.Contract) error {
	for _, base := range d.cfg.BaseTags {
		c.Input(base)
		for ch := 0; ch < d.cfg.NumChannels; ch++ {
			c.Output(channeltag.Format(ch, base))
		}
	}
	declareSelectorPorts(c)
	for _, tag := range d.cfg.SidePacketTags {
		c.SidePacket(tag).SetOptional()
	}
	c.BoundOnlyUpdates = true
	return c.Err()
}

// Open resolves the control wiring and relays side packets to every
// channel's prefixed slot. A side packet holds one value for the whole run,
// so each channel must see it regardless of selection.
func (d *Demux) Open(ctx *node.Context) error {
	sel, err := openSelector(ctx, d.cfg.Select, d.cfg.NumChannels)
	if err != nil {
		return err
	}
	d.sel = sel

	for _, tag := range d.cfg.SidePacketTags {
		sp := ctx.SidePacket(tag)
		if sp.IsEmpty() {
			continue
		}
		for ch := 0; ch < d.cfg.NumChannels; ch++ {
			ctx.SetSidePacket(channeltag.Format(ch, tag), sp)
		}
	}

	ctx.SetOffset(0)
	return nil
}

// Process routes this invocation's packets to the active channel and
// advances every other channel's bound past them.
func (d *Demux) Process(ctx *node.Context) error {
	if _, err := d.sel.update(ctx); err != nil {
		return err
	}

	for _, base := range d.cfg.BaseTags {
		in := ctx.Inputs.Get(base)
		if in == nil || in.IsEmpty() {
			continue
		}
		p := in.Packet()
		for ch := 0; ch < d.cfg.NumChannels; ch++ {
			out := ctx.Outputs.Get(channeltag.Format(ch, base))
			if out == nil {
				return errors.WrapInvalid(errors.ErrUnknownTag, "Demux", "Process",
					channeltag.Format(ch, base))
			}
			if ch == d.sel.active {
				if err := out.AddPacket(p); err != nil {
					return err
				}
				continue
			}
			if err := out.SetNextTimestampBound(p.Timestamp().NextAllowedInStream()); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close is a no-op; the demux holds no buffered state.
func (d *Demux) Close(_ *node.Context) error {
	return nil
}

// ActiveChannel reports the channel selected as of the latest invocation.
func (d *Demux) ActiveChannel() int {
	return d.sel.active
}
