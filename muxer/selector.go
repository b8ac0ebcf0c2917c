package muxer

import (
	"fmt"

	"github.com/c360/streamflow/errors"
	"github.com/c360/streamflow/node"
	"github.com/c360/streamflow/packet"
)

// Control tags shared by the demux and mux nodes.
const (
	// TagSelect carries the active channel number directly.
	TagSelect = "SELECT"
	// TagEnable is the two-channel spelling: false selects channel 0,
	// true selects channel 1.
	TagEnable = "ENABLE"
)

// selector resolves the active channel from the wired control sources:
// a control stream overrides a control side packet, which overrides the
// static configuration. Side packets and configuration fix the channel for
// the whole run; a control stream re-resolves it on every invocation it
// delivers on.
type selector struct {
	active      int
	numChannels int

	streamTag    string // empty when no control stream is wired
	streamEnable bool
}

func declareSelectorPorts(c *node.Contract) {
	c.Input(TagSelect).SetType("int").SetOptional()
	c.Input(TagEnable).SetType("bool").SetOptional()
	c.SidePacket(TagSelect).SetType("int").SetOptional()
	c.SidePacket(TagEnable).SetType("bool").SetOptional()
}

func openSelector(ctx *node.Context, staticChannel, numChannels int) (*selector, error) {
	s := &selector{active: staticChannel, numChannels: numChannels}

	selectWired := ctx.Inputs.Get(TagSelect) != nil
	enableWired := ctx.Inputs.Get(TagEnable) != nil
	if selectWired && enableWired {
		return nil, errors.WrapInvalid(errors.ErrConflictingControls, "muxer", "Open",
			"both SELECT and ENABLE control streams wired")
	}

	sideSelect := ctx.SidePacket(TagSelect)
	sideEnable := ctx.SidePacket(TagEnable)
	if !sideSelect.IsEmpty() && !sideEnable.IsEmpty() {
		return nil, errors.WrapInvalid(errors.ErrConflictingControls, "muxer", "Open",
			"both SELECT and ENABLE control side packets wired")
	}

	if (enableWired || !sideEnable.IsEmpty()) && numChannels != 2 {
		return nil, errors.WrapInvalid(errors.ErrChannelMismatch, "muxer", "Open",
			fmt.Sprintf("ENABLE control requires 2 channels, got %d", numChannels))
	}

	switch {
	case !sideSelect.IsEmpty():
		v, err := sideSelect.Int()
		if err != nil {
			return nil, errors.WrapInvalid(err, "muxer", "Open", "SELECT side packet")
		}
		s.active = v
	case !sideEnable.IsEmpty():
		v, err := sideEnable.Bool()
		if err != nil {
			return nil, errors.WrapInvalid(err, "muxer", "Open", "ENABLE side packet")
		}
		s.active = enableChannel(v)
	}
	if s.active < 0 || s.active >= numChannels {
		return nil, errors.WrapInvalid(errors.ErrChannelMismatch, "muxer", "Open",
			fmt.Sprintf("channel %d out of range for %d channels", s.active, numChannels))
	}

	if selectWired {
		s.streamTag = TagSelect
	} else if enableWired {
		s.streamTag, s.streamEnable = TagEnable, true
	}
	return s, nil
}

// update re-resolves the active channel from the control stream when it
// delivered this invocation. The control packet, if any, is returned so
// synchronized consumers can key it by timestamp.
func (s *selector) update(ctx *node.Context) (packet.Packet, error) {
	if s.streamTag == "" {
		return packet.Packet{}, nil
	}
	ctl := ctx.Inputs.Get(s.streamTag)
	if ctl.IsEmpty() {
		return packet.Packet{}, nil
	}

	p := ctl.Packet()
	ch, err := s.channelOf(p)
	if err != nil {
		return packet.Packet{}, err
	}
	s.active = ch
	return p, nil
}

func (s *selector) channelOf(p packet.Packet) (int, error) {
	var ch int
	if s.streamEnable {
		v, err := p.Bool()
		if err != nil {
			return 0, errors.WrapInvalid(err, "muxer", "Process",
				fmt.Sprintf("ENABLE packet at %s", p.Timestamp()))
		}
		ch = enableChannel(v)
	} else {
		v, err := p.Int()
		if err != nil {
			return 0, errors.WrapInvalid(err, "muxer", "Process",
				fmt.Sprintf("SELECT packet at %s", p.Timestamp()))
		}
		ch = v
	}
	if ch < 0 || ch >= s.numChannels {
		return 0, errors.WrapInvalid(errors.ErrChannelMismatch, "muxer", "Process",
			fmt.Sprintf("channel %d out of range for %d channels at %s",
				ch, s.numChannels, p.Timestamp()))
	}
	return ch, nil
}

func enableChannel(enabled bool) int {
	if enabled {
		return 1
	}
	return 0
}
