package muxer

import (
	"fmt"

	"github.com/c360/streamflow/errors"
)

// DemuxConfig contains demux configuration.
type DemuxConfig struct {
	// NumChannels is how many output channels the demux fans out to.
	NumChannels int `json:"num_channels" yaml:"num_channels" schema:"readonly,type:int,description:Number of output channels,min:1"`

	// BaseTags names the inbound streams routed per channel. An empty tag
	// is the untagged stream.
	BaseTags []string `json:"base_tags" yaml:"base_tags" schema:"readonly,type:array,description:Base tags of the routed streams"`

	// Select is the statically configured active channel, used when no
	// SELECT or ENABLE control is wired.
	Select int `json:"select" yaml:"select" schema:"editable,type:int,description:Default active channel,min:0"`

	// SidePacketTags names side packets relayed to every channel at open.
	SidePacketTags []string `json:"side_packet_tags,omitempty" yaml:"side_packet_tags,omitempty" schema:"readonly,type:array,description:Side packets relayed to all channels"`
}

// DefaultDemuxConfig returns a two-channel demux over the untagged stream.
func DefaultDemuxConfig() DemuxConfig {
	return DemuxConfig{
		NumChannels: 2,
		BaseTags:    []string{""},
	}
}

// Validate checks if the configuration is valid.
func (c DemuxConfig) Validate() error {
	if c.NumChannels < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "muxer", "Validate",
			fmt.Sprintf("num_channels must be >= 1, got %d", c.NumChannels))
	}
	if len(c.BaseTags) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "muxer", "Validate",
			"base_tags must name at least one stream")
	}
	if c.Select < 0 || c.Select >= c.NumChannels {
		return errors.WrapInvalid(errors.ErrChannelMismatch, "muxer", "Validate",
			fmt.Sprintf("select %d out of range for %d channels", c.Select, c.NumChannels))
	}
	return nil
}

// MuxConfig contains mux configuration.
type MuxConfig struct {
	// NumChannels is how many input channels the mux folds together.
	NumChannels int `json:"num_channels" yaml:"num_channels" schema:"readonly,type:int,description:Number of input channels,min:1"`

	// BaseTags names the outbound streams folded per channel.
	BaseTags []string `json:"base_tags" yaml:"base_tags" schema:"readonly,type:array,description:Base tags of the folded streams"`

	// Select is the statically configured active channel, used when no
	// SELECT or ENABLE control is wired.
	Select int `json:"select" yaml:"select" schema:"editable,type:int,description:Default active channel,min:0"`

	// SynchronizeIO buffers packets and selector values by timestamp and
	// releases each timestamp only once its selector is known, instead of
	// relaying immediately from whatever channel is currently active.
	SynchronizeIO bool `json:"synchronize_io" yaml:"synchronize_io" schema:"editable,type:bool,description:Release timestamps only once their selector is known"`
}

// DefaultMuxConfig returns a two-channel immediate-mode mux over the
// untagged stream.
func DefaultMuxConfig() MuxConfig {
	return MuxConfig{
		NumChannels: 2,
		BaseTags:    []string{""},
	}
}

// Validate checks if the configuration is valid.
func (c MuxConfig) Validate() error {
	if c.NumChannels < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "muxer", "Validate",
			fmt.Sprintf("num_channels must be >= 1, got %d", c.NumChannels))
	}
	if len(c.BaseTags) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "muxer", "Validate",
			"base_tags must name at least one stream")
	}
	if c.Select < 0 || c.Select >= c.NumChannels {
		return errors.WrapInvalid(errors.ErrChannelMismatch, "muxer", "Validate",
			fmt.Sprintf("select %d out of range for %d channels", c.Select, c.NumChannels))
	}
	return nil
}
