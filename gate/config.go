package gate

import (
	"github.com/c360/streamflow/errors"
)

// Config contains gate configuration.
type Config struct {
	// EmptyPacketsAsAllow is the decision an empty control-stream packet
	// resolves to.
	EmptyPacketsAsAllow bool `json:"empty_packets_as_allow" yaml:"empty_packets_as_allow" schema:"editable,type:bool,description:Decision when the control stream delivers an empty packet"`

	// SideInputHasPrecedence names the winning source when both a control
	// stream and a control side packet are wired. Left unset, wiring both
	// is a configuration fault.
	SideInputHasPrecedence *bool `json:"side_input_has_precedence,omitempty" yaml:"side_input_has_precedence,omitempty" schema:"editable,type:bool,description:Which control source wins when both are wired"`

	// NumDataStreams is how many pass-through data streams the gate carries.
	NumDataStreams int `json:"num_data_streams" yaml:"num_data_streams" schema:"readonly,type:int,description:Number of gated data streams,min:1"`
}

// DefaultConfig returns the default gate configuration.
func DefaultConfig() Config {
	return Config{
		EmptyPacketsAsAllow: true,
		NumDataStreams:      1,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.NumDataStreams < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "gate", "Validate",
			"num_data_streams must be >= 1")
	}
	return nil
}
