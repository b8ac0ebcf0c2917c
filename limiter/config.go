package limiter

import (
	"fmt"

	"github.com/c360/streamflow/errors"
)

// Config contains flow limiter configuration.
type Config struct {
	// MaxInFlight bounds how many released timestamps may be unfinished at
	// once. Overridable per run through the MAX_IN_FLIGHT side packet.
	MaxInFlight int `json:"max_in_flight" yaml:"max_in_flight" schema:"editable,type:int,description:Maximum unfinished timestamps in flight,min:1"`

	// MaxInQueue bounds how many pending packets the primary stream may
	// buffer beyond the in-flight ones; the oldest beyond it are dropped.
	MaxInQueue int `json:"max_in_queue" yaml:"max_in_queue" schema:"editable,type:int,description:Maximum buffered packets awaiting release,min:0"`

	// InFlightTimeout expires in-flight timestamps older than this many
	// timestamp ordinals behind the primary stream's latest input. Zero
	// disables expiry.
	InFlightTimeout int64 `json:"in_flight_timeout" yaml:"in_flight_timeout" schema:"editable,type:int,description:Timestamp-diff expiry for stuck in-flight entries (0=disabled),min:0"`

	// NumDataStreams is how many synchronized data streams pass through.
	// Stream 0 is the primary; the rest are auxiliary.
	NumDataStreams int `json:"num_data_streams" yaml:"num_data_streams" schema:"readonly,type:int,description:Number of data streams (stream 0 is primary),min:1"`
}

// DefaultConfig returns the documented sweet spot: one frame in flight, one
// queued, so the queue always holds the latest frame.
func DefaultConfig() Config {
	return Config{
		MaxInFlight:    1,
		MaxInQueue:     1,
		NumDataStreams: 1,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.MaxInFlight < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "limiter", "Validate",
			fmt.Sprintf("max_in_flight must be >= 1, got %d", c.MaxInFlight))
	}
	if c.MaxInQueue < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "limiter", "Validate",
			fmt.Sprintf("max_in_queue must be >= 0, got %d", c.MaxInQueue))
	}
	if c.InFlightTimeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "limiter", "Validate",
			fmt.Sprintf("in_flight_timeout must be >= 0, got %d", c.InFlightTimeout))
	}
	if c.NumDataStreams < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "limiter", "Validate",
			fmt.Sprintf("num_data_streams must be >= 1, got %d", c.NumDataStreams))
	}
	return nil
}
