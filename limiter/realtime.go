package limiter

import (
	"fmt"

	"github.com/c360/streamflow/errors"
	"github.com/c360/streamflow/node"
	"github.com/c360/streamflow/packet"
	"github.com/c360/streamflow/timestamp"
)

// RealtimeConfig contains realtime flow limiter configuration.
type RealtimeConfig struct {
	// MaxInFlight bounds how many released timestamps may be unfinished at
	// once. Overridable per run through the MAX_IN_FLIGHT side packet.
	MaxInFlight int `json:"max_in_flight" yaml:"max_in_flight" schema:"editable,type:int,description:Maximum unfinished timestamps in flight,min:1"`

	// NumDataStreams is how many synchronized data streams pass through.
	NumDataStreams int `json:"num_data_streams" yaml:"num_data_streams" schema:"readonly,type:int,description:Number of synchronized data streams,min:1"`
}

// DefaultRealtimeConfig returns the default realtime limiter configuration.
func DefaultRealtimeConfig() RealtimeConfig {
	return RealtimeConfig{
		MaxInFlight:    1,
		NumDataStreams: 1,
	}
}

// Validate checks if the configuration is valid.
func (c RealtimeConfig) Validate() error {
	if c.MaxInFlight < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "limiter", "Validate",
			fmt.Sprintf("max_in_flight must be >= 1, got %d", c.MaxInFlight))
	}
	if c.NumDataStreams < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "limiter", "Validate",
			fmt.Sprintf("num_data_streams must be >= 1, got %d", c.NumDataStreams))
	}
	return nil
}

// RealtimeFlowLimiter is the multi-stream synchronized limiter variant. It
// holds no queue of un-released packets: decisions are made immediately per
// invocation and dropped packets are simply never forwarded.
//
// All data streams at one timestamp form an atomic unit, discovered lazily
// stream by stream: once any stream's packet at a timestamp is accepted,
// every other stream's packet at that timestamp is forwarded too; once
// dropped, the timestamp is dropped for every stream.
type RealtimeFlowLimiter struct {
	cfg  RealtimeConfig
	opts *limiterOptions

	maxInFlight int
	inFlight    int
	pending     map[timestamp.Timestamp]bool
	lastDropped timestamp.Timestamp
	prevAllow   bool
	allowClock  int64
}

// NewRealtime creates a realtime flow limiter with the given configuration.
func NewRealtime(cfg RealtimeConfig, options ...Option) (*RealtimeFlowLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RealtimeFlowLimiter{cfg: cfg, opts: applyOptions(options...)}, nil
}

// NewRealtimeFromOptions builds a realtime flow limiter from encoded options
// over defaults. It is the registry factory for the "realtime_flow_limiter"
// kind.
func NewRealtimeFromOptions(raw []byte) (node.Interface, error) {
	cfg := DefaultRealtimeConfig()
	if err := node.DecodeOptions(raw, &cfg); err != nil {
		return nil, err
	}
	return NewRealtime(cfg)
}

// DeclarePorts declares the indexed data streams, the FINISHED back edge,
// and the optional ALLOW output and MAX_IN_FLIGHT side packet.
func (fl *RealtimeFlowLimiter) DeclarePorts(c *node.Contract) error {
	for i := 0; i < fl.cfg.NumDataStreams; i++ {
		c.InputIndex("", i)
		c.OutputIndex("", i)
	}
	c.Input(TagFinished).SetType("bool")
	c.Output(TagAllow).SetType("bool").SetOptional()
	c.SidePacket(SideMaxInFlight).SetType("int").SetOptional()
	c.BoundOnlyUpdates = true
	return c.Err()
}

// Open resets limiter state and applies the MAX_IN_FLIGHT side packet.
func (fl *RealtimeFlowLimiter) Open(ctx *node.Context) error {
	fl.maxInFlight = fl.cfg.MaxInFlight
	if sp := ctx.SidePacket(SideMaxInFlight); !sp.IsEmpty() {
		v, err := sp.Int()
		if err != nil {
			return errors.WrapInvalid(err, "RealtimeFlowLimiter", "Open", "MAX_IN_FLIGHT side packet")
		}
		if v < 1 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "RealtimeFlowLimiter", "Open",
				fmt.Sprintf("MAX_IN_FLIGHT side packet must be >= 1, got %d", v))
		}
		fl.maxInFlight = v
	}

	fl.inFlight = 0
	fl.pending = make(map[timestamp.Timestamp]bool)
	fl.lastDropped = timestamp.Unset
	fl.prevAllow = true
	fl.allowClock = 0

	ctx.SetOffset(0)
	return nil
}

// Process runs one immediate accept/drop round over all data streams.
func (fl *RealtimeFlowLimiter) Process(ctx *node.Context) error {
	if fin := ctx.Inputs.Get(TagFinished); fin != nil && !fin.IsEmpty() {
		fl.inFlight--
		if fl.inFlight < 0 {
			// Finishes without matching releases mean the back edge is
			// miswired; proceeding would corrupt the count forever.
			return errors.WrapFatal(errors.ErrUnexpectedFinish, "RealtimeFlowLimiter", "Process",
				fmt.Sprintf("finish at %s with %d in flight",
					fin.Packet().Timestamp(), fl.inFlight+1))
		}
	}

	minBound := timestamp.Done
	boundsKnown := true
	for i := 0; i < fl.cfg.NumDataStreams; i++ {
		in := ctx.Inputs.GetIndex("", i)
		if in == nil {
			continue
		}
		if in.Bound() == timestamp.Unset {
			boundsKnown = false
		} else if in.Bound() < minBound {
			minBound = in.Bound()
		}
		if in.IsEmpty() {
			continue
		}

		p := in.Packet()
		ts := p.Timestamp()
		out := ctx.Outputs.GetIndex("", i)

		switch {
		case fl.pending[ts]:
			// The unit at ts was already accepted via another stream;
			// synchronization is all-or-nothing per timestamp.
			if err := out.AddPacket(p); err != nil {
				return err
			}
			fl.recordForwardedRT(i)
		case fl.inFlight < fl.maxInFlight && ts > fl.lastDropped:
			if err := out.AddPacket(p); err != nil {
				return err
			}
			fl.pending[ts] = true
			fl.inFlight++
			fl.recordForwardedRT(i)
		default:
			// Monotone high-water mark: a later stream within this same
			// invocation must not re-accept an already-dropped unit.
			if ts > fl.lastDropped {
				fl.lastDropped = ts
			}
			ctx.Logger().Debug("dropped packet", "stream", i, "timestamp", ts.String())
			fl.recordDroppedRT()
		}

		if err := out.SetNextTimestampBound(ts.NextAllowedInStream()); err != nil {
			return err
		}
	}

	// Pending entries below every stream's bound can never be referenced
	// again: per-stream timestamps are strictly increasing. A stream whose
	// bound is still unknown blocks pruning outright.
	if boundsKnown && minBound != timestamp.Done {
		for ts := range fl.pending {
			if ts < minBound {
				delete(fl.pending, ts)
			}
		}
	}

	// The ALLOW output is a separate logical clock: it ticks only when the
	// derived allow state flips, not per input timestamp.
	allowed := fl.inFlight < fl.maxInFlight
	if allowOut := ctx.Outputs.Get(TagAllow); allowOut != nil && allowed != fl.prevAllow {
		fl.allowClock++
		if err := allowOut.AddPacket(packet.NewAt(allowed, timestamp.FromInt64(fl.allowClock))); err != nil {
			return err
		}
	}
	fl.prevAllow = allowed

	if fl.opts.metricsReg != nil {
		fl.opts.metricsReg.Core.InFlight.WithLabelValues(fl.opts.metricsName).Set(float64(fl.inFlight))
	}
	return nil
}

// Close releases limiter state.
func (fl *RealtimeFlowLimiter) Close(_ *node.Context) error {
	fl.pending = nil
	return nil
}

// Allow reports whether a new timestamp would currently be accepted.
func (fl *RealtimeFlowLimiter) Allow() bool {
	return fl.inFlight < fl.maxInFlight
}

// InFlight returns how many released timestamps remain unfinished.
func (fl *RealtimeFlowLimiter) InFlight() int {
	return fl.inFlight
}

func (fl *RealtimeFlowLimiter) recordForwardedRT(stream int) {
	if fl.opts.metricsReg != nil {
		fl.opts.metricsReg.Core.PacketsForwarded.WithLabelValues(
			fl.opts.metricsName, fmt.Sprintf("%d", stream)).Inc()
	}
}

func (fl *RealtimeFlowLimiter) recordDroppedRT() {
	if fl.opts.metricsReg != nil {
		fl.opts.metricsReg.Core.PacketsDropped.WithLabelValues(
			fl.opts.metricsName, "over_limit").Inc()
	}
}
