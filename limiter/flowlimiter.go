// Package limiter provides bounded-in-flight flow limiters that convert an
// unbounded producer into a backpressured one without deadlocking the graph.
//
// Both limiters sit between a producer and an expensive consumer, with a
// "finished" feedback stream forming a back-edge from downstream. At most
// max_in_flight unfinished timestamps are released; the rest are buffered or
// dropped, oldest first. Drops are a silent, expected outcome of the
// backpressure policy, surfaced only through the optional ALLOW output.
package limiter

import (
	"fmt"

	"github.com/c360/streamflow/errors"
	"github.com/c360/streamflow/node"
	"github.com/c360/streamflow/packet"
	"github.com/c360/streamflow/pkg/deque"
	"github.com/c360/streamflow/timestamp"
)

// Port tags used by both limiters.
const (
	// TagFinished is the back-edge input confirming a released timestamp
	// completed downstream.
	TagFinished = "FINISHED"
	// TagAllow is the optional boolean output reporting per-timestamp
	// accept/drop decisions.
	TagAllow = "ALLOW"
	// SideMaxInFlight optionally overrides Config.MaxInFlight per run.
	SideMaxInFlight = "MAX_IN_FLIGHT"
)

// FlowLimiter bounds the number of timestamps concurrently in flight through
// a downstream subgraph, buffering up to max_in_queue pending packets and
// dropping the rest, oldest first.
//
// Data stream 0 is the primary: release, queue-limit and bound decisions
// follow it. Auxiliary streams replay the primary's allow/disallow decision
// for their own packets, so a unit of work either travels on all streams or
// none.
type FlowLimiter struct {
	cfg  Config
	opts *limiterOptions

	maxInFlight int
	inFlight    deque.Deque[timestamp.Timestamp]
	queues      []*deque.Deque[packet.Packet]
	latest      []timestamp.Timestamp
	decisions   allowMap
}

// New creates a flow limiter with the given configuration.
func New(cfg Config, options ...Option) (*FlowLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &FlowLimiter{cfg: cfg, opts: applyOptions(options...)}, nil
}

// NewFromOptions builds a flow limiter from encoded options over defaults.
// It is the registry factory for the "flow_limiter" kind.
func NewFromOptions(raw []byte) (node.Interface, error) {
	cfg := DefaultConfig()
	if err := node.DecodeOptions(raw, &cfg); err != nil {
		return nil, err
	}
	return New(cfg)
}

// DeclarePorts declares the indexed data streams, the FINISHED back edge,
// and the optional ALLOW output and MAX_IN_FLIGHT side packet.
func (fl *FlowLimiter) DeclarePorts(c *node.Contract) error {
	for i := 0; i < fl.cfg.NumDataStreams; i++ {
		c.InputIndex("", i)
		c.OutputIndex("", i)
	}
	c.Input(TagFinished).SetType("bool")
	c.Output(TagAllow).SetType("bool").SetOptional()
	c.SidePacket(SideMaxInFlight).SetType("int").SetOptional()
	// The FINISHED bound advancing without data can unblock releases.
	c.BoundOnlyUpdates = true
	return c.Err()
}

// Open resets limiter state and applies the MAX_IN_FLIGHT side packet.
func (fl *FlowLimiter) Open(ctx *node.Context) error {
	fl.maxInFlight = fl.cfg.MaxInFlight
	if sp := ctx.SidePacket(SideMaxInFlight); !sp.IsEmpty() {
		v, err := sp.Int()
		if err != nil {
			return errors.WrapInvalid(err, "FlowLimiter", "Open", "MAX_IN_FLIGHT side packet")
		}
		if v < 1 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "FlowLimiter", "Open",
				fmt.Sprintf("MAX_IN_FLIGHT side packet must be >= 1, got %d", v))
		}
		fl.maxInFlight = v
	}

	fl.inFlight.Clear()
	fl.queues = make([]*deque.Deque[packet.Packet], fl.cfg.NumDataStreams)
	fl.latest = make([]timestamp.Timestamp, fl.cfg.NumDataStreams)
	for i := range fl.queues {
		fl.queues[i] = deque.New[packet.Packet](fl.cfg.MaxInQueue + 1)
		fl.latest[i] = timestamp.Unset
	}
	fl.decisions = allowMap{}

	ctx.SetOffset(0)
	return nil
}

// Process runs one backpressure round: close out finished timestamps,
// buffer fresh packets, release while capacity allows, drop the queue
// overflow, and propagate bounds.
func (fl *FlowLimiter) Process(ctx *node.Context) error {
	ts := ctx.InputTimestamp()

	// A finish confirms its timestamp and everything released before it, so
	// one signal may close out several in-flight entries.
	if fin := ctx.Inputs.Get(TagFinished); fin != nil && !fin.IsEmpty() &&
		fin.Packet().Timestamp() == ts {
		for {
			front, ok := fl.inFlight.Front()
			if !ok || front > fin.Packet().Timestamp() {
				break
			}
			fl.inFlight.PopFront()
		}
	}

	for i := 0; i < fl.cfg.NumDataStreams; i++ {
		in := ctx.Inputs.GetIndex("", i)
		if in == nil || in.IsEmpty() {
			continue
		}
		p := in.Packet()
		fl.queues[i].PushBack(p)
		fl.latest[i] = p.Timestamp()
	}

	// Expire stuck in-flight entries by stream-time distance, not wall
	// clock: a hung downstream shows up as the primary stream racing ahead.
	if fl.cfg.InFlightTimeout > 0 && fl.latest[0] != timestamp.Unset {
		cutoff := fl.latest[0].Add(-fl.cfg.InFlightTimeout)
		for {
			front, ok := fl.inFlight.Front()
			if !ok || front >= cutoff {
				break
			}
			fl.inFlight.PopFront()
			ctx.Logger().Debug("expired in-flight timestamp",
				"timestamp", front.String(), "latest", fl.latest[0].String())
		}
	}

	primaryOut := ctx.Outputs.GetIndex("", 0)
	allowOut := ctx.Outputs.Get(TagAllow)

	// Release while capacity allows.
	for fl.inFlight.Len() < fl.maxInFlight && !fl.queues[0].Empty() {
		p, _ := fl.queues[0].PopFront()
		if err := primaryOut.AddPacket(p); err != nil {
			return err
		}
		fl.decisions.set(p.Timestamp(), true)
		fl.inFlight.PushBack(p.Timestamp())
		if allowOut != nil {
			if err := allowOut.AddPacket(packet.NewAt(true, p.Timestamp())); err != nil {
				return err
			}
		}
		fl.recordForwarded("0")
	}

	// Drop the queue overflow, oldest first.
	for fl.queues[0].Len() > fl.cfg.MaxInQueue {
		p, _ := fl.queues[0].PopFront()
		fl.decisions.set(p.Timestamp(), false)
		if allowOut != nil {
			if err := allowOut.AddPacket(packet.NewAt(false, p.Timestamp())); err != nil {
				return err
			}
		}
		ctx.Logger().Debug("dropped queued packet", "timestamp", p.Timestamp().String())
		fl.recordDropped("queue_full")
	}

	// The primary bound is the oldest still-queued timestamp, or just past
	// the latest input when nothing is queued.
	bound := timestamp.Unset
	if front, ok := fl.queues[0].Front(); ok {
		bound = front.Timestamp()
	} else if fl.latest[0] != timestamp.Unset {
		bound = fl.latest[0].NextAllowedInStream()
	}
	if bound != timestamp.Unset {
		if err := primaryOut.SetNextTimestampBound(bound); err != nil {
			return err
		}
		if allowOut != nil {
			if err := allowOut.SetNextTimestampBound(bound); err != nil {
				return err
			}
		}
	}

	// Auxiliary streams release behind the primary bound, replaying the
	// recorded decision per timestamp.
	primaryBound := primaryOut.NextTimestampBound()
	for i := 1; i < fl.cfg.NumDataStreams; i++ {
		out := ctx.Outputs.GetIndex("", i)
		q := fl.queues[i]
		for {
			front, ok := q.Front()
			if !ok || front.Timestamp() >= primaryBound {
				break
			}
			p, _ := q.PopFront()
			if fl.decisions.at(p.Timestamp()) {
				if err := out.AddPacket(p); err != nil {
					return err
				}
				fl.recordForwarded(fmt.Sprintf("%d", i))
			} else {
				ctx.Logger().Debug("dropped auxiliary packet",
					"stream", i, "timestamp", p.Timestamp().String())
				fl.recordDropped("auxiliary_disallowed")
			}
		}
		auxBound := timestamp.Unset
		if front, ok := q.Front(); ok {
			auxBound = front.Timestamp()
		} else if fl.latest[i] != timestamp.Unset {
			auxBound = fl.latest[i].NextAllowedInStream()
		}
		if auxBound != timestamp.Unset {
			if err := out.SetNextTimestampBound(auxBound); err != nil {
				return err
			}
		}
	}

	// Decisions are dead weight only below the lowest timestamp any data
	// stream can still deliver. A stream whose bound is unknown blocks
	// pruning outright: an auxiliary packet at an old timestamp must still
	// find its recorded decision.
	low := timestamp.Done
	for i := 0; i < fl.cfg.NumDataStreams; i++ {
		in := ctx.Inputs.GetIndex("", i)
		if in == nil || in.Bound() == timestamp.Unset {
			low = timestamp.Unset
			break
		}
		if in.Bound() < low {
			low = in.Bound()
		}
	}
	if low != timestamp.Unset {
		for _, q := range fl.queues {
			if front, ok := q.Front(); ok && front.Timestamp() < low {
				low = front.Timestamp()
			}
		}
		fl.decisions.prune(low)
	}

	fl.recordInFlight()
	return nil
}

// Close releases limiter state.
func (fl *FlowLimiter) Close(_ *node.Context) error {
	fl.inFlight.Clear()
	for _, q := range fl.queues {
		q.Clear()
	}
	return nil
}

// InFlight returns how many released timestamps remain unfinished.
func (fl *FlowLimiter) InFlight() int {
	return fl.inFlight.Len()
}

func (fl *FlowLimiter) recordForwarded(stream string) {
	if fl.opts.metricsReg != nil {
		fl.opts.metricsReg.Core.PacketsForwarded.WithLabelValues(fl.opts.metricsName, stream).Inc()
	}
}

func (fl *FlowLimiter) recordDropped(reason string) {
	if fl.opts.metricsReg != nil {
		fl.opts.metricsReg.Core.PacketsDropped.WithLabelValues(fl.opts.metricsName, reason).Inc()
	}
}

func (fl *FlowLimiter) recordInFlight() {
	if fl.opts.metricsReg != nil {
		fl.opts.metricsReg.Core.InFlight.WithLabelValues(fl.opts.metricsName).Set(float64(fl.inFlight.Len()))
	}
}
