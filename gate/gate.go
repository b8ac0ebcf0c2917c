// Package gate provides a boolean-controlled pass-through node: while
// allowed, data packets flow to their mirrored outputs; while disallowed,
// they are silently held back.
//
// The decision comes from a control stream, a control side packet, or both
// with an explicit precedence flag, on either the ALLOW tag or its logical
// inverse DISALLOW. Transitions between the two states are reported on the
// optional STATE_CHANGE output.
package gate

import (
	"fmt"

	"github.com/c360/streamflow/errors"
	"github.com/c360/streamflow/metric"
	"github.com/c360/streamflow/node"
	"github.com/c360/streamflow/packet"
)

// Port tags used by the gate.
const (
	// TagAllow carries the decision directly: true passes data through.
	TagAllow = "ALLOW"
	// TagDisallow carries the inverted decision: true holds data back.
	TagDisallow = "DISALLOW"
	// TagStateChange reports the new decision on every transition.
	TagStateChange = "STATE_CHANGE"
)

// State is the gate's decision state.
type State int

const (
	// Uninitialized is the state before the first invocation.
	Uninitialized State = iota
	// Allow passes data packets through.
	Allow
	// Disallow holds data packets back.
	Disallow
)

func (s State) String() string {
	switch s {
	case Allow:
		return "allow"
	case Disallow:
		return "disallow"
	default:
		return "uninitialized"
	}
}

// Option configures gate behavior using the functional options pattern.
type Option func(*gateOptions)

type gateOptions struct {
	metricsReg  *metric.Registry
	metricsName string
}

// WithMetrics enables Prometheus metrics export for gate transitions.
// If registry is nil, this option is ignored.
func WithMetrics(registry *metric.Registry, name string) Option {
	return func(opts *gateOptions) {
		if registry != nil && name != "" {
			opts.metricsReg = registry
			opts.metricsName = name
		}
	}
}

// Gate is the boolean-controlled pass-through node.
type Gate struct {
	cfg  Config
	opts *gateOptions

	state State

	// resolved at Open from what is actually wired
	useSide      bool
	sideDecision bool
	streamTag    string
	streamInvert bool
}

// New creates a gate with the given configuration.
func New(cfg Config, options ...Option) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Gate{cfg: cfg, opts: &gateOptions{}}
	for _, opt := range options {
		if opt != nil {
			opt(g.opts)
		}
	}
	return g, nil
}

// NewFromOptions builds a gate from encoded options over defaults. It is the
// registry factory for the "gate" kind.
func NewFromOptions(raw []byte) (node.Interface, error) {
	cfg := DefaultConfig()
	if err := node.DecodeOptions(raw, &cfg); err != nil {
		return nil, err
	}
	return New(cfg)
}

// DeclarePorts declares the mirrored data streams, both control spellings on
// stream and side packet, and the STATE_CHANGE output. Which controls are
// actually wired is validated at Open.
func (g *Gate) DeclarePorts(c *node.Contract) error {
	for i := 0; i < g.cfg.NumDataStreams; i++ {
		c.InputIndex("", i)
		c.OutputIndex("", i)
	}
	c.Input(TagAllow).SetType("bool").SetOptional()
	c.Input(TagDisallow).SetType("bool").SetOptional()
	c.SidePacket(TagAllow).SetType("bool").SetOptional()
	c.SidePacket(TagDisallow).SetType("bool").SetOptional()
	c.Output(TagStateChange).SetType("bool").SetOptional()
	return c.Err()
}

// Open resolves the control wiring and resets the state machine.
func (g *Gate) Open(ctx *node.Context) error {
	allowWired := ctx.Inputs.Get(TagAllow) != nil
	disallowWired := ctx.Inputs.Get(TagDisallow) != nil
	if allowWired && disallowWired {
		return errors.WrapInvalid(errors.ErrConflictingControls, "Gate", "Open",
			"both ALLOW and DISALLOW control streams wired")
	}

	sideAllow := ctx.SidePacket(TagAllow)
	sideDisallow := ctx.SidePacket(TagDisallow)
	if !sideAllow.IsEmpty() && !sideDisallow.IsEmpty() {
		return errors.WrapInvalid(errors.ErrConflictingControls, "Gate", "Open",
			"both ALLOW and DISALLOW control side packets wired")
	}

	streamWired := allowWired || disallowWired
	sideWired := !sideAllow.IsEmpty() || !sideDisallow.IsEmpty()

	switch {
	case !streamWired && !sideWired:
		return errors.WrapInvalid(errors.ErrPortNotWired, "Gate", "Open",
			"no control stream or side packet wired")
	case streamWired && sideWired && g.cfg.SideInputHasPrecedence == nil:
		return errors.WrapInvalid(errors.ErrConflictingControls, "Gate", "Open",
			"control stream and side packet both wired without side_input_has_precedence")
	}

	g.useSide = sideWired && (!streamWired || *g.cfg.SideInputHasPrecedence)

	if g.useSide {
		sp, invert := sideAllow, false
		if sp.IsEmpty() {
			sp, invert = sideDisallow, true
		}
		v, err := sp.Bool()
		if err != nil {
			return errors.WrapInvalid(err, "Gate", "Open", "control side packet")
		}
		g.sideDecision = v != invert
	} else {
		g.streamTag, g.streamInvert = TagAllow, false
		if disallowWired {
			g.streamTag, g.streamInvert = TagDisallow, true
		}
		// STATE_CHANGE mirrors the control stream, header included
		if h := ctx.Inputs.Get(g.streamTag).Header(); !h.IsEmpty() {
			if out := ctx.Outputs.Get(TagStateChange); out != nil {
				out.SetHeader(h)
			}
		}
	}

	g.state = Uninitialized
	ctx.SetOffset(0)
	return nil
}

// Process computes this invocation's decision, reports a transition, and
// forwards or withholds the data packets.
func (g *Gate) Process(ctx *node.Context) error {
	allowed, err := g.decide(ctx)
	if err != nil {
		return err
	}

	newState := Disallow
	if allowed {
		newState = Allow
	}

	if g.state != Uninitialized && g.state != newState {
		if out := ctx.Outputs.Get(TagStateChange); out != nil {
			if err := out.AddPacket(packet.NewAt(allowed, ctx.InputTimestamp())); err != nil {
				return err
			}
		}
		if g.opts.metricsReg != nil {
			g.opts.metricsReg.Core.GateStateChanges.WithLabelValues(g.opts.metricsName).Inc()
		}
	}
	g.state = newState

	if !allowed {
		return nil
	}
	for i := 0; i < g.cfg.NumDataStreams; i++ {
		in := ctx.Inputs.GetIndex("", i)
		if in == nil || in.IsEmpty() {
			continue
		}
		if err := ctx.Outputs.GetIndex("", i).AddPacket(in.Packet()); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gate) decide(ctx *node.Context) (bool, error) {
	if g.useSide {
		return g.sideDecision, nil
	}
	ctl := ctx.Inputs.Get(g.streamTag)
	if ctl.IsEmpty() {
		return g.cfg.EmptyPacketsAsAllow, nil
	}
	v, err := ctl.Packet().Bool()
	if err != nil {
		return false, errors.WrapInvalid(err, "Gate", "Process",
			fmt.Sprintf("control packet at %s", ctl.Packet().Timestamp()))
	}
	return v != g.streamInvert, nil
}

// Close resets the state machine.
func (g *Gate) Close(_ *node.Context) error {
	g.state = Uninitialized
	return nil
}

// CurrentState reports the decision state after the latest invocation.
func (g *Gate) CurrentState() State {
	return g.state
}
