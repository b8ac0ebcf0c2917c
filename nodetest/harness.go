// Package nodetest provides a deterministic single-node harness for driving
// flow-control nodes through the node contract in tests.
//
// The harness is not a scheduler: it builds a node's stream collections from
// its declared contract, then replays the invocations a test dictates, in
// increasing timestamp order, exactly as the external runtime would.
package nodetest

import (
	"fmt"
	"log/slog"

	"github.com/c360/streamflow/errors"
	"github.com/c360/streamflow/node"
	"github.com/c360/streamflow/packet"
	"github.com/c360/streamflow/stream"
	"github.com/c360/streamflow/timestamp"
)

// Harness wires one node and drives it through open/process/close.
type Harness struct {
	node     node.Interface
	contract *node.Contract
	ctx      *node.Context
	opened   bool
}

// Option adjusts harness wiring before collections are built.
type Option func(*options)

type options struct {
	unwired     map[stream.ID]bool
	sidePackets map[string]packet.Packet
	logger      *slog.Logger
}

// WithoutPort leaves a declared optional port unwired.
func WithoutPort(id stream.ID) Option {
	return func(o *options) {
		o.unwired[id] = true
	}
}

// WithSidePacket wires a side packet before Open.
func WithSidePacket(tag string, p packet.Packet) Option {
	return func(o *options) {
		o.sidePackets[tag] = p
	}
}

// WithLogger sets the run logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New declares the node's ports and builds its wired context.
func New(n node.Interface, name string, opts ...Option) (*Harness, error) {
	o := &options{
		unwired:     make(map[stream.ID]bool),
		sidePackets: make(map[string]packet.Packet),
	}
	for _, opt := range opts {
		opt(o)
	}

	contract := node.NewContract()
	if err := n.DeclarePorts(contract); err != nil {
		return nil, err
	}
	if err := contract.Err(); err != nil {
		return nil, err
	}

	inputs := stream.NewInputs()
	for _, spec := range contract.Inputs() {
		if o.unwired[spec.ID] {
			if !spec.Optional {
				return nil, errors.WrapInvalid(errors.ErrPortNotWired, "Harness", "New",
					fmt.Sprintf("required input %s", spec.ID))
			}
			continue
		}
		if _, err := inputs.Add(spec.ID); err != nil {
			return nil, err
		}
	}

	outputs := stream.NewOutputs()
	for _, spec := range contract.Outputs() {
		if o.unwired[spec.ID] {
			if !spec.Optional {
				return nil, errors.WrapInvalid(errors.ErrPortNotWired, "Harness", "New",
					fmt.Sprintf("required output %s", spec.ID))
			}
			continue
		}
		if _, err := outputs.Add(spec.ID); err != nil {
			return nil, err
		}
	}

	for _, spec := range contract.SidePackets() {
		if _, wired := o.sidePackets[spec.ID.Tag]; !wired && !spec.Optional {
			return nil, errors.WrapInvalid(errors.ErrPortNotWired, "Harness", "New",
				fmt.Sprintf("required side packet %s", spec.ID))
		}
	}

	ctx := node.NewContext(node.NewRunContext(o.logger), name, inputs, outputs)
	for tag, p := range o.sidePackets {
		ctx.SetSidePacket(tag, p)
	}

	return &Harness{node: n, contract: contract, ctx: ctx}, nil
}

// Context exposes the node context for assertions.
func (h *Harness) Context() *node.Context {
	return h.ctx
}

// Open runs the node's Open step.
func (h *Harness) Open() error {
	if h.opened {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Harness", "Open", "double open")
	}
	h.opened = true
	return h.node.Open(h.ctx)
}

// Delivery is one packet arriving on one input during an invocation.
type Delivery struct {
	ID     stream.ID
	Packet packet.Packet
}

// Send builds a delivery for the input at (tag, 0).
func Send(tag string, p packet.Packet) Delivery {
	return Delivery{ID: stream.ID{Tag: tag}, Packet: p}
}

// SendIndex builds a delivery for the input at (tag, index).
func SendIndex(tag string, index int, p packet.Packet) Delivery {
	return Delivery{ID: stream.ID{Tag: tag, Index: index}, Packet: p}
}

// Invoke delivers the given packets, stamps the invocation at ts, and runs
// one Process step. Inputs are cleared afterwards, like between real
// scheduler invocations.
func (h *Harness) Invoke(ts timestamp.Timestamp, deliveries ...Delivery) error {
	if !h.opened {
		if err := h.Open(); err != nil {
			return err
		}
	}

	for _, d := range deliveries {
		in := h.ctx.Inputs.GetIndex(d.ID.Tag, d.ID.Index)
		if in == nil {
			return errors.WrapInvalid(errors.ErrUnknownTag, "Harness", "Invoke",
				fmt.Sprintf("delivery to %s", d.ID))
		}
		if err := in.SetPacket(d.Packet); err != nil {
			return err
		}
	}

	h.ctx.SetInputTimestamp(ts)
	err := h.node.Process(h.ctx)
	h.ctx.Inputs.ClearPackets()
	return err
}

// SetInputBound advances an input's bound without delivering a packet.
func (h *Harness) SetInputBound(id stream.ID, b timestamp.Timestamp) error {
	in := h.ctx.Inputs.GetIndex(id.Tag, id.Index)
	if in == nil {
		return errors.WrapInvalid(errors.ErrUnknownTag, "Harness", "SetInputBound",
			fmt.Sprintf("bound for %s", id))
	}
	in.SetBound(b)
	return nil
}

// Output returns the output entry at (tag, 0), nil when unwired.
func (h *Harness) Output(tag string) *stream.Output {
	return h.ctx.Outputs.Get(tag)
}

// OutputIndex returns the output entry at (tag, index), nil when unwired.
func (h *Harness) OutputIndex(tag string, index int) *stream.Output {
	return h.ctx.Outputs.GetIndex(tag, index)
}

// Packets returns every packet emitted so far on (tag, index).
func (h *Harness) Packets(tag string, index int) []packet.Packet {
	out := h.ctx.Outputs.GetIndex(tag, index)
	if out == nil {
		return nil
	}
	return out.Emitted()
}

// Close runs the node's Close step.
func (h *Harness) Close() error {
	return h.node.Close(h.ctx)
}
