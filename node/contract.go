package node

import (
	"fmt"

	"github.com/c360/streamflow/errors"
	"github.com/c360/streamflow/stream"
)

// PortSpec describes one declared port.
type PortSpec struct {
	ID stream.ID
	// TypeName names the accepted payload type; empty means "any".
	TypeName string
	// Optional ports may be left unwired.
	Optional bool
	// Side marks a side-packet port (single value per run, no timestamps).
	Side bool
}

// Contract collects a node's port declarations during DeclarePorts.
type Contract struct {
	inputs      []*PortSpec
	outputs     []*PortSpec
	sidePackets []*PortSpec
	seen        map[string]bool

	// BoundOnlyUpdates is set when the node wants Process invocations for
	// timestamp-bound-only updates carrying no data.
	BoundOnlyUpdates bool

	err error
}

// NewContract creates an empty contract.
func NewContract() *Contract {
	return &Contract{seen: make(map[string]bool)}
}

// Input declares an input port at (tag, 0).
func (c *Contract) Input(tag string) *PortSpec {
	return c.InputIndex(tag, 0)
}

// InputIndex declares an input port at (tag, index).
func (c *Contract) InputIndex(tag string, index int) *PortSpec {
	spec := &PortSpec{ID: stream.ID{Tag: tag, Index: index}}
	c.declare("input", spec)
	c.inputs = append(c.inputs, spec)
	return spec
}

// Output declares an output port at (tag, 0).
func (c *Contract) Output(tag string) *PortSpec {
	return c.OutputIndex(tag, 0)
}

// OutputIndex declares an output port at (tag, index).
func (c *Contract) OutputIndex(tag string, index int) *PortSpec {
	spec := &PortSpec{ID: stream.ID{Tag: tag, Index: index}}
	c.declare("output", spec)
	c.outputs = append(c.outputs, spec)
	return spec
}

// SidePacket declares a side-packet port at tag.
func (c *Contract) SidePacket(tag string) *PortSpec {
	spec := &PortSpec{ID: stream.ID{Tag: tag}, Side: true}
	c.declare("side", spec)
	c.sidePackets = append(c.sidePackets, spec)
	return spec
}

// SetOptional marks the port optional and returns it for chaining.
func (s *PortSpec) SetOptional() *PortSpec {
	s.Optional = true
	return s
}

// SetType restricts the accepted payload type name and returns the port for
// chaining.
func (s *PortSpec) SetType(name string) *PortSpec {
	s.TypeName = name
	return s
}

// Inputs returns the declared input ports in declaration order.
func (c *Contract) Inputs() []*PortSpec { return c.inputs }

// Outputs returns the declared output ports in declaration order.
func (c *Contract) Outputs() []*PortSpec { return c.outputs }

// SidePackets returns the declared side-packet ports in declaration order.
func (c *Contract) SidePackets() []*PortSpec { return c.sidePackets }

// Err returns the first declaration error, if any.
func (c *Contract) Err() error { return c.err }

func (c *Contract) declare(kind string, spec *PortSpec) {
	key := kind + "/" + spec.ID.String()
	if c.seen[key] {
		if c.err == nil {
			c.err = errors.WrapInvalid(errors.ErrPortAlreadyDeclared, "Contract", "declare",
				fmt.Sprintf("%s port %s", kind, spec.ID))
		}
		return
	}
	c.seen[key] = true
}
