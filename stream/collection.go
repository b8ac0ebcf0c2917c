package stream

import (
	"fmt"

	"github.com/c360/streamflow/errors"
	"github.com/c360/streamflow/timestamp"
)

// Inputs is an ordered collection of input stream entries keyed by (tag,
// index).
type Inputs struct {
	entries []*Input
	byID    map[ID]*Input
}

// NewInputs creates an empty input collection.
func NewInputs() *Inputs {
	return &Inputs{byID: make(map[ID]*Input)}
}

// Add registers a new entry. Duplicate ids are a wiring error.
func (c *Inputs) Add(id ID) (*Input, error) {
	if _, exists := c.byID[id]; exists {
		return nil, errors.WrapInvalid(errors.ErrPortAlreadyDeclared, "Inputs", "Add",
			fmt.Sprintf("entry %s", id))
	}
	in := &Input{id: id, bound: timestamp.Unset, last: timestamp.Unset}
	c.entries = append(c.entries, in)
	c.byID[id] = in
	return in, nil
}

// Get returns the entry at (tag, 0), or nil when absent.
func (c *Inputs) Get(tag string) *Input {
	return c.byID[ID{Tag: tag}]
}

// GetIndex returns the entry at (tag, index), or nil when absent.
func (c *Inputs) GetIndex(tag string, index int) *Input {
	return c.byID[ID{Tag: tag, Index: index}]
}

// Has reports whether any entry carries the tag.
func (c *Inputs) Has(tag string) bool {
	return c.NumEntries(tag) > 0
}

// NumEntries returns how many indexed entries share the tag.
func (c *Inputs) NumEntries(tag string) int {
	n := 0
	for _, in := range c.entries {
		if in.id.Tag == tag {
			n++
		}
	}
	return n
}

// Tags returns the distinct tags in declaration order.
func (c *Inputs) Tags() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, in := range c.entries {
		if !seen[in.id.Tag] {
			seen[in.id.Tag] = true
			tags = append(tags, in.id.Tag)
		}
	}
	return tags
}

// All returns every entry in declaration order.
func (c *Inputs) All() []*Input {
	return c.entries
}

// Len returns the number of entries.
func (c *Inputs) Len() int {
	return len(c.entries)
}

// ClearPackets resets every entry's current value between invocations.
func (c *Inputs) ClearPackets() {
	for _, in := range c.entries {
		in.ClearPacket()
	}
}

// Outputs is an ordered collection of output stream entries keyed by (tag,
// index).
type Outputs struct {
	entries []*Output
	byID    map[ID]*Output
}

// NewOutputs creates an empty output collection.
func NewOutputs() *Outputs {
	return &Outputs{byID: make(map[ID]*Output)}
}

// Add registers a new entry. Duplicate ids are a wiring error.
func (c *Outputs) Add(id ID) (*Output, error) {
	if _, exists := c.byID[id]; exists {
		return nil, errors.WrapInvalid(errors.ErrPortAlreadyDeclared, "Outputs", "Add",
			fmt.Sprintf("entry %s", id))
	}
	out := &Output{id: id, bound: timestamp.Unset, last: timestamp.Unset}
	c.entries = append(c.entries, out)
	c.byID[id] = out
	return out, nil
}

// Get returns the entry at (tag, 0), or nil when absent.
func (c *Outputs) Get(tag string) *Output {
	return c.byID[ID{Tag: tag}]
}

// GetIndex returns the entry at (tag, index), or nil when absent.
func (c *Outputs) GetIndex(tag string, index int) *Output {
	return c.byID[ID{Tag: tag, Index: index}]
}

// Has reports whether any entry carries the tag.
func (c *Outputs) Has(tag string) bool {
	return c.NumEntries(tag) > 0
}

// NumEntries returns how many indexed entries share the tag.
func (c *Outputs) NumEntries(tag string) int {
	n := 0
	for _, out := range c.entries {
		if out.id.Tag == tag {
			n++
		}
	}
	return n
}

// Tags returns the distinct tags in declaration order.
func (c *Outputs) Tags() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, out := range c.entries {
		if !seen[out.id.Tag] {
			seen[out.id.Tag] = true
			tags = append(tags, out.id.Tag)
		}
	}
	return tags
}

// All returns every entry in declaration order.
func (c *Outputs) All() []*Output {
	return c.entries
}

// Len returns the number of entries.
func (c *Outputs) Len() int {
	return len(c.entries)
}
