// Package node defines the contract between processing nodes and the
// external scheduler.
//
// A node declares its ports once (DeclarePorts), is opened once per graph
// run (Open), invoked once per scheduler-satisfied set of inputs (Process),
// and closed at end of run (Close). Nodes never spawn goroutines or block;
// all suspension happens between invocations at the scheduler boundary.
package node

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/c360/streamflow/packet"
	"github.com/c360/streamflow/stream"
	"github.com/c360/streamflow/timestamp"
)

// Interface is the generic node contract consumed by the scheduler and
// implemented by every flow-control node in this module.
type Interface interface {
	// DeclarePorts declares each input/output port's id, accepted type,
	// optionalness, and whether the node wants bound-only invocations.
	// Called once; errors abort graph construction.
	DeclarePorts(c *Contract) error

	// Open is called once per graph run. The node may read side packets and
	// configuration and set an initial timestamp offset.
	Open(ctx *Context) error

	// Process is called once per scheduler-satisfied invocation. The node
	// reads whichever ports are non-empty this round and may write packets
	// or advance bounds on outputs. A fatal classified error terminates the
	// run.
	Process(ctx *Context) error

	// Close is called once at end of run for any final flush.
	Close(ctx *Context) error
}

// RunContext carries per-run identity and logging shared by every node in
// one graph run. Run-scoped state replaces process-wide globals.
type RunContext struct {
	RunID  uuid.UUID
	Logger *slog.Logger
}

// NewRunContext creates a run context with a fresh run id. A nil logger
// falls back to slog.Default.
func NewRunContext(logger *slog.Logger) *RunContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunContext{
		RunID:  uuid.New(),
		Logger: logger,
	}
}

// Context is the per-node view passed to Open, Process and Close.
type Context struct {
	Run      *RunContext
	NodeName string
	Inputs   *stream.Inputs
	Outputs  *stream.Outputs

	side    map[string]packet.Packet
	inputTS timestamp.Timestamp
	offset  int64
}

// NewContext creates a node context over wired collections.
func NewContext(run *RunContext, name string, inputs *stream.Inputs, outputs *stream.Outputs) *Context {
	if run == nil {
		run = NewRunContext(nil)
	}
	return &Context{
		Run:      run,
		NodeName: name,
		Inputs:   inputs,
		Outputs:  outputs,
		side:     make(map[string]packet.Packet),
		inputTS:  timestamp.Unset,
	}
}

// Logger returns the run logger annotated with the node name.
func (ctx *Context) Logger() *slog.Logger {
	return ctx.Run.Logger.With("node", ctx.NodeName, "run_id", ctx.Run.RunID.String())
}

// SidePacket returns the side packet wired at tag, empty if none.
// Side packets are single values supplied once per run, not
// timestamp-ordered.
func (ctx *Context) SidePacket(tag string) packet.Packet {
	return ctx.side[tag]
}

// SetSidePacket wires a side packet. Called by the runtime before Open.
func (ctx *Context) SetSidePacket(tag string, p packet.Packet) {
	ctx.side[tag] = p
}

// InputTimestamp returns the timestamp of the current invocation.
func (ctx *Context) InputTimestamp() timestamp.Timestamp {
	return ctx.inputTS
}

// SetInputTimestamp records the invocation timestamp. Called by the runtime
// before each Process.
func (ctx *Context) SetInputTimestamp(ts timestamp.Timestamp) {
	ctx.inputTS = ts
}

// SetOffset declares, at Open time, how far behind its inputs' timestamps
// this node's outputs may lag. The scheduler uses the offset for bound
// propagation on streams the node does not explicitly bound.
func (ctx *Context) SetOffset(offset int64) {
	ctx.offset = offset
}

// Offset returns the declared timestamp offset.
func (ctx *Context) Offset() int64 {
	return ctx.offset
}
