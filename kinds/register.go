// Package kinds registers the built-in flow-control node kinds.
//
// Each kind maps to a factory that decodes options over that node's default
// configuration, so a graph description can instantiate nodes by name:
//
//   - flow_limiter: queueing backpressure limiter
//   - realtime_flow_limiter: immediate drop-or-forward limiter
//   - gate: boolean-controlled pass-through
//   - demux: base streams fanned out to channel streams
//   - mux: channel streams folded back onto base streams
package kinds

import (
	stderrors "errors"

	"github.com/c360/streamflow/errors"
	"github.com/c360/streamflow/gate"
	"github.com/c360/streamflow/limiter"
	"github.com/c360/streamflow/muxer"
	"github.com/c360/streamflow/node"
)

// Register registers every built-in node kind with the provided registry.
func Register(registry *node.Registry) error {
	if registry == nil {
		return errors.WrapFatal(
			stderrors.New("registry cannot be nil"),
			"Kinds", "Register", "registry validation")
	}

	for kind, factory := range map[string]node.Factory{
		"flow_limiter":          limiter.NewFromOptions,
		"realtime_flow_limiter": limiter.NewRealtimeFromOptions,
		"gate":                  gate.NewFromOptions,
		"demux":                 muxer.NewDemuxFromOptions,
		"mux":                   muxer.NewMuxFromOptions,
	} {
		if err := registry.Register(kind, factory); err != nil {
			return errors.WrapInvalid(err, "Kinds", "Register", kind)
		}
	}
	return nil
}
