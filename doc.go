// Package streamflow provides the flow-control and routing core for a
// node-based streaming dataflow engine.
//
// # Overview
//
// StreamFlow models a graph of processing nodes connected by typed,
// timestamp-ordered streams. Each node is invoked once per synchronized set
// of inputs by an external cooperative scheduler. This module supplies the
// pieces that keep such a graph stable under load and let it express
// conditional dataflow inside an otherwise static topology:
//
//   - timestamp: the totally ordered logical time domain with stream
//     sentinels that every node relies on
//   - packet: immutable, timestamped, ownership-tracked units of data
//   - stream: the node-facing view of named/indexed input and output streams
//   - node: the contract between nodes and the external scheduler
//     (declare ports, open, process per-timestamp, close)
//   - limiter: bounded-in-flight flow limiters that convert an unbounded
//     producer into a backpressured one without deadlocking the graph
//   - gate: boolean-controlled pass/block of synchronized data streams
//   - muxer: channel demux/mux routing over tagged stream groups
//   - respool: a generic request-frequency resource cache for pooling
//     expensive shared resources
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│       External Scheduler            │  Invocation ordering,
//	│  (wait-for-all / immediate policy)  │  bound propagation
//	└─────────────────────────────────────┘
//	           ↓ invokes via node contract
//	┌─────────────────────────────────────┐
//	│      Flow-control Nodes             │  limiter, gate,
//	│   (limiter, gate, muxer)            │  demux/mux
//	└─────────────────────────────────────┘
//	           ↓ exchange
//	┌─────────────────────────────────────┐
//	│    Packets on Ordered Streams       │  timestamp, packet,
//	│  (strictly increasing timestamps)   │  stream collections
//	└─────────────────────────────────────┘
//
// Leaf nodes that call into external inference or image libraries are
// collaborators outside this module: they consume only the generic node
// contract and produce only packets and timestamp-bound updates.
//
// # Design Principles
//
// Separation of Concerns:
//   - Flow control ≠ data interpretation
//   - Routing topology ≠ node business logic
//
// No Hidden Concurrency:
//   - Nodes never spawn goroutines or block; all suspension happens
//     between invocations, at the scheduler boundary
//   - Only respool takes locks, because pools are shared across owners
//
// Testability:
//   - Explicit dependencies (no globals; run-scoped counters and IDs)
//   - nodetest drives a single node through deterministic invocations
package streamflow
