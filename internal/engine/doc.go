// Package engine orchestrates measurement runs for mdacore.
//
// The engine turns a validated Measurement into a Run: it registers the run
// as Pending, schedules execution on a goroutine detached from the caller,
// and drives the measurement cursor step by step until completion, failure
// or cancellation. Clients observe runs through non-blocking snapshots.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                            Engine                             │
//	│                                                               │
//	│  ┌─────────────┐   ┌──────────────┐   ┌──────────────────┐ │
//	│  │ RunRegistry  │   │  run loop     │   │  device locks     │ │
//	│  │ (registry.go)│◀──│  (engine.go)  │──▶│  sorted acquire   │ │
//	│  │              │   │               │   │                   │ │
//	│  │ • snapshots  │   │ • step cursor │   │ one mutex per     │ │
//	│  │ • purge      │   │ • cancel flag │   │ device ID         │ │
//	│  └─────────────┘   └──────────────┘   └──────────────────┘ │
//	│         │                   │                                 │
//	└─────────│───────────────────│─────────────────────────────────┘
//	          ▼                   ▼
//	┌──────────────┐   ┌───────────────────────────────┐
//	│   REST API    │   │ MQTT events · InfluxDB sink ·  │
//	│  (snapshots)  │   │ SQLite repository (best effort)│
//	└──────────────┘   └───────────────────────────────┘
//
// # Run lifecycle
//
// Pending → Running → {Completed, Failed, Cancelled}. Terminal states
// absorb: cancelling a finished run is a no-op success, and a run never
// leaves a terminal state. DataPoints accumulated before a failure or
// cancellation are retained on the run.
//
// # Cancellation
//
// Cancel sets a cooperative flag and aborts any in-progress interval wait.
// The flag is observed at step boundaries only: the step in flight always
// completes or fails as a whole, and no partial DataPoint is ever recorded.
//
// # Serialization
//
// Each device ID has one mutex. A run acquires the mutexes of every device
// it touches, in sorted ID order, before entering Running; runs on disjoint
// device sets proceed concurrently, runs sharing any device queue up.
//
// # Failure isolation
//
// A step error marks that run Failed with a classified cause and releases
// its devices. Other runs, and the engine itself, are unaffected.
package engine
