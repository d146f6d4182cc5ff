// Package measurement defines the Measurement abstraction and its built-in
// acquisition strategies for mdacore.
//
// A Measurement is a single-run stateful cursor over acquisition steps. The
// engine drives the loop by calling Next until it reports done or an error;
// because the cursor only ever advances between steps, cancellation and
// failure handling happen at step boundaries by construction.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                         Measurement                           │
//	│                                                               │
//	│  ┌──────────────┐    ┌───────────────┐   ┌────────────────┐ │
//	│  │    Config     │    │  Measurement  │   │   Built-ins     │ │
//	│  │  (config.go)  │───▶│   (iface)     │◀──│ TimeSeries      │ │
//	│  │               │    │               │   │ NDMap           │ │
//	│  │ • selectors   │    │ • Next(ctx)   │   │ (timeseries.go, │ │
//	│  │ • Build()     │    │ • TotalSteps  │   │  ndmap.go)      │ │
//	│  └──────────────┘    └───────────────┘   └────────────────┘ │
//	│          │                     ▲                              │
//	└──────────│─────────────────────│──────────────────────────────┘
//	           ▼                     │
//	┌──────────────────┐    ┌──────────────────┐
//	│  Device Registry  │    │      Engine      │
//	│  (resolution)     │    │  (owns the loop) │
//	└──────────────────┘    └──────────────────┘
//
// # Built-ins
//
// TimeSeries reads a fixed set of detectors at a fixed interval, first
// sample immediate, for a fixed count or unbounded (count 0). NDMap sweeps
// actuator axes over discrete indices or continuous values, commanding
// every axis before reading the detectors at each step; product mode walks
// the Cartesian product row-major with the first axis slowest, zip mode
// steps all axes together.
//
// # Validation
//
// Build resolves a Config against the device registry and validates every
// selector against the declared capability domains (option index ranges,
// hardware limits, connectivity) before any hardware is touched. A config
// that passes Build cannot fail on domain grounds at run time, only on
// hardware faults.
//
// # Thread Safety
//
// A Measurement instance is not safe for concurrent use; exactly one engine
// goroutine drives it. Build and Config are stateless and safe to call from
// anywhere.
package measurement
