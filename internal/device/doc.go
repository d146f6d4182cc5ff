// Package device provides the Device abstraction and Device Registry for
// mdacore.
//
// A Device groups a fixed set of detector and actuator capabilities behind
// connection lifecycle management. Concrete devices are driver
// implementations (serial stages, cameras, spectrometers, or the simulated
// instrument in drivers/sim) that satisfy the Device interface; the engine
// and API never depend on a concrete type.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                       Device Registry                        │
//	│                                                              │
//	│  ┌──────────────────┐       ┌──────────────────────────┐    │
//	│  │     Registry     │       │      Device (iface)      │    │
//	│  │   (registry.go)  │──────▶│      (device.go)         │    │
//	│  │                  │       │                          │    │
//	│  │ • Register/Get   │       │ • Connect/Disconnect     │    │
//	│  │ • Info snapshots │       │ • Detectors()/Actuators()│    │
//	│  │ • Thread safety  │       │ • fixed capability set   │    │
//	│  └──────────────────┘       └──────────────────────────┘    │
//	│           │                              │                   │
//	└───────────│──────────────────────────────│───────────────────┘
//	            ▼                              ▼
//	┌──────────────────────┐       ┌──────────────────────┐
//	│  REST API / Engine   │       │  Hardware drivers    │
//	└──────────────────────┘       └──────────────────────┘
//
// # Lifecycle
//
// Devices are registered at startup (or on demand) with live hardware
// bindings and torn down at shutdown via DisconnectAll. The registry holds
// the only process-wide mapping from device identity to live instance;
// callers resolve devices through it rather than holding ambient globals.
//
// # Invariants
//
//   - A device's capability set never changes after construction.
//   - Capability operations are only valid while the device is connected;
//     the engine checks connectivity before a run enters Running.
//   - Connect is idempotent; Disconnect is safe on a disconnected device.
//
// # Thread Safety
//
// The Registry is safe for concurrent use. Device implementations must be
// safe for the access pattern the engine guarantees: at most one run drives
// a device's capabilities at a time, but connection state may be queried
// concurrently.
package device
