// Package sim implements a simulated instrument driver.
//
// A sim device needs no hardware: it exposes continuous stage axes, an
// optional discrete filter wheel and two detectors (a scalar intensity
// channel and a small vector spectrum) backed by a synthetic signal model.
// The intensity follows a Gaussian peak centred at the axis origin and is
// attenuated by the selected filter, so scans produce recognisable data.
//
// # Purpose
//
//   - Development bootstrap: config.yaml can declare sim devices so the
//     server is usable without an instrument attached.
//   - Testing: latency and failure injection make timeout, cancellation
//     and fault paths reproducible.
//
// # Behaviour
//
// Connect and every capability operation honour the configured latency
// and abort early when the context is cancelled. Operations on a
// disconnected device fail wrapping capability.ErrHardware, the same
// class a real driver returns when the instrument stops responding.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Position state is guarded by
// a single mutex per device.
package sim
