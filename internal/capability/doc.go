// Package capability defines the hardware capability contracts for mdacore.
//
// A capability is the smallest unit of hardware the acquisition engine can
// drive: a Detector produces readings of fixed dimensionality on demand, and
// an Actuator holds a commandable position. Capabilities are always owned by
// exactly one device (see the device package); the engine only ever sees
// them through the interfaces defined here.
//
// # Key Types
//
//   - Detector: yields a Reading of declared dimensionality
//   - DiscreteActuator: position is an index into a fixed option list
//   - ContinuousActuator: position is a float within hardware limits
//   - Reading: one acquired value array with shape and timestamp
//
// # Contracts
//
// SetPosition on either actuator variant validates the commanded target
// against the actuator's domain (valid index, within limits) before any
// hardware command is issued, and blocks until the physical move completes.
// SetPosition is idempotent with respect to final hardware state but is not
// atomic: a concurrent Position call during a move may observe an
// intermediate value.
//
// Read and SetPosition may be slow, I/O-bound hardware calls. They accept a
// context for implementation-level timeouts; the engine itself never imposes
// a global timeout (drivers should raise ErrHardware on their own deadline).
//
// # Error Handling
//
// Implementations wrap the package sentinels so callers can classify
// failures with errors.Is:
//
//	if errors.Is(err, capability.ErrInvalidPosition) {
//	    // commanded target outside the declared domain
//	}
package capability
