package capability

import "errors"

// Domain errors for the capability package.
//
// Drivers wrap these sentinels so the engine can classify per-step
// failures with errors.Is():
//
//	if errors.Is(err, capability.ErrHardware) {
//	    // communication or command failure during an operation
//	}
var (
	// ErrHardware is returned when a hardware communication or command
	// fails during an in-progress operation (read or move).
	ErrHardware = errors.New("capability: hardware failure")

	// ErrInvalidPosition is returned when a commanded actuator target is
	// outside the actuator's declared domain.
	ErrInvalidPosition = errors.New("capability: position outside valid range")
)
