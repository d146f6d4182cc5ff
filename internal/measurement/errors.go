package measurement

import "errors"

// Domain errors for the measurement package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, measurement.ErrInvalidConfig) {
//	    // reject the request as malformed
//	}
var (
	// ErrInvalidConfig is returned by Build for a configuration that is
	// structurally malformed or violates a declared capability domain.
	ErrInvalidConfig = errors.New("measurement: invalid configuration")
)
