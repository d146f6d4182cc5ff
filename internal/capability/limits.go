package capability

import "fmt"

// CheckIndex validates a discrete actuator target index against the number
// of options. Returns an error wrapping ErrInvalidPosition if the index is
// out of range. Actuator implementations call this before commanding the
// hardware so an invalid target never reaches the device.
func CheckIndex(numOptions, index int) error {
	if index < 0 || index >= numOptions {
		return fmt.Errorf("%w: index %d not in [0, %d)", ErrInvalidPosition, index, numOptions)
	}
	return nil
}

// CheckLimits validates a continuous actuator target value against the
// hardware limits. Returns an error wrapping ErrInvalidPosition if the
// value is outside [lower, upper].
func CheckLimits(lower, upper, value float64) error {
	if value < lower || value > upper {
		return fmt.Errorf("%w: value %g not in [%g, %g]", ErrInvalidPosition, value, lower, upper)
	}
	return nil
}
