package capability

import (
	"context"
	"time"
)

// Detector is a capability that produces a reading of fixed dimensionality
// on demand. From the engine's point of view a detector is stateless between
// reads; any physical side effects (shutter, exposure) belong to the driver.
type Detector interface {
	// Name returns a human-readable identifier, unique within the
	// owning device.
	Name() string

	// Unit returns the unit of the values produced (e.g. "counts", "V").
	Unit() string

	// Dimensionality returns the dimension of the output array:
	// 0 for a scalar, 1 for a vector, 2 for an image, and so on.
	// Stable for the detector's lifetime.
	Dimensionality() int

	// Read acquires one reading. It blocks until the acquisition
	// completes and fails wrapping ErrHardware if the underlying
	// device is unreachable or the command fails.
	Read(ctx context.Context) (Reading, error)
}

// Actuator is the contract shared by both actuator variants. Callers
// type-switch to DiscreteActuator or ContinuousActuator for position access.
type Actuator interface {
	// Name returns a human-readable identifier, unique within the
	// owning device.
	Name() string

	// Unit returns the unit of the actuator's position (e.g. "mm",
	// "deg"); discrete actuators may return an empty string.
	Unit() string
}

// DiscreteActuator holds a position from a finite ordered set of named
// options, addressed by index.
type DiscreteActuator interface {
	Actuator

	// Options returns the ordered option labels. Pure query, stable
	// for the actuator's lifetime.
	Options() []string

	// Position returns the index of the current position. May observe
	// an intermediate value during a concurrent move.
	Position(ctx context.Context) (int, error)

	// SetPosition moves to the option at the given index. Fails
	// wrapping ErrInvalidPosition if the index is out of range
	// (before any hardware command is issued), or wrapping
	// ErrHardware if the move fails. Blocks until the move completes.
	SetPosition(ctx context.Context, index int) error
}

// ContinuousActuator holds a position within a real interval bounded by
// hardware limits.
type ContinuousActuator interface {
	Actuator

	// Limits returns the (lower, upper) hardware limits. Pure query,
	// stable for the actuator's lifetime.
	Limits() (lower, upper float64)

	// Position returns the current position. May observe an
	// intermediate value during a concurrent move.
	Position(ctx context.Context) (float64, error)

	// SetPosition moves to the given value. Fails wrapping
	// ErrInvalidPosition if the value is outside [lower, upper]
	// (before any hardware command is issued), or wrapping
	// ErrHardware if the move fails. Blocks until the move completes.
	SetPosition(ctx context.Context, value float64) error
}

// Reading is one acquired value array from a detector.
type Reading struct {
	// Detector is the name of the detector that produced the reading.
	Detector string `json:"detector"`

	// Unit is the unit of the values.
	Unit string `json:"unit,omitempty"`

	// Shape holds the length of each dimension; len(Shape) equals the
	// detector's dimensionality. Empty for a scalar reading.
	Shape []int `json:"shape,omitempty"`

	// Values holds the acquired data in row-major order. A scalar
	// reading has exactly one value.
	Values []float64 `json:"values"`

	// Timestamp is when the acquisition completed (UTC).
	Timestamp time.Time `json:"timestamp"`
}

// Scalar returns the single value of a 0-D reading and true, or 0 and
// false if the reading is not scalar.
func (r Reading) Scalar() (float64, bool) {
	if len(r.Shape) == 0 && len(r.Values) == 1 {
		return r.Values[0], true
	}
	return 0, false
}

// Size returns the expected number of values for the reading's shape.
func (r Reading) Size() int {
	n := 1
	for _, d := range r.Shape {
		n *= d
	}
	return n
}
