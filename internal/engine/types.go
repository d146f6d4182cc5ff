package engine

import (
	"errors"
	"time"

	"github.com/openmda/mda-core/internal/capability"
	"github.com/openmda/mda-core/internal/measurement"
)

// State is a run lifecycle state.
type State string

// Run states. Pending → Running → {Completed, Failed, Cancelled}.
const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state is final. Terminal states absorb all
// further transitions.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// FailureKind classifies why a run failed.
type FailureKind string

// Failure classifications.
const (
	FailureHardware        FailureKind = "hardware"
	FailureInvalidPosition FailureKind = "invalid_position"
	FailureOther           FailureKind = "other"
)

// classifyFailure maps a step error to its FailureKind.
func classifyFailure(err error) FailureKind {
	switch {
	case errors.Is(err, capability.ErrHardware):
		return FailureHardware
	case errors.Is(err, capability.ErrInvalidPosition):
		return FailureInvalidPosition
	default:
		return FailureOther
	}
}

// Run is a snapshot of one measurement run. Snapshots are value copies;
// mutating one never affects the engine's record.
type Run struct {
	ID    string           `json:"id"`
	Kind  measurement.Kind `json:"kind"`
	State State            `json:"state"`

	// TotalSteps is the planned step count, 0 when unbounded.
	TotalSteps int `json:"total_steps"`

	// Devices lists the IDs of the devices the run touches, sorted.
	Devices []string `json:"devices"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error and FailureKind are set when State is Failed.
	Error       string      `json:"error,omitempty"`
	FailureKind FailureKind `json:"failure_kind,omitempty"`

	// Points holds the DataPoints accumulated so far, in step order.
	// Retained across failure and cancellation.
	Points []measurement.DataPoint `json:"points"`
}
