package engine

import "errors"

// Domain errors for the engine package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, engine.ErrRunNotFound) {
//	    // handle unknown run
//	}
var (
	// ErrRunNotFound is returned when a run ID does not exist in the
	// registry.
	ErrRunNotFound = errors.New("engine: run not found")

	// ErrRunActive is returned when purging a run that has not reached a
	// terminal state.
	ErrRunActive = errors.New("engine: run is not terminal")

	// ErrEngineClosed is returned by Start after Close has been called.
	ErrEngineClosed = errors.New("engine: closed")
)
