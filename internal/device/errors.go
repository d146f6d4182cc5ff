package device

import (
	"errors"
	"fmt"
)

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist in
	// the registry.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when registering a device with an ID
	// that is already registered.
	ErrDeviceExists = errors.New("device: already registered")

	// ErrNotConnected is returned when a capability operation is
	// attempted on a disconnected device.
	ErrNotConnected = errors.New("device: not connected")

	// ErrConnectionFailed is the sentinel wrapped by every
	// *ConnectionError; check with errors.Is, inspect the reason with
	// errors.As.
	ErrConnectionFailed = errors.New("device: connection failed")

	// ErrInvalidID is returned when a device ID is empty or malformed.
	ErrInvalidID = errors.New("device: invalid id")
)

// ConnectReason classifies why a connect or disconnect operation failed.
type ConnectReason string

// ConnectReason values.
const (
	ReasonTimeout     ConnectReason = "timeout"
	ReasonNotFound    ConnectReason = "not_found"
	ReasonInUse       ConnectReason = "in_use"
	ReasonUnspecified ConnectReason = "unspecified"
)

// ConnectionError is returned by Device.Connect and Device.Disconnect on
// hardware or transport failure. It wraps ErrConnectionFailed so callers
// can classify with errors.Is and still recover the reason with errors.As:
//
//	var connErr *device.ConnectionError
//	if errors.As(err, &connErr) {
//	    switch connErr.Reason { ... }
//	}
type ConnectionError struct {
	DeviceID string
	Reason   ConnectReason
	Err      error // underlying driver error, may be nil
}

// NewConnectionError builds a ConnectionError for the given device and
// reason, wrapping an optional underlying error.
func NewConnectionError(deviceID string, reason ConnectReason, err error) *ConnectionError {
	return &ConnectionError{DeviceID: deviceID, Reason: reason, Err: err}
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device %q: connection failed (%s): %v", e.DeviceID, e.Reason, e.Err)
	}
	return fmt.Sprintf("device %q: connection failed (%s)", e.DeviceID, e.Reason)
}

// Unwrap makes errors.Is(err, ErrConnectionFailed) true, and exposes the
// underlying driver error to further unwrapping.
func (e *ConnectionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConnectionFailed, e.Err}
	}
	return []error{ErrConnectionFailed}
}
