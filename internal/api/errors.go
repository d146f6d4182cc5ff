package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openmda/mda-core/internal/capability"
	"github.com/openmda/mda-core/internal/device"
	"github.com/openmda/mda-core/internal/engine"
	"github.com/openmda/mda-core/internal/measurement"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeValidation       = "validation_error"
	ErrCodeInvalidPosition  = "invalid_position"
	ErrCodeNotConnected     = "not_connected"
	ErrCodeConnectionFailed = "connection_failed"
	ErrCodeUnavailable      = "unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError translates a domain error into an HTTP response.
//
// Mapping:
//   - not found (device, run)            -> 404
//   - invalid config / invalid position  -> 400
//   - disconnected device, active run    -> 409
//   - connection failed                  -> 502, or 504 on timeout
//   - engine shutting down               -> 503
//   - anything else                      -> 500
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound), errors.Is(err, engine.ErrRunNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())

	case errors.Is(err, measurement.ErrInvalidConfig), errors.Is(err, device.ErrInvalidID):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())

	case errors.Is(err, capability.ErrInvalidPosition):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidPosition, err.Error())

	case errors.Is(err, device.ErrNotConnected):
		writeError(w, http.StatusConflict, ErrCodeNotConnected, err.Error())

	case errors.Is(err, engine.ErrRunActive):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())

	case errors.Is(err, device.ErrConnectionFailed):
		status := http.StatusBadGateway
		var connErr *device.ConnectionError
		if errors.As(err, &connErr) && connErr.Reason == device.ReasonTimeout {
			status = http.StatusGatewayTimeout
		}
		writeError(w, status, ErrCodeConnectionFailed, err.Error())

	case errors.Is(err, engine.ErrEngineClosed):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())

	default:
		writeInternalError(w, err.Error())
	}
}
