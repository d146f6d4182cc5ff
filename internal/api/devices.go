package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openmda/mda-core/internal/infrastructure/mqtt"
)

// handleListDevices returns Info snapshots of all registered devices.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.registry.List()
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dev.Info())
}

// handleConnectDevice establishes communication with a device.
// Connecting an already-connected device is a no-op success.
func (s *Server) handleConnectDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := dev.Connect(r.Context()); err != nil {
		s.logger.Warn("device connect failed", "id", id, "error", err)
		writeDomainError(w, err)
		return
	}

	s.logger.Info("device connected", "id", id)
	s.publishDeviceState(id, true)
	writeJSON(w, http.StatusOK, dev.Info())
}

// handleDisconnectDevice releases communication with a device.
// Disconnecting an already-disconnected device is a no-op success.
func (s *Server) handleDisconnectDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := dev.Disconnect(r.Context()); err != nil {
		s.logger.Warn("device disconnect failed", "id", id, "error", err)
		writeDomainError(w, err)
		return
	}

	s.logger.Info("device disconnected", "id", id)
	s.publishDeviceState(id, false)
	writeJSON(w, http.StatusOK, dev.Info())
}

// publishDeviceState emits a retained connection-state event so late
// subscribers see each device's current availability.
func (s *Server) publishDeviceState(deviceID string, connected bool) {
	if s.mqtt == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"device_id": deviceID,
		"connected": connected,
	})
	if err != nil {
		return
	}

	topic := mqtt.Topics{}.DeviceState(deviceID)
	if err := s.mqtt.Publish(topic, payload, 1, true); err != nil {
		s.logger.Warn("failed to publish device state", "id", deviceID, "error", err)
	}
}
