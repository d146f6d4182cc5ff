package device

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the process-wide mapping from device identity to live Device
// instances.
//
// It is populated at startup (or when a driver is attached at runtime),
// read-mostly during operation, and torn down at shutdown via
// DisconnectAll. Unlike persisted catalogues, entries are live hardware
// bindings: the registry never copies a Device, it hands out the shared
// instance.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]Device
	logger  Logger
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]Device),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Register adds a device under its own ID.
// Returns ErrInvalidID for an empty ID and ErrDeviceExists if the ID is
// already registered.
func (r *Registry) Register(dev Device) error {
	id := strings.TrimSpace(dev.ID())
	if id == "" {
		return ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[id]; ok {
		return ErrDeviceExists
	}
	r.devices[id] = dev

	r.logger.Info("device registered", "id", id, "driver", dev.Info().Driver)
	return nil
}

// Get retrieves the live device instance by ID.
// Returns ErrDeviceNotFound if the device does not exist.
func (r *Registry) Get(id string) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return dev, nil
}

// List returns Info snapshots of all registered devices, sorted by ID for
// deterministic ordering.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.devices))
	for _, dev := range r.devices {
		infos = append(infos, dev.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Unregister removes a device from the registry without disconnecting it.
// Returns ErrDeviceNotFound if the ID is unknown.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[id]; !ok {
		return ErrDeviceNotFound
	}
	delete(r.devices, id)

	r.logger.Info("device unregistered", "id", id)
	return nil
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// DisconnectAll disconnects every connected device. Called at shutdown.
// Disconnect failures are collected and joined; all devices are attempted
// regardless of individual failures.
func (r *Registry) DisconnectAll(ctx context.Context) error {
	r.mu.RLock()
	devices := make([]Device, 0, len(r.devices))
	for _, dev := range r.devices {
		devices = append(devices, dev)
	}
	r.mu.RUnlock()

	var errs []error
	for _, dev := range devices {
		if !dev.IsConnected() {
			continue
		}
		if err := dev.Disconnect(ctx); err != nil {
			r.logger.Error("device disconnect failed", "id", dev.ID(), "error", err)
			errs = append(errs, err)
			continue
		}
		r.logger.Info("device disconnected", "id", dev.ID())
	}
	return errors.Join(errs...)
}
