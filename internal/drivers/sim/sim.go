package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openmda/mda-core/internal/capability"
	"github.com/openmda/mda-core/internal/device"
)

// driverName identifies this driver in device.Info.
const driverName = "sim"

// Default axis travel in millimetres. Real stages report their limits;
// the simulator uses a symmetric range wide enough for test scans.
const (
	defaultLowerLimit = -10.0
	defaultUpperLimit = 10.0
)

// Options configures one simulated device.
type Options struct {
	// ID is the unique device identity. Required.
	ID string

	// Name is the human-readable label. Defaults to ID.
	Name string

	// Axes is the number of continuous stage axes. Defaults to 1 when
	// zero or negative.
	Axes int

	// Filters holds the filter wheel option labels. Empty means no
	// filter wheel.
	Filters []string

	// Latency is applied to connect, moves and reads, simulating
	// hardware response time. Zero means instantaneous.
	Latency time.Duration

	// FailConnect makes Connect fail with the given reason. Used by
	// tests to exercise connection error paths.
	FailConnect device.ConnectReason
}

// Device is a simulated instrument implementing device.Device.
type Device struct {
	opts Options

	mu        sync.Mutex
	connected bool
	positions []float64 // one per axis
	filterIdx int

	// Fault injection, nil means healthy.
	readErr error
	moveErr error

	detectors map[int]capability.Detector
	actuators map[int]capability.Actuator
}

// New builds a simulated device from options.
func New(opts Options) *Device {
	if opts.Name == "" {
		opts.Name = opts.ID
	}
	if opts.Axes <= 0 {
		opts.Axes = 1
	}

	d := &Device{
		opts:      opts,
		positions: make([]float64, opts.Axes),
	}

	// Capability keys: detectors 0..1, axes 0..Axes-1, filter wheel
	// after the last axis.
	d.detectors = map[int]capability.Detector{
		0: &scalarDetector{dev: d},
		1: &vectorDetector{dev: d},
	}

	d.actuators = make(map[int]capability.Actuator, opts.Axes+1)
	for i := 0; i < opts.Axes; i++ {
		d.actuators[i] = &stageAxis{dev: d, axis: i}
	}
	if len(opts.Filters) > 0 {
		d.actuators[opts.Axes] = &filterWheel{dev: d}
	}

	return d
}

// ID returns the configured device identity.
func (d *Device) ID() string { return d.opts.ID }

// Info returns a snapshot of identity, connection state and capabilities.
func (d *Device) Info() device.Info {
	dets, acts := device.DescribeCapabilities(d.detectors, d.actuators)
	return device.Info{
		ID:        d.opts.ID,
		Name:      d.opts.Name,
		Driver:    driverName,
		Connected: d.IsConnected(),
		Detectors: dets,
		Actuators: acts,
	}
}

// Connect simulates establishing communication. Already connected is a
// no-op success. A configured FailConnect reason fails the attempt with
// a *device.ConnectionError, as a real driver would on a bad port.
func (d *Device) Connect(ctx context.Context) error {
	if d.IsConnected() {
		return nil
	}

	if d.opts.FailConnect != "" {
		return device.NewConnectionError(d.opts.ID, d.opts.FailConnect, nil)
	}

	if err := d.sleep(ctx); err != nil {
		return device.NewConnectionError(d.opts.ID, device.ReasonTimeout, err)
	}

	d.mu.Lock()
	d.connected = true
	d.mu.Unlock()
	return nil
}

// Disconnect releases the simulated connection. Safe on an
// already-disconnected device.
func (d *Device) Disconnect(_ context.Context) error {
	d.mu.Lock()
	d.connected = false
	d.mu.Unlock()
	return nil
}

// IsConnected reports the current connection state.
func (d *Device) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Detectors returns the detector capability map.
func (d *Device) Detectors() map[int]capability.Detector { return d.detectors }

// Actuators returns the actuator capability map.
func (d *Device) Actuators() map[int]capability.Actuator { return d.actuators }

// SetReadError injects a fault into subsequent detector reads. Pass nil
// to heal.
func (d *Device) SetReadError(err error) {
	d.mu.Lock()
	d.readErr = err
	d.mu.Unlock()
}

// SetMoveError injects a fault into subsequent actuator moves. Pass nil
// to heal.
func (d *Device) SetMoveError(err error) {
	d.mu.Lock()
	d.moveErr = err
	d.mu.Unlock()
}

// sleep blocks for the configured latency or until ctx is cancelled.
func (d *Device) sleep(ctx context.Context) error {
	if d.opts.Latency <= 0 {
		return nil
	}
	timer := time.NewTimer(d.opts.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// checkOperational gates capability operations: the device must be
// connected and not carrying an injected fault.
func (d *Device) checkOperational(injected error) error {
	d.mu.Lock()
	connected := d.connected
	d.mu.Unlock()

	if !connected {
		return fmt.Errorf("%w: device %q not responding", capability.ErrHardware, d.opts.ID)
	}
	if injected != nil {
		return injected
	}
	return nil
}

// injectedReadErr returns the current read fault under lock.
func (d *Device) injectedReadErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readErr
}

// injectedMoveErr returns the current move fault under lock.
func (d *Device) injectedMoveErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.moveErr
}
