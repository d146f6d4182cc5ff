package measurement

import (
	"fmt"
	"time"

	"github.com/openmda/mda-core/internal/capability"
	"github.com/openmda/mda-core/internal/device"
)

// Resolver looks up live devices by ID. *device.Registry satisfies it.
type Resolver interface {
	Get(id string) (device.Device, error)
}

// Selector names one capability on one device.
type Selector struct {
	DeviceID string `json:"device_id" yaml:"device_id"`
	Key      int    `json:"key" yaml:"key"`
}

// Config is the start-time description of a measurement. Exactly one of
// the per-kind sections must be populated, matching Kind.
type Config struct {
	Kind       Kind              `json:"kind" yaml:"kind"`
	TimeSeries *TimeSeriesConfig `json:"time_series,omitempty" yaml:"time_series,omitempty"`
	Map        *MapConfig        `json:"map,omitempty" yaml:"map,omitempty"`
}

// TimeSeriesConfig configures a TimeSeries measurement. Count 0 means
// unbounded.
type TimeSeriesConfig struct {
	Detectors  []Selector `json:"detectors" yaml:"detectors"`
	Count      int        `json:"count" yaml:"count"`
	IntervalMS int        `json:"interval_ms" yaml:"interval_ms"`
}

// MapConfig configures an NDMap measurement. Mode defaults to product.
type MapConfig struct {
	Mode      string       `json:"mode,omitempty" yaml:"mode,omitempty"`
	Axes      []AxisConfig `json:"axes" yaml:"axes"`
	Detectors []Selector   `json:"detectors" yaml:"detectors"`
}

// AxisConfig configures one actuator axis. Discrete actuators take Indices,
// continuous actuators take Values; supplying the wrong waypoint type for
// the resolved actuator is a validation error.
type AxisConfig struct {
	Actuator Selector  `json:"actuator" yaml:"actuator"`
	Indices  []int     `json:"indices,omitempty" yaml:"indices,omitempty"`
	Values   []float64 `json:"values,omitempty" yaml:"values,omitempty"`
}

// Build resolves cfg against the registry and validates every selector
// against its capability's declared domain. All validation happens here,
// before any hardware is commanded: option indices against the option
// count, continuous waypoints against hardware limits, and every touched
// device must be connected.
//
// Errors wrap ErrInvalidConfig for structural problems,
// capability.ErrInvalidPosition for domain violations,
// device.ErrDeviceNotFound for unknown devices and device.ErrNotConnected
// for disconnected ones.
func Build(r Resolver, cfg Config) (Measurement, error) {
	switch cfg.Kind {
	case KindTimeSeries:
		if cfg.TimeSeries == nil {
			return nil, fmt.Errorf("%w: missing time_series section", ErrInvalidConfig)
		}
		return buildTimeSeries(r, cfg.TimeSeries)
	case KindNDMap:
		if cfg.Map == nil {
			return nil, fmt.Errorf("%w: missing map section", ErrInvalidConfig)
		}
		return buildNDMap(r, cfg.Map)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidConfig, cfg.Kind)
	}
}

func buildTimeSeries(r Resolver, cfg *TimeSeriesConfig) (Measurement, error) {
	if cfg.Count < 0 {
		return nil, fmt.Errorf("%w: count must be >= 0, got %d", ErrInvalidConfig, cfg.Count)
	}
	if cfg.IntervalMS < 0 {
		return nil, fmt.Errorf("%w: interval_ms must be >= 0, got %d", ErrInvalidConfig, cfg.IntervalMS)
	}

	byID := make(map[string]device.Device)
	detectors, err := resolveDetectors(r, cfg.Detectors, byID)
	if err != nil {
		return nil, err
	}

	interval := time.Duration(cfg.IntervalMS) * time.Millisecond
	return newTimeSeries(detectors, sortedDevices(byID), cfg.Count, interval), nil
}

func buildNDMap(r Resolver, cfg *MapConfig) (Measurement, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeProduct
	}
	if mode != ModeProduct && mode != ModeZip {
		return nil, fmt.Errorf("%w: unknown map mode %q", ErrInvalidConfig, mode)
	}
	if len(cfg.Axes) == 0 {
		return nil, fmt.Errorf("%w: map requires at least one axis", ErrInvalidConfig)
	}

	byID := make(map[string]device.Device)

	axes := make([]*axis, 0, len(cfg.Axes))
	for i, ac := range cfg.Axes {
		a, err := resolveAxis(r, ac, byID)
		if err != nil {
			return nil, fmt.Errorf("axis %d: %w", i, err)
		}
		axes = append(axes, a)
	}

	if mode == ModeZip {
		want := axes[0].length()
		for i, a := range axes[1:] {
			if a.length() != want {
				return nil, fmt.Errorf("%w: zip axes must have equal length (axis 0 has %d, axis %d has %d)",
					ErrInvalidConfig, want, i+1, a.length())
			}
		}
	}

	detectors, err := resolveDetectors(r, cfg.Detectors, byID)
	if err != nil {
		return nil, err
	}

	return newNDMap(mode, axes, detectors, sortedDevices(byID)), nil
}

// resolveDevice fetches a connected device, caching it in byID so every
// selector for the same device shares the live instance.
func resolveDevice(r Resolver, id string, byID map[string]device.Device) (device.Device, error) {
	if dev, ok := byID[id]; ok {
		return dev, nil
	}
	dev, err := r.Get(id)
	if err != nil {
		return nil, fmt.Errorf("device %q: %w", id, err)
	}
	if !dev.IsConnected() {
		return nil, fmt.Errorf("device %q: %w", id, device.ErrNotConnected)
	}
	byID[id] = dev
	return dev, nil
}

func resolveDetectors(r Resolver, sels []Selector, byID map[string]device.Device) ([]detectorBinding, error) {
	if len(sels) == 0 {
		return nil, fmt.Errorf("%w: at least one detector is required", ErrInvalidConfig)
	}

	bindings := make([]detectorBinding, 0, len(sels))
	for _, sel := range sels {
		dev, err := resolveDevice(r, sel.DeviceID, byID)
		if err != nil {
			return nil, err
		}
		det, ok := dev.Detectors()[sel.Key]
		if !ok {
			return nil, fmt.Errorf("%w: device %q has no detector with key %d",
				ErrInvalidConfig, sel.DeviceID, sel.Key)
		}
		bindings = append(bindings, detectorBinding{deviceID: sel.DeviceID, key: sel.Key, det: det})
	}
	return bindings, nil
}

func resolveAxis(r Resolver, ac AxisConfig, byID map[string]device.Device) (*axis, error) {
	dev, err := resolveDevice(r, ac.Actuator.DeviceID, byID)
	if err != nil {
		return nil, err
	}
	act, ok := dev.Actuators()[ac.Actuator.Key]
	if !ok {
		return nil, fmt.Errorf("%w: device %q has no actuator with key %d",
			ErrInvalidConfig, ac.Actuator.DeviceID, ac.Actuator.Key)
	}

	a := &axis{
		deviceID: ac.Actuator.DeviceID,
		key:      ac.Actuator.Key,
		name:     act.Name(),
	}

	switch impl := act.(type) {
	case capability.DiscreteActuator:
		if len(ac.Values) > 0 {
			return nil, fmt.Errorf("%w: actuator %q is discrete, use indices not values",
				ErrInvalidConfig, act.Name())
		}
		if len(ac.Indices) == 0 {
			return nil, fmt.Errorf("%w: discrete axis %q requires indices",
				ErrInvalidConfig, act.Name())
		}
		numOptions := len(impl.Options())
		for _, idx := range ac.Indices {
			if err := capability.CheckIndex(numOptions, idx); err != nil {
				return nil, fmt.Errorf("actuator %q: %w", act.Name(), err)
			}
		}
		a.discrete = impl
		a.indices = append([]int(nil), ac.Indices...)

	case capability.ContinuousActuator:
		if len(ac.Indices) > 0 {
			return nil, fmt.Errorf("%w: actuator %q is continuous, use values not indices",
				ErrInvalidConfig, act.Name())
		}
		if len(ac.Values) == 0 {
			return nil, fmt.Errorf("%w: continuous axis %q requires values",
				ErrInvalidConfig, act.Name())
		}
		lower, upper := impl.Limits()
		for _, v := range ac.Values {
			if err := capability.CheckLimits(lower, upper, v); err != nil {
				return nil, fmt.Errorf("actuator %q: %w", act.Name(), err)
			}
		}
		a.continuous = impl
		a.values = append([]float64(nil), ac.Values...)

	default:
		return nil, fmt.Errorf("%w: actuator %q has unknown kind", ErrInvalidConfig, act.Name())
	}

	return a, nil
}
