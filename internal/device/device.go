package device

import (
	"context"

	"github.com/openmda/mda-core/internal/capability"
)

// Device is a connected hardware unit exposing detector and actuator
// capabilities behind connection lifecycle management.
//
// Implementations own the communication channel (serial port, socket,
// vendor SDK) and register their fixed capability set at construction.
type Device interface {
	// ID returns the unique device identity (serial number or
	// configured name).
	ID() string

	// Info returns a snapshot of the device's identity, connection
	// state and capability descriptors. Safe to call at any time.
	Info() Info

	// Connect establishes communication with the hardware. Calling
	// Connect on an already-connected device is a no-op success.
	// On failure it returns a *ConnectionError distinguishing the
	// reason (timeout, not found, already in use).
	Connect(ctx context.Context) error

	// Disconnect releases communication. Safe to call on an
	// already-disconnected device.
	Disconnect(ctx context.Context) error

	// IsConnected reports the current connection state. Pure state
	// query: it must not itself attempt communication.
	IsConnected() bool

	// Detectors returns the detector capabilities keyed by a
	// device-local integer. The set is fixed after construction.
	Detectors() map[int]capability.Detector

	// Actuators returns the actuator capabilities keyed by a
	// device-local integer. Values are capability.DiscreteActuator or
	// capability.ContinuousActuator. The set is fixed after
	// construction.
	Actuators() map[int]capability.Actuator
}

// Info is a point-in-time snapshot of a device for status queries and API
// responses.
type Info struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Driver    string         `json:"driver"`
	Connected bool           `json:"connected"`
	Detectors []DetectorInfo `json:"detectors"`
	Actuators []ActuatorInfo `json:"actuators"`
}

// DetectorInfo describes one detector capability.
type DetectorInfo struct {
	Key            int    `json:"key"`
	Name           string `json:"name"`
	Unit           string `json:"unit,omitempty"`
	Dimensionality int    `json:"dimensionality"`
}

// ActuatorInfo describes one actuator capability. Exactly one of Options
// (discrete) or Limits (continuous) is populated.
type ActuatorInfo struct {
	Key     int      `json:"key"`
	Name    string   `json:"name"`
	Unit    string   `json:"unit,omitempty"`
	Kind    string   `json:"kind"` // "discrete" or "continuous"
	Options []string `json:"options,omitempty"`
	Limits  *Limits  `json:"limits,omitempty"`
}

// Limits holds a continuous actuator's hardware limits.
type Limits struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Actuator kind labels used in ActuatorInfo.Kind.
const (
	ActuatorKindDiscrete   = "discrete"
	ActuatorKindContinuous = "continuous"
)

// DescribeCapabilities builds Info capability descriptors from a device's
// live capability maps. Driver implementations use it in their Info method
// so descriptors stay consistent across drivers. Keys are emitted in
// ascending order.
func DescribeCapabilities(detectors map[int]capability.Detector, actuators map[int]capability.Actuator) ([]DetectorInfo, []ActuatorInfo) {
	dets := make([]DetectorInfo, 0, len(detectors))
	for _, key := range sortedKeys(detectors) {
		d := detectors[key]
		dets = append(dets, DetectorInfo{
			Key:            key,
			Name:           d.Name(),
			Unit:           d.Unit(),
			Dimensionality: d.Dimensionality(),
		})
	}

	acts := make([]ActuatorInfo, 0, len(actuators))
	for _, key := range sortedKeys(actuators) {
		a := actuators[key]
		info := ActuatorInfo{
			Key:  key,
			Name: a.Name(),
			Unit: a.Unit(),
		}
		switch act := a.(type) {
		case capability.DiscreteActuator:
			info.Kind = ActuatorKindDiscrete
			info.Options = append([]string(nil), act.Options()...)
		case capability.ContinuousActuator:
			info.Kind = ActuatorKindContinuous
			lower, upper := act.Limits()
			info.Limits = &Limits{Lower: lower, Upper: upper}
		}
		acts = append(acts, info)
	}

	return dets, acts
}

// sortedKeys returns the map keys in ascending order. Capability maps are
// small (a handful of entries per device) so insertion sort is fine.
func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}
