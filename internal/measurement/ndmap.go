package measurement

import (
	"context"
	"fmt"
	"time"

	"github.com/openmda/mda-core/internal/capability"
	"github.com/openmda/mda-core/internal/device"
)

// Map iteration modes.
const (
	ModeProduct = "product"
	ModeZip     = "zip"
)

// axis is one resolved actuator axis of an NDMap. Exactly one of discrete
// or continuous is non-nil; the matching waypoint slice is populated.
type axis struct {
	deviceID string
	key      int
	name     string

	discrete   capability.DiscreteActuator
	continuous capability.ContinuousActuator

	indices []int
	values  []float64
}

// length returns the number of waypoints on this axis.
func (a *axis) length() int {
	if a.discrete != nil {
		return len(a.indices)
	}
	return len(a.values)
}

// apply commands the actuator to waypoint pos and reports where it was sent.
func (a *axis) apply(ctx context.Context, pos int) (AxisPosition, error) {
	ap := AxisPosition{
		DeviceID: a.deviceID,
		Key:      a.key,
		Name:     a.name,
	}
	if a.discrete != nil {
		idx := a.indices[pos]
		if err := a.discrete.SetPosition(ctx, idx); err != nil {
			return AxisPosition{}, fmt.Errorf("axis %s/%d: %w", a.deviceID, a.key, err)
		}
		ap.Kind = device.ActuatorKindDiscrete
		ap.Index = idx
		ap.Option = a.discrete.Options()[idx]
		return ap, nil
	}

	val := a.values[pos]
	if err := a.continuous.SetPosition(ctx, val); err != nil {
		return AxisPosition{}, fmt.Errorf("axis %s/%d: %w", a.deviceID, a.key, err)
	}
	ap.Kind = device.ActuatorKindContinuous
	ap.Value = val
	return ap, nil
}

// NDMap sweeps actuator axes and reads detectors at each grid point.
//
// In product mode the cursor walks the Cartesian product of the axes in
// row-major order with the first axis slowest (the last axis varies
// fastest). In zip mode all axes advance together and must have equal
// length. Every axis is commanded before the detectors are read at every
// step, even when its waypoint is unchanged from the previous step.
type NDMap struct {
	mode      string
	axes      []*axis
	detectors []detectorBinding
	devices   []device.Device
	total     int

	step    int
	started time.Time
}

func newNDMap(mode string, axes []*axis, detectors []detectorBinding, devices []device.Device) *NDMap {
	total := 0
	switch mode {
	case ModeZip:
		if len(axes) > 0 {
			total = axes[0].length()
		}
	default:
		total = 1
		for _, a := range axes {
			total *= a.length()
		}
	}
	return &NDMap{
		mode:      mode,
		axes:      axes,
		detectors: detectors,
		devices:   devices,
		total:     total,
	}
}

// Kind returns KindNDMap.
func (m *NDMap) Kind() Kind { return KindNDMap }

// TotalSteps returns the number of grid points.
func (m *NDMap) TotalSteps() int { return m.total }

// Devices returns the distinct devices this map touches, sorted by ID.
func (m *NDMap) Devices() []device.Device { return m.devices }

// waypoints returns the per-axis waypoint cursor for the given step.
func (m *NDMap) waypoints(step int) []int {
	pos := make([]int, len(m.axes))
	if m.mode == ModeZip {
		for i := range pos {
			pos[i] = step
		}
		return pos
	}
	// Row-major: last axis fastest, first axis slowest.
	rem := step
	for i := len(m.axes) - 1; i >= 0; i-- {
		n := m.axes[i].length()
		pos[i] = rem % n
		rem /= n
	}
	return pos
}

// Next commands every axis to its waypoint for this step, reads every
// detector and returns the resulting grid point.
func (m *NDMap) Next(ctx context.Context) (DataPoint, bool, error) {
	if m.step >= m.total {
		return DataPoint{}, false, nil
	}
	if m.step == 0 {
		m.started = time.Now()
	}

	cursor := m.waypoints(m.step)
	positions := make([]AxisPosition, 0, len(m.axes))
	for i, a := range m.axes {
		ap, err := a.apply(ctx, cursor[i])
		if err != nil {
			return DataPoint{}, false, err
		}
		positions = append(positions, ap)
	}

	readings, err := readAll(ctx, m.detectors)
	if err != nil {
		return DataPoint{}, false, err
	}

	now := time.Now()
	dp := DataPoint{
		Index:     m.step,
		Timestamp: now,
		Elapsed:   now.Sub(m.started),
		Positions: positions,
		Readings:  readings,
	}
	m.step++
	return dp, true, nil
}
