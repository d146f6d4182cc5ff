package measurement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/openmda/mda-core/internal/capability"
	"github.com/openmda/mda-core/internal/device"
)

// Kind identifies a measurement strategy.
type Kind string

// Measurement kinds.
const (
	KindTimeSeries Kind = "time_series"
	KindNDMap      Kind = "nd_map"
)

// Measurement is a single-run cursor over acquisition steps. The engine
// owns the loop: it calls Next repeatedly until done is false or err is
// non-nil, checking for cancellation between calls.
type Measurement interface {
	// Kind returns the strategy identifier.
	Kind() Kind

	// TotalSteps returns the number of steps the measurement will
	// produce, or 0 when unbounded (it then runs until cancelled).
	TotalSteps() int

	// Devices returns the distinct devices this measurement touches,
	// sorted by ID. The engine serializes runs on these.
	Devices() []device.Device

	// Next performs one acquisition step: command every axis (if any),
	// then read every detector. It returns the resulting DataPoint and
	// done=true, or done=false once the cursor is exhausted. A non-nil
	// error aborts the run; the step produced no DataPoint.
	Next(ctx context.Context) (DataPoint, bool, error)
}

// DataPoint is one completed acquisition step.
type DataPoint struct {
	// Index is the zero-based step number.
	Index int `json:"index"`

	// Timestamp is when the step's detector readings completed.
	Timestamp time.Time `json:"timestamp"`

	// Elapsed is the time since the run's first step began.
	Elapsed time.Duration `json:"elapsed"`

	// Positions holds the commanded actuator positions for this step, in
	// axis order. Empty for measurements without axes.
	Positions []AxisPosition `json:"positions,omitempty"`

	// Readings holds one Reading per configured detector, in selector
	// order.
	Readings []capability.Reading `json:"readings"`
}

// AxisPosition records where one actuator axis was commanded for a step.
// Discrete axes populate Index and Option; continuous axes populate Value.
type AxisPosition struct {
	DeviceID string  `json:"device_id"`
	Key      int     `json:"key"`
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Index    int     `json:"index,omitempty"`
	Option   string  `json:"option,omitempty"`
	Value    float64 `json:"value,omitempty"`
}

// detectorBinding is a resolved detector selector.
type detectorBinding struct {
	deviceID string
	key      int
	det      capability.Detector
}

// readAll reads every bound detector in order, failing fast on the first
// error so the step produces no partial DataPoint.
func readAll(ctx context.Context, bindings []detectorBinding) ([]capability.Reading, error) {
	readings := make([]capability.Reading, 0, len(bindings))
	for _, b := range bindings {
		r, err := b.det.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("detector %s/%d: %w", b.deviceID, b.key, err)
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// sortedDevices returns the distinct devices from the map, sorted by ID.
func sortedDevices(byID map[string]device.Device) []device.Device {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	devs := make([]device.Device, 0, len(ids))
	for _, id := range ids {
		devs = append(devs, byID[id])
	}
	return devs
}
