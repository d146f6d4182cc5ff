package measurement

import (
	"context"
	"time"

	"github.com/openmda/mda-core/internal/device"
)

// TimeSeries reads a fixed set of detectors at a fixed interval. The first
// sample is taken immediately; the interval applies between subsequent
// steps. A count of 0 means unbounded: the cursor never reports done and
// the run ends only through cancellation.
type TimeSeries struct {
	detectors []detectorBinding
	devices   []device.Device
	count     int
	interval  time.Duration

	step    int
	started time.Time
}

func newTimeSeries(detectors []detectorBinding, devices []device.Device, count int, interval time.Duration) *TimeSeries {
	return &TimeSeries{
		detectors: detectors,
		devices:   devices,
		count:     count,
		interval:  interval,
	}
}

// Kind returns KindTimeSeries.
func (m *TimeSeries) Kind() Kind { return KindTimeSeries }

// TotalSteps returns the configured sample count, 0 when unbounded.
func (m *TimeSeries) TotalSteps() int { return m.count }

// Devices returns the distinct devices read by this series, sorted by ID.
func (m *TimeSeries) Devices() []device.Device { return m.devices }

// Next waits out the interval (except before the first sample), reads every
// detector and returns the step. Interval waits honour ctx cancellation.
func (m *TimeSeries) Next(ctx context.Context) (DataPoint, bool, error) {
	if m.count > 0 && m.step >= m.count {
		return DataPoint{}, false, nil
	}

	if m.step == 0 {
		m.started = time.Now()
	} else if m.interval > 0 {
		timer := time.NewTimer(m.interval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return DataPoint{}, false, ctx.Err()
		case <-timer.C:
		}
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
		Readings:  readings,
	}
	m.step++
	return dp, true, nil
}
