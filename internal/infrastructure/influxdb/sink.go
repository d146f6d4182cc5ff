package influxdb

import (
	"github.com/openmda/mda-core/internal/device"
	"github.com/openmda/mda-core/internal/measurement"
)

// RunSink adapts a Client to the engine's data point sink. Each data point
// fans out into one "readings" point per scalar detector reading and one
// "positions" point per commanded axis.
//
// Writes are batched by the underlying client, so a sink write never blocks
// the acquisition loop.
type RunSink struct {
	client *Client
}

// NewRunSink wraps an InfluxDB client as a run data sink.
func NewRunSink(client *Client) *RunSink {
	return &RunSink{client: client}
}

// WriteDataPoint records one acquisition step in the time-series store.
// Discrete axes record their option index as the position value.
func (s *RunSink) WriteDataPoint(runID string, dp measurement.DataPoint) {
	for _, r := range dp.Readings {
		s.client.WriteReading(runID, r)
	}

	for _, pos := range dp.Positions {
		value := pos.Value
		if pos.Kind == device.ActuatorKindDiscrete {
			value = float64(pos.Index)
		}
		s.client.WriteAxisPosition(runID, pos.DeviceID, pos.Name, value, dp.Timestamp)
	}
}
