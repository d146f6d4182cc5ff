package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/openmda/mda-core/internal/capability"
)

// WriteReading writes one scalar detector reading to InfluxDB.
//
// This is the primary method for recording acquisition telemetry.
// The write is non-blocking; data is batched and sent asynchronously.
// Non-scalar readings (vectors, images) are skipped because their bulk
// belongs in the run archive, not a time-series store.
//
// Parameters:
//   - runID: The run the reading belongs to
//   - reading: The acquired reading
//
// Example:
//
//	client.WriteReading(runID, reading)
func (c *Client) WriteReading(runID string, reading capability.Reading) {
	if !c.IsConnected() {
		return
	}

	value, ok := reading.Scalar()
	if !ok {
		return
	}

	point := write.NewPoint(
		"readings",
		map[string]string{
			"run_id":   runID,
			"detector": reading.Detector,
		},
		map[string]interface{}{
			"value": value,
		},
		reading.Timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteAxisPosition writes a commanded actuator position to InfluxDB.
//
// Used alongside WriteReading so a run's trajectory through parameter
// space can be reconstructed from the time-series store alone.
//
// Parameters:
//   - runID: The run the move belongs to
//   - deviceID: The device that owns the actuator
//   - axis: The actuator name
//   - value: The commanded position (option index for discrete actuators)
//   - timestamp: When the move completed
func (c *Client) WriteAxisPosition(runID string, deviceID string, axis string, value float64, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"positions",
		map[string]string{
			"run_id":    runID,
			"device_id": deviceID,
			"axis":      axis,
		},
		map[string]interface{}{
			"value": value,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "mda-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
