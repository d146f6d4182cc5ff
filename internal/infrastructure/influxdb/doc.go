// Package influxdb provides InfluxDB connectivity for the mdacore server.
//
// It wraps the official influxdb-client-go v2 library with mdacore-specific
// patterns for connection management, telemetry writing, and health monitoring.
//
// # Purpose
//
// This package streams acquisition telemetry to a time-series store:
//   - Scalar detector readings per run step
//   - Commanded actuator positions per run step
//   - Ad-hoc instrument and server metrics
//
// Vector and image readings are deliberately excluded; their bulk belongs
// in the run archive, not a time-series database.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "openmda",
//	    Bucket: "acquisition",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Stream run data points via the engine sink adapter
//	sink := influxdb.NewRunSink(client)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency acquisition data.
package influxdb
