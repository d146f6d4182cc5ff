// Package mqtt provides MQTT client connectivity for the mdacore server.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// mdacore uses MQTT as its outbound event bus. Run state transitions,
// per-step progress events and device connection changes are published
// so that control UIs and downstream consumers can follow acquisition
// without polling the HTTP API.
//
//	mdacore server → MQTT Broker → UIs / loggers / downstream consumers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all run state transitions
//	err = client.Subscribe(mqtt.Topics{}.AllRunStates(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a progress event
//	topic := mqtt.Topics{}.RunProgress(runID)
//	client.Publish(topic, payload, 1, false)
package mqtt
