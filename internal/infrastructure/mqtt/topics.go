package mqtt

import "fmt"

// Topic prefixes for the mdacore MQTT hierarchy.
//
// All topics live under the flat scheme: mdacore/{category}/...
const (
	// TopicPrefixRoot is the base for all mdacore topics.
	TopicPrefixRoot = "mdacore"

	// TopicPrefixCore is the base for all core topics (run and device
	// events published by the server).
	TopicPrefixCore = "mdacore/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "mdacore/system"
)

// Topics provides builders for mdacore MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.RunState("3f2a...")
//	// Returns: "mdacore/core/run/3f2a.../state"
type Topics struct{}

// =============================================================================
// Core Topics
// =============================================================================

// RunState returns the topic for run state transitions.
//
// Example: mdacore/core/run/3f2a.../state
func (Topics) RunState(runID string) string {
	return fmt.Sprintf("%s/run/%s/state", TopicPrefixCore, runID)
}

// RunProgress returns the topic for per-step run progress events.
//
// Example: mdacore/core/run/3f2a.../progress
func (Topics) RunProgress(runID string) string {
	return fmt.Sprintf("%s/run/%s/progress", TopicPrefixCore, runID)
}

// DeviceState returns the topic for device connection state changes.
//
// Example: mdacore/core/device/stage-01/state
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/state", TopicPrefixCore, deviceID)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
//
// Example: mdacore/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: mdacore/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllRunStates returns a pattern matching every run state transition.
//
// Pattern: mdacore/core/run/+/state
func (Topics) AllRunStates() string {
	return fmt.Sprintf("%s/run/+/state", TopicPrefixCore)
}

// AllRunProgress returns a pattern matching every run progress event.
//
// Pattern: mdacore/core/run/+/progress
func (Topics) AllRunProgress() string {
	return fmt.Sprintf("%s/run/+/progress", TopicPrefixCore)
}

// AllDeviceStates returns a pattern matching every device state change.
//
// Pattern: mdacore/core/device/+/state
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/device/+/state", TopicPrefixCore)
}

// AllTopics returns a pattern matching all mdacore topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: mdacore/#
func (Topics) AllTopics() string {
	return TopicPrefixRoot + "/#"
}
