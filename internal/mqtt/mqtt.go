// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// Topic is the default MQTT topic for measurements.
const Topic = "sensors/sonar/measurements"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "sensors/sonar/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a measurement to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event MeasurementEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// MeasurementEvent is a committed echo duration to be published.
type MeasurementEvent struct {
	Timestamp  time.Time
	Ticks      int
	Seq        uint64
	TickPeriod time.Duration
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Sonar SonarPayload `json:"sonar"`
}

// SonarPayload contains the measurement details.
type SonarPayload struct {
	Timestamp string `json:"timestamp"`
	Ticks     int    `json:"ticks"`
	Seq       uint64 `json:"seq"`
	TickUs    int64  `json:"tick_us"`
}

// FormatPayload creates the JSON payload for a measurement.
func FormatPayload(event MeasurementEvent) ([]byte, error) {
	payload := Payload{
		Sonar: SonarPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Ticks:     event.Ticks,
			Seq:       event.Seq,
			TickUs:    event.TickPeriod.Microseconds(),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
