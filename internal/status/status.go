// Package status provides a thread-safe status tracker for the sonar-sensor daemon.
// It is read by HTTP handlers and used to build MQTT lifecycle payloads.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/sonar-sensor/internal/dispatch"
	"github.com/sweeney/sonar-sensor/internal/measurement"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	TickUs      int64
	ReportMs    int64
	HeartbeatMs int64
	PinTrigger  int
	PinEcho     int
	Broker      string
	HTTPAddr    string
	SerialPort  string // empty = disabled
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Sonar         dispatch.Snapshot
	Last          measurement.Measurement
	Updated       bool // false until the first Update
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu            sync.RWMutex
	snap          Snapshot
	lastHeartbeat time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		lastHeartbeat: startTime,
	}
}

// Update sets the dispatcher view and the last measurement.
// Called from runLoop on every report tick.
func (t *Tracker) Update(sonar dispatch.Snapshot, last measurement.Measurement) {
	t.mu.Lock()
	t.snap.Sonar = sonar
	t.snap.Last = last
	t.snap.Updated = true
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

// HeartbeatDue reports whether interval has elapsed since the last
// heartbeat (or startup) and, if so, marks a heartbeat at now.
// An interval <= 0 disables heartbeats.
func (t *Tracker) HeartbeatDue(now time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if now.Sub(t.lastHeartbeat) < interval {
		return false
	}
	t.lastHeartbeat = now
	return true
}
