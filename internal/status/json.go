package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string           `json:"event,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	State         string           `json:"state"`
	Counter       int              `json:"counter"`
	ArmedEdge     string           `json:"armed_edge"`
	Trigger       string           `json:"trigger"`
	Last          *MeasurementJSON `json:"last_measurement,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	StartTime     string           `json:"start_time"`
	Timestamp     string           `json:"timestamp"`
	MQTT          MQTTStatus       `json:"mqtt"`
	Counts        CountsJSON       `json:"cycle_counts"`
	Network       *NetworkJSON     `json:"network,omitempty"`
	Config        ConfigJSON       `json:"config"`
}

// MeasurementJSON is the JSON representation of the last measurement.
type MeasurementJSON struct {
	Ticks     int    `json:"ticks"`
	Seq       uint64 `json:"seq"`
	Timestamp string `json:"timestamp"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of cycle outcome counts.
type CountsJSON struct {
	Completed       int    `json:"completed"`
	WaitTimeouts    int    `json:"wait_timeouts"`
	MeasureTimeouts int    `json:"measure_timeouts"`
	Rearms          int    `json:"rearms"`
	TriggerErrors   int    `json:"trigger_errors"`
	MissedTicks     uint64 `json:"missed_ticks"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickUs      int64  `json:"tick_us"`
	ReportMs    int64  `json:"report_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	PinTrigger  int    `json:"pin_trigger"`
	PinEcho     int    `json:"pin_echo"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	SerialPort  string `json:"serial_port,omitempty"`
}

// MeasurementView returns the JSON form of the last measurement, or nil if
// none has been committed.
func MeasurementView(snap Snapshot) *MeasurementJSON {
	if snap.Last.Seq == 0 {
		return nil
	}
	return &MeasurementJSON{
		Ticks:     snap.Last.Ticks,
		Seq:       snap.Last.Seq,
		Timestamp: snap.Last.At.UTC().Format(time.RFC3339Nano),
	}
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.Sonar.State)
	if !snap.Updated || state == "" {
		state = "UNKNOWN"
	}
	trigger := "LOW"
	if snap.Sonar.TriggerHigh {
		trigger = "HIGH"
	}

	return StatusInner{
		State:         state,
		Counter:       snap.Sonar.Counter,
		ArmedEdge:     snap.Sonar.Armed.String(),
		Trigger:       trigger,
		Last:          MeasurementView(snap),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Completed:       snap.Sonar.Counts.Completed,
			WaitTimeouts:    snap.Sonar.Counts.WaitTimeouts,
			MeasureTimeouts: snap.Sonar.Counts.MeasureTimeouts,
			Rearms:          snap.Sonar.Counts.Rearms,
			TriggerErrors:   snap.Sonar.TriggerErrors,
			MissedTicks:     snap.Sonar.MissedTicks,
		},
		Config: ConfigJSON{
			TickUs:      snap.Config.TickUs,
			ReportMs:    snap.Config.ReportMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			PinTrigger:  snap.Config.PinTrigger,
			PinEcho:     snap.Config.PinEcho,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			SerialPort:  snap.Config.SerialPort,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
