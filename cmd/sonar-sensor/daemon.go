package main

import (
	"os"
	"syscall"
	"time"

	"github.com/womat/debug"

	"github.com/sweeney/sonar-sensor/internal/dispatch"
	"github.com/sweeney/sonar-sensor/internal/measurement"
	"github.com/sweeney/sonar-sensor/internal/mqtt"
	"github.com/sweeney/sonar-sensor/internal/serial"
	"github.com/sweeney/sonar-sensor/internal/status"
)

// daemon reports what the dispatcher measures. It runs on its own goroutine
// and never touches the state machine directly.
type daemon struct {
	disp       *dispatch.Dispatcher
	store      *measurement.Store
	publisher  mqtt.Publisher        // nil disables MQTT
	mqttStatus mqtt.ConnectionStatus // may be nil
	tracker    *status.Tracker
	reporter   *serial.Reporter // nil disables serial output
	tickPeriod time.Duration
	heartbeat  time.Duration
	now        func() time.Time

	lastSeq uint64
}

func (d *daemon) runLoop(report <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			debug.InfoLog.Printf("received %v, shutting down", s)
			d.shutdown(s)
			return nil

		case <-report:
			d.onReport(d.now())
		}
	}
}

func (d *daemon) onReport(t time.Time) {
	m := d.store.Snapshot()
	snap := d.disp.Snapshot()

	if m.Seq != 0 && m.Seq != d.lastSeq {
		debug.DebugLog.Printf("measurement: ticks=%d seq=%d", m.Ticks, m.Seq)
		if d.publisher != nil {
			err := d.publisher.Publish(mqtt.MeasurementEvent{
				Timestamp:  m.At,
				Ticks:      m.Ticks,
				Seq:        m.Seq,
				TickPeriod: d.tickPeriod,
			})
			if err != nil {
				// Don't crash on publish failure
				debug.ErrorLog.Printf("publish error: %v", err)
			}
		}
		d.lastSeq = m.Seq
	}

	if d.reporter != nil {
		if _, err := d.reporter.Report(m); err != nil {
			debug.ErrorLog.Printf("serial report error: %v", err)
		}
	}

	d.tracker.Update(snap, m)
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}

	if d.tracker.HeartbeatDue(t, d.heartbeat) {
		debug.InfoLog.Printf("heartbeat: state=%s completed=%d wait_timeouts=%d measure_timeouts=%d",
			snap.State, snap.Counts.Completed, snap.Counts.WaitTimeouts, snap.Counts.MeasureTimeouts)
		if d.publisher == nil {
			return
		}
		// Refresh network info for heartbeat
		if net := readNetworkInfo(); net != nil {
			d.tracker.SetNetwork(net)
		}
		hb := mqtt.SystemEvent{
			Timestamp:  t,
			Event:      "HEARTBEAT",
			RawPayload: status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", ""),
		}
		if err := d.publisher.PublishSystem(hb); err != nil {
			debug.ErrorLog.Printf("heartbeat publish error: %v", err)
		}
	}
}

func (d *daemon) shutdown(s os.Signal) {
	if d.publisher == nil {
		return
	}
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}

	d.tracker.Update(d.disp.Snapshot(), d.store.Snapshot())
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	event := mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      "SHUTDOWN",
		Reason:     signalName,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", signalName),
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		debug.ErrorLog.Printf("failed to publish shutdown event: %v", err)
	} else {
		debug.InfoLog.Printf("published shutdown event")
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
