package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/sonar-sensor/internal/dispatch"
	"github.com/sweeney/sonar-sensor/internal/measurement"
	"github.com/sweeney/sonar-sensor/internal/sonar"
	"github.com/sweeney/sonar-sensor/internal/status"
)

func newTestServer(t *testing.T) (*Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		TickUs:      58,
		ReportMs:    1000,
		HeartbeatMs: 900000,
		PinTrigger:  23,
		PinEcho:     24,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":80",
	}
	tr := status.NewTracker(start, cfg)
	return New(":0", tr, BuildInfo{Module: "sonar-sensor", Version: "1.0.0"}), tr
}

func get(t *testing.T, s *Server, path string) *http.Response {
	t.Helper()
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeStatus(t *testing.T, resp *http.Response) status.StatusJSON {
	t.Helper()
	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	s, tr := newTestServer(t)
	tr.Update(dispatch.Snapshot{
		State:   sonar.StateWaiting,
		Counter: 3,
		Counts:  sonar.Counts{Completed: 5, WaitTimeouts: 2},
	}, measurement.Measurement{Ticks: 42, Seq: 5, At: time.Now()})
	tr.SetMQTTConnected(true)

	resp := get(t, s, "/index.json")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	sj := decodeStatus(t, resp)
	if sj.Status.State != "WAITING" {
		t.Errorf("State: got %q, want WAITING", sj.Status.State)
	}
	if sj.Status.Last == nil || sj.Status.Last.Ticks != 42 {
		t.Errorf("Last: got %+v, want ticks=42", sj.Status.Last)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts.Completed != 5 || sj.Status.Counts.WaitTimeouts != 2 {
		t.Errorf("Counts: got %+v", sj.Status.Counts)
	}
	if sj.Status.Config.PinEcho != 24 {
		t.Errorf("Config.PinEcho: got %d, want 24", sj.Status.Config.PinEcho)
	}
}

func TestJSONUnknownStateBeforeUpdate(t *testing.T) {
	s, _ := newTestServer(t)

	sj := decodeStatus(t, get(t, s, "/index.json"))
	if sj.Status.State != "UNKNOWN" {
		t.Errorf("State before update: got %q, want UNKNOWN", sj.Status.State)
	}
	if sj.Status.Last != nil {
		t.Errorf("Last before first commit: got %+v, want nil", sj.Status.Last)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	s, tr := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"})

	sj := decodeStatus(t, get(t, s, "/index.json"))
	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestMeasurementEndpoint(t *testing.T) {
	s, tr := newTestServer(t)

	var before status.MeasurementJSON
	if err := json.NewDecoder(get(t, s, "/measurement").Body).Decode(&before); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if before.Ticks != 0 || before.Seq != 0 {
		t.Errorf("before first commit: got %+v, want zero", before)
	}

	at := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	tr.Update(dispatch.Snapshot{State: sonar.StateIdle}, measurement.Measurement{Ticks: 117, Seq: 12, At: at})

	var after status.MeasurementJSON
	if err := json.NewDecoder(get(t, s, "/measurement").Body).Decode(&after); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if after.Ticks != 117 || after.Seq != 12 {
		t.Errorf("after commit: got %+v, want ticks=117 seq=12", after)
	}
	if after.Timestamp != "2026-01-01T00:05:00Z" {
		t.Errorf("Timestamp: got %q", after.Timestamp)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	s, tr := newTestServer(t)
	tr.Update(dispatch.Snapshot{State: sonar.StateMeasuring}, measurement.Measurement{Ticks: 42, Seq: 1, At: time.Now()})

	resp := get(t, s, "/")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "42 ticks") {
		t.Error("page should show the last measurement")
	}
	if !strings.Contains(string(body), "MEASURING") {
		t.Error("page should show the state")
	}
}

func TestHTMLEndpointBeforeFirstMeasurement(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := io.ReadAll(get(t, s, "/index.html").Body)
	if !strings.Contains(string(body), "none yet") {
		t.Error("page should say no measurement yet")
	}
	if !strings.Contains(string(body), "UNKNOWN") {
		t.Error("page should show UNKNOWN state before first update")
	}
}

func TestVersionEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	var v map[string]string
	if err := json.NewDecoder(get(t, s, "/version").Body).Decode(&v); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if v["version"] != "1.0.0" {
		t.Errorf("version: got %q, want 1.0.0", v["version"])
	}
	if v["description"] != "sonar-sensor" {
		t.Errorf("description: got %q, want sonar-sensor", v["description"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	var h HealthJSON
	if err := json.NewDecoder(get(t, s, "/health").Body).Decode(&h); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if h.NumGoroutines <= 0 {
		t.Errorf("NumGoroutines: got %d", h.NumGoroutines)
	}
	if h.Version != "1.0.0" {
		t.Errorf("Version: got %q, want 1.0.0", h.Version)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	s, _ := newTestServer(t)

	if resp := get(t, s, "/nonexistent"); resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}
