package serial

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sweeney/sonar-sensor/internal/measurement"
)

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("simulated error") }

func TestReporterSkipsBeforeFirstCommit(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	wrote, err := r.Report(measurement.Measurement{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wrote || buf.Len() != 0 {
		t.Errorf("expected nothing written, got %q", buf.String())
	}
}

func TestReporterWritesNewMeasurementsOnce(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.Report(measurement.Measurement{Ticks: 42, Seq: 1})
	r.Report(measurement.Measurement{Ticks: 42, Seq: 1})
	r.Report(measurement.Measurement{Ticks: 42, Seq: 2})
	r.Report(measurement.Measurement{Ticks: 300, Seq: 5})

	want := "R1 42\r\nR2 42\r\nR5 300\r\n"
	if buf.String() != want {
		t.Errorf("output:\ngot:  %q\nwant: %q", buf.String(), want)
	}
}

func TestReporterRetriesAfterError(t *testing.T) {
	r := NewReporter(failWriter{})

	if _, err := r.Report(measurement.Measurement{Ticks: 1, Seq: 1}); err == nil {
		t.Fatal("expected error")
	}

	var buf bytes.Buffer
	r.w = &buf
	wrote, err := r.Report(measurement.Measurement{Ticks: 1, Seq: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !wrote {
		t.Error("failed measurement should be written on retry")
	}
}
