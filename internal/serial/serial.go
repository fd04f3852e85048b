// Package serial writes measurements to a serial console, one line per
// completed cycle.
package serial

import (
	"fmt"
	"io"
	"time"

	goserial "github.com/tarm/serial"

	"github.com/sweeney/sonar-sensor/internal/measurement"
)

// Open opens the named serial port for writing reports.
func Open(name string, baud int) (io.ReadWriteCloser, error) {
	port, err := goserial.OpenPort(&goserial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return port, nil
}

// Reporter writes each new measurement as "R<seq> <ticks>\r\n".
type Reporter struct {
	w       io.Writer
	lastSeq uint64
}

// NewReporter creates a Reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Report writes m if it has not been reported yet. It returns whether a
// line was written.
func (r *Reporter) Report(m measurement.Measurement) (bool, error) {
	if m.Seq == 0 || m.Seq == r.lastSeq {
		return false, nil
	}
	if _, err := fmt.Fprintf(r.w, "R%d %d\r\n", m.Seq, m.Ticks); err != nil {
		return false, fmt.Errorf("write report: %w", err)
	}
	r.lastSeq = m.Seq
	return true, nil
}
