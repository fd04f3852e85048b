//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"
	"github.com/womat/debug"
)

// RealSensor drives the trigger line and watches the echo line using the
// Linux GPIO character device.
type RealSensor struct {
	chip    *gpiocdev.Chip
	trigger *gpiocdev.Line
	echo    *gpiocdev.Line
	edges   chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped atomic.Uint64
}

// NewRealSensor requests the trigger and echo lines on the given chip.
func NewRealSensor(chipName string, pinTrigger, pinEcho int) (*RealSensor, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	s := &RealSensor{
		chip:  chip,
		edges: make(chan struct{}, edgeBuffer),
	}

	s.trigger, err = chip.RequestLine(pinTrigger, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request trigger pin %d: %w", pinTrigger, err)
	}

	// Pull-up keeps a disconnected echo line from floating.
	s.echo, err = chip.RequestLine(pinEcho,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(s.handleEvent))
	if err != nil {
		s.trigger.Close()
		chip.Close()
		return nil, fmt.Errorf("request echo pin %d: %w", pinEcho, err)
	}

	return s, nil
}

// handleEvent runs on the gpiocdev watcher goroutine. It must not block.
func (s *RealSensor) handleEvent(evt gpiocdev.LineEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.edges <- struct{}{}:
	default:
		if s.dropped.Add(1) == 1 {
			debug.ErrorLog.Printf("gpio: echo edge buffer full, dropping edges")
		}
	}
	debug.TraceLog.Printf("gpio: echo edge type=%v seq=%d", evt.Type, evt.Seqno)
}

// Set drives the trigger line.
func (s *RealSensor) Set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	if err := s.trigger.SetValue(v); err != nil {
		return fmt.Errorf("write trigger pin: %w", err)
	}
	return nil
}

// Edges returns the echo edge channel.
func (s *RealSensor) Edges() <-chan struct{} {
	return s.edges
}

// Dropped returns the number of echo edges lost to a full buffer.
func (s *RealSensor) Dropped() uint64 {
	return s.dropped.Load()
}

// Close releases GPIO resources.
// Drives the trigger low and reconfigures both lines as inputs before closing
// so the sensor is left idle.
func (s *RealSensor) Close() error {
	var errs []error

	if s.trigger != nil {
		if err := s.trigger.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("park trigger pin: %w", err))
		}
		if err := s.trigger.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure trigger pin: %w", err))
		}
		if err := s.trigger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trigger pin: %w", err))
		}
	}
	// Closing the line waits for a running event handler to return.
	if s.echo != nil {
		if err := s.echo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close echo pin: %w", err))
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.edges)
	}
	s.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
