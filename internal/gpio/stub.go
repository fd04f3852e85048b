//go:build !linux

package gpio

import "errors"

// RealSensor is not available on non-Linux platforms.
type RealSensor struct{}

// NewRealSensor returns an error on non-Linux platforms.
func NewRealSensor(chipName string, pinTrigger, pinEcho int) (*RealSensor, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (s *RealSensor) Set(high bool) error {
	return errors.New("gpio: not supported")
}

// Edges returns nil on non-Linux platforms.
func (s *RealSensor) Edges() <-chan struct{} {
	return nil
}

// Dropped always returns 0 on non-Linux platforms.
func (s *RealSensor) Dropped() uint64 {
	return 0
}

// Close is not implemented on non-Linux platforms.
func (s *RealSensor) Close() error {
	return nil
}
