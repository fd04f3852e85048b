// Package gpio provides the trigger output and echo edge input of the
// range sensor with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

// Trigger drives the sensor's trigger input.
type Trigger interface {
	// Set drives the trigger line high or low.
	Set(high bool) error

	// Close releases GPIO resources.
	Close() error
}

// EchoSource reports level changes on the sensor's echo output.
type EchoSource interface {
	// Edges delivers one value per level change. The direction is not
	// reported; consumers track it themselves.
	Edges() <-chan struct{}

	// Close releases GPIO resources and closes the Edges channel.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultChip       = "gpiochip0"
	DefaultPinTrigger = 23
	DefaultPinEcho    = 24
)

// edgeBuffer is the capacity of the echo edge channel. One measurement
// cycle produces two edges.
const edgeBuffer = 16
