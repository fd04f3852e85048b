// Package sonar contains the echo-timing state machine for a trigger/echo
// ultrasonic range sensor.
// This package has NO external dependencies (no GPIO, MQTT, OS, or clocks).
// Elapsed time is counted in ticks delivered as events.
package sonar

// State represents the phase of the current measurement cycle.
type State string

const (
	StateIdle      State = "IDLE"
	StateWaiting   State = "WAITING"
	StateMeasuring State = "MEASURING"
)

// Event is an input to the state machine.
type Event int

const (
	EventTick Event = iota
	EventStart
	EventEchoRise
	EventEchoFall
)

var eventNames = [...]string{
	EventTick:     "TICK",
	EventStart:    "START",
	EventEchoRise: "ECHO_RISE",
	EventEchoFall: "ECHO_FALL",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "UNKNOWN"
	}
	return eventNames[e]
}

const (
	// Sentinel is the counter value of an abandoned or finished cycle.
	Sentinel = -2

	// WaitTimeout is the number of ticks allowed between Start and the
	// echo rising edge.
	WaitTimeout = 15

	// MeasureTimeout is the longest echo pulse accepted, in ticks.
	MeasureTimeout = 600
)

// Recorder receives completed measurements.
type Recorder interface {
	Set(ticks int)
}

// Counts tracks cycle outcomes since startup.
type Counts struct {
	Completed       int
	WaitTimeouts    int
	MeasureTimeouts int
	Rearms          int // EchoRise received while already measuring
}
