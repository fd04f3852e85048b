package sonar

// Machine converts tick and echo events into echo durations.
// It is not safe for concurrent use; callers must serialize Handle.
type Machine struct {
	state    State
	counter  int
	counts   Counts
	recorder Recorder
}

// NewMachine creates a machine in the idle state. Completed measurements
// are committed to rec.
func NewMachine(rec Recorder) *Machine {
	return &Machine{
		state:    StateIdle,
		counter:  Sentinel,
		recorder: rec,
	}
}

// Handle applies one event and returns the tick counter after the
// transition. A negative result means no cycle is being timed.
func (m *Machine) Handle(event Event) int {
	switch m.state {
	case StateIdle:
		m.handleIdle(event)
	case StateWaiting:
		m.handleWaiting(event)
	case StateMeasuring:
		m.handleMeasuring(event)
	}
	return m.counter
}

func (m *Machine) handleIdle(event Event) {
	switch event {
	case EventTick:
		m.counter++
	case EventStart:
		m.counter = 0
		m.state = StateWaiting
	}
}

func (m *Machine) handleWaiting(event Event) {
	switch event {
	case EventTick:
		m.counter++
		if m.counter > WaitTimeout {
			// Trigger produced no echo.
			m.abandon()
			m.counts.WaitTimeouts++
		}
	case EventEchoRise:
		m.counter = 0
		m.state = StateMeasuring
	}
}

func (m *Machine) handleMeasuring(event Event) {
	switch event {
	case EventTick:
		m.counter++
		if m.counter > MeasureTimeout {
			// Echo held beyond the rated range, or the falling edge was lost.
			m.abandon()
			m.counts.MeasureTimeouts++
		}
	case EventEchoRise:
		m.counter = 0
		m.counts.Rearms++
	case EventEchoFall:
		if m.recorder != nil {
			m.recorder.Set(m.counter)
		}
		m.counts.Completed++
		m.abandon()
	}
}

func (m *Machine) abandon() {
	m.counter = Sentinel
	m.state = StateIdle
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Counter returns the current tick counter.
func (m *Machine) Counter() int {
	return m.counter
}

// Counts returns a copy of the cycle outcome counters.
func (m *Machine) Counts() Counts {
	return m.counts
}
