// Package dispatch turns the periodic tick and echo level-change sources
// into state machine events and drives the trigger output.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/womat/debug"

	"github.com/sweeney/sonar-sensor/internal/sonar"
)

// Trigger drives the sensor's trigger input.
type Trigger interface {
	Set(high bool) error
}

// Snapshot is a point-in-time view of the dispatcher and its machine.
type Snapshot struct {
	State         sonar.State
	Counter       int
	Armed         Edge
	Counts        sonar.Counts
	TriggerHigh   bool
	TriggerErrors int
	MissedTicks   uint64 // periods recovered from late tick deliveries
}

// Dispatcher serializes event delivery to a sonar.Machine.
type Dispatcher struct {
	mu            sync.Mutex
	machine       *sonar.Machine
	polarity      Polarity
	trigger       Trigger
	triggerHigh   bool
	triggerErrors int

	period   time.Duration // zero disables catch-up
	lastTick time.Time
	missed   uint64
}

// New creates a dispatcher around machine. The trigger output is assumed
// low and the rising echo edge armed.
func New(machine *sonar.Machine, trigger Trigger) *Dispatcher {
	return &Dispatcher{
		machine: machine,
		trigger: trigger,
	}
}

// maxCatchUp bounds the ticks replayed for one late delivery. It is enough
// to expire any cycle in flight.
const maxCatchUp = sonar.MeasureTimeout + 2

// SetTickPeriod sets the nominal tick period used by OnTickAt. Call it
// before Run.
func (d *Dispatcher) SetTickPeriod(period time.Duration) {
	d.mu.Lock()
	d.period = period
	d.lastTick = time.Time{}
	d.mu.Unlock()
}

// OnTickAt handles a tick stamped at t, as delivered by a time.Ticker. A
// ticker drops ticks when the receiver falls behind, so the elapsed time
// since the previous tick is rounded to whole periods and one Tick is
// delivered per period. A zero t or an unset period delivers exactly one.
func (d *Dispatcher) OnTickAt(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 1
	if d.period > 0 && !t.IsZero() {
		if !d.lastTick.IsZero() {
			n = int((t.Sub(d.lastTick) + d.period/2) / d.period)
			if n < 1 {
				n = 1
			}
			if n > maxCatchUp {
				n = maxCatchUp
			}
		}
		d.lastTick = t
	}
	if n > 1 {
		d.missed += uint64(n - 1)
		debug.TraceLog.Printf("dispatch: tick late, delivering %d periods", n)
	}
	for i := 0; i < n; i++ {
		d.tick()
	}
}

// OnPeriodicTick must be called once per tick period.
//
// While the counter is negative no cycle is in flight and the trigger is
// held high. The first tick that brings the counter back to zero or above
// releases the trigger and starts a new cycle. Start is ignored by the
// machine while a cycle is running.
func (d *Dispatcher) OnPeriodicTick() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tick()
}

func (d *Dispatcher) tick() {
	if d.deliver(sonar.EventTick) < 0 {
		d.setTrigger(true)
		return
	}
	d.setTrigger(false)
	d.deliver(sonar.EventStart)
}

// OnEchoEdge must be called once per echo line level change. The direction
// comes from the armed polarity, not from the caller.
func (d *Dispatcher) OnEchoEdge() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.polarity.Toggle() == EdgeRising {
		d.deliver(sonar.EventEchoRise)
		return
	}
	d.deliver(sonar.EventEchoFall)
}

// Run funnels ticks and edges into the machine from a single goroutine
// until ctx is done or either channel is closed.
func (d *Dispatcher) Run(ctx context.Context, ticks <-chan time.Time, edges <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-ticks:
			if !ok {
				return nil
			}
			d.OnTickAt(t)
		case _, ok := <-edges:
			if !ok {
				return nil
			}
			d.OnEchoEdge()
		}
	}
}

// Snapshot returns the current dispatcher state.
func (d *Dispatcher) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		State:         d.machine.State(),
		Counter:       d.machine.Counter(),
		Armed:         d.polarity.Armed(),
		Counts:        d.machine.Counts(),
		TriggerHigh:   d.triggerHigh,
		TriggerErrors: d.triggerErrors,
		MissedTicks:   d.missed,
	}
}

func (d *Dispatcher) deliver(event sonar.Event) int {
	from := d.machine.State()
	counter := d.machine.Handle(event)
	if to := d.machine.State(); to != from {
		debug.TraceLog.Printf("sonar: %s -> %s on %s (counter=%d)", from, to, event, counter)
	}
	return counter
}

// setTrigger writes the trigger line only when the level changes. A failed
// write leaves the recorded level untouched so the next tick retries.
func (d *Dispatcher) setTrigger(high bool) {
	if d.trigger == nil || high == d.triggerHigh {
		return
	}
	if err := d.trigger.Set(high); err != nil {
		d.triggerErrors++
		if d.triggerErrors == 1 {
			debug.ErrorLog.Printf("trigger write error: %v", err)
		}
		return
	}
	d.triggerHigh = high
}
