package gpio

import "sync"

// FakeTrigger is a test double that records trigger writes.
type FakeTrigger struct {
	mu     sync.Mutex
	writes []bool

	// SetError, if set, will be returned by Set().
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeTrigger creates a FakeTrigger that starts low.
func NewFakeTrigger() *FakeTrigger {
	return &FakeTrigger{}
}

// Set records the level unless SetError is set.
func (f *FakeTrigger) Set(high bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.writes = append(f.writes, high)
	return nil
}

// High returns the last written level.
func (f *FakeTrigger) High() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return false
	}
	return f.writes[len(f.writes)-1]
}

// Writes returns a copy of all recorded levels in order.
func (f *FakeTrigger) Writes() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.writes...)
}

// Close marks the trigger as closed.
func (f *FakeTrigger) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// FakeEcho is a test double whose edges are emitted manually.
type FakeEcho struct {
	edges  chan struct{}
	once   sync.Once
	Closed bool
}

// NewFakeEcho creates a FakeEcho with a buffered edge channel.
func NewFakeEcho() *FakeEcho {
	return &FakeEcho{edges: make(chan struct{}, edgeBuffer)}
}

// Emit queues n level changes. It blocks when the buffer is full.
func (f *FakeEcho) Emit(n int) {
	for i := 0; i < n; i++ {
		f.edges <- struct{}{}
	}
}

// Edges returns the edge channel.
func (f *FakeEcho) Edges() <-chan struct{} {
	return f.edges
}

// Close closes the edge channel. Safe to call more than once.
func (f *FakeEcho) Close() error {
	f.once.Do(func() {
		f.Closed = true
		close(f.edges)
	})
	return nil
}
