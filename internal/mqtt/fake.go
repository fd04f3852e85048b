package mqtt

import "sync"

// FakePublisher keeps everything it is asked to send, in order, so tests can
// inspect what the daemon would have put on the wire.
type FakePublisher struct {
	mu sync.Mutex

	Events       []MeasurementEvent
	Payloads     [][]byte // formatted measurement payloads
	SystemEvents []SystemEvent

	PublishError error // returned by Publish when set; system events still go out
	Connected    bool
	Closed       bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(event MeasurementEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if _, err := FormatSystemPayload(event); err != nil {
		return err
	}
	f.mu.Lock()
	f.SystemEvents = append(f.SystemEvents, event)
	f.mu.Unlock()
	return nil
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}
