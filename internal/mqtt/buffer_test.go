package mqtt

import (
	"testing"
)

func fill(o *outbox, from, to int) {
	for i := from; i < to; i++ {
		o.add(pending{topic: Topic, payload: []byte{byte(i)}})
	}
}

func firstBytes(msgs []pending) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func TestOutboxTakeEmpty(t *testing.T) {
	o := newOutbox(4)
	if got := o.take(); got != nil {
		t.Errorf("take on empty outbox: got %d messages, want nil", len(got))
	}
}

func TestOutboxOldestFirst(t *testing.T) {
	o := newOutbox(8)
	fill(o, 0, 5)

	got := firstBytes(o.take())
	if want := []byte{0, 1, 2, 3, 4}; string(got) != string(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if o.size() != 0 {
		t.Errorf("size after take: got %d, want 0", o.size())
	}
}

func TestOutboxOverwritesOldest(t *testing.T) {
	o := newOutbox(3)
	fill(o, 0, 7)

	if o.size() != 3 {
		t.Fatalf("size: got %d, want 3", o.size())
	}
	if o.dropped != 4 {
		t.Errorf("dropped: got %d, want 4", o.dropped)
	}
	got := firstBytes(o.take())
	if want := []byte{4, 5, 6}; string(got) != string(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if o.warned {
		t.Error("warning flag should reset on take")
	}
}

func TestOutboxReuseAfterTake(t *testing.T) {
	o := newOutbox(2)
	fill(o, 0, 3)
	o.take()
	fill(o, 10, 12)

	got := firstBytes(o.take())
	if want := []byte{10, 11}; string(got) != string(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestOutboxCapacityAtLeastOne(t *testing.T) {
	o := newOutbox(0)
	fill(o, 0, 2)

	got := firstBytes(o.take())
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("got %v, want [1]", got)
	}
}

func TestOutboxKeepsDeliveryOptions(t *testing.T) {
	o := newOutbox(2)
	o.add(pending{topic: TopicSystem, payload: []byte("x"), qos: 1, retained: true})

	got := o.take()
	if len(got) != 1 {
		t.Fatalf("got %d messages, want 1", len(got))
	}
	if m := got[0]; m.topic != TopicSystem || string(m.payload) != "x" || m.qos != 1 || !m.retained {
		t.Errorf("unexpected message: %+v", m)
	}
}

func TestOutboxRequeueGoesFirst(t *testing.T) {
	o := newOutbox(8)
	fill(o, 5, 7)
	o.requeue([]pending{{payload: []byte{1}}, {payload: []byte{2}}})

	got := firstBytes(o.take())
	if want := []byte{1, 2, 5, 6}; string(got) != string(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
