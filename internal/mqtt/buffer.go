package mqtt

import "github.com/womat/debug"

// pending is a message held back until the broker is reachable again.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox keeps the newest messages published while offline. When full, the
// oldest message is overwritten. Callers synchronize.
type outbox struct {
	slots   []pending
	oldest  int
	n       int
	dropped uint64 // total overwritten since creation
	warned  bool
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{slots: make([]pending, capacity)}
}

func (o *outbox) add(m pending) {
	c := len(o.slots)
	if o.n < c {
		o.slots[(o.oldest+o.n)%c] = m
		o.n++
		return
	}
	o.slots[o.oldest] = m
	o.oldest = (o.oldest + 1) % c
	o.dropped++
	if !o.warned {
		debug.ErrorLog.Printf("mqtt: offline buffer full (%d messages), overwriting oldest", c)
		o.warned = true
	}
}

// take empties the outbox and returns its messages oldest first.
func (o *outbox) take() []pending {
	if o.n == 0 {
		return nil
	}
	out := make([]pending, 0, o.n)
	for i := 0; i < o.n; i++ {
		out = append(out, o.slots[(o.oldest+i)%len(o.slots)])
	}
	o.oldest, o.n, o.warned = 0, 0, false
	return out
}

func (o *outbox) size() int { return o.n }

// requeue puts msgs back in front of whatever is queued, keeping their
// order. If the total exceeds capacity the oldest are dropped as usual.
func (o *outbox) requeue(msgs []pending) {
	rest := o.take()
	for _, m := range msgs {
		o.add(m)
	}
	for _, m := range rest {
		o.add(m)
	}
}
