package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/womat/debug"
)

// DefaultBufferSize is the number of messages kept while disconnected.
const DefaultBufferSize = 100

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Topic      string // measurement topic; empty uses Topic
	BufferSize int    // messages kept while disconnected; <= 0 uses DefaultBufferSize
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	out    publishClient
	topic  string

	mu        sync.Mutex
	buf       *outbox
	connected bool
	replaying bool // new messages queue behind the outbox while set
	connects  int
}

// publishClient is the part of paho.Client used to send messages.
type publishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// NewRealPublisher creates a publisher for the given broker. A broker that is
// unreachable at startup is not fatal: the client keeps retrying and
// messages are buffered meanwhile.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.Topic == "" {
		o.Topic = Topic
	}
	if o.ClientID == "" {
		o.ClientID = "sonar-sensor"
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}

	p := &RealPublisher{
		topic: o.Topic,
		buf:   newOutbox(o.BufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(func(c paho.Client) { p.onConnect(c) }).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	p.out = p.client
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		debug.ErrorLog.Printf("mqtt: broker %s not reachable yet, buffering", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect replays the outbox before any new message goes out. While
// replaying, send queues new messages behind the ones being replayed. A
// RECONNECTED event is queued last.
func (p *RealPublisher) onConnect(c publishClient) {
	p.mu.Lock()
	p.connects++
	if p.connects > 1 {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err != nil {
			debug.ErrorLog.Printf("mqtt: format reconnected event: %v", err)
		} else {
			p.buf.add(pending{topic: TopicSystem, payload: payload, qos: 1, retained: true})
		}
	}
	p.connected = true
	running := p.replaying
	p.replaying = true
	p.mu.Unlock()

	if running {
		// A replay started by send is still draining; it picks up the rest.
		return
	}
	replayed, err := p.replay(c)
	if err != nil {
		debug.ErrorLog.Printf("mqtt: replay stopped after %d messages: %v", replayed, err)
		return
	}
	debug.InfoLog.Printf("mqtt: connected, replayed %d buffered messages", replayed)
}

// replay drains the outbox in order. It clears the replaying flag under
// the same lock that finds the outbox empty, so no send can overtake a
// queued message. On the first failure the unsent messages go back to the
// front of the outbox and replay stops until the next connect or send.
// The caller sets replaying before calling.
func (p *RealPublisher) replay(c publishClient) (int, error) {
	var n int
	for {
		p.mu.Lock()
		batch := p.buf.take()
		if len(batch) == 0 {
			p.replaying = false
			p.mu.Unlock()
			return n, nil
		}
		p.mu.Unlock()

		for i, m := range batch {
			if err := deliver(c, m); err != nil {
				p.mu.Lock()
				p.buf.requeue(batch[i:])
				p.replaying = false
				p.mu.Unlock()
				return n, fmt.Errorf("%d messages kept: %w", len(batch)-i, err)
			}
			n++
		}
	}
}

var errPublishTimeout = errors.New("timeout")

func deliver(c publishClient, m pending) error {
	token := c.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s: %w", m.topic, errPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.topic, err)
	}
	return nil
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	debug.ErrorLog.Printf("mqtt: connection lost: %v", err)
}

// Publish sends a measurement to the MQTT broker.
func (p *RealPublisher) Publish(event MeasurementEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.send(pending{topic: p.topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	return p.send(pending{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(m pending) error {
	p.mu.Lock()
	if !p.connected || p.replaying {
		p.buf.add(m)
		p.mu.Unlock()
		return nil
	}
	if p.buf.size() > 0 {
		// An earlier replay stopped short; m goes out behind the backlog.
		p.buf.add(m)
		p.replaying = true
		p.mu.Unlock()
		if _, err := p.replay(p.out); err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		return nil
	}
	p.mu.Unlock()

	err := deliver(p.out, m)
	if errors.Is(err, errPublishTimeout) {
		p.mu.Lock()
		p.buf.add(m)
		p.mu.Unlock()
	}
	return err
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.size()
}

// Dropped returns how many buffered messages were overwritten because the
// outbox was full.
func (p *RealPublisher) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.dropped
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
