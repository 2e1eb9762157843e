package bus

import (
	"context"
	"sync"
	"time"

	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/rs/zerolog"
)

// Memory is an in-process bus with the same delivery contract as
// JetStream: topics are retained logs, a durable subscription reads a topic
// from the beginning, one delivery is outstanding per subscription, and a
// Nak puts the message back at the head with an incremented count.
type Memory struct {
	mu     sync.Mutex
	logs   map[string][]Message
	subs   map[string]*memorySource
	notify chan struct{}
	closed bool
	logger zerolog.Logger
}

// NewMemory creates an empty in-process bus.
func NewMemory(logger zerolog.Logger) *Memory {
	return &Memory{
		logs:   make(map[string][]Message),
		subs:   make(map[string]*memorySource),
		notify: make(chan struct{}),
		logger: logger,
	}
}

// Publish implements Publisher.
func (b *Memory) Publish(ctx context.Context, topic string, event events.Event) error {
	data, header, err := encode(ctx, event)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	b.logs[topic] = append(b.logs[topic], Message{Topic: topic, Data: data, Header: header})
	b.broadcast()

	b.logger.Debug().
		Str("topic", topic).
		Str("event_type", event.EventType()).
		Str("event_id", event.EventID().String()).
		Msg("event published")

	return nil
}

// Subscribe returns the durable subscription named durable, creating it on
// first use.
func (b *Memory) Subscribe(ctx context.Context, topic, durable string, pollInterval time.Duration) (Source, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.subs[durable]; ok {
		return s, nil
	}
	s := &memorySource{bus: b, topic: topic, durable: durable, pollInterval: pollInterval}
	b.subs[durable] = s
	return s, nil
}

// Messages returns a copy of everything published to topic.
func (b *Memory) Messages(topic string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.logs[topic]...)
}

// Close wakes all fetchers; later publishes fail with ErrClosed.
func (b *Memory) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		b.broadcast()
	}
}

// broadcast wakes every waiting Fetch. Callers hold mu.
func (b *Memory) broadcast() {
	close(b.notify)
	b.notify = make(chan struct{})
}

type memorySource struct {
	bus          *Memory
	topic        string
	durable      string
	pollInterval time.Duration

	// guarded by bus.mu
	offset    int
	redeliver []Message
	inFlight  bool
}

func (s *memorySource) Fetch(ctx context.Context) (Delivery, error) {
	timer := time.NewTimer(s.pollInterval)
	defer timer.Stop()

	for {
		s.bus.mu.Lock()
		if s.bus.closed {
			s.bus.mu.Unlock()
			return nil, ErrClosed
		}
		if d, ok := s.next(); ok {
			s.bus.mu.Unlock()
			return d, nil
		}
		wait := s.bus.notify
		s.bus.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, ErrNoMessages
		case <-wait:
		}
	}
}

// next pops the next message. Callers hold bus.mu.
func (s *memorySource) next() (*memoryDelivery, bool) {
	if s.inFlight {
		return nil, false
	}

	var msg Message
	switch {
	case len(s.redeliver) > 0:
		msg = s.redeliver[0]
		s.redeliver = s.redeliver[1:]
	case s.offset < len(s.bus.logs[s.topic]):
		msg = s.bus.logs[s.topic][s.offset]
		s.offset++
	default:
		return nil, false
	}

	msg.Subscription = s.durable
	msg.DeliveryCount++
	s.inFlight = true
	return &memoryDelivery{source: s, message: msg}, true
}

type memoryDelivery struct {
	source  *memorySource
	message Message
	done    bool
}

func (d *memoryDelivery) Message() Message { return d.message }

func (d *memoryDelivery) Ack(ctx context.Context) error {
	return d.settle(false)
}

func (d *memoryDelivery) Nak(ctx context.Context) error {
	return d.settle(true)
}

func (d *memoryDelivery) settle(redeliver bool) error {
	b := d.source.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	if d.done {
		return nil
	}
	d.done = true
	d.source.inFlight = false
	if redeliver {
		d.source.redeliver = append([]Message{d.message}, d.source.redeliver...)
	}
	b.broadcast()
	return nil
}
