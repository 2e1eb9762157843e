package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// JetStreamConfig configures the NATS JetStream bus.
type JetStreamConfig struct {
	URL    string
	Stream string
	Name   string // client connection name, usually the service

	// DuplicateWindow is how long JetStream remembers event ids to drop
	// duplicate publishes.
	DuplicateWindow time.Duration
}

// JetStream is a bus backed by one NATS JetStream stream holding the
// orders, shipments and invoices subjects.
type JetStream struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
	logger zerolog.Logger
}

// ConnectJetStream connects to NATS and creates or updates the stream.
func ConnectJetStream(ctx context.Context, cfg JetStreamConfig, logger zerolog.Logger) (*JetStream, error) {
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = 2 * time.Minute
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       cfg.Stream,
		Subjects:   []string{events.TopicOrders, events.TopicShipments, events.TopicInvoices},
		Retention:  jetstream.LimitsPolicy,
		Storage:    jetstream.FileStorage,
		Duplicates: cfg.DuplicateWindow,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream %s: %w", cfg.Stream, err)
	}

	logger.Info().Str("stream", cfg.Stream).Str("url", cfg.URL).Msg("connected to jetstream")

	return &JetStream{nc: nc, js: js, stream: stream, logger: logger}, nil
}

// Publish implements Publisher. The event id doubles as the JetStream
// message id.
func (b *JetStream) Publish(ctx context.Context, topic string, event events.Event) error {
	data, header, err := encode(ctx, event)
	if err != nil {
		return err
	}

	msg := nats.NewMsg(topic)
	msg.Data = data
	for k, v := range header {
		msg.Header.Set(k, v)
	}

	ack, err := b.js.PublishMsg(ctx, msg, jetstream.WithMsgID(event.EventID().String()))
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.EventType(), topic, err)
	}

	b.logger.Debug().
		Str("topic", topic).
		Str("event_type", event.EventType()).
		Str("event_id", event.EventID().String()).
		Uint64("seq", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Msg("event published")

	return nil
}

// Subscribe creates or resumes the durable consumer for topic. The consumer
// allows a single unacknowledged message, which makes processing sequential.
func (b *JetStream) Subscribe(ctx context.Context, topic, durable string, pollInterval time.Duration) (Source, error) {
	cons, err := b.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: topic,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxAckPending: 1,
		AckWait:       time.Minute,
		MaxDeliver:    -1,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer %s: %w", durable, err)
	}

	return &jetStreamSource{
		consumer:     cons,
		topic:        topic,
		durable:      durable,
		pollInterval: pollInterval,
	}, nil
}

// Drain flushes pending publishes and closes the connection.
func (b *JetStream) Drain() error {
	return b.nc.Drain()
}

// Healthy reports whether the connection is up.
func (b *JetStream) Healthy() bool {
	return b.nc.IsConnected()
}

type jetStreamSource struct {
	consumer     jetstream.Consumer
	topic        string
	durable      string
	pollInterval time.Duration
}

func (s *jetStreamSource) Fetch(ctx context.Context) (Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch, err := s.consumer.Fetch(1, jetstream.FetchMaxWait(s.pollInterval))
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) || errors.Is(err, jetstream.ErrNoMessages) {
			return nil, ErrNoMessages
		}
		return nil, fmt.Errorf("fetch from %s: %w", s.durable, err)
	}

	if msg, ok := <-batch.Messages(); ok {
		return s.delivery(msg), nil
	}

	if err := batch.Error(); err != nil &&
		!errors.Is(err, nats.ErrTimeout) && !errors.Is(err, jetstream.ErrNoMessages) {
		return nil, fmt.Errorf("fetch from %s: %w", s.durable, err)
	}
	return nil, ErrNoMessages
}

func (s *jetStreamSource) delivery(msg jetstream.Msg) *jetStreamDelivery {
	header := make(map[string]string, len(msg.Headers()))
	for k := range msg.Headers() {
		header[k] = msg.Headers().Get(k)
	}

	var delivered uint64 = 1
	if meta, err := msg.Metadata(); err == nil {
		delivered = meta.NumDelivered
	}

	return &jetStreamDelivery{
		msg: msg,
		message: Message{
			Topic:         s.topic,
			Subscription:  s.durable,
			Data:          msg.Data(),
			Header:        header,
			DeliveryCount: delivered,
		},
	}
}

type jetStreamDelivery struct {
	msg     jetstream.Msg
	message Message
}

func (d *jetStreamDelivery) Message() Message { return d.message }

func (d *jetStreamDelivery) Ack(ctx context.Context) error {
	return d.msg.DoubleAck(ctx)
}

func (d *jetStreamDelivery) Nak(ctx context.Context) error {
	return d.msg.Nak()
}
