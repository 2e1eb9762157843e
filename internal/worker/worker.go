package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dukerupert/fulfillment/internal/bus"
	"github.com/dukerupert/fulfillment/internal/inbox"
	"github.com/dukerupert/fulfillment/internal/telemetry"
)

// Handler processes one message. A nil return acknowledges the message;
// any other error abandons it for redelivery unless it is Permanent.
type Handler func(ctx context.Context, msg bus.Message) error

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// Subscription is the durable subscription name, used in logs and metrics
	Subscription string

	// HandlerTimeout bounds one handler invocation
	HandlerTimeout time.Duration

	// RetryDelay is how long to wait after abandoning a message before
	// fetching again
	RetryDelay time.Duration

	// MaxRetryDelay caps the growth of RetryDelay with the delivery count
	MaxRetryDelay time.Duration
}

// Worker consumes one subscription sequentially: it fetches a message,
// runs the handler, and acknowledges or abandons it before fetching the
// next one.
type Worker struct {
	config  Config
	source  bus.Source
	handler Handler
	inbox   inbox.Inbox
	metrics *telemetry.BusinessMetrics
	logger  zerolog.Logger
}

// NewWorker creates a consumer for source. inbox and metrics may be nil.
func NewWorker(
	source bus.Source,
	handler Handler,
	in inbox.Inbox,
	metrics *telemetry.BusinessMetrics,
	config Config,
	logger zerolog.Logger,
) *Worker {
	// Set defaults
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.HandlerTimeout == 0 {
		config.HandlerTimeout = 30 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 500 * time.Millisecond
	}
	if config.MaxRetryDelay == 0 {
		config.MaxRetryDelay = 30 * time.Second
	}

	return &Worker{
		config:  config,
		source:  source,
		handler: handler,
		inbox:   in,
		metrics: metrics,
		logger: logger.With().
			Str("worker_id", config.WorkerID).
			Str("subscription", config.Subscription).
			Logger(),
	}
}

// Start processes messages until ctx is cancelled or the bus closes. A
// message already handed to the handler is finished and settled before
// Start returns.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().
		Dur("handler_timeout", w.config.HandlerTimeout).
		Msg("worker starting")

	for {
		if ctx.Err() != nil {
			w.logger.Info().Msg("worker shutting down")
			return nil
		}

		delivery, err := w.source.Fetch(ctx)
		switch {
		case err == nil:
		case errors.Is(err, bus.ErrNoMessages):
			continue
		case errors.Is(err, bus.ErrClosed):
			w.logger.Info().Msg("bus closed, worker stopping")
			return nil
		case ctx.Err() != nil:
			continue
		default:
			w.logger.Warn().Err(err).Msg("fetch failed")
			w.sleep(ctx, w.config.RetryDelay)
			continue
		}

		if !w.process(ctx, delivery) {
			w.sleep(ctx, w.retryDelay(delivery.Message().DeliveryCount))
		}
	}
}

// process handles one delivery and reports whether it was acknowledged.
func (w *Worker) process(ctx context.Context, delivery bus.Delivery) bool {
	msg := delivery.Message()
	// Settling and handling outlive shutdown so an in-flight message is
	// not abandoned halfway through a saga.
	base := msg.Context(context.WithoutCancel(ctx))

	logger := w.logger.With().
		Str("topic", msg.Topic).
		Str("event_id", msg.EventID()).
		Str("event_type", msg.EventType()).
		Uint64("delivery_count", msg.DeliveryCount).
		Logger()
	if traceID := telemetry.TraceID(base); traceID != "" {
		logger = logger.With().Str("trace_id", traceID).Logger()
	}
	base = logger.WithContext(base)

	if w.inbox != nil && msg.EventID() != "" {
		seen, err := w.inbox.Seen(base, w.config.Subscription, msg.EventID())
		if err != nil {
			logger.Warn().Err(err).Msg("inbox lookup failed, handling message")
		} else if seen {
			logger.Debug().Msg("duplicate delivery acknowledged")
			w.ack(base, delivery, logger, telemetry.ResultDuplicate)
			return true
		}
	}

	start := time.Now()
	err := w.invoke(base, msg)

	switch {
	case err == nil:
		logger.Debug().Dur("duration", time.Since(start)).Msg("message handled")
		if w.inbox != nil && msg.EventID() != "" {
			if err := w.inbox.Mark(base, w.config.Subscription, msg.EventID()); err != nil {
				logger.Warn().Err(err).Msg("inbox mark failed")
			}
		}
		w.ack(base, delivery, logger, telemetry.ResultAck)
		return true

	case IsPermanent(err):
		logger.Error().Err(err).Msg("message cannot be processed, discarding")
		telemetry.CaptureMessageError(base, err, w.config.Subscription, msg.EventID(), msg.DeliveryCount)
		w.ack(base, delivery, logger, telemetry.ResultPoison)
		return true

	default:
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("message handling failed, abandoning for redelivery")
		telemetry.CaptureMessageError(base, err, w.config.Subscription, msg.EventID(), msg.DeliveryCount)
		if err := delivery.Nak(base); err != nil {
			logger.Error().Err(err).Msg("failed to abandon message")
		}
		w.metrics.RecordMessage(w.config.Subscription, telemetry.ResultNak, msg.DeliveryCount)
		return false
	}
}

// invoke runs the handler under the handler timeout, converting a panic
// into an error.
func (w *Worker) invoke(ctx context.Context, msg bus.Message) (err error) {
	ctx, cancel := context.WithTimeout(ctx, w.config.HandlerTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return w.handler(ctx, msg)
}

func (w *Worker) ack(ctx context.Context, delivery bus.Delivery, logger zerolog.Logger, result string) {
	if err := delivery.Ack(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to acknowledge message")
	}
	w.metrics.RecordMessage(w.config.Subscription, result, delivery.Message().DeliveryCount)
}

// retryDelay grows linearly with the delivery count up to MaxRetryDelay.
func (w *Worker) retryDelay(deliveryCount uint64) time.Duration {
	if deliveryCount == 0 {
		deliveryCount = 1
	}
	d := w.config.RetryDelay * time.Duration(deliveryCount)
	if d > w.config.MaxRetryDelay || d <= 0 {
		return w.config.MaxRetryDelay
	}
	return d
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
