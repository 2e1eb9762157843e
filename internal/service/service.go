// Package service implements the sagas of the three bounded contexts:
// placing and changing orders (Ordering), scheduling shipments (Shipment)
// and issuing invoices (Invoicing). Every saga advances its entity through
// the domain state machine, persists it once, and publishes the event that
// triggers the next context.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"github.com/dukerupert/fulfillment/internal/bus"
	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/dukerupert/fulfillment/internal/telemetry"
)

// Bounded context names used in logs, spans and metrics.
const (
	ContextOrdering  = "ordering"
	ContextShipment  = "shipment"
	ContextInvoicing = "invoicing"
)

// Clock returns the current time.
type Clock func() time.Time

// Option configures a service.
type Option func(*options)

type options struct {
	now     Clock
	metrics *telemetry.BusinessMetrics
	logger  zerolog.Logger
}

// WithClock replaces time.Now.
func WithClock(now Clock) Option {
	return func(o *options) { o.now = now }
}

// WithMetrics records saga metrics.
func WithMetrics(m *telemetry.BusinessMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func newOptions(opts []Option) options {
	o := options{
		now:    func() time.Time { return time.Now().UTC() },
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// log returns the request or message logger from ctx, or the service's.
func (o *options) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &o.logger
}

// stage runs fn in a span named after the saga stage and records its
// duration.
func stage[T any](ctx context.Context, o *options, boundedContext, name string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, boundedContext, name)
	defer span.End()

	v, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	o.metrics.ObserveStage(boundedContext, name, start)
	return v, err
}

// publish sends ev and counts it. A bus failure is reported as
// EUNAVAILABLE so callers retry.
func publish(ctx context.Context, o *options, publisher bus.Publisher, op, topic string, ev events.Event) error {
	if err := publisher.Publish(ctx, topic, ev); err != nil {
		return domain.WrapError(err, domain.EUNAVAILABLE, op, "Event bus unavailable")
	}
	o.metrics.RecordPublished(topic, ev.EventType())
	o.log(ctx).Info().
		Str("topic", topic).
		Str("event_type", ev.EventType()).
		Str("published_event_id", ev.EventID().String()).
		Msg("event published")
	return nil
}
