// Package jobs turns bus messages into saga invocations. Each subscription
// gets a handler that decodes the event, picks the saga for its state and
// decides whether the outcome is a no-op, a business rejection (logged and
// acknowledged) or an infrastructure failure (returned for redelivery).
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dukerupert/fulfillment/internal/bus"
	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/dukerupert/fulfillment/internal/worker"
)

// decode reads the event in msg. An event type this build does not know
// yields a nil event. A payload that cannot be decoded will never succeed
// and is reported as permanent.
func decode(msg bus.Message) (events.Event, error) {
	ev, err := events.Decode(msg.Data)
	var unknown *events.UnknownTypeError
	if errors.As(err, &unknown) {
		return nil, nil
	}
	if err != nil {
		return nil, worker.Permanent(fmt.Errorf("decode message on %s: %w", msg.Topic, err))
	}
	return ev, nil
}

// ignore logs an event this subscription has nothing to do for.
func ignore(ctx context.Context, msg bus.Message, why string) error {
	zerolog.Ctx(ctx).Info().
		Str("event_type", msg.EventType()).
		Str("why", why).
		Msg("event acknowledged without action")
	return nil
}

// settle logs a rejected lifecycle change. Rejections are final, so the
// message is acknowledged.
func settle[R any](ctx context.Context, result domain.ChangeResult[R]) error {
	if rejected, ok := result.(domain.Rejected[R]); ok {
		zerolog.Ctx(ctx).Info().
			Strs("reasons", rejected.Reasons).
			Bool("not_found", rejected.NotFound).
			Msg("status change rejected, acknowledging")
	}
	return nil
}

func orderLines(lines []events.Line) []domain.OrderLine {
	out := make([]domain.OrderLine, len(lines))
	for i, l := range lines {
		out[i] = domain.OrderLine{
			Name:        l.Name,
			Description: l.Description,
			Category:    l.Category,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		}
	}
	return out
}
