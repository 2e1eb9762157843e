package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/fulfillment/internal/bus"
	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/email"
	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/dukerupert/fulfillment/internal/worker"
)

// Mailer sends one rendered notification.
type Mailer interface {
	Send(ctx context.Context, to string, data email.Template) error
}

// NewNotificationHandler handles the notifications-orders subscription:
// customers who left an email address hear about placement, cancellation
// and return of their order. Amounts are labelled with currency.
func NewNotificationHandler(mailer Mailer, currency string) worker.Handler {
	return func(ctx context.Context, msg bus.Message) error {
		ev, err := decode(msg)
		if err != nil {
			return err
		}
		order, ok := ev.(events.OrderStateChanged)
		if !ok {
			return ignore(ctx, msg, "not an order event")
		}
		if order.Email == "" {
			return ignore(ctx, msg, "order has no email address")
		}

		var data email.Template
		switch domain.OrderStatus(order.OrderStatus) {
		case domain.OrderPlaced:
			data = orderPlacedEmail(order, currency)
		case domain.OrderCancelled:
			data = email.OrderCancelledEmail{OrderID: order.OrderID, Reason: order.Reason, Total: order.Total, Currency: currency}
		case domain.OrderReturned:
			data = email.OrderReturnedEmail{OrderID: order.OrderID, Reason: order.Reason, Total: order.Total, Currency: currency}
		default:
			return ignore(ctx, msg, fmt.Sprintf("no notification for order status %q", order.OrderStatus))
		}

		err = mailer.Send(ctx, order.Email, data)
		if errors.Is(err, email.ErrInvalidToAddress) {
			return worker.Permanent(err)
		}
		if err != nil {
			return fmt.Errorf("notify order %s: %w", order.OrderID, err)
		}
		return nil
	}
}

func orderPlacedEmail(ev events.OrderStateChanged, currency string) email.OrderPlacedEmail {
	lines := make([]email.Line, len(ev.Lines))
	for i, l := range ev.Lines {
		lines[i] = email.Line{
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		}
	}
	return email.OrderPlacedEmail{
		OrderID:        ev.OrderID,
		OrderDate:      ev.OccurredAt(),
		Lines:          lines,
		Subtotal:       ev.Subtotal,
		DiscountAmount: ev.DiscountAmount,
		Total:          ev.Total,
		Currency:       currency,
		VoucherCode:    ev.VoucherCode,
		PickupMethod:   ev.PickupMethod,
		PickupPointID:  ev.PickupPointID,
		PaymentMethod:  ev.PaymentMethod,
		Address: email.Address{
			Street:     ev.Street,
			City:       ev.City,
			PostalCode: ev.PostalCode,
		},
	}
}
