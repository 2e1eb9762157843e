package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukerupert/fulfillment/internal/bus"
	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/dukerupert/fulfillment/internal/service"
	"github.com/dukerupert/fulfillment/internal/worker"
)

// NewShipmentHandler handles the shipment-orders subscription: placed
// orders get a shipment, cancelled and returned orders change it.
func NewShipmentHandler(shipments service.ShipmentService) worker.Handler {
	return func(ctx context.Context, msg bus.Message) error {
		return ProcessOrderEvent(ctx, msg, shipments)
	}
}

// ProcessOrderEvent routes one message from the orders topic.
func ProcessOrderEvent(ctx context.Context, msg bus.Message, shipments service.ShipmentService) error {
	ev, err := decode(msg)
	if err != nil {
		return err
	}
	if ev == nil {
		return ignore(ctx, msg, "unknown event type")
	}

	order, ok := ev.(events.OrderStateChanged)
	if !ok {
		return ignore(ctx, msg, "not an order event")
	}
	if order.OrderID == uuid.Nil {
		return worker.Permanent(errors.New("order event without order id"))
	}

	switch domain.OrderStatus(order.OrderStatus) {
	case domain.OrderPlaced:
		_, err := shipments.CreateShipment(ctx, shipmentDetails(order))
		if err != nil {
			return fmt.Errorf("create shipment for order %s: %w", order.OrderID, err)
		}
		return nil

	case domain.OrderCancelled:
		result, err := shipments.CancelShipment(ctx, order.OrderID, order.Reason)
		if err != nil {
			return fmt.Errorf("cancel shipment for order %s: %w", order.OrderID, err)
		}
		return settle[domain.ShipmentRecord](ctx, result)

	case domain.OrderReturned:
		result, err := shipments.ReturnShipment(ctx, order.OrderID, order.Reason)
		if err != nil {
			return fmt.Errorf("return shipment for order %s: %w", order.OrderID, err)
		}
		return settle[domain.ShipmentRecord](ctx, result)

	case domain.OrderModified:
		return ignore(ctx, msg, "order modifications do not change the shipment")

	default:
		return ignore(ctx, msg, fmt.Sprintf("unhandled order status %q", order.OrderStatus))
	}
}

func shipmentDetails(ev events.OrderStateChanged) domain.ShipmentDetails {
	return domain.ShipmentDetails{
		OrderID:             ev.OrderID,
		UserID:              ev.UserID,
		PremiumSubscription: ev.PremiumSubscription,
		PaymentMethod:       domain.PaymentMethod(ev.PaymentMethod),
		Lines:               orderLines(ev.Lines),
		Subtotal:            ev.Subtotal,
		DiscountAmount:      ev.DiscountAmount,
		TotalAfterDiscount:  ev.Total,
	}
}
