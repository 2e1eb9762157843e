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

// NewInvoicingHandler handles the invoicing-shipments subscription:
// scheduled shipments are invoiced, cancelled and returned shipments change
// the invoice status.
func NewInvoicingHandler(invoices service.InvoiceService) worker.Handler {
	return func(ctx context.Context, msg bus.Message) error {
		return ProcessShipmentEvent(ctx, msg, invoices)
	}
}

// ProcessShipmentEvent routes one message from the shipments topic.
func ProcessShipmentEvent(ctx context.Context, msg bus.Message, invoices service.InvoiceService) error {
	ev, err := decode(msg)
	if err != nil {
		return err
	}
	if ev == nil {
		return ignore(ctx, msg, "unknown event type")
	}

	shipment, ok := ev.(events.ShipmentStateChanged)
	if !ok {
		return ignore(ctx, msg, "not a shipment event")
	}
	if shipment.ShipmentID == uuid.Nil {
		return worker.Permanent(errors.New("shipment event without shipment id"))
	}

	var target domain.InvoiceStatus
	switch domain.ShipmentStatus(shipment.ShipmentState) {
	case domain.ShipmentScheduled, domain.ShipmentPriority:
		_, err := invoices.CreateInvoice(ctx, invoiceDetails(shipment))
		if err != nil {
			return fmt.Errorf("create invoice for shipment %s: %w", shipment.ShipmentID, err)
		}
		return nil
	case domain.ShipmentCancelled:
		target = domain.InvoiceCancelled
	case domain.ShipmentReturned:
		target = domain.InvoiceCreditNoteIssued
	default:
		return ignore(ctx, msg, fmt.Sprintf("unhandled shipment state %q", shipment.ShipmentState))
	}

	result, err := invoices.ChangeInvoiceStatus(ctx, shipment.ShipmentID, target, shipment.Reason)
	if err != nil {
		return fmt.Errorf("change invoice for shipment %s: %w", shipment.ShipmentID, err)
	}
	return settle[domain.InvoiceRecord](ctx, result)
}

func invoiceDetails(ev events.ShipmentStateChanged) domain.InvoiceDetails {
	return domain.InvoiceDetails{
		ShipmentID:          ev.ShipmentID,
		OrderID:             ev.OrderID,
		UserID:              ev.UserID,
		TrackingNumber:      ev.TrackingNumber,
		PremiumSubscription: ev.PremiumSubscription,
		PaymentMethod:       domain.PaymentMethod(ev.PaymentMethod),
		Lines:               orderLines(ev.Lines),
		TotalDiscount:       ev.DiscountAmount,
		ShippingCost:        ev.ShippingCost,
	}
}
