package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/dukerupert/fulfillment/internal/money"
)

func eventLines(lines []domain.OrderLine) []events.Line {
	out := make([]events.Line, len(lines))
	for i, l := range lines {
		out[i] = events.Line{
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

func orderEvent(r domain.OrderRecord, reason string, at time.Time) events.OrderStateChanged {
	return events.OrderStateChanged{
		BaseEvent:           events.NewBaseEvent(events.TypeOrderStateChanged, at),
		OrderStatus:         r.Status.String(),
		OrderID:             r.ID,
		UserID:              r.UserID,
		PremiumSubscription: r.PremiumSubscription,
		Subtotal:            r.Subtotal,
		DiscountAmount:      r.DiscountAmount,
		Total:               r.Total,
		VoucherCode:         r.VoucherCode,
		Lines:               eventLines(r.Lines),
		Street:              r.Street,
		City:                r.City,
		PostalCode:          r.PostalCode,
		Phone:               r.Phone,
		Email:               r.Email,
		PickupMethod:        string(r.PickupMethod),
		PickupPointID:       r.PickupPointID,
		PaymentMethod:       string(r.PaymentMethod),
		Reason:              reason,
	}
}

func shipmentEvent(r domain.ShipmentRecord, reason string, at time.Time) events.ShipmentStateChanged {
	return events.ShipmentStateChanged{
		BaseEvent:           events.NewBaseEvent(events.TypeShipmentStateChanged, at),
		ShipmentState:       r.Status.String(),
		ShipmentID:          r.ID,
		OrderID:             r.OrderID,
		UserID:              r.UserID,
		PremiumSubscription: r.PremiumSubscription,
		PaymentMethod:       string(r.PaymentMethod),
		TrackingNumber:      r.TrackingNumber,
		Subtotal:            r.Subtotal,
		DiscountAmount:      r.DiscountAmount,
		TotalAfterDiscount:  r.TotalAfterDiscount,
		ShippingCost:        r.ShippingCost,
		TotalWithShipping:   r.TotalWithShipping,
		Lines:               eventLines(r.Lines),
		Reason:              reason,
	}
}

// invoiceEvent announces r. eventType is TypeInvoiceCreated for a new
// invoice and TypeInvoiceStateChanged for a status change. The display
// total is derived from the stored total at rate.
func invoiceEvent(eventType string, r domain.InvoiceRecord, reason string, rate decimal.Decimal, at time.Time) events.InvoiceStateChanged {
	lines := make([]events.InvoiceLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = events.InvoiceLine{
			Name:             l.Name,
			Description:      l.Description,
			Category:         l.Category,
			Quantity:         l.Quantity,
			UnitPrice:        l.UnitPrice,
			InitialNet:       l.InitialNet,
			LineDiscount:     l.LineDiscount,
			NetAfterDiscount: l.NetAfterDiscount,
			VatRate:          l.VatRate,
			VatAmount:        l.VatAmount,
			LineTotal:        l.LineTotal,
		}
	}

	return events.InvoiceStateChanged{
		BaseEvent:      events.NewBaseEvent(eventType, at),
		InvoiceState:   r.Status.String(),
		InvoiceID:      r.ID,
		InvoiceNumber:  r.InvoiceNumber,
		OrderID:        r.OrderID,
		ShipmentID:     r.ShipmentID,
		UserID:         r.UserID,
		TrackingNumber: r.TrackingNumber,
		PaymentStatus:  string(r.PaymentStatus),
		SubTotal:       r.SubTotal,
		Tax:            r.Tax,
		ShippingCost:   r.ShippingCost,
		TotalAmount:    r.TotalAmount,
		InvoiceDate:    r.InvoiceDate,
		DueDate:        r.DueDate,
		Lines:          lines,
		Currency:       r.Currency,
		TotalInRon:     r.TotalAmount,
		TotalInEur:     money.Convert(r.TotalAmount, rate),
		Reason:         reason,
	}
}
