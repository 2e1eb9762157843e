package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dukerupert/fulfillment/internal/bus"
	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/dukerupert/fulfillment/internal/shipping"
	"github.com/dukerupert/fulfillment/internal/telemetry"
)

// ShipmentService schedules shipments for placed orders and follows their
// order's lifecycle.
type ShipmentService interface {
	// CreateShipment runs the shipment saga for a placed order. Running it
	// again for the same order publishes the stored shipment.
	CreateShipment(ctx context.Context, d domain.ShipmentDetails) (domain.PublishedShipment, error)

	// CancelShipment and ReturnShipment change the status of the shipment
	// of orderID.
	CancelShipment(ctx context.Context, orderID uuid.UUID, reason string) (domain.ChangeResult[domain.ShipmentRecord], error)
	ReturnShipment(ctx context.Context, orderID uuid.UUID, reason string) (domain.ChangeResult[domain.ShipmentRecord], error)

	GetShipment(ctx context.Context, id uuid.UUID) (*domain.ShipmentRecord, error)
	GetShipmentByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.ShipmentRecord, error)
}

type shipmentService struct {
	shipments domain.ShipmentRepository
	provider  shipping.Provider
	publisher bus.Publisher
	options
}

// NewShipmentService creates the Shipment saga.
func NewShipmentService(
	shipments domain.ShipmentRepository,
	provider shipping.Provider,
	publisher bus.Publisher,
	opts ...Option,
) ShipmentService {
	return &shipmentService{
		shipments: shipments,
		provider:  provider,
		publisher: publisher,
		options:   newOptions(opts),
	}
}

func (s *shipmentService) CreateShipment(ctx context.Context, d domain.ShipmentDetails) (domain.PublishedShipment, error) {
	const op = "ShipmentService.CreateShipment"

	ctx, span := telemetry.StartSpan(ctx, ContextShipment, "create")
	defer span.End()

	created := domain.NewShipment(d)
	logger := s.log(ctx).With().
		Str("order_id", created.OrderID.String()).
		Str("shipment_id", created.ShipmentID.String()).
		Logger()

	rate, err := s.provider.GetRate(ctx, shipping.RateParams{
		OrderTotal: created.TotalAfterDiscount,
		Premium:    created.PremiumSubscription,
	})
	if err != nil {
		s.metrics.RecordSaga(ContextShipment, telemetry.OutcomeFailed)
		return domain.PublishedShipment{}, domain.WrapError(err, domain.EUNAVAILABLE, op, "Shipping rate unavailable")
	}
	costed := domain.ChargeShipping(created, rate.Cost)

	now := s.now()
	label, err := s.provider.CreateLabel(ctx, shipping.LabelParams{
		ShipmentID: costed.ShipmentID.String(),
		Priority:   costed.PremiumSubscription,
		Date:       now,
	})
	if err != nil {
		s.metrics.RecordSaga(ContextShipment, telemetry.OutcomeFailed)
		return domain.PublishedShipment{}, domain.WrapError(err, domain.EUNAVAILABLE, op, "Shipping label unavailable")
	}
	scheduled := domain.ScheduleShipment(costed, label.TrackingNumber, now)

	// Priority shipments are handed to the carrier immediately.
	var persistable domain.PersistableShipment = scheduled
	if scheduled.Status == domain.ShipmentPriority {
		persistable = domain.DispatchShipment(scheduled, now)
	}

	persisted, err := stage(ctx, &s.options, ContextShipment, "persist", func(ctx context.Context) (domain.PersistedShipment, error) {
		rec := persistable.ToRecord()
		rec.CreatedAt = now
		rec.UpdatedAt = now

		stored, inserted, err := s.shipments.Save(ctx, rec)
		if err != nil {
			return domain.PersistedShipment{}, storageError(err, op)
		}
		if !inserted {
			logger.Info().Str("tracking_number", stored.TrackingNumber).Msg("shipment already stored, persist skipped")
		}
		return domain.MarkShipmentPersisted(persistable, stored), nil
	})
	if err != nil {
		s.metrics.RecordSaga(ContextShipment, telemetry.OutcomeFailed)
		return domain.PublishedShipment{}, err
	}

	published, err := stage(ctx, &s.options, ContextShipment, "publish", func(ctx context.Context) (domain.PublishedShipment, error) {
		ev := shipmentEvent(persisted.Record, persisted.Record.StatusReason, s.now())
		if err := publish(ctx, &s.options, s.publisher, op, events.TopicShipments, ev); err != nil {
			return domain.PublishedShipment{}, err
		}
		return domain.MarkShipmentPublished(persisted, ev.ID), nil
	})
	if err != nil {
		s.metrics.RecordSaga(ContextShipment, telemetry.OutcomeFailed)
		return domain.PublishedShipment{}, err
	}

	logger.Info().
		Str("status", published.Record.Status.String()).
		Str("tracking_number", published.Record.TrackingNumber).
		Str("shipping_cost", published.Record.ShippingCost.String()).
		Msg("shipment scheduled")
	s.metrics.RecordSaga(ContextShipment, telemetry.OutcomePublished)
	s.metrics.RecordShippingCost(published.Record.Status.String(), published.Record.ShippingCost)

	return published, nil
}

func (s *shipmentService) CancelShipment(ctx context.Context, orderID uuid.UUID, reason string) (domain.ChangeResult[domain.ShipmentRecord], error) {
	return s.changeStatus(ctx, "ShipmentService.CancelShipment", orderID, domain.ShipmentCancelled, reason)
}

func (s *shipmentService) ReturnShipment(ctx context.Context, orderID uuid.UUID, reason string) (domain.ChangeResult[domain.ShipmentRecord], error) {
	return s.changeStatus(ctx, "ShipmentService.ReturnShipment", orderID, domain.ShipmentReturned, reason)
}

func (s *shipmentService) changeStatus(ctx context.Context, op string, orderID uuid.UUID, to domain.ShipmentStatus, reason string) (domain.ChangeResult[domain.ShipmentRecord], error) {
	ctx, span := telemetry.StartSpan(ctx, ContextShipment, "change_status")
	defer span.End()
	logger := s.log(ctx).With().Str("order_id", orderID.String()).Str("target_status", to.String()).Logger()

	current, err := s.shipments.GetByOrderID(ctx, orderID)
	if errors.Is(err, domain.ErrShipmentNotFound) {
		s.metrics.RecordSaga(ContextShipment, telemetry.OutcomeRejected)
		return domain.RejectNotFound[domain.ShipmentRecord]("shipment for order", orderID.String()), nil
	}
	if err != nil {
		return nil, storageError(err, op)
	}

	if why := domain.CheckShipmentStatusChange(current.ID, current.Status, to); why != "" {
		logger.Info().Str("reason", why).Msg("shipment status change rejected")
		s.metrics.RecordSaga(ContextShipment, telemetry.OutcomeRejected)
		return domain.Reject[domain.ShipmentRecord](why), nil
	}

	updated, err := s.shipments.UpdateStatus(ctx, current.ID, current.Status, to, reason)
	if err != nil {
		s.metrics.RecordSaga(ContextShipment, telemetry.OutcomeFailed)
		return nil, storageError(err, op)
	}

	ev := shipmentEvent(updated, reason, s.now())
	if err := publish(ctx, &s.options, s.publisher, op, events.TopicShipments, ev); err != nil {
		s.metrics.RecordSaga(ContextShipment, telemetry.OutcomeFailed)
		return nil, err
	}

	logger.Info().Str("shipment_id", updated.ID.String()).Str("from_status", current.Status.String()).Msg("shipment status changed")
	s.metrics.RecordSaga(ContextShipment, telemetry.OutcomeApplied)
	return domain.Applied[domain.ShipmentRecord]{Record: updated}, nil
}

func (s *shipmentService) GetShipment(ctx context.Context, id uuid.UUID) (*domain.ShipmentRecord, error) {
	rec, err := s.shipments.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err, "ShipmentService.GetShipment")
	}
	return rec, nil
}

func (s *shipmentService) GetShipmentByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.ShipmentRecord, error) {
	rec, err := s.shipments.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, storageError(err, "ShipmentService.GetShipmentByOrderID")
	}
	return rec, nil
}
