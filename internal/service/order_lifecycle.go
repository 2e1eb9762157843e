package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/dukerupert/fulfillment/internal/telemetry"
)

func (s *orderService) CancelOrder(ctx context.Context, id uuid.UUID, reason string) (domain.ChangeResult[domain.OrderRecord], error) {
	return s.changeStatus(ctx, "OrderService.CancelOrder", id, domain.OrderCancelled, reason)
}

func (s *orderService) ModifyOrder(ctx context.Context, id uuid.UUID, reason string) (domain.ChangeResult[domain.OrderRecord], error) {
	return s.changeStatus(ctx, "OrderService.ModifyOrder", id, domain.OrderModified, reason)
}

func (s *orderService) ReturnOrder(ctx context.Context, id uuid.UUID, reason string) (domain.ChangeResult[domain.OrderRecord], error) {
	return s.changeStatus(ctx, "OrderService.ReturnOrder", id, domain.OrderReturned, reason)
}

// changeStatus re-reads the order, checks the lifecycle transition, stores
// the new status and announces it.
func (s *orderService) changeStatus(ctx context.Context, op string, id uuid.UUID, to domain.OrderStatus, reason string) (domain.ChangeResult[domain.OrderRecord], error) {
	ctx, span := telemetry.StartSpan(ctx, ContextOrdering, "change_status")
	defer span.End()
	logger := s.log(ctx).With().Str("order_id", id.String()).Str("target_status", to.String()).Logger()

	current, err := s.orders.GetByID(ctx, id)
	if errors.Is(err, domain.ErrOrderNotFound) {
		s.metrics.RecordSaga(ContextOrdering, telemetry.OutcomeRejected)
		return domain.RejectNotFound[domain.OrderRecord]("order", id.String()), nil
	}
	if err != nil {
		return nil, storageError(err, op)
	}

	if why := domain.CheckOrderStatusChange(id, current.Status, to); why != "" {
		logger.Info().Str("reason", why).Msg("order status change rejected")
		s.metrics.RecordSaga(ContextOrdering, telemetry.OutcomeRejected)
		return domain.Reject[domain.OrderRecord](why), nil
	}

	updated, err := s.orders.UpdateStatus(ctx, id, current.Status, to, reason)
	if err != nil {
		s.metrics.RecordSaga(ContextOrdering, telemetry.OutcomeFailed)
		return nil, storageError(err, op)
	}

	ev := orderEvent(updated, reason, s.now())
	if err := publish(ctx, &s.options, s.publisher, op, events.TopicOrders, ev); err != nil {
		s.metrics.RecordSaga(ContextOrdering, telemetry.OutcomeFailed)
		return nil, err
	}

	logger.Info().Str("from_status", current.Status.String()).Msg("order status changed")
	s.metrics.RecordSaga(ContextOrdering, telemetry.OutcomeApplied)
	return domain.Applied[domain.OrderRecord]{Record: updated}, nil
}
