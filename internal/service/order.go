package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/fulfillment/internal/bus"
	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/dukerupert/fulfillment/internal/telemetry"
)

// OrderService places orders and changes their lifecycle status.
type OrderService interface {
	// PlaceOrder runs the order saga. The result is a PublishedOrder, or
	// an InvalidOrder listing every reason the order was refused. An error
	// means storage or the bus failed; the caller may retry with the same
	// order id.
	PlaceOrder(ctx context.Context, in domain.UnvalidatedOrder) (domain.Order, error)

	GetOrder(ctx context.Context, id uuid.UUID) (*domain.OrderRecord, error)

	CancelOrder(ctx context.Context, id uuid.UUID, reason string) (domain.ChangeResult[domain.OrderRecord], error)
	ModifyOrder(ctx context.Context, id uuid.UUID, reason string) (domain.ChangeResult[domain.OrderRecord], error)
	ReturnOrder(ctx context.Context, id uuid.UUID, reason string) (domain.ChangeResult[domain.OrderRecord], error)
}

type orderService struct {
	orders    domain.OrderRepository
	vouchers  domain.VoucherRepository
	publisher bus.Publisher
	options
}

// NewOrderService creates the Ordering saga.
func NewOrderService(
	orders domain.OrderRepository,
	vouchers domain.VoucherRepository,
	publisher bus.Publisher,
	opts ...Option,
) OrderService {
	return &orderService{
		orders:    orders,
		vouchers:  vouchers,
		publisher: publisher,
		options:   newOptions(opts),
	}
}

func (s *orderService) PlaceOrder(ctx context.Context, in domain.UnvalidatedOrder) (domain.Order, error) {
	const op = "OrderService.PlaceOrder"

	ctx, span := telemetry.StartSpan(ctx, ContextOrdering, "place")
	defer span.End()
	logger := s.log(ctx)

	var validated domain.ValidatedOrder
	switch o := domain.ValidateOrder(in).(type) {
	case domain.InvalidOrder:
		logger.Info().Strs("reasons", o.Reasons).Str("user_id", o.UserID).Msg("order rejected by validation")
		s.metrics.RecordSaga(ContextOrdering, telemetry.OutcomeInvalid)
		return o, nil
	case domain.ValidatedOrder:
		validated = o
	}

	// A client-chosen id is an idempotency key: a repeated placement
	// republishes the stored order without pricing it again.
	if validated.RequestedID != uuid.Nil {
		existing, err := s.orders.GetByID(ctx, validated.RequestedID)
		switch {
		case err == nil:
			logger.Info().Str("order_id", existing.ID.String()).Msg("order already placed, publishing stored order")
			return s.publishPlaced(ctx, op, domain.ResumePersistedOrder(*existing))
		case !errors.Is(err, domain.ErrOrderNotFound):
			s.metrics.RecordSaga(ContextOrdering, telemetry.OutcomeFailed)
			return nil, storageError(err, op)
		}
	}

	priced, err := stage(ctx, &s.options, ContextOrdering, "price", func(ctx context.Context) (domain.Order, error) {
		return s.price(ctx, validated)
	})
	if err != nil {
		s.metrics.RecordSaga(ContextOrdering, telemetry.OutcomeFailed)
		return nil, err
	}
	if invalid, ok := priced.(domain.InvalidOrder); ok {
		logger.Info().Strs("reasons", invalid.Reasons).Str("user_id", invalid.UserID).Msg("order rejected by pricing")
		s.metrics.RecordSaga(ContextOrdering, telemetry.OutcomeInvalid)
		return invalid, nil
	}

	persistable := domain.ToPersistable(priced.(domain.PricedOrder))
	if persistable.Record.ID == uuid.Nil {
		persistable.Record.ID = uuid.New()
	}
	now := s.now()
	persistable.Record.CreatedAt = now
	persistable.Record.UpdatedAt = now

	persisted, err := stage(ctx, &s.options, ContextOrdering, "persist", func(ctx context.Context) (domain.PersistedOrder, error) {
		stored, inserted, err := s.orders.Save(ctx, persistable.Record)
		if err != nil {
			return domain.PersistedOrder{}, storageError(err, op)
		}
		if !inserted {
			logger.Info().Str("order_id", stored.ID.String()).Msg("order already stored, persist skipped")
		}
		return domain.MarkOrderPersisted(persistable, stored), nil
	})
	if err != nil {
		s.metrics.RecordSaga(ContextOrdering, telemetry.OutcomeFailed)
		return nil, err
	}

	return s.publishPlaced(ctx, op, persisted)
}

// price applies the voucher, if any. A voucher that cannot be used routes
// the order to Invalid.
func (s *orderService) price(ctx context.Context, o domain.ValidatedOrder) (domain.Order, error) {
	if strings.TrimSpace(o.VoucherCode) == "" {
		return domain.PriceOrder(o, nil), nil
	}

	code, ok := domain.NormalizeVoucherCode(o.VoucherCode)
	if !ok {
		s.metrics.RecordVoucher(string(domain.VoucherMalformed))
		return domain.RejectOrder(o, domain.VoucherMalformed.Reason(o.VoucherCode)), nil
	}

	voucher, err := s.vouchers.GetByCode(ctx, code)
	if errors.Is(err, domain.ErrVoucherNotFound) {
		s.metrics.RecordVoucher(string(domain.VoucherNotFound))
		return domain.RejectOrder(o, domain.VoucherNotFound.Reason(code)), nil
	}
	if err != nil {
		return nil, storageError(err, "OrderService.price")
	}

	now := s.now()
	if problem := voucher.Check(now); problem != "" {
		s.metrics.RecordVoucher(string(problem))
		return domain.RejectOrder(o, problem.Reason(code)), nil
	}

	consumed, err := s.vouchers.TryConsume(ctx, code, now)
	if err != nil {
		return nil, storageError(err, "OrderService.price")
	}
	if !consumed {
		// Lost the race for the last use, or the voucher changed since it
		// was read.
		s.metrics.RecordVoucher(string(domain.VoucherExhausted))
		return domain.RejectOrder(o, domain.VoucherExhausted.Reason(code)), nil
	}
	s.metrics.RecordVoucher("consumed")

	return domain.PriceOrder(o, &domain.AppliedVoucher{Code: code, Percent: voucher.DiscountPercent}), nil
}

func (s *orderService) publishPlaced(ctx context.Context, op string, o domain.PersistedOrder) (domain.Order, error) {
	published, err := stage(ctx, &s.options, ContextOrdering, "publish", func(ctx context.Context) (domain.PublishedOrder, error) {
		ev := orderEvent(o.Record, o.Record.StatusReason, s.now())
		if err := publish(ctx, &s.options, s.publisher, op, events.TopicOrders, ev); err != nil {
			return domain.PublishedOrder{}, err
		}
		return domain.MarkOrderPublished(o, ev.ID), nil
	})
	if err != nil {
		s.metrics.RecordSaga(ContextOrdering, telemetry.OutcomeFailed)
		return nil, err
	}

	s.log(ctx).Info().
		Str("order_id", published.Record.ID.String()).
		Str("total", published.Record.Total.String()).
		Msg("order placed")
	s.metrics.RecordSaga(ContextOrdering, telemetry.OutcomePublished)
	s.metrics.RecordOrderValue(string(published.Record.PaymentMethod), published.Record.Total)

	return published, nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.OrderRecord, error) {
	rec, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err, "OrderService.GetOrder")
	}
	return rec, nil
}
