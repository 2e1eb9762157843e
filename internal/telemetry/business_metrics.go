package telemetry

import (
	"time"

	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Saga outcomes recorded in saga_runs_total.
const (
	OutcomePublished = "published"
	OutcomeInvalid   = "invalid"
	OutcomeApplied   = "applied"
	OutcomeRejected  = "rejected"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
)

// Message results recorded in messages_consumed_total.
const (
	ResultAck       = "ack"
	ResultNak       = "nak"
	ResultDuplicate = "duplicate"
	ResultPoison    = "poison"
)

// BusinessMetrics holds Prometheus metrics for the sagas and the bus.
// A nil *BusinessMetrics is valid and records nothing.
type BusinessMetrics struct {
	SagaRuns      *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec

	MessagesConsumed *prometheus.CounterVec
	DeliveryCount    *prometheus.HistogramVec
	EventsPublished  *prometheus.CounterVec

	VoucherRedemptions *prometheus.CounterVec
	OrderValue         *prometheus.HistogramVec
	ShippingCost       *prometheus.HistogramVec
	InvoiceTax         *prometheus.HistogramVec
}

// NewBusinessMetrics creates and registers all business metrics on reg.
func NewBusinessMetrics(reg prometheus.Registerer, namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "fulfillment"
	}

	factory := promauto.With(reg)
	subsystem := "saga"

	return &BusinessMetrics{
		SagaRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Total saga runs by bounded context and outcome",
			},
			[]string{"context", "outcome"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each saga stage",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"context", "stage"},
		),
		MessagesConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "messages_consumed_total",
				Help:      "Messages received per subscription by result",
			},
			[]string{"subscription", "result"},
		),
		DeliveryCount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "delivery_count",
				Help:      "Delivery attempt number of received messages",
				Buckets:   []float64{1, 2, 3, 5, 10, 20},
			},
			[]string{"subscription"},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "events_published_total",
				Help:      "Events published per topic and type",
			},
			[]string{"topic", "event_type"},
		),
		VoucherRedemptions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ordering",
				Name:      "voucher_redemptions_total",
				Help:      "Voucher redemption attempts by result",
			},
			[]string{"result"},
		),
		OrderValue: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ordering",
				Name:      "order_total",
				Help:      "Order total distribution in the primary currency",
				Buckets:   []float64{50, 100, 250, 500, 1000, 3000, 6000, 10000, 25000},
			},
			[]string{"payment_method"},
		),
		ShippingCost: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "shipment",
				Name:      "shipping_cost",
				Help:      "Shipping cost distribution",
				Buckets:   []float64{0, 30, 50, 75, 100},
			},
			[]string{"status"},
		),
		InvoiceTax: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "invoicing",
				Name:      "invoice_tax",
				Help:      "VAT per invoice",
				Buckets:   []float64{1, 10, 50, 100, 250, 500, 1000, 2500},
			},
			[]string{"payment_status"},
		),
	}
}

func (m *BusinessMetrics) RecordSaga(context, outcome string) {
	if m == nil {
		return
	}
	m.SagaRuns.WithLabelValues(context, outcome).Inc()
}

// ObserveStage records the time since start for a saga stage.
func (m *BusinessMetrics) ObserveStage(context, stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(context, stage).Observe(time.Since(start).Seconds())
}

func (m *BusinessMetrics) RecordMessage(subscription, result string, deliveryCount uint64) {
	if m == nil {
		return
	}
	m.MessagesConsumed.WithLabelValues(subscription, result).Inc()
	m.DeliveryCount.WithLabelValues(subscription).Observe(float64(deliveryCount))
}

func (m *BusinessMetrics) RecordPublished(topic, eventType string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(topic, eventType).Inc()
}

func (m *BusinessMetrics) RecordVoucher(result string) {
	if m == nil {
		return
	}
	m.VoucherRedemptions.WithLabelValues(result).Inc()
}

func (m *BusinessMetrics) RecordOrderValue(paymentMethod string, total money.Amount) {
	if m == nil {
		return
	}
	m.OrderValue.WithLabelValues(paymentMethod).Observe(total.Decimal().InexactFloat64())
}

func (m *BusinessMetrics) RecordShippingCost(status string, cost money.Amount) {
	if m == nil {
		return
	}
	m.ShippingCost.WithLabelValues(status).Observe(cost.Decimal().InexactFloat64())
}

func (m *BusinessMetrics) RecordInvoiceTax(paymentStatus string, tax money.Amount) {
	if m == nil {
		return
	}
	m.InvoiceTax.WithLabelValues(paymentStatus).Observe(tax.Decimal().InexactFloat64())
}
