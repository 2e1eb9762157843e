package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/fulfillment/internal"
	"github.com/dukerupert/fulfillment/internal/archive"
	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/dukerupert/fulfillment/internal/handler/api"
	"github.com/dukerupert/fulfillment/internal/inbox"
	"github.com/dukerupert/fulfillment/internal/jobs"
	"github.com/dukerupert/fulfillment/internal/middleware"
	"github.com/dukerupert/fulfillment/internal/routes"
	"github.com/dukerupert/fulfillment/internal/service"
	"github.com/dukerupert/fulfillment/internal/shipping"
	"github.com/dukerupert/fulfillment/internal/tax"
	"github.com/dukerupert/fulfillment/internal/telemetry"
)

// App is a wired process: one HTTP server and the receive loops of the
// contexts it runs.
type App struct {
	Echo      *echo.Echo
	Consumers []Consumer

	cfg     *internal.Config
	bus     Bus
	inbox   inbox.Inbox
	metrics *telemetry.BusinessMetrics
	logger  zerolog.Logger
	stop    []func()
}

// Options are the process-level collaborators Build does not create.
type Options struct {
	Registry *prometheus.Registry
	Clock    service.Clock

	// BusHealth reports bus connectivity on /health; nil omits the check.
	BusHealth func(context.Context) error

	// Mailer adds the notifications consumer to Ordering; nil omits it.
	Mailer jobs.Mailer

	// Archive adds the invoice archive consumer to Invoicing; nil omits it.
	Archive archive.Store
}

// Build creates the services of the selected contexts on stores and b and
// registers their routes. Ordering serves commands over HTTP; Shipment
// and Invoicing each add a consumer. Notifications and the invoice
// archive are added when opts provides them.
func Build(cfg *internal.Config, which Contexts, stores *Stores, b Bus, in inbox.Inbox, opts Options, logger zerolog.Logger) *App {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := telemetry.NewBusinessMetrics(reg, cfg.Telemetry.MetricsNamespace)

	svcOpts := []service.Option{service.WithMetrics(metrics), service.WithLogger(logger)}
	if opts.Clock != nil {
		svcOpts = append(svcOpts, service.WithClock(opts.Clock))
	}

	checks := map[string]func(context.Context) error{"store": stores.Health}
	if opts.BusHealth != nil {
		checks["bus"] = opts.BusHealth
	}

	e, g := routes.NewServer(routes.ServerDeps{
		Logger:         logger,
		Metrics:        middleware.NewMetrics(reg, cfg.Telemetry.MetricsNamespace),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Health:         api.NewHealthHandler(cfg.Service, checks),
		RequestTimeout: cfg.Consumer.HandlerTimeout,
	})

	app := &App{
		Echo:    e,
		cfg:     cfg,
		bus:     b,
		inbox:   in,
		metrics: metrics,
		logger:  logger,
	}

	if which.Ordering {
		orders := service.NewOrderService(stores.Orders, stores.Vouchers, b, svcOpts...)
		limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
		app.stop = append(app.stop, limiter.Stop)
		routes.RegisterOrderingRoutes(g, routes.OrderingDeps{
			OrderHandler: api.NewOrderHandler(orders),
			PlaceLimiter: limiter,
		})
		if opts.Mailer != nil {
			app.Consumers = append(app.Consumers, Consumer{
				Topic:        events.TopicOrders,
				Subscription: events.SubscriptionNotificationsOrders,
				Handler:      jobs.NewNotificationHandler(opts.Mailer, cfg.Currency.Primary),
			})
		}
	}

	if which.Shipment {
		shipments := service.NewShipmentService(stores.Shipments, shipping.NewBracketProvider("fulfillment"), b, svcOpts...)
		routes.RegisterShipmentRoutes(g, routes.ShipmentDeps{ShipmentHandler: api.NewShipmentHandler(shipments)})
		app.Consumers = append(app.Consumers, Consumer{
			Topic:        events.TopicOrders,
			Subscription: events.SubscriptionShipmentOrders,
			Handler:      jobs.NewShipmentHandler(shipments),
		})
	}

	if which.Invoicing {
		rate := DisplayRate(cfg, logger)
		invoices := service.NewInvoiceService(stores.Invoices, tax.NewCategoryCalculator(), b, service.InvoiceConfig{
			Currency:    cfg.Currency.Primary,
			DisplayRate: rate,
		}, svcOpts...)
		routes.RegisterInvoicingRoutes(g, routes.InvoicingDeps{InvoiceHandler: api.NewInvoiceHandler(invoices, rate)})
		app.Consumers = append(app.Consumers, Consumer{
			Topic:        events.TopicShipments,
			Subscription: events.SubscriptionInvoicingShipments,
			Handler:      jobs.NewInvoicingHandler(invoices),
		})
		if opts.Archive != nil {
			app.Consumers = append(app.Consumers, Consumer{
				Topic:        events.TopicInvoices,
				Subscription: events.SubscriptionArchiveInvoices,
				Handler:      jobs.NewArchiveHandler(opts.Archive),
			})
		}
	}

	return app
}

// Run serves HTTP and runs every consumer until ctx is done or one of them
// fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return Serve(ctx, a.Echo, fmt.Sprintf(":%d", a.cfg.Port), a.cfg.ShutdownTimeout, a.logger)
	})
	for _, c := range a.Consumers {
		g.Go(func() error {
			return Consume(ctx, a.bus, c, a.inbox, a.metrics, a.cfg, a.logger)
		})
	}

	err := g.Wait()
	for _, stop := range a.stop {
		stop()
	}
	return err
}

// Run wires and runs the selected contexts with the infrastructure cfg
// names, shutting everything down once ctx is done.
func Run(ctx context.Context, cfg *internal.Config, which Contexts, logger zerolog.Logger) error {
	closeTelemetry, err := Telemetry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeTelemetry()

	stores, err := OpenStores(ctx, cfg, which, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	b, busHealth, closeBus, err := OpenBus(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("bus connection failed: %w", err)
	}
	defer closeBus()

	in, closeInbox, err := OpenInbox(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("inbox connection failed: %w", err)
	}
	defer closeInbox()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := Options{Registry: reg, BusHealth: busHealth}
	if which.Ordering {
		if opts.Mailer, err = Mailer(cfg, logger); err != nil {
			return err
		}
	}
	if which.Invoicing {
		if opts.Archive, err = archive.New(ctx, cfg.Archive); err != nil {
			return fmt.Errorf("archive initialization failed: %w", err)
		}
	}

	app := Build(cfg, which, stores, b, in, opts, logger)

	start := time.Now()
	logger.Info().
		Bool("ordering", which.Ordering).
		Bool("shipment", which.Shipment).
		Bool("invoicing", which.Invoicing).
		Str("store", cfg.Store).
		Str("bus", cfg.Bus.Kind).
		Msg("Starting")

	err = app.Run(ctx)
	logger.Info().Dur("uptime", time.Since(start)).Msg("Stopped")
	return err
}
