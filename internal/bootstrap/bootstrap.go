// Package bootstrap wires the infrastructure shared by every process:
// telemetry, storage, the event bus, the inbox, receive loops and the HTTP
// server. The cmd packages only choose which bounded contexts to run.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/fulfillment/internal"
	"github.com/dukerupert/fulfillment/internal/bus"
	"github.com/dukerupert/fulfillment/internal/email"
	"github.com/dukerupert/fulfillment/internal/inbox"
	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/dukerupert/fulfillment/internal/postgres"
	"github.com/dukerupert/fulfillment/internal/telemetry"
	"github.com/dukerupert/fulfillment/internal/worker"
)

// Bus publishes events and opens durable subscriptions.
type Bus interface {
	bus.Publisher
	Subscribe(ctx context.Context, topic, durable string, pollInterval time.Duration) (bus.Source, error)
}

// CloseFunc releases a resource; it is safe to defer.
type CloseFunc func()

// Telemetry starts Sentry and the tracer provider. The returned func
// flushes both.
func Telemetry(ctx context.Context, cfg *internal.Config, logger zerolog.Logger) (CloseFunc, error) {
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("sentry initialization failed: %w", err)
	}

	shutdownTracer, err := telemetry.SetupTracer(ctx, telemetry.TracerConfig{
		ServiceName: cfg.Service,
		Enabled:     cfg.Telemetry.OtelEnabled,
		Endpoint:    cfg.Telemetry.OtelEndpoint,
	})
	if err != nil {
		flushSentry()
		return nil, fmt.Errorf("tracer initialization failed: %w", err)
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
		flushSentry()
	}, nil
}

// Migration is one bounded context's schema.
type Migration struct {
	FS    fs.FS
	Table string
}

// Postgres runs the given migrations and opens the application pool.
func Postgres(ctx context.Context, cfg *internal.Config, logger zerolog.Logger, migrations ...Migration) (*pgxpool.Pool, error) {
	logger.Info().Msg("Running database migrations...")
	sqlDB, err := internal.OpenMigrationDB(cfg.DatabaseUrl)
	if err != nil {
		return nil, err
	}
	defer sqlDB.Close()

	for _, m := range migrations {
		if err := internal.RunMigrations(sqlDB, m.FS, m.Table); err != nil {
			return nil, fmt.Errorf("migration %s failed: %w", m.Table, err)
		}
	}
	logger.Info().Msg("Database migrations completed successfully")

	pool, err := postgres.Connect(ctx, cfg.DatabaseUrl, 0)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	logger.Info().Msg("Database connection established")
	return pool, nil
}

// OpenBus connects the bus selected by cfg.Bus.Kind. health reports bus
// connectivity for /health.
func OpenBus(ctx context.Context, cfg *internal.Config, logger zerolog.Logger) (b Bus, health func(context.Context) error, closeBus CloseFunc, err error) {
	if cfg.Bus.Kind == "memory" {
		mem := bus.NewMemory(logger)
		return mem, func(context.Context) error { return nil }, mem.Close, nil
	}

	js, err := bus.ConnectJetStream(ctx, bus.JetStreamConfig{
		URL:    cfg.Bus.URL,
		Stream: cfg.Bus.Stream,
		Name:   cfg.Service,
	}, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	health = func(context.Context) error {
		if !js.Healthy() {
			return errors.New("nats not connected")
		}
		return nil
	}
	closeBus = func() {
		if err := js.Drain(); err != nil {
			logger.Warn().Err(err).Msg("nats drain failed")
		}
	}
	return js, health, closeBus, nil
}

// OpenInbox connects the redis inbox when REDIS_ADDR is set; otherwise
// deduplication is left to the idempotent persist step and the inbox is nil.
func OpenInbox(ctx context.Context, cfg *internal.Config, logger zerolog.Logger) (inbox.Inbox, CloseFunc, error) {
	if cfg.Inbox.RedisAddr == "" {
		logger.Info().Msg("no REDIS_ADDR, processed-event inbox disabled")
		return nil, func() {}, nil
	}
	r, err := inbox.NewRedis(ctx, cfg.Inbox.RedisAddr, cfg.Inbox.TTL)
	if err != nil {
		return nil, nil, err
	}
	return r, func() { _ = r.Close() }, nil
}

// Consumer describes one subscription and what handles it.
type Consumer struct {
	Topic        string
	Subscription string
	Handler      worker.Handler
}

// Consume subscribes and runs the receive loop until ctx is done.
func Consume(
	ctx context.Context,
	b Bus,
	c Consumer,
	in inbox.Inbox,
	metrics *telemetry.BusinessMetrics,
	cfg *internal.Config,
	logger zerolog.Logger,
) error {
	source, err := b.Subscribe(ctx, c.Topic, c.Subscription, cfg.Consumer.PollInterval)
	if err != nil {
		return fmt.Errorf("subscribe %s to %s: %w", c.Subscription, c.Topic, err)
	}

	w := worker.NewWorker(source, c.Handler, in, metrics, worker.Config{
		WorkerID:       fmt.Sprintf("%s-%s", cfg.Service, c.Subscription),
		Subscription:   c.Subscription,
		HandlerTimeout: cfg.Consumer.HandlerTimeout,
	}, logger)
	return w.Start(ctx)
}

// Serve runs e on addr until ctx is done, then shuts it down within
// timeout.
func Serve(ctx context.Context, e *echo.Echo, addr string, timeout time.Duration, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", addr).Msg("Starting HTTP server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info().Msg("Shutting down HTTP server")
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// DisplayRate parses the configured EUR display rate, falling back to the
// default on a bad value.
func DisplayRate(cfg *internal.Config, logger zerolog.Logger) decimal.Decimal {
	rate, err := decimal.NewFromString(cfg.Currency.DisplayRate)
	if err != nil || !rate.IsPositive() {
		logger.Warn().Str("value", cfg.Currency.DisplayRate).Msg("Invalid DISPLAY_RATE. Using default")
		return money.DefaultDisplayRate
	}
	return rate
}

// Mailer sends notifications over SMTP, or only logs them when no SMTP
// host is configured.
func Mailer(cfg *internal.Config, logger zerolog.Logger) (*email.Service, error) {
	var sender email.Sender
	if cfg.Email.SMTPHost == "" {
		logger.Info().Msg("no SMTP_HOST, notifications are logged instead of sent")
		sender = email.NewLogSender(logger)
	} else {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.FromAddress,
		}, logger)
	}

	svc, err := email.NewService(sender, cfg.Email.FromAddress, cfg.Email.FromName)
	if err != nil {
		return nil, fmt.Errorf("email initialization failed: %w", err)
	}
	return svc, nil
}
