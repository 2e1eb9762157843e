// Command shipment schedules a shipment for every placed order.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukerupert/fulfillment/internal"
	"github.com/dukerupert/fulfillment/internal/bootstrap"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := internal.NewConfig("shipment")
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel, cfg.Service)

	return bootstrap.Run(ctx, cfg, bootstrap.Contexts{Shipment: true}, logger)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
