// Command standalone runs Ordering, Shipment and Invoicing in one process
// on the in-memory bus and store. It is meant for local development and
// demos; nothing survives a restart.
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

	// Set before loading so the production DATABASE_URL check does not apply.
	os.Setenv("STORE", "memory")
	os.Setenv("BUS", "memory")

	cfg, err := internal.NewConfig("standalone")
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel, cfg.Service)

	return bootstrap.Run(ctx, cfg, bootstrap.Contexts{
		Ordering:  true,
		Shipment:  true,
		Invoicing: true,
	}, logger)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
