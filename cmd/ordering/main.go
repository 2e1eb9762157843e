// Command ordering serves the order commands over HTTP and publishes
// order events on the orders topic.
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

	cfg, err := internal.NewConfig("ordering")
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel, cfg.Service)

	return bootstrap.Run(ctx, cfg, bootstrap.Contexts{Ordering: true}, logger)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
