package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dukerupert/fulfillment/internal/archive"
	"github.com/dukerupert/fulfillment/internal/bus"
	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/dukerupert/fulfillment/internal/worker"
)

// NewArchiveHandler handles the archive-invoices subscription: every
// invoice event is stored verbatim under InvoiceKey. A redelivered event
// finds its document already present and is acknowledged.
func NewArchiveHandler(store archive.Store) worker.Handler {
	return func(ctx context.Context, msg bus.Message) error {
		ev, err := decode(msg)
		if err != nil {
			return err
		}
		invoice, ok := ev.(events.InvoiceStateChanged)
		if !ok {
			return ignore(ctx, msg, "not an invoice event")
		}
		if invoice.InvoiceNumber == "" {
			return worker.Permanent(errors.New("invoice event without invoice number"))
		}

		key := InvoiceKey(invoice)
		exists, err := store.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("archive invoice %s: %w", invoice.InvoiceNumber, err)
		}
		if exists {
			return ignore(ctx, msg, "already archived")
		}

		location, err := store.Put(ctx, key, bytes.NewReader(msg.Data), "application/json")
		if errors.Is(err, archive.ErrInvalidKey) {
			return worker.Permanent(err)
		}
		if err != nil {
			return fmt.Errorf("archive invoice %s: %w", invoice.InvoiceNumber, err)
		}

		zerolog.Ctx(ctx).Debug().Str("location", location).Msg("invoice event archived")
		return nil
	}
}

// InvoiceKey names the document for one invoice event, grouped by invoice
// month and number.
func InvoiceKey(ev events.InvoiceStateChanged) string {
	return fmt.Sprintf("invoices/%s/%s/%s-%s.json",
		ev.InvoiceDate.UTC().Format("2006/01"),
		ev.InvoiceNumber,
		ev.EventType(),
		ev.EventID(),
	)
}
