package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fulfillment/internal/archive"
	"github.com/dukerupert/fulfillment/internal/email"
	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/dukerupert/fulfillment/internal/worker"
)

type sentMail struct {
	to   string
	data email.Template
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, to string, data email.Template) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, data: data})
	return nil
}

func TestNotificationHandler_Routing(t *testing.T) {
	tests := []struct {
		status   string
		template string
	}{
		{"Placed", "order_placed.html"},
		{"Cancelled", "order_cancelled.html"},
		{"Returned", "order_returned.html"},
		{"Modified", ""},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			mailer := &fakeMailer{}
			ev := orderEvent(tt.status)
			ev.Email = "ana@example.com"

			err := NewNotificationHandler(mailer, "RON")(context.Background(), message(t, events.TopicOrders, ev))
			require.NoError(t, err)

			if tt.template == "" {
				assert.Empty(t, mailer.sent)
				return
			}
			require.Len(t, mailer.sent, 1)
			assert.Equal(t, "ana@example.com", mailer.sent[0].to)
			assert.Equal(t, tt.template, mailer.sent[0].data.TemplateName())
		})
	}
}

func TestNotificationHandler_MapsPlacedOrder(t *testing.T) {
	mailer := &fakeMailer{}
	ev := orderEvent("Placed")
	ev.Email = "ana@example.com"
	ev.VoucherCode = "WELCOME10"
	ev.Street, ev.City, ev.PostalCode = "Strada Lunga 1", "Cluj", "400000"

	require.NoError(t, NewNotificationHandler(mailer, "RON")(context.Background(), message(t, events.TopicOrders, ev)))

	require.Len(t, mailer.sent, 1)
	placed, ok := mailer.sent[0].data.(email.OrderPlacedEmail)
	require.True(t, ok)
	assert.Equal(t, ev.OrderID, placed.OrderID)
	assert.Equal(t, "RON", placed.Currency)
	assert.Equal(t, "1890.00", placed.Total.String())
	assert.Equal(t, "Cluj", placed.Address.City)
	require.Len(t, placed.Lines, 1)
	assert.Equal(t, "Laptop", placed.Lines[0].Name)
}

func TestNotificationHandler_Failures(t *testing.T) {
	t.Run("no email address is acknowledged", func(t *testing.T) {
		mailer := &fakeMailer{}
		err := NewNotificationHandler(mailer, "RON")(context.Background(), message(t, events.TopicOrders, orderEvent("Placed")))
		assert.NoError(t, err)
		assert.Empty(t, mailer.sent)
	})

	t.Run("smtp failure is returned for redelivery", func(t *testing.T) {
		ev := orderEvent("Placed")
		ev.Email = "ana@example.com"
		err := NewNotificationHandler(&fakeMailer{err: errors.New("dial tcp: connection refused")}, "RON")(context.Background(), message(t, events.TopicOrders, ev))
		require.Error(t, err)
		assert.False(t, worker.IsPermanent(err))
	})

	t.Run("invalid recipient is permanent", func(t *testing.T) {
		ev := orderEvent("Placed")
		ev.Email = "not-an-address"
		mailer := &fakeMailer{err: fmt.Errorf("%w: bad address", email.ErrInvalidToAddress)}
		err := NewNotificationHandler(mailer, "RON")(context.Background(), message(t, events.TopicOrders, ev))
		assert.True(t, worker.IsPermanent(err))
	})
}

func invoiceEvent() events.InvoiceStateChanged {
	return events.InvoiceStateChanged{
		BaseEvent:     events.NewBaseEvent(events.TypeInvoiceCreated, time.Now()),
		InvoiceState:  "Issued",
		InvoiceID:     uuid.New(),
		InvoiceNumber: "INV-20250314-ABC123",
		OrderID:       uuid.New(),
		ShipmentID:    uuid.New(),
		TotalAmount:   money.MustParse("2116.80"),
		InvoiceDate:   time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Currency:      "RON",
	}
}

func TestArchiveHandler(t *testing.T) {
	store, err := archive.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	handle := NewArchiveHandler(store)

	ev := invoiceEvent()
	msg := message(t, events.TopicInvoices, ev)
	key := InvoiceKey(ev)
	assert.Equal(t, fmt.Sprintf("invoices/2025/03/INV-20250314-ABC123/InvoiceCreated-%s.json", ev.EventID()), key)

	require.NoError(t, handle(context.Background(), msg))

	doc, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	defer doc.Close()
	body, err := io.ReadAll(doc)
	require.NoError(t, err)
	assert.JSONEq(t, string(msg.Data), string(body))

	// Redelivery finds the document and leaves it alone.
	require.NoError(t, handle(context.Background(), msg))
}

func TestArchiveHandler_Failures(t *testing.T) {
	store, err := archive.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ev := invoiceEvent()
	ev.InvoiceNumber = ""
	err = NewArchiveHandler(store)(context.Background(), message(t, events.TopicInvoices, ev))
	assert.True(t, worker.IsPermanent(err))

	err = NewArchiveHandler(store)(context.Background(), message(t, events.TopicInvoices, orderEvent("Placed")))
	assert.NoError(t, err)
}
