package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fulfillment/internal/money"
)

type fakeSender struct {
	sent []*Email
	err  error
}

func (f *fakeSender) Send(ctx context.Context, email *Email) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, email)
	return "msg-1", nil
}

func TestGeneratePlainText(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		contains []string
		excludes []string
	}{
		{
			name:     "simple paragraph",
			html:     "<p>Hello, World!</p>",
			contains: []string{"Hello, World!"},
			excludes: []string{"<p>", "</p>"},
		},
		{
			name:     "line breaks",
			html:     "Line 1<br>Line 2<br/>Line 3<br />Line 4",
			contains: []string{"Line 1", "Line 2", "Line 3", "Line 4"},
			excludes: []string{"<br>", "<br/>", "<br />"},
		},
		{
			name:     "table cells keep a separator",
			html:     "<table><tr><td>Laptop</td><td>1 x 2000.00</td></tr></table>",
			contains: []string{"Laptop 1 x 2000.00"},
			excludes: []string{"<td>", "<tr>"},
		},
		{
			name:     "HTML entities",
			html:     "Total &amp; shipping &lt;free&gt; &#34;today&#34; it&#39;s",
			contains: []string{"Total & shipping <free>", `"today"`, "it's"},
			excludes: []string{"&amp;", "&lt;", "&#34;", "&#39;"},
		},
		{
			name:     "empty content",
			html:     "",
			contains: []string{},
			excludes: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := generatePlainText(tt.html)
			for _, want := range tt.contains {
				assert.Contains(t, result, want)
			}
			for _, exclude := range tt.excludes {
				assert.NotContains(t, result, exclude)
			}
		})
	}
}

func TestGeneratePlainText_WhitespaceHandling(t *testing.T) {
	result := generatePlainText(`
		<p>   Line with spaces   </p>
		<p></p>
		<p>Another line</p>
	`)

	for _, line := range strings.Split(result, "\n") {
		assert.NotEmpty(t, strings.TrimSpace(line))
	}
	assert.Contains(t, result, "Line with spaces")
	assert.Contains(t, result, "Another line")
}

func TestService_SendOrderPlaced(t *testing.T) {
	sender := &fakeSender{}
	svc, err := NewService(sender, "orders@example.com", "Fulfillment")
	require.NoError(t, err)

	orderID := uuid.MustParse("7f0c6a4e-52a8-4a43-8d7f-0e4c3a5b1f10")
	err = svc.Send(context.Background(), "ana@example.com", OrderPlacedEmail{
		OrderID:   orderID,
		OrderDate: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Lines: []Line{
			{Name: "Laptop", Quantity: 1, UnitPrice: money.FromInt(2000), LineTotal: money.FromInt(2000)},
		},
		Subtotal:       money.FromInt(2000),
		DiscountAmount: money.FromInt(200),
		Total:          money.FromInt(1800),
		Currency:       "RON",
		VoucherCode:    "WELCOME10",
		PaymentMethod:  "CardOnline",
		Address:        Address{Street: "Strada Lunga 1", City: "Cluj", PostalCode: "400000"},
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	sent := sender.sent[0]
	assert.Equal(t, []string{"ana@example.com"}, sent.To)
	assert.Equal(t, "Fulfillment <orders@example.com>", sent.From)
	assert.Equal(t, "Order Confirmation - "+orderID.String(), sent.Subject)
	assert.Contains(t, sent.HTMLBody, "<strong>Total: 1800.00 RON</strong>")
	assert.Contains(t, sent.TextBody, "Voucher WELCOME10: -200.00 RON")
	assert.Contains(t, sent.TextBody, "Laptop 1 x 2000.00 2000.00")
	assert.Contains(t, sent.TextBody, "Delivery to Strada Lunga 1, Cluj 400000")
	assert.NotContains(t, sent.TextBody, "<")
}

func TestService_SendCancelledAndReturned(t *testing.T) {
	sender := &fakeSender{}
	svc, err := NewService(sender, "orders@example.com", "")
	require.NoError(t, err)

	id := uuid.New()
	require.NoError(t, svc.Send(context.Background(), "ana@example.com", OrderCancelledEmail{OrderID: id, Reason: "changed my mind", Total: money.FromInt(10), Currency: "RON"}))
	require.NoError(t, svc.Send(context.Background(), "ana@example.com", OrderReturnedEmail{OrderID: id, Total: money.FromInt(10), Currency: "RON"}))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "orders@example.com", sender.sent[0].From)
	assert.Contains(t, sender.sent[0].TextBody, "Reason: changed my mind")
	assert.Equal(t, "Return Registered - "+id.String(), sender.sent[1].Subject)
	assert.NotContains(t, sender.sent[1].TextBody, "Reason:")
}

type unknownEmail struct{}

func (unknownEmail) Subject() string      { return "?" }
func (unknownEmail) TemplateName() string { return "missing.html" }

func TestService_SendErrors(t *testing.T) {
	sender := &fakeSender{}
	svc, err := NewService(sender, "orders@example.com", "")
	require.NoError(t, err)

	err = svc.Send(context.Background(), "ana@example.com", unknownEmail{})
	var emailErr *EmailError
	require.ErrorAs(t, err, &emailErr)
	assert.Equal(t, "not_found", emailErr.ErrorCode())

	sender.err = errors.New("connection refused")
	err = svc.Send(context.Background(), "ana@example.com", OrderCancelledEmail{OrderID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, sender.sent)
}
