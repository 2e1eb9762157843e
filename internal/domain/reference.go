package domain

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// referenceAlphabet omits characters that are easy to misread (0/O, 1/I).
const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewReference returns a human-readable code PREFIX-YYYYMMDD-XXXX with
// length random characters, e.g. INV-20240309-K7Q2MZ.
func NewReference(prefix string, at time.Time, length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reference: %w", err)
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, at.UTC().Format("20060102"), buf), nil
}

var (
	shipmentNamespace = uuid.MustParse("7c0f3a4e-5d2b-4c1a-9a57-3f1e2b6d8c01")
	invoiceNamespace  = uuid.MustParse("b2e91d6a-0c4f-4f3e-8d2a-61a7c9e5f402")
)

// ShipmentIDFor derives the shipment id from the order that triggered it,
// so a redelivered order event always maps to the same shipment.
func ShipmentIDFor(orderID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(shipmentNamespace, orderID[:])
}

// InvoiceIDFor derives the invoice id from its shipment.
func InvoiceIDFor(shipmentID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(invoiceNamespace, shipmentID[:])
}
