// Package email renders and sends customer notifications.
package email

import "context"

// Email represents an email message to be sent.
type Email struct {
	To       []string          // Recipient email addresses
	From     string            // Sender address, "Name <addr>" allowed
	Subject  string            // Email subject
	TextBody string            // Plain text body
	HTMLBody string            // HTML body (optional)
	Headers  map[string]string // Custom headers (optional)
}

// Sender delivers a rendered message.
type Sender interface {
	// Send returns the provider's message ID, if it has one.
	Send(ctx context.Context, email *Email) (string, error)
}
