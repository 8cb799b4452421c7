// Package messaging provides the pluggable message delivery abstraction over
// the WhatsApp channel implementations and the bridge routing inbound
// messages into the orchestrator.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/momentohub/MomentoBot/internal/models"
)

const (
	// DefaultChannelBufferSize is the buffer size for receipt and message channels.
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout bounds non-blocking channel emits.
	DefaultChannelTimeout = 1 * time.Second
)

// ErrServiceStopped is returned when operating on a stopped service.
var ErrServiceStopped = errors.New("messaging service stopped")

// nonDigits matches everything stripped during recipient canonicalization.
var nonDigits = regexp.MustCompile(`\D`)

// Service defines a pluggable message delivery abstraction. It supports
// sending messages and read acknowledgements, and provides channels for
// receipt and inbound message events.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates a recipient identifier and
	// returns its canonical form (digits only).
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// MarkRead acknowledges an inbound message as read.
	MarkRead(ctx context.Context, messageID, from string) error

	// Start begins any background processing (e.g., event polling).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Receipts returns a channel of receipt events (sent, delivered, read).
	Receipts() <-chan models.Receipt

	// Messages returns a channel of inbound user messages.
	Messages() <-chan models.InboundMessage
}

// CanonicalizePhone strips non-digit characters and validates the result.
func CanonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	canonical := nonDigits.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in %q", recipient)
	}
	if len(canonical) < 6 {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum 6 digits)", canonical)
	}
	if canonical != recipient {
		slog.Debug("messaging canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}
