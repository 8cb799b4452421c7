package messaging

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/momentohub/MomentoBot/internal/models"
	"github.com/momentohub/MomentoBot/internal/twiliowhatsapp"
)

// TwilioService implements Service using the Twilio API. Inbound messages
// arrive through the webhook handler rather than a live socket, and read
// acknowledgements are a no-op on this channel.
type TwilioService struct {
	client   twiliowhatsapp.Sender
	receipts chan models.Receipt
	messages chan models.InboundMessage
	done     chan struct{}
	mu       sync.RWMutex
	stopped  bool
}

// NewTwilioService creates a TwilioService wrapping the given sender.
func NewTwilioService(client twiliowhatsapp.Sender) *TwilioService {
	return &TwilioService{
		client:   client,
		receipts: make(chan models.Receipt, DefaultChannelBufferSize),
		messages: make(chan models.InboundMessage, DefaultChannelBufferSize),
		done:     make(chan struct{}),
	}
}

var _ Service = (*TwilioService)(nil)

// ValidateAndCanonicalizeRecipient validates and canonicalizes a phone number.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalizePhone(recipient)
}

// Start is a no-op for Twilio; inbound traffic arrives via the webhook.
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

// Stop closes channels and stops the service.
func (s *TwilioService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.done)

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(s.receipts)
		close(s.messages)
	}()
	return nil
}

// SendMessage sends a message via Twilio and emits a sent receipt.
func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrServiceStopped
	}
	s.mu.RUnlock()

	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		return err
	}
	if err := s.client.SendMessage(ctx, canonicalTo, body); err != nil {
		return err
	}

	s.emitReceipt(models.Receipt{To: canonicalTo, Status: models.MessageStatusSent, Time: time.Now().Unix()})
	return nil
}

// MarkRead is a no-op: the Twilio WhatsApp API has no read acknowledgement.
func (s *TwilioService) MarkRead(_ context.Context, _, _ string) error {
	return nil
}

// Receipts returns the channel of receipt events.
func (s *TwilioService) Receipts() <-chan models.Receipt {
	return s.receipts
}

// Messages returns the channel of inbound user messages.
func (s *TwilioService) Messages() <-chan models.InboundMessage {
	return s.messages
}

// WebhookHandler accepts Twilio inbound message callbacks and feeds them into
// the messages channel.
func (s *TwilioService) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	from, err := s.ValidateAndCanonicalizeRecipient(r.FormValue("From"))
	if err != nil {
		slog.Warn("TwilioService.WebhookHandler: invalid sender", "error", err)
		http.Error(w, "invalid sender", http.StatusBadRequest)
		return
	}

	messageID := r.FormValue("MessageSid")
	if messageID == "" {
		messageID = uuid.NewString()
	}

	msg := models.InboundMessage{
		MessageID: messageID,
		From:      from,
		Body:      r.FormValue("Body"),
		Time:      time.Now().Unix(),
	}

	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		http.Error(w, "service stopped", http.StatusServiceUnavailable)
		return
	}

	select {
	case s.messages <- msg:
		w.WriteHeader(http.StatusOK)
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TwilioService.WebhookHandler: messages channel blocked, dropping message", "from", msg.From)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}
}

func (s *TwilioService) emitReceipt(receipt models.Receipt) {
	select {
	case s.receipts <- receipt:
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TwilioService: receipts channel blocked, dropping receipt", "to", receipt.To)
	}
}
