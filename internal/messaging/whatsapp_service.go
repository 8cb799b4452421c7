package messaging

import (
	"context"
	"log/slog"
	"time"

	"go.mau.fi/whatsmeow/types/events"

	"github.com/momentohub/MomentoBot/internal/models"
	"github.com/momentohub/MomentoBot/internal/whatsapp"
)

// WhatsAppService implements Service using the Whatsmeow-based client.
type WhatsAppService struct {
	client   whatsapp.Sender
	waClient *whatsapp.Client // full client for event handling, nil for mocks
	receipts chan models.Receipt
	messages chan models.InboundMessage
	done     chan struct{}
}

// NewWhatsAppService creates a WhatsAppService wrapping the given sender.
func NewWhatsAppService(client whatsapp.Sender) *WhatsAppService {
	service := &WhatsAppService{
		client:   client,
		receipts: make(chan models.Receipt, DefaultChannelBufferSize),
		messages: make(chan models.InboundMessage, DefaultChannelBufferSize),
		done:     make(chan struct{}),
	}
	if waClient, ok := client.(*whatsapp.Client); ok {
		service.waClient = waClient
		slog.Debug("WhatsAppService created with full client for event handling")
	} else {
		slog.Debug("WhatsAppService created with interface client (likely mock)")
	}
	return service
}

var _ Service = (*WhatsAppService)(nil)

// ValidateAndCanonicalizeRecipient validates and canonicalizes a phone number.
func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalizePhone(recipient)
}

// Start begins background event processing.
func (s *WhatsAppService) Start(ctx context.Context) error {
	if s.waClient == nil {
		slog.Debug("WhatsAppService.Start: no full client available, skipping event handling")
		return nil
	}
	go s.handleEvents(ctx)
	return nil
}

// Stop stops background processing and closes the event channels.
func (s *WhatsAppService) Stop() error {
	slog.Info("WhatsAppService.Stop: stopping")
	close(s.done)
	close(s.receipts)
	close(s.messages)
	return nil
}

// SendMessage sends a message and emits a sent receipt.
func (s *WhatsAppService) SendMessage(ctx context.Context, to string, body string) error {
	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		return err
	}
	if err := s.client.SendMessage(ctx, canonicalTo, body); err != nil {
		slog.Error("WhatsAppService.SendMessage: send failed", "error", err, "to", canonicalTo)
		return err
	}
	s.emitReceipt(models.Receipt{To: canonicalTo, Status: models.MessageStatusSent, Time: time.Now().Unix()})
	return nil
}

// MarkRead acknowledges an inbound message as read.
func (s *WhatsAppService) MarkRead(ctx context.Context, messageID, from string) error {
	canonicalFrom, err := s.ValidateAndCanonicalizeRecipient(from)
	if err != nil {
		return err
	}
	return s.client.MarkRead(ctx, messageID, canonicalFrom)
}

// Receipts returns the channel of receipt events.
func (s *WhatsAppService) Receipts() <-chan models.Receipt {
	return s.receipts
}

// Messages returns the channel of inbound user messages.
func (s *WhatsAppService) Messages() <-chan models.InboundMessage {
	return s.messages
}

func (s *WhatsAppService) emitReceipt(receipt models.Receipt) {
	select {
	case s.receipts <- receipt:
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("WhatsAppService: receipts channel blocked, dropping receipt", "to", receipt.To)
	}
}

// handleEvents registers the Whatsmeow event handler and runs until the
// context is cancelled.
func (s *WhatsAppService) handleEvents(ctx context.Context) {
	if s.waClient == nil || s.waClient.GetClient() == nil {
		slog.Error("WhatsAppService.handleEvents: no client available")
		return
	}

	s.waClient.GetClient().AddEventHandler(func(evt interface{}) {
		switch v := evt.(type) {
		case *events.Message:
			s.handleIncomingMessage(v)
		case *events.Receipt:
			s.handleMessageReceipt(v)
		}
	})

	<-ctx.Done()
	slog.Debug("WhatsAppService.handleEvents: stopping on context cancellation")
}

// handleIncomingMessage converts a Whatsmeow message event into the
// normalized inbound message consumed by the orchestrator.
func (s *WhatsAppService) handleIncomingMessage(evt *events.Message) {
	if evt.Message == nil {
		return
	}

	var body string
	if evt.Message.Conversation != nil {
		body = *evt.Message.Conversation
	} else if evt.Message.ExtendedTextMessage != nil && evt.Message.ExtendedTextMessage.Text != nil {
		body = *evt.Message.ExtendedTextMessage.Text
	} else {
		// Skip non-text messages (images, audio, etc.).
		slog.Debug("WhatsAppService: ignoring non-text message", "from", evt.Info.Sender.String())
		return
	}

	from, err := s.ValidateAndCanonicalizeRecipient(evt.Info.Sender.User)
	if err != nil {
		slog.Warn("WhatsAppService: dropping message with invalid sender", "error", err)
		return
	}

	msg := models.InboundMessage{
		MessageID: string(evt.Info.ID),
		From:      from,
		Body:      body,
		Time:      evt.Info.Timestamp.Unix(),
	}

	select {
	case s.messages <- msg:
		slog.Debug("WhatsAppService: inbound message forwarded", "from", msg.From, "messageID", msg.MessageID)
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("WhatsAppService: messages channel blocked, dropping message", "from", msg.From)
	}
}

// handleMessageReceipt converts delivery and read receipts.
func (s *WhatsAppService) handleMessageReceipt(evt *events.Receipt) {
	to, err := s.ValidateAndCanonicalizeRecipient(evt.MessageSource.Sender.User)
	if err != nil {
		return
	}

	var status models.MessageStatus
	switch evt.Type {
	case events.ReceiptTypeDelivered:
		status = models.MessageStatusDelivered
	case events.ReceiptTypeRead:
		status = models.MessageStatusRead
	default:
		return
	}

	select {
	case s.receipts <- models.Receipt{To: to, Status: status, Time: evt.Timestamp.Unix()}:
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("WhatsAppService: receipts channel blocked, dropping receipt", "to", to)
	}
}
