package messaging

import (
	"context"
	"log/slog"

	"github.com/momentohub/MomentoBot/internal/models"
)

// InboundProcessor consumes normalized inbound messages. Implemented by the
// orchestrator.
type InboundProcessor interface {
	HandleInboundMessage(ctx context.Context, msg models.InboundMessage) error
}

// Handler bridges a messaging service's inbound channel to the processor,
// spawning one task per message so users are handled concurrently.
type Handler struct {
	service   Service
	processor InboundProcessor
}

// NewHandler creates the inbound bridge.
func NewHandler(service Service, processor InboundProcessor) *Handler {
	return &Handler{service: service, processor: processor}
}

// Run consumes inbound messages until the context is cancelled or the
// service's channel closes. Blocking call.
func (h *Handler) Run(ctx context.Context) {
	slog.Info("Handler.Run: inbound bridge started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("Handler.Run: stopping on context cancellation")
			return
		case msg, ok := <-h.service.Messages():
			if !ok {
				slog.Info("Handler.Run: messages channel closed, stopping")
				return
			}
			go h.process(ctx, msg)
		}
	}
}

func (h *Handler) process(ctx context.Context, msg models.InboundMessage) {
	if err := h.processor.HandleInboundMessage(ctx, msg); err != nil {
		slog.Error("Handler.process: inbound message failed", "error", err, "from", msg.From, "messageID", msg.MessageID)
	}
}
