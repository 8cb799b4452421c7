package messaging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/momentohub/MomentoBot/internal/models"
	"github.com/momentohub/MomentoBot/internal/whatsapp"
)

func TestCanonicalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+55 (11) 91234-5678", "5511912345678", false},
		{"5511912345678", "5511912345678", false},
		{"", "", true},
		{"abc", "", true},
		{"12345", "", true},
	}
	for _, tt := range tests {
		got, err := CanonicalizePhone(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("CanonicalizePhone(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("CanonicalizePhone(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("CanonicalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWhatsAppServiceSendMessage(t *testing.T) {
	mock := whatsapp.NewMockClient()
	svc := NewWhatsAppService(mock)

	if err := svc.SendMessage(context.Background(), "+55 11 91234-5678", "olá"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.Sent) != 1 || mock.Sent[0] != "olá" {
		t.Errorf("expected message delivered to client, got %v", mock.Sent)
	}

	select {
	case receipt := <-svc.Receipts():
		if receipt.Status != models.MessageStatusSent {
			t.Errorf("expected sent receipt, got %s", receipt.Status)
		}
		if receipt.To != "5511912345678" {
			t.Errorf("expected canonical recipient, got %s", receipt.To)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a sent receipt")
	}
}

func TestWhatsAppServiceSendInvalidRecipient(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())
	if err := svc.SendMessage(context.Background(), "abc", "olá"); err == nil {
		t.Error("expected validation error")
	}
}

func TestWhatsAppServiceMarkRead(t *testing.T) {
	mock := whatsapp.NewMockClient()
	svc := NewWhatsAppService(mock)

	if err := svc.MarkRead(context.Background(), "m1", "5511912345678"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.Reads) != 1 || mock.Reads[0] != "m1" {
		t.Errorf("expected read acknowledged, got %v", mock.Reads)
	}
}

// chanService exposes a writable messages channel for handler tests.
type chanService struct {
	*WhatsAppService
	in chan models.InboundMessage
}

func (c *chanService) Messages() <-chan models.InboundMessage { return c.in }

// countingProcessor records processed messages.
type countingProcessor struct {
	mu   sync.Mutex
	seen []models.InboundMessage
}

func (p *countingProcessor) HandleInboundMessage(_ context.Context, msg models.InboundMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, msg)
	return nil
}

func TestHandlerRoutesMessages(t *testing.T) {
	svc := &chanService{
		WhatsAppService: NewWhatsAppService(whatsapp.NewMockClient()),
		in:              make(chan models.InboundMessage, 2),
	}
	proc := &countingProcessor{}
	handler := NewHandler(svc, proc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		handler.Run(ctx)
		close(done)
	}()

	svc.in <- models.InboundMessage{MessageID: "m1", From: "u1", Body: "oi"}
	svc.in <- models.InboundMessage{MessageID: "m2", From: "u2", Body: "olá"}

	deadline := time.After(2 * time.Second)
	for {
		proc.mu.Lock()
		count := len(proc.seen)
		proc.mu.Unlock()
		if count == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected 2 processed messages, got %d", count)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not stop on cancellation")
	}
}
