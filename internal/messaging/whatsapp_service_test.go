package messaging

import (
	"context"
	"strings"
	"testing"

	"github.com/caramelo-ong/adoptbot/internal/models"
	"github.com/caramelo-ong/adoptbot/internal/whatsapp"
)

func TestWhatsAppServiceSendMessageEmitsReceipt(t *testing.T) {
	mock := whatsapp.NewMockClient()
	svc := NewWhatsAppService(mock)

	if err := svc.SendMessage(context.Background(), "+1 (555) 123-4567", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	sent := mock.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 sent message, got %d", len(sent))
	}
	if sent[0].To != "15551234567" {
		t.Errorf("recipient not canonicalized: %q", sent[0].To)
	}

	select {
	case receipt := <-svc.Receipts():
		if receipt.To != "15551234567" || receipt.Status != models.MessageStatusSent {
			t.Errorf("unexpected receipt: %+v", receipt)
		}
	default:
		t.Error("expected a sent receipt")
	}
}

func TestWhatsAppServiceSendMessageInvalidRecipient(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())
	if err := svc.SendMessage(context.Background(), "not-a-number", "hello"); err == nil {
		t.Error("expected validation error")
	}
}

func TestWhatsAppServiceSendInteractiveRendersButtons(t *testing.T) {
	mock := whatsapp.NewMockClient()
	svc := NewWhatsAppService(mock)

	buttons := []models.QuickReply{
		{Label: "Do a check-in", Emoji: "📋"},
		{Label: "Send a document", Emoji: "📄"},
	}
	if err := svc.SendInteractive(context.Background(), "15551234567", "How can I help?", buttons); err != nil {
		t.Fatalf("SendInteractive failed: %v", err)
	}

	sent := mock.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 sent message, got %d", len(sent))
	}
	if !strings.Contains(sent[0].Body, "1. Do a check-in") || !strings.Contains(sent[0].Body, "2. Send a document") {
		t.Errorf("buttons not rendered: %q", sent[0].Body)
	}
}

func TestWhatsAppServiceStartWithMockIsNoOp(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())
	if err := svc.Start(context.Background()); err != nil {
		t.Errorf("Start with mock client failed: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestWhatsAppServiceStopGuardsLateEvents(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}

	if err := svc.SendMessage(context.Background(), "15551234567", "hello"); err != ErrServiceStopped {
		t.Errorf("SendMessage after Stop = %v, want ErrServiceStopped", err)
	}

	// A late event callback arriving during shutdown must be dropped,
	// not sent to a closed channel.
	svc.emitReceipt(models.Receipt{To: "15551234567", Status: models.MessageStatusSent})
}
