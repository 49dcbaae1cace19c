package whatsapp

import (
	"context"
	"testing"
)

func TestMockClientRecordsMessages(t *testing.T) {
	mock := NewMockClient()
	ctx := context.Background()

	if err := mock.SendMessage(ctx, "15551234567", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if err := mock.SendMessage(ctx, "15557654321", "world"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	sent := mock.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected 2 recorded messages, got %d", len(sent))
	}
	if sent[0].To != "15551234567" || sent[0].Body != "hello" {
		t.Errorf("unexpected first message: %+v", sent[0])
	}
}

func TestClientSendMessageValidation(t *testing.T) {
	var c Client
	ctx := context.Background()
	if err := c.SendMessage(ctx, "15551234567", "hi"); err == nil {
		t.Error("expected error from uninitialized client")
	}
}

func TestMockClientSentReturnsCopy(t *testing.T) {
	mock := NewMockClient()
	if err := mock.SendMessage(context.Background(), "1", "a"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	sent := mock.Sent()
	sent[0].Body = "mutated"
	if mock.Sent()[0].Body != "a" {
		t.Error("Sent exposed internal slice")
	}
}
