package twiliowhatsapp

import (
	"context"
	"testing"
)

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewClient(); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok")); err == nil {
		t.Error("expected error without sending number")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok"), WithFromWhats("whatsapp:+15551234567")); err != nil {
		t.Errorf("unexpected error with full credentials: %v", err)
	}
}

func TestMockClientRecordsMessages(t *testing.T) {
	mock := NewMockClient()
	if err := mock.SendMessage(context.Background(), "+15551234567", "hi"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	sent := mock.Sent()
	if len(sent) != 1 || sent[0].Body != "hi" {
		t.Errorf("unexpected recorded messages: %+v", sent)
	}
}
