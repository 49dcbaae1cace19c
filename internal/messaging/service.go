// Package messaging abstracts the WhatsApp channels adoptbot can speak
// through and routes inbound messages to the conversation bots.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/caramelo-ong/adoptbot/internal/models"
)

const (
	// DefaultChannelBufferSize is the buffer size for receipt and response channels.
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout bounds non-blocking channel sends.
	DefaultChannelTimeout = 1 * time.Second
)

// ErrServiceStopped is returned when sending through a stopped service.
var ErrServiceStopped = errors.New("messaging service is stopped")

var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// Service is a pluggable message delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates a recipient identifier
	// and returns its canonical form.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a plain text message.
	SendMessage(ctx context.Context, to string, body string) error

	// SendInteractive sends a message with quick-reply buttons, subject
	// to the channel's button limits.
	SendInteractive(ctx context.Context, to string, body string, buttons []models.QuickReply) error

	// Start begins background processing (event polling).
	Start(ctx context.Context) error

	// Stop stops background processing and releases resources.
	Stop() error

	// Receipts returns a channel of delivery receipt events.
	Receipts() <-chan models.Receipt

	// Responses returns a channel of inbound messages.
	Responses() <-chan models.Response
}

// canonicalizePhoneNumber strips non-digits and validates the result.
// Shared by the channel implementations.
func canonicalizePhoneNumber(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < 6 {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum 6 digits required)", canonical)
	}
	if canonical != recipient {
		slog.Debug("messaging canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// renderInteractive flattens a body plus quick-reply buttons into plain
// text. WhatsApp allows at most 3 buttons with 20-character titles;
// extra buttons are dropped and long titles truncated.
func renderInteractive(body string, buttons []models.QuickReply) string {
	if len(buttons) == 0 {
		return body
	}
	if len(buttons) > models.MaxChannelButtons {
		slog.Debug("messaging trimming quick replies to channel button limit", "count", len(buttons), "limit", models.MaxChannelButtons)
		buttons = buttons[:models.MaxChannelButtons]
	}
	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n")
	for i, btn := range buttons {
		title := btn.Label
		// Truncate by runes so an accented label keeps valid UTF-8.
		if runes := []rune(title); len(runes) > models.MaxButtonTitleLength {
			title = string(runes[:models.MaxButtonTitleLength])
		}
		b.WriteString(fmt.Sprintf("\n%d. %s", i+1, title))
		if btn.Emoji != "" {
			b.WriteString(" " + btn.Emoji)
		}
	}
	return b.String()
}
