package flow

import (
	"time"

	"github.com/caramelo-ong/adoptbot/internal/models"
	"github.com/caramelo-ong/adoptbot/internal/util"
)

// Composer stamps outgoing bot messages with a fresh id and timestamp.
// The clock is injectable so tests can pin timestamps.
type Composer struct {
	now func() time.Time
}

// NewComposer creates a Composer using the wall clock.
func NewComposer() *Composer {
	return &Composer{now: time.Now}
}

// NewComposerWithClock creates a Composer with a custom clock.
func NewComposerWithClock(now func() time.Time) *Composer {
	return &Composer{now: now}
}

// Bot builds an outgoing bot message with the given text and quick replies.
func (c *Composer) Bot(content string, quickReplies []models.QuickReply) models.Message {
	return models.Message{
		ID:           util.GenerateMessageID(),
		Sender:       models.SenderBot,
		Content:      content,
		Timestamp:    c.now(),
		QuickReplies: quickReplies,
	}
}

// User builds an inbound user message, used by callers that echo user
// input back into a transcript.
func (c *Composer) User(content string) models.Message {
	return models.Message{
		ID:        util.GenerateMessageID(),
		Sender:    models.SenderUser,
		Content:   content,
		Timestamp: c.now(),
	}
}
