package messaging

import (
	"context"
	"log/slog"

	"github.com/caramelo-ong/adoptbot/internal/flow"
	"github.com/caramelo-ong/adoptbot/internal/models"
	"github.com/caramelo-ong/adoptbot/internal/store"
)

// errorReply is sent when a conversation turn fails internally.
const errorReply = "Sorry, something went wrong on our side. 🙏 Please try again in a moment."

// Dispatcher routes inbound channel messages to a conversation bot and
// sends the reply back through the same channel. The sender's phone
// number, canonicalized, is the session key, so each adopter gets an
// isolated conversation.
type Dispatcher struct {
	service Service
	bot     *flow.Bot
	store   store.Store
	done    chan struct{}
}

// NewDispatcher creates a Dispatcher. The store, when non-nil, keeps an
// audit log of inbound messages.
func NewDispatcher(service Service, bot *flow.Bot, st store.Store) *Dispatcher {
	return &Dispatcher{
		service: service,
		bot:     bot,
		store:   st,
		done:    make(chan struct{}),
	}
}

// Start launches the dispatch loop.
func (d *Dispatcher) Start(ctx context.Context) {
	slog.Debug("Dispatcher starting")
	go d.loop(ctx)
}

// Stop terminates the dispatch loop.
func (d *Dispatcher) Stop() {
	close(d.done)
}

func (d *Dispatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Dispatcher stopping, context cancelled")
			return
		case <-d.done:
			slog.Debug("Dispatcher stopped")
			return
		case resp, ok := <-d.service.Responses():
			if !ok {
				slog.Debug("Dispatcher responses channel closed")
				return
			}
			d.handle(ctx, resp)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, resp models.Response) {
	sessionID, err := d.service.ValidateAndCanonicalizeRecipient(resp.From)
	if err != nil {
		slog.Warn("Dispatcher dropping message with invalid sender", "error", err, "from", resp.From)
		return
	}

	if d.store != nil {
		if err := d.store.AddResponse(resp); err != nil {
			slog.Error("Dispatcher failed to log inbound message", "error", err, "from", sessionID)
		}
	}

	reply, err := d.bot.Handle(ctx, sessionID, resp.Body)
	if err != nil {
		slog.Error("Dispatcher bot error", "error", err, "sessionID", sessionID)
		if sendErr := d.service.SendMessage(ctx, sessionID, errorReply); sendErr != nil {
			slog.Error("Dispatcher failed to send error reply", "error", sendErr, "to", sessionID)
		}
		return
	}

	if len(reply.QuickReplies) > 0 {
		err = d.service.SendInteractive(ctx, sessionID, reply.Content, reply.QuickReplies)
	} else {
		err = d.service.SendMessage(ctx, sessionID, reply.Content)
	}
	if err != nil {
		slog.Error("Dispatcher failed to send reply", "error", err, "to", sessionID)
		return
	}
	slog.Info("Dispatcher replied", "to", sessionID, "quickReplies", len(reply.QuickReplies))
}
