package flow

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/caramelo-ong/adoptbot/internal/models"
)

// DocumentLister renders a session's uploaded documents for display.
// Implemented by the documents package; optional for the bot.
type DocumentLister interface {
	ListMessage(ctx context.Context, ownerID string) (string, []models.QuickReply, error)
}

// Bot dispatches inbound messages for one assistant: active flows are
// advanced one step per message, flow-start triggers open a flow, intent
// rules answer free text, and a filler rotation covers everything else.
type Bot struct {
	assistant models.Assistant
	sessions  SessionManager
	composer  *Composer
	rules     RuleSet
	triggers  map[string]models.Stage
	docs      DocumentLister
	intn      func(n int) int
}

// BotOption configures optional Bot behavior.
type BotOption func(*Bot)

// WithRand overrides the pseudo-random source for the filler rotation.
func WithRand(intn func(n int) int) BotOption {
	return func(b *Bot) { b.intn = intn }
}

// WithClock overrides the clock used for message timestamps.
func WithClock(now func() time.Time) BotOption {
	return func(b *Bot) { b.composer = NewComposerWithClock(now) }
}

// WithDocumentLister enables the "my documents" shortcut.
func WithDocumentLister(docs DocumentLister) BotOption {
	return func(b *Bot) { b.docs = docs }
}

// NewAdoptionBot creates the general assistant: adoption triage plus the
// public intent rules.
func NewAdoptionBot(sessions SessionManager, opts ...BotOption) *Bot {
	b := &Bot{
		assistant: models.AssistantAdoption,
		sessions:  sessions,
		composer:  NewComposer(),
		rules:     adoptionRules,
		triggers: map[string]models.Stage{
			"yes, let's go":   models.StageTriage,
			"start screening": models.StageTriage,
			"i want to adopt": models.StageTriage,
		},
		intn: rand.IntN,
	}
	for _, opt := range opts {
		opt(b)
	}
	slog.Debug("Bot created", "assistant", b.assistant)
	return b
}

// NewFollowupBot creates the post-adoption assistant: check-ins,
// documents and the follow-up intent rules.
func NewFollowupBot(sessions SessionManager, opts ...BotOption) *Bot {
	b := &Bot{
		assistant: models.AssistantFollowup,
		sessions:  sessions,
		composer:  NewComposer(),
		rules:     followupRules,
		triggers: map[string]models.Stage{
			"check-in":            models.StageCheckin,
			"checkin":             models.StageCheckin,
			"do a check-in":       models.StageCheckin,
			"do another check-in": models.StageCheckin,
		},
		intn: rand.IntN,
	}
	for _, opt := range opts {
		opt(b)
	}
	slog.Debug("Bot created", "assistant", b.assistant)
	return b
}

// Welcome resets the session and returns the assistant's greeting menu.
// Idempotent: any in-progress flow is discarded.
func (b *Bot) Welcome(ctx context.Context, sessionID, displayName string) (models.Message, error) {
	slog.Debug("Bot Welcome", "assistant", b.assistant, "sessionID", sessionID)
	if _, err := b.sessions.Reset(ctx, sessionID, b.assistant); err != nil {
		return models.Message{}, fmt.Errorf("failed to reset session: %w", err)
	}
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = "friend"
	}
	var text string
	var quickReplies []models.QuickReply
	switch b.assistant {
	case models.AssistantFollowup:
		text = fmt.Sprintf("Hi %s! 💚 I'm the post-adoption assistant. I'm here to make sure you and your new companion are doing great. How can I help today?", name)
		quickReplies = []models.QuickReply{
			{Label: "Do a check-in", Emoji: "📋"},
			{Label: "Report a problem", Emoji: "⚠️"},
			{Label: "Send a document", Emoji: "📄"},
			{Label: "Ask a question", Emoji: "❓"},
		}
	default:
		text = fmt.Sprintf("Hi %s! 🐾 Welcome to the Caramelo shelter. I can help you adopt a pet, report an animal in need, volunteer, or donate. What brings you here?", name)
		quickReplies = []models.QuickReply{
			{Label: "I want to adopt", Emoji: "🐾"},
			{Label: "Report abuse", Emoji: "🚨"},
			{Label: "Volunteer", Emoji: "💪"},
			{Label: "Donate", Emoji: "💚"},
		}
	}
	return b.composer.Bot(text, quickReplies), nil
}

// Handle processes one inbound user message and returns the reply.
func (b *Bot) Handle(ctx context.Context, sessionID, text string) (models.Message, error) {
	slog.Debug("Bot Handle", "assistant", b.assistant, "sessionID", sessionID)
	state, err := b.sessions.Get(ctx, sessionID, b.assistant)
	if err != nil {
		return models.Message{}, err
	}
	if state == nil {
		state, err = b.sessions.Reset(ctx, sessionID, b.assistant)
		if err != nil {
			return models.Message{}, err
		}
	}

	// An active flow consumes every message as the current step's answer.
	if state.Stage != models.StageWelcome {
		return b.advance(ctx, state, text)
	}

	trimmed := strings.ToLower(strings.TrimSpace(text))
	if stage, ok := b.triggers[trimmed]; ok {
		return b.start(ctx, state, stage)
	}

	if b.docs != nil && trimmed == "my documents" {
		listing, quickReplies, err := b.docs.ListMessage(ctx, sessionID)
		if err != nil {
			slog.Error("Bot Handle document listing error", "error", err, "sessionID", sessionID)
			return models.Message{}, fmt.Errorf("failed to list documents: %w", err)
		}
		return b.composer.Bot(listing, quickReplies), nil
	}

	if rule := b.rules.Match(text); rule != nil {
		return b.composer.Bot(rule.Response, rule.QuickReplies), nil
	}

	return b.composer.Bot(defaultResponses[b.intn(len(defaultResponses))], nil), nil
}

// Start opens the given flow for a session, discarding any previous
// progress, and returns the first step's prompt.
func (b *Bot) Start(ctx context.Context, sessionID string, stage models.Stage) (models.Message, error) {
	state, err := b.sessions.Get(ctx, sessionID, b.assistant)
	if err != nil {
		return models.Message{}, err
	}
	if state == nil {
		state, err = b.sessions.Reset(ctx, sessionID, b.assistant)
		if err != nil {
			return models.Message{}, err
		}
	}
	return b.start(ctx, state, stage)
}

func (b *Bot) start(ctx context.Context, state *models.FlowState, stage models.Stage) (models.Message, error) {
	def, ok := Get(stage)
	if !ok {
		return models.Message{}, fmt.Errorf("unknown flow %q", stage)
	}
	state.Stage = stage
	state.StepIndex = 0
	state.Answers = make(map[string]string)
	if err := b.sessions.Save(ctx, state); err != nil {
		return models.Message{}, err
	}
	slog.Info("Bot flow started", "assistant", b.assistant, "sessionID", state.SessionID, "flow", stage)
	first := def.Steps[0]
	return b.composer.Bot(first.Prompt, first.QuickReplies), nil
}

func (b *Bot) advance(ctx context.Context, state *models.FlowState, text string) (models.Message, error) {
	def, ok := Get(state.Stage)
	if !ok {
		// Unknown persisted stage, likely from an older deployment.
		// Recover by resetting rather than failing the session.
		slog.Warn("Bot advance unknown stage, resetting", "sessionID", state.SessionID, "stage", state.Stage)
		if _, err := b.sessions.Reset(ctx, state.SessionID, b.assistant); err != nil {
			return models.Message{}, err
		}
		return b.Welcome(ctx, state.SessionID, "")
	}

	if state.StepIndex >= 0 && state.StepIndex < len(def.Steps) {
		if state.Answers == nil {
			state.Answers = make(map[string]string)
		}
		state.Answers[def.Steps[state.StepIndex].Field] = text
	}
	state.StepIndex++

	if state.StepIndex >= len(def.Steps) {
		summary, quickReplies := def.Complete(state.Answers)
		slog.Info("Bot flow completed", "assistant", b.assistant, "sessionID", state.SessionID, "flow", state.Stage)
		completed := state.Stage
		state.Stage = models.StageWelcome
		state.StepIndex = 0
		state.Answers = make(map[string]string)
		if err := b.sessions.Save(ctx, state); err != nil {
			return models.Message{}, fmt.Errorf("failed to save completed %s flow: %w", completed, err)
		}
		return b.composer.Bot(summary, quickReplies), nil
	}

	if err := b.sessions.Save(ctx, state); err != nil {
		return models.Message{}, err
	}
	next := def.Steps[state.StepIndex]
	return b.composer.Bot(next.Prompt, next.QuickReplies), nil
}
