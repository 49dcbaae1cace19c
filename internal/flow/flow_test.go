package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/caramelo-ong/adoptbot/internal/models"
	"github.com/caramelo-ong/adoptbot/internal/store"
)

func newTestAdoptionBot(t *testing.T, opts ...BotOption) *Bot {
	t.Helper()
	return NewAdoptionBot(NewStoreSessionManager(store.NewInMemoryStore()), opts...)
}

func newTestFollowupBot(t *testing.T, opts ...BotOption) *Bot {
	t.Helper()
	return NewFollowupBot(NewStoreSessionManager(store.NewInMemoryStore()), opts...)
}

func TestTriageFlowCompletes(t *testing.T) {
	bot := newTestAdoptionBot(t)
	ctx := context.Background()

	msg, err := bot.Start(ctx, "sess-1", models.StageTriage)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !strings.Contains(msg.Content, "what kind of animal") {
		t.Errorf("expected first triage prompt, got %q", msg.Content)
	}

	answers := []string{
		"Dog", "Medium", "House with yard", "All windows",
		"No", "All agree", "Yes fully", "I accept",
	}
	var last models.Message
	for i, answer := range answers {
		last, err = bot.Handle(ctx, "sess-1", answer)
		if err != nil {
			t.Fatalf("Handle step %d failed: %v", i, err)
		}
		if i < len(answers)-1 && strings.Contains(last.Content, "Screening complete") {
			t.Fatalf("flow completed early at step %d", i)
		}
	}

	for _, want := range []string{"Dog", "Medium", "House with yard", "All windows"} {
		if !strings.Contains(last.Content, want) {
			t.Errorf("completion summary missing %q: %q", want, last.Content)
		}
	}
	if len(last.QuickReplies) != 3 {
		t.Fatalf("expected 3 post-completion quick replies, got %d", len(last.QuickReplies))
	}
	wantLabels := []string{"Send a home photo", "Browse available animals", "Back to start"}
	for i, want := range wantLabels {
		if last.QuickReplies[i].Label != want {
			t.Errorf("quick reply %d = %q, want %q", i, last.QuickReplies[i].Label, want)
		}
	}
}

func TestFlowRecordsEveryAnswerVerbatim(t *testing.T) {
	var captured map[string]string
	Register(&Definition{
		Stage: models.Stage("capture_test"),
		Steps: []Step{
			{Prompt: "first?", Field: "first"},
			{Prompt: "second?", Field: "second"},
			{Prompt: "third?", Field: "third"},
		},
		Complete: func(answers map[string]string) (string, []models.QuickReply) {
			captured = answers
			return "done", nil
		},
	})
	defer delete(registry, models.Stage("capture_test"))

	bot := newTestAdoptionBot(t)
	ctx := context.Background()
	if _, err := bot.Start(ctx, "sess-1", models.Stage("capture_test")); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for _, answer := range []string{"alpha", "beta two", "Gamma, three!"} {
		if _, err := bot.Handle(ctx, "sess-1", answer); err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
	}

	want := map[string]string{"first": "alpha", "second": "beta two", "third": "Gamma, three!"}
	if len(captured) != len(want) {
		t.Fatalf("captured %d answers, want %d: %v", len(captured), len(want), captured)
	}
	for field, text := range want {
		if captured[field] != text {
			t.Errorf("answers[%q] = %q, want %q", field, captured[field], text)
		}
	}
}

func TestWelcomeMidFlowDiscardsProgress(t *testing.T) {
	sessions := NewStoreSessionManager(store.NewInMemoryStore())
	bot := NewAdoptionBot(sessions)
	ctx := context.Background()

	if _, err := bot.Start(ctx, "sess-1", models.StageTriage); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := bot.Handle(ctx, "sess-1", "Dog"); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if _, err := bot.Welcome(ctx, "sess-1", "Ana"); err != nil {
		t.Fatalf("Welcome failed: %v", err)
	}

	state, err := sessions.Get(ctx, "sess-1", models.AssistantAdoption)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if state.Stage != models.StageWelcome {
		t.Errorf("stage = %q, want %q", state.Stage, models.StageWelcome)
	}
	if state.StepIndex != 0 {
		t.Errorf("stepIndex = %d, want 0", state.StepIndex)
	}
	if len(state.Answers) != 0 {
		t.Errorf("answers not discarded: %v", state.Answers)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	bot := newTestAdoptionBot(t)
	ctx := context.Background()

	if _, err := bot.Start(ctx, "sess-a", models.StageTriage); err != nil {
		t.Fatalf("Start sess-a failed: %v", err)
	}
	if _, err := bot.Handle(ctx, "sess-a", "Dog"); err != nil {
		t.Fatalf("Handle sess-a failed: %v", err)
	}

	// A second session starting the same flow must see the first prompt,
	// not the first session's progress.
	msg, err := bot.Start(ctx, "sess-b", models.StageTriage)
	if err != nil {
		t.Fatalf("Start sess-b failed: %v", err)
	}
	if !strings.Contains(msg.Content, "what kind of animal") {
		t.Errorf("sess-b did not start at step 0: %q", msg.Content)
	}

	// And the first session is still on its second question.
	msg, err = bot.Handle(ctx, "sess-a", "Medium")
	if err != nil {
		t.Fatalf("Handle sess-a failed: %v", err)
	}
	if !strings.Contains(msg.Content, "kind of home") {
		t.Errorf("sess-a lost its position: %q", msg.Content)
	}
}

func TestCheckinNeedsAttentionBranch(t *testing.T) {
	bot := newTestFollowupBot(t)
	ctx := context.Background()

	if _, err := bot.Start(ctx, "sess-1", models.StageCheckin); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	answers := []string{"Difficult, I need help", "Eating normally", "Friendly with everyone", "No, all good", "Yes, all up to date"}
	var last models.Message
	var err error
	for _, answer := range answers {
		last, err = bot.Handle(ctx, "sess-1", answer)
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
	}
	if !strings.Contains(last.Content, "could be going better") {
		t.Errorf("expected needs-attention variant, got %q", last.Content)
	}
	if len(last.QuickReplies) != 2 || last.QuickReplies[0].Label != "Yes, schedule a visit" {
		t.Errorf("unexpected escalation quick replies: %+v", last.QuickReplies)
	}
}

func TestCheckinDoingWellBranch(t *testing.T) {
	bot := newTestFollowupBot(t)
	ctx := context.Background()

	if _, err := bot.Start(ctx, "sess-1", models.StageCheckin); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	answers := []string{"Very well", "Eating normally", "Friendly with everyone", "No, all good", "Yes, all up to date"}
	var last models.Message
	var err error
	for _, answer := range answers {
		last, err = bot.Handle(ctx, "sess-1", answer)
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
	}
	if !strings.Contains(last.Content, "Check-in complete") {
		t.Errorf("expected doing-well variant, got %q", last.Content)
	}
	if len(last.QuickReplies) != 2 || last.QuickReplies[0].Label != "Send photos" {
		t.Errorf("unexpected follow-up quick replies: %+v", last.QuickReplies)
	}
}

func TestNeedsAttention(t *testing.T) {
	tests := []struct {
		name    string
		answers map[string]string
		want    bool
	}{
		{"all fine", map[string]string{"a": "Very well", "b": "Eating normally"}, false},
		{"difficult", map[string]string{"a": "Having a DIFFICULT time"}, true},
		{"refuses", map[string]string{"a": "Refuses to eat"}, true},
		{"aggressive", map[string]string{"a": "Aggressive at times"}, true},
		{"not yet", map[string]string{"a": "Not yet"}, true},
		{"empty", map[string]string{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsAttention(tt.answers); got != tt.want {
				t.Errorf("needsAttention(%v) = %v, want %v", tt.answers, got, tt.want)
			}
		})
	}
}

func TestIntentRuleOrderWins(t *testing.T) {
	// The input matches both the lost-pet and found-animal rules; the
	// earlier rule must win.
	rule := adoptionRules.Match("I lost my dog but found another one nearby")
	if rule == nil {
		t.Fatal("expected a match")
	}
	if !strings.Contains(rule.Response, "sorry about your pet") {
		t.Errorf("earlier rule did not win, got %q", rule.Response)
	}
}

func TestIntentMatchCaseInsensitive(t *testing.T) {
	tests := []struct {
		rules RuleSet
		input string
		want  string
	}{
		{adoptionRules, "I WANT TO ADOPT a cat", "How wonderful"},
		{adoptionRules, "how do I Report ABUSE", "speaking up"},
		{adoptionRules, "what are your opening HOURS", "open for visits"},
		{followupRules, "my pet has a PROBLEM", "something is wrong"},
		{followupRules, "where do I send the adoption DOCUMENT", "adoption documents"},
	}
	for _, tt := range tests {
		rule := tt.rules.Match(tt.input)
		if rule == nil {
			t.Errorf("Match(%q) = nil, want rule containing %q", tt.input, tt.want)
			continue
		}
		if !strings.Contains(rule.Response, tt.want) {
			t.Errorf("Match(%q) response %q does not contain %q", tt.input, rule.Response, tt.want)
		}
	}
}

func TestDefaultResponseRotation(t *testing.T) {
	for i := range defaultResponses {
		idx := i
		bot := newTestAdoptionBot(t, WithRand(func(n int) int { return idx % n }))
		msg, err := bot.Handle(context.Background(), "sess-1", "zzz unmatchable gibberish qqq")
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if msg.Content != defaultResponses[idx] {
			t.Errorf("rotation %d = %q, want %q", idx, msg.Content, defaultResponses[idx])
		}
		if len(msg.QuickReplies) != 0 {
			t.Errorf("filler response carried quick replies: %+v", msg.QuickReplies)
		}
	}
}

func TestAdoptTriggerStartsTriage(t *testing.T) {
	bot := newTestAdoptionBot(t)
	msg, err := bot.Handle(context.Background(), "sess-1", "Yes, let's go")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(msg.Content, "adoption screening") {
		t.Errorf("trigger did not start triage: %q", msg.Content)
	}
}

func TestCheckinTriggerStartsCheckin(t *testing.T) {
	bot := newTestFollowupBot(t)
	msg, err := bot.Handle(context.Background(), "sess-1", "Do a check-in")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(msg.Content, "How is your new companion adapting") {
		t.Errorf("trigger did not start check-in: %q", msg.Content)
	}
}

func TestDefinitionValidate(t *testing.T) {
	complete := func(map[string]string) (string, []models.QuickReply) { return "", nil }
	tests := []struct {
		name    string
		def     *Definition
		wantErr bool
	}{
		{"valid", &Definition{Stage: "t", Steps: []Step{{Prompt: "p", Field: "f"}}, Complete: complete}, false},
		{"empty field", &Definition{Stage: "t", Steps: []Step{{Prompt: "p"}}, Complete: complete}, true},
		{"duplicate field", &Definition{Stage: "t", Steps: []Step{{Prompt: "p", Field: "f"}, {Prompt: "q", Field: "f"}}, Complete: complete}, true},
		{"nil complete", &Definition{Stage: "t", Steps: []Step{{Prompt: "p", Field: "f"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisteredFlowsAreValid(t *testing.T) {
	for _, stage := range []models.Stage{models.StageTriage, models.StageCheckin} {
		def, ok := Get(stage)
		if !ok {
			t.Fatalf("flow %q not registered", stage)
		}
		if err := def.validate(); err != nil {
			t.Errorf("flow %q invalid: %v", stage, err)
		}
	}
	if def, _ := Get(models.StageTriage); len(def.Steps) != 8 {
		t.Errorf("triage has %d steps, want 8", len(def.Steps))
	}
	if def, _ := Get(models.StageCheckin); len(def.Steps) != 5 {
		t.Errorf("checkin has %d steps, want 5", len(def.Steps))
	}
}
