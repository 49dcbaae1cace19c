package flow

import (
	"fmt"
	"strings"

	"github.com/caramelo-ong/adoptbot/internal/models"
)

// Field names for the post-adoption check-in flow.
const (
	CheckinFieldAdaptation    = "adaptation"
	CheckinFieldFeeding       = "feeding"
	CheckinFieldSocialization = "socialization"
	CheckinFieldBehavior      = "behavior"
	CheckinFieldVetVisit      = "vet_visit"
)

// concernMarkers are answer substrings that indicate the adopter may
// need help. Matching is case insensitive.
var concernMarkers = []string{
	"difficult",
	"refuses",
	"aggressive",
	"not yet",
}

var checkinFlow = &Definition{
	Stage: models.StageCheckin,
	Steps: []Step{
		{
			Prompt: "Let's do your check-in! 📋\n\nHow is your new companion adapting to the home?",
			QuickReplies: []models.QuickReply{
				{Label: "Very well", Emoji: "😊"},
				{Label: "Getting there", Emoji: "🙂"},
				{Label: "Having a difficult time", Emoji: "😟"},
			},
			Field: CheckinFieldAdaptation,
		},
		{
			Prompt: "How is the feeding going?",
			QuickReplies: []models.QuickReply{
				{Label: "Eating normally", Emoji: "🍽️"},
				{Label: "Eating little", Emoji: "🥄"},
				{Label: "Refuses to eat", Emoji: "❌"},
			},
			Field: CheckinFieldFeeding,
		},
		{
			Prompt: "How is the interaction with family members and other pets?",
			QuickReplies: []models.QuickReply{
				{Label: "Friendly with everyone", Emoji: "🥰"},
				{Label: "Still shy", Emoji: "😳"},
				{Label: "Aggressive at times", Emoji: "⚠️"},
			},
			Field: CheckinFieldSocialization,
		},
		{
			Prompt: "Have you noticed any behavior that worries you?",
			QuickReplies: []models.QuickReply{
				{Label: "No, all good", Emoji: "✅"},
				{Label: "Some anxiety", Emoji: "😰"},
				{Label: "Yes, destructive or aggressive", Emoji: "⚠️"},
			},
			Field: CheckinFieldBehavior,
		},
		{
			Prompt: "Last one: have you taken your pet to a first vet visit?",
			QuickReplies: []models.QuickReply{
				{Label: "Yes, all up to date", Emoji: "✅"},
				{Label: "Scheduled", Emoji: "📅"},
				{Label: "Not yet", Emoji: "⏳"},
			},
			Field: CheckinFieldVetVisit,
		},
	},
	Complete: checkinSummary,
}

// needsAttention reports whether any answer carries a concern marker.
func needsAttention(answers map[string]string) bool {
	for _, answer := range answers {
		lower := strings.ToLower(answer)
		for _, marker := range concernMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

func checkinSummary(answers map[string]string) (string, []models.QuickReply) {
	if needsAttention(answers) {
		text := "💙 *Check-in recorded.*\n\nThank you for being honest with us. Some of your answers suggest things could be going better, and that is completely normal in the first weeks.\n\nOur team would love to help. Would you like to schedule a support visit, or get guidance from a volunteer online?"
		return text, []models.QuickReply{
			{Label: "Yes, schedule a visit", Emoji: "📅"},
			{Label: "I'd rather get guidance online", Emoji: "💬"},
		}
	}
	text := fmt.Sprintf(
		"🎉 *Check-in complete!*\n\nWonderful news! It sounds like the adaptation is going well:\n"+
			"• Adaptation: %s\n"+
			"• Feeding: %s\n"+
			"• Vet care: %s\n\n"+
			"Keep it up, and remember we're always here if you need anything! 💚",
		answers[CheckinFieldAdaptation],
		answers[CheckinFieldFeeding],
		answers[CheckinFieldVetVisit],
	)
	return text, []models.QuickReply{
		{Label: "Send photos", Emoji: "📸"},
		{Label: "Do another check-in", Emoji: "📋"},
	}
}

func init() {
	mustRegister(checkinFlow)
}
