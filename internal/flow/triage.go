package flow

import (
	"fmt"

	"github.com/caramelo-ong/adoptbot/internal/models"
)

// Field names for the adoption screening flow.
const (
	TriageFieldAnimalType      = "animal_type"
	TriageFieldSize            = "size"
	TriageFieldHousing         = "housing"
	TriageFieldWindowScreens   = "window_screens"
	TriageFieldOtherPets       = "other_pets"
	TriageFieldFamilyAgreement = "family_agreement"
	TriageFieldFinances        = "finances"
	TriageFieldTerms           = "terms"
)

// triageFlow is the 8-question adoption screening.
var triageFlow = &Definition{
	Stage: models.StageTriage,
	Steps: []Step{
		{
			Prompt: "Great! Let's start your adoption screening. 🐾\n\nFirst, what kind of animal are you interested in adopting?",
			QuickReplies: []models.QuickReply{
				{Label: "Dog", Emoji: "🐕"},
				{Label: "Cat", Emoji: "🐱"},
				{Label: "Other", Emoji: "🐾"},
			},
			Field: TriageFieldAnimalType,
		},
		{
			Prompt: "Perfect! And what size do you prefer?",
			QuickReplies: []models.QuickReply{
				{Label: "Small", Emoji: "🐕"},
				{Label: "Medium", Emoji: "🐕"},
				{Label: "Large", Emoji: "🐕"},
				{Label: "No preference", Emoji: "❓"},
			},
			Field: TriageFieldSize,
		},
		{
			Prompt: "What kind of home do you live in?",
			QuickReplies: []models.QuickReply{
				{Label: "House with yard", Emoji: "🏡"},
				{Label: "House without yard", Emoji: "🏠"},
				{Label: "Apartment", Emoji: "🏢"},
				{Label: "Farm or ranch", Emoji: "🌳"},
			},
			Field: TriageFieldHousing,
		},
		{
			Prompt: "Does your home have protective screens on the windows?",
			QuickReplies: []models.QuickReply{
				{Label: "All windows", Emoji: "✅"},
				{Label: "Only some", Emoji: "⚠️"},
				{Label: "None", Emoji: "❌"},
				{Label: "Not applicable", Emoji: "➖"},
			},
			Field: TriageFieldWindowScreens,
		},
		{
			Prompt: "Do you already have other animals at home?",
			QuickReplies: []models.QuickReply{
				{Label: "Yes, dogs", Emoji: "🐕"},
				{Label: "Yes, cats", Emoji: "🐱"},
				{Label: "Yes, both", Emoji: "🐾"},
				{Label: "No", Emoji: "❌"},
			},
			Field: TriageFieldOtherPets,
		},
		{
			Prompt: "Does everyone in your household agree with the adoption?",
			QuickReplies: []models.QuickReply{
				{Label: "All agree", Emoji: "✅"},
				{Label: "Most of us", Emoji: "⚠️"},
				{Label: "Haven't discussed yet", Emoji: "💬"},
			},
			Field: TriageFieldFamilyAgreement,
		},
		{
			Prompt: "Are you financially prepared for veterinary care (vaccines, food, emergencies)?",
			QuickReplies: []models.QuickReply{
				{Label: "Yes, fully", Emoji: "✅"},
				{Label: "Partially", Emoji: "⚠️"},
				{Label: "Need to evaluate", Emoji: "💭"},
			},
			Field: TriageFieldFinances,
		},
		{
			Prompt: "Finally, do you agree to the responsible adoption terms and follow-up visits?",
			QuickReplies: []models.QuickReply{
				{Label: "I accept", Emoji: "✅"},
				{Label: "I want to read the terms", Emoji: "📄"},
			},
			Field: TriageFieldTerms,
		},
	},
	Complete: triageSummary,
}

// triageSummary interpolates the collected answers into the screening
// completion message.
func triageSummary(answers map[string]string) (string, []models.QuickReply) {
	text := fmt.Sprintf(
		"🎉 *Screening complete!*\n\nThank you for finishing our adoption screening.\n\n"+
			"*Summary of your answers:*\n"+
			"• Animal: %s\n"+
			"• Size: %s\n"+
			"• Housing: %s\n"+
			"• Window screens: %s\n\n"+
			"📋 Your application has been recorded! A volunteer will contact you within 48 hours to schedule a visit.\n\n"+
			"📷 In the meantime, you can send photos of your home to speed up approval!",
		answers[TriageFieldAnimalType],
		answers[TriageFieldSize],
		answers[TriageFieldHousing],
		answers[TriageFieldWindowScreens],
	)
	return text, []models.QuickReply{
		{Label: "Send a home photo", Emoji: "📷"},
		{Label: "Browse available animals", Emoji: "🐾"},
		{Label: "Back to start", Emoji: "🏠"},
	}
}

func init() {
	mustRegister(triageFlow)
}
