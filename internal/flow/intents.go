package flow

import (
	"regexp"
	"strings"

	"github.com/caramelo-ong/adoptbot/internal/models"
)

// Rule pairs a keyword pattern with a canned response. Patterns are
// matched case insensitively against the whole inbound text.
type Rule struct {
	Pattern      *regexp.Regexp
	Response     string
	QuickReplies []models.QuickReply
}

// RuleSet is an ordered list of intent rules. Order is significant:
// overlapping patterns resolve to whichever rule is declared first.
type RuleSet []Rule

// Match returns the first rule whose pattern matches the text, or nil.
func (rs RuleSet) Match(text string) *Rule {
	lower := strings.ToLower(text)
	for i := range rs {
		if rs[i].Pattern.MatchString(lower) {
			return &rs[i]
		}
	}
	return nil
}

// adoptionRules are the general assistant's intent rules. The "lost"
// rule precedes the "found" rule on purpose: messages mentioning both
// a lost and a found animal resolve to the lost-pet response.
var adoptionRules = RuleSet{
	{
		Pattern:  regexp.MustCompile(`adopt|adoption|want a pet|take home`),
		Response: "How wonderful that you want to adopt! 🐾 To get started I'll ask you a few quick questions about your home and routine. Shall we begin?",
		QuickReplies: []models.QuickReply{
			{Label: "Yes, let's go", Emoji: "✅"},
			{Label: "Maybe later", Emoji: "⏰"},
		},
	},
	{
		Pattern:  regexp.MustCompile(`abuse|mistreat|cruelty|abandon|neglect`),
		Response: "Thank you for speaking up. 🚨 Reports of abuse are treated with priority. Please send us the location and, if possible, photos. Everything is kept confidential. You can also call our emergency line.",
		QuickReplies: []models.QuickReply{
			{Label: "Send location", Emoji: "📍"},
			{Label: "Send photos", Emoji: "📷"},
		},
	},
	{
		Pattern:  regexp.MustCompile(`volunteer|help out|donate my time`),
		Response: "We always need more hands (and laps)! 💪 Volunteers help with feeding, cleaning, events and temporary foster homes. Tell us your availability and we'll find the right spot for you.",
	},
	{
		Pattern:  regexp.MustCompile(`donat|contribut|pix|support the shelter`),
		Response: "Every donation makes a difference! 💚 We accept food, medicine, blankets and financial contributions. Would you like our donation details?",
		QuickReplies: []models.QuickReply{
			{Label: "Yes, send details", Emoji: "💳"},
			{Label: "Donate supplies", Emoji: "📦"},
		},
	},
	{
		Pattern:  regexp.MustCompile(`hours|open|visit|address|location|where are you`),
		Response: "We're open for visits Tuesday through Sunday, 9am to 5pm. 🏠 Come meet our animals! No appointment needed for a first visit.",
	},
	{
		Pattern:  regexp.MustCompile(`lost|missing|ran away|disappeared`),
		Response: "I'm so sorry about your pet. 😢 Send us a photo, the region where it went missing and a contact number. We'll share it with our rescue network right away.",
	},
	{
		Pattern:  regexp.MustCompile(`found|stray|rescued an animal`),
		Response: "Thank you for caring for a stray! 🐕 If the animal is safe with you, send a photo and your area so we can check for lost-pet reports and plan a rescue if needed.",
	},
	{
		Pattern:  regexp.MustCompile(`neuter|spay|castrat`),
		Response: "We run a low-cost neutering program in partnership with local vets. ✂️ Spots open at the start of each month. Want me to put you on the waiting list?",
	},
}

// followupRules are the post-adoption assistant's intent rules.
var followupRules = RuleSet{
	{
		Pattern:  regexp.MustCompile(`problem|trouble|something wrong|emergency`),
		Response: "I'm sorry to hear something is wrong. 😟 Tell me a bit more about what's happening. If it's a medical emergency, please go straight to a vet and let us know afterwards.",
		QuickReplies: []models.QuickReply{
			{Label: "Health issue", Emoji: "🏥"},
			{Label: "Behavior issue", Emoji: "🐾"},
		},
	},
	{
		Pattern:  regexp.MustCompile(`adapt|settling|getting used`),
		Response: "Adaptation takes time, usually two to four weeks. 🏠 Keep routines predictable, offer a quiet corner, and let your pet approach you at its own pace. Want to do a full check-in?",
		QuickReplies: []models.QuickReply{
			{Label: "Do a check-in", Emoji: "📋"},
		},
	},
	{
		Pattern:  regexp.MustCompile(`food|feeding|eat|appetite`),
		Response: "Changes in appetite are common in the first days. 🍽️ Keep the same food the shelter used and transition gradually. If your pet refuses food for more than 48 hours, see a vet.",
	},
	{
		Pattern:  regexp.MustCompile(`behavior|barking|biting|scratching|anxious`),
		Response: "Most behavior issues improve with routine and patience. 🐕 Tell me what's happening and I can share guidance, or we can schedule a visit from one of our volunteers.",
		QuickReplies: []models.QuickReply{
			{Label: "Schedule a visit", Emoji: "📅"},
			{Label: "Get guidance", Emoji: "💬"},
		},
	},
	{
		Pattern:  regexp.MustCompile(`document|paper|term|contract|proof`),
		Response: "You can send adoption documents right here! 📄 We accept the signed adoption term, vet reports, vaccine proof and photos of your pet at home. Just attach the file.",
		QuickReplies: []models.QuickReply{
			{Label: "Send a document", Emoji: "📎"},
			{Label: "My documents", Emoji: "🗂️"},
		},
	},
	{
		Pattern:  regexp.MustCompile(`schedule|visit|appointment|come over`),
		Response: "Of course! 📅 Our follow-up visits happen on weekends. Tell me which dates work for you and I'll pass it on to the team.",
	},
}

// defaultResponses is the filler rotation used when no rule matches and
// no flow is active. Selection is pseudo-random; the set is the contract.
var defaultResponses = []string{
	"Thanks for your message! 💚 I can help with adoptions, reports, volunteering and donations. What would you like to do?",
	"I'm here to help! 🐾 You can ask about adopting, visiting the shelter, or reporting an animal in need.",
	"Got it! If you'd like, pick one of the options below or tell me in your own words what you need.",
}
