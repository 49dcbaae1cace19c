// Package models defines conversation state structures for adoptbot flows.
package models

import "time"

// Assistant identifies one of the hosted virtual assistants.
type Assistant string

const (
	// AssistantAdoption is the public-facing assistant (adoption triage, intents).
	AssistantAdoption Assistant = "adoption"
	// AssistantFollowup is the post-adoption assistant (check-ins, documents).
	AssistantFollowup Assistant = "followup"
)

// Stage names the position of a conversation within an assistant.
type Stage string

const (
	// StageWelcome is the resting stage: no flow is active.
	StageWelcome Stage = "welcome"
	// StageTriage is the adoption screening flow.
	StageTriage Stage = "triage"
	// StageCheckin is the post-adoption check-in flow.
	StageCheckin Stage = "checkin"
)

// FlowState is the persisted conversation context for one session of one
// assistant. Answers accumulate while a flow is active and are discarded
// when the flow completes or the session is reset.
type FlowState struct {
	SessionID string            `json:"session_id"`
	Assistant Assistant         `json:"assistant"`
	Stage     Stage             `json:"stage"`
	StepIndex int               `json:"step_index"`
	Answers   map[string]string `json:"answers,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
