package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/caramelo-ong/adoptbot/internal/models"
	"github.com/caramelo-ong/adoptbot/internal/store"
)

// SessionManager owns the persisted conversation state of every session.
// State is keyed by (session id, assistant) so the two assistants never
// see each other's progress and concurrent sessions never bleed.
type SessionManager interface {
	// Get returns the state for a session, or nil when none exists yet.
	Get(ctx context.Context, sessionID string, assistant models.Assistant) (*models.FlowState, error)
	// Save persists a session's state, stamping UpdatedAt.
	Save(ctx context.Context, state *models.FlowState) error
	// Reset discards any in-progress flow and returns the session to the
	// welcome stage with empty answers.
	Reset(ctx context.Context, sessionID string, assistant models.Assistant) (*models.FlowState, error)
}

// StoreSessionManager implements SessionManager on a store.Store backend.
type StoreSessionManager struct {
	store store.Store
}

// NewStoreSessionManager creates a SessionManager backed by a Store.
func NewStoreSessionManager(st store.Store) *StoreSessionManager {
	slog.Debug("Creating StoreSessionManager")
	return &StoreSessionManager{store: st}
}

// Get retrieves the conversation state for a session.
func (sm *StoreSessionManager) Get(ctx context.Context, sessionID string, assistant models.Assistant) (*models.FlowState, error) {
	if sessionID == "" {
		return nil, models.ErrEmptySessionID
	}
	state, err := sm.store.GetFlowState(sessionID, string(assistant))
	if err != nil {
		slog.Error("SessionManager Get error", "error", err, "sessionID", sessionID, "assistant", assistant)
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}
	return state, nil
}

// Save persists a session's state.
func (sm *StoreSessionManager) Save(ctx context.Context, state *models.FlowState) error {
	if state.SessionID == "" {
		return models.ErrEmptySessionID
	}
	state.UpdatedAt = time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = state.UpdatedAt
	}
	if err := sm.store.SaveFlowState(*state); err != nil {
		slog.Error("SessionManager Save error", "error", err, "sessionID", state.SessionID, "assistant", state.Assistant)
		return fmt.Errorf("failed to save session state: %w", err)
	}
	slog.Debug("SessionManager Save succeeded", "sessionID", state.SessionID, "assistant", state.Assistant, "stage", state.Stage, "stepIndex", state.StepIndex)
	return nil
}

// Reset returns a session to the welcome stage, discarding any flow
// progress. Safe to call on sessions that do not exist yet.
func (sm *StoreSessionManager) Reset(ctx context.Context, sessionID string, assistant models.Assistant) (*models.FlowState, error) {
	if sessionID == "" {
		return nil, models.ErrEmptySessionID
	}
	now := time.Now()
	state := &models.FlowState{
		SessionID: sessionID,
		Assistant: assistant,
		Stage:     models.StageWelcome,
		StepIndex: 0,
		Answers:   make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := sm.store.SaveFlowState(*state); err != nil {
		slog.Error("SessionManager Reset error", "error", err, "sessionID", sessionID, "assistant", assistant)
		return nil, fmt.Errorf("failed to reset session state: %w", err)
	}
	slog.Debug("SessionManager Reset succeeded", "sessionID", sessionID, "assistant", assistant)
	return state, nil
}
