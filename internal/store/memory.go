package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/caramelo-ong/adoptbot/internal/models"
	"github.com/caramelo-ong/adoptbot/internal/util"
)

// InMemoryStore is a thread-safe in-memory Store used in tests and for
// development runs without a database.
type InMemoryStore struct {
	mu         sync.RWMutex
	flowStates map[string]models.FlowState
	documents  []models.DocumentRecord
	animals    []models.Animal
	responses  []models.Response
	reminders  []Reminder
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		flowStates: make(map[string]models.FlowState),
	}
}

func flowStateKey(sessionID, assistant string) string {
	return sessionID + "|" + assistant
}

// SaveFlowState stores or replaces the flow state for a session.
func (s *InMemoryStore) SaveFlowState(state models.FlowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flowStates[flowStateKey(state.SessionID, string(state.Assistant))] = state
	return nil
}

// GetFlowState retrieves the flow state for a session, or nil when absent.
func (s *InMemoryStore) GetFlowState(sessionID, assistant string) (*models.FlowState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.flowStates[flowStateKey(sessionID, assistant)]
	if !ok {
		return nil, nil
	}
	// Copy the answers map so callers cannot mutate stored state.
	cp := state
	if state.Answers != nil {
		cp.Answers = make(map[string]string, len(state.Answers))
		for k, v := range state.Answers {
			cp.Answers[k] = v
		}
	}
	return &cp, nil
}

// DeleteFlowState removes the flow state for a session.
func (s *InMemoryStore) DeleteFlowState(sessionID, assistant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flowStates, flowStateKey(sessionID, assistant))
	return nil
}

// AddDocument appends a document record.
func (s *InMemoryStore) AddDocument(doc models.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append(s.documents, doc)
	return nil
}

// ListDocumentsByOwner returns the owner's documents in insertion order.
func (s *InMemoryStore) ListDocumentsByOwner(ownerID string) ([]models.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []models.DocumentRecord
	for _, d := range s.documents {
		if d.OwnerID == ownerID {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

// UpdateDocumentStatus sets the status of a document by id.
func (s *InMemoryStore) UpdateDocumentStatus(id string, status models.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.documents {
		if s.documents[i].ID == id {
			s.documents[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("document not found: %s", id)
}

// AddAnimal appends an animal record.
func (s *InMemoryStore) AddAnimal(animal models.Animal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.animals = append(s.animals, animal)
	return nil
}

// ListAnimals returns all animal records in insertion order.
func (s *InMemoryStore) ListAnimals() ([]models.Animal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	animals := make([]models.Animal, len(s.animals))
	copy(animals, s.animals)
	return animals, nil
}

// GetAnimal retrieves an animal by id, or nil when absent.
func (s *InMemoryStore) GetAnimal(id string) (*models.Animal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.animals {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, nil
}

// AddResponse appends an inbound channel message to the log.
func (s *InMemoryStore) AddResponse(r models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, r)
	return nil
}

// GetResponses returns the inbound message log.
func (s *InMemoryStore) GetResponses() ([]models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	responses := make([]models.Response, len(s.responses))
	copy(responses, s.responses)
	return responses, nil
}

// EnqueueReminder inserts a queued reminder and returns its id.
func (s *InMemoryStore) EnqueueReminder(recipient, animalName string, runAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	r := Reminder{
		ID:          util.GenerateRandomID("rem_", 32),
		Recipient:   recipient,
		AnimalName:  animalName,
		RunAt:       runAt,
		Status:      ReminderStatusQueued,
		MaxAttempts: DefaultReminderMaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.reminders = append(s.reminders, r)
	return r.ID, nil
}

// ClaimDueReminders marks up to limit queued reminders due at now as sending
// and returns them.
func (s *InMemoryStore) ClaimDueReminders(now time.Time, limit int) ([]Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var claimed []Reminder
	for i := range s.reminders {
		if len(claimed) >= limit {
			break
		}
		if s.reminders[i].Status == ReminderStatusQueued && !s.reminders[i].RunAt.After(now) {
			s.reminders[i].Status = ReminderStatusSending
			s.reminders[i].UpdatedAt = now
			claimed = append(claimed, s.reminders[i])
		}
	}
	return claimed, nil
}

// CompleteReminder marks a reminder as sent.
func (s *InMemoryStore) CompleteReminder(id string) error {
	return s.updateReminder(id, func(r *Reminder) {
		r.Status = ReminderStatusSent
		r.UpdatedAt = time.Now()
	})
}

// FailReminder records a delivery failure and either requeues the reminder
// for nextRunAt or marks it permanently failed once attempts are exhausted.
func (s *InMemoryStore) FailReminder(id string, errMsg string, nextRunAt time.Time) error {
	return s.updateReminder(id, func(r *Reminder) {
		r.Attempt++
		r.LastError = errMsg
		r.UpdatedAt = time.Now()
		if r.Attempt >= r.MaxAttempts {
			r.Status = ReminderStatusFailed
		} else {
			r.Status = ReminderStatusQueued
			r.RunAt = nextRunAt
		}
	})
}

// RequeueStaleReminders resets reminders stuck in sending since before
// staleBefore back to queued (crash recovery).
func (s *InMemoryStore) RequeueStaleReminders(staleBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i := range s.reminders {
		if s.reminders[i].Status == ReminderStatusSending && s.reminders[i].UpdatedAt.Before(staleBefore) {
			s.reminders[i].Status = ReminderStatusQueued
			s.reminders[i].UpdatedAt = time.Now()
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) updateReminder(id string, fn func(*Reminder)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reminders {
		if s.reminders[i].ID == id {
			fn(&s.reminders[i])
			return nil
		}
	}
	return fmt.Errorf("reminder not found: %s", id)
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
