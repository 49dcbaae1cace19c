// Package store provides storage backends for adoptbot.
//
// It includes an in-memory store for tests and development, plus SQLite and
// PostgreSQL backends sharing the same interface.
package store

import (
	"time"

	"github.com/caramelo-ong/adoptbot/internal/models"
)

// ReminderStatus represents the lifecycle state of a scheduled check-in reminder.
type ReminderStatus string

const (
	ReminderStatusQueued  ReminderStatus = "queued"
	ReminderStatusSending ReminderStatus = "sending"
	ReminderStatusSent    ReminderStatus = "sent"
	ReminderStatusFailed  ReminderStatus = "failed"
)

// Reminder is a durable check-in reminder record. Delivery is driven by a
// stored run_at timestamp claimed by a poll loop, so pending reminders
// survive process restarts.
type Reminder struct {
	ID          string         `json:"id"`
	Recipient   string         `json:"recipient"`
	AnimalName  string         `json:"animal_name"`
	RunAt       time.Time      `json:"run_at"`
	Status      ReminderStatus `json:"status"`
	Attempt     int            `json:"attempt"`
	MaxAttempts int            `json:"max_attempts"`
	LastError   string         `json:"last_error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Store defines the persistence interface shared by all backends.
type Store interface {
	// Flow state per (session, assistant). GetFlowState returns (nil, nil)
	// when no state exists.
	SaveFlowState(state models.FlowState) error
	GetFlowState(sessionID string, assistant string) (*models.FlowState, error)
	DeleteFlowState(sessionID string, assistant string) error

	// Documents. ListDocumentsByOwner returns records in insertion order.
	AddDocument(doc models.DocumentRecord) error
	ListDocumentsByOwner(ownerID string) ([]models.DocumentRecord, error)
	UpdateDocumentStatus(id string, status models.DocumentStatus) error

	// Animals.
	AddAnimal(animal models.Animal) error
	ListAnimals() ([]models.Animal, error)
	GetAnimal(id string) (*models.Animal, error)

	// Inbound channel message log.
	AddResponse(r models.Response) error
	GetResponses() ([]models.Response, error)

	// Durable reminder queue.
	EnqueueReminder(recipient, animalName string, runAt time.Time) (string, error)
	ClaimDueReminders(now time.Time, limit int) ([]Reminder, error)
	CompleteReminder(id string) error
	FailReminder(id string, errMsg string, nextRunAt time.Time) error
	RequeueStaleReminders(staleBefore time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}
