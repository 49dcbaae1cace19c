// Package store provides storage backends for adoptbot.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/caramelo-ong/adoptbot/internal/models"
	"github.com/caramelo-ong/adoptbot/internal/util"
	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore implements Store on top of a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgreSQL store with the given options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open PostgreSQL connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgreSQL ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running PostgreSQL migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// SaveFlowState stores or updates flow state for a session.
func (s *PostgresStore) SaveFlowState(state models.FlowState) error {
	query := `
		INSERT INTO flow_states (session_id, assistant, stage, step_index, answers, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id, assistant) DO UPDATE SET
			stage = EXCLUDED.stage,
			step_index = EXCLUDED.step_index,
			answers = EXCLUDED.answers,
			updated_at = EXCLUDED.updated_at`

	var answersJSON interface{}
	if len(state.Answers) > 0 {
		jsonBytes, err := json.Marshal(state.Answers)
		if err != nil {
			slog.Error("PostgresStore SaveFlowState JSON marshal failed", "error", err, "sessionID", state.SessionID)
			return err
		}
		answersJSON = string(jsonBytes)
	}

	_, err := s.db.Exec(query, state.SessionID, string(state.Assistant), string(state.Stage),
		state.StepIndex, answersJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveFlowState failed", "error", err, "sessionID", state.SessionID, "assistant", state.Assistant)
		return err
	}
	return nil
}

// GetFlowState retrieves flow state for a session, or nil when absent.
func (s *PostgresStore) GetFlowState(sessionID, assistant string) (*models.FlowState, error) {
	query := `SELECT session_id, assistant, stage, step_index, answers, created_at, updated_at
			  FROM flow_states WHERE session_id = $1 AND assistant = $2`

	var state models.FlowState
	var answersJSON sql.NullString

	err := s.db.QueryRow(query, sessionID, assistant).Scan(
		&state.SessionID, &state.Assistant, &state.Stage, &state.StepIndex,
		&answersJSON, &state.CreatedAt, &state.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetFlowState failed", "error", err, "sessionID", sessionID, "assistant", assistant)
		return nil, err
	}

	if answersJSON.Valid && answersJSON.String != "" {
		state.Answers = make(map[string]string)
		if err := json.Unmarshal([]byte(answersJSON.String), &state.Answers); err != nil {
			slog.Error("PostgresStore GetFlowState JSON unmarshal failed", "error", err, "sessionID", sessionID)
			state.Answers = make(map[string]string)
		}
	}
	return &state, nil
}

// DeleteFlowState removes flow state for a session.
func (s *PostgresStore) DeleteFlowState(sessionID, assistant string) error {
	_, err := s.db.Exec(`DELETE FROM flow_states WHERE session_id = $1 AND assistant = $2`, sessionID, assistant)
	if err != nil {
		slog.Error("PostgresStore DeleteFlowState failed", "error", err, "sessionID", sessionID, "assistant", assistant)
		return err
	}
	return nil
}

// AddDocument inserts a document record.
func (s *PostgresStore) AddDocument(doc models.DocumentRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO documents (id, type, original_file_name, storage_locator, uploaded_at, owner_id, subject_id, status, approve_after)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ID, string(doc.Type), doc.OriginalFileName, doc.StorageLocator,
		doc.UploadedAt, doc.OwnerID, doc.SubjectID, string(doc.Status), doc.ApproveAfter)
	if err != nil {
		slog.Error("PostgresStore AddDocument failed", "error", err, "id", doc.ID)
		return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
	}
	return nil
}

// ListDocumentsByOwner returns the owner's documents in insertion order.
func (s *PostgresStore) ListDocumentsByOwner(ownerID string) ([]models.DocumentRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, type, original_file_name, storage_locator, uploaded_at, owner_id, subject_id, status, approve_after
		 FROM documents WHERE owner_id = $1 ORDER BY uploaded_at ASC, id ASC`, ownerID)
	if err != nil {
		slog.Error("PostgresStore ListDocumentsByOwner query failed", "error", err, "owner", ownerID)
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []models.DocumentRecord
	for rows.Next() {
		var d models.DocumentRecord
		if err := rows.Scan(&d.ID, &d.Type, &d.OriginalFileName, &d.StorageLocator,
			&d.UploadedAt, &d.OwnerID, &d.SubjectID, &d.Status, &d.ApproveAfter); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateDocumentStatus sets the status of a document by id.
func (s *PostgresStore) UpdateDocumentStatus(id string, status models.DocumentStatus) error {
	res, err := s.db.Exec(`UPDATE documents SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		slog.Error("PostgresStore UpdateDocumentStatus failed", "error", err, "id", id)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// AddAnimal inserts an animal record.
func (s *PostgresStore) AddAnimal(animal models.Animal) error {
	_, err := s.db.Exec(
		`INSERT INTO animals (id, name, species, size, status, photo_url, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		animal.ID, animal.Name, animal.Species, animal.Size, string(animal.Status),
		animal.PhotoURL, animal.Notes, animal.CreatedAt, animal.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore AddAnimal failed", "error", err, "id", animal.ID)
		return fmt.Errorf("failed to insert animal %s: %w", animal.ID, err)
	}
	return nil
}

// ListAnimals returns all animal records.
func (s *PostgresStore) ListAnimals() ([]models.Animal, error) {
	rows, err := s.db.Query(
		`SELECT id, name, species, size, status, photo_url, notes, created_at, updated_at
		 FROM animals ORDER BY created_at ASC, id ASC`)
	if err != nil {
		slog.Error("PostgresStore ListAnimals query failed", "error", err)
		return nil, fmt.Errorf("failed to query animals: %w", err)
	}
	defer rows.Close()

	var animals []models.Animal
	for rows.Next() {
		var a models.Animal
		if err := rows.Scan(&a.ID, &a.Name, &a.Species, &a.Size, &a.Status,
			&a.PhotoURL, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan animal row: %w", err)
		}
		animals = append(animals, a)
	}
	return animals, rows.Err()
}

// GetAnimal retrieves an animal by id, or nil when absent.
func (s *PostgresStore) GetAnimal(id string) (*models.Animal, error) {
	var a models.Animal
	err := s.db.QueryRow(
		`SELECT id, name, species, size, status, photo_url, notes, created_at, updated_at
		 FROM animals WHERE id = $1`, id).Scan(
		&a.ID, &a.Name, &a.Species, &a.Size, &a.Status, &a.PhotoURL, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetAnimal failed", "error", err, "id", id)
		return nil, err
	}
	return &a, nil
}

// AddResponse appends an inbound channel message to the log.
func (s *PostgresStore) AddResponse(r models.Response) error {
	_, err := s.db.Exec(`INSERT INTO responses (sender, body, time) VALUES ($1, $2, $3)`, r.From, r.Body, r.Time)
	if err != nil {
		slog.Error("PostgresStore AddResponse failed", "error", err, "from", r.From)
		return fmt.Errorf("failed to insert response from %s: %w", r.From, err)
	}
	return nil
}

// GetResponses returns the inbound message log.
func (s *PostgresStore) GetResponses() ([]models.Response, error) {
	rows, err := s.db.Query(`SELECT sender, body, time FROM responses ORDER BY id ASC`)
	if err != nil {
		slog.Error("PostgresStore GetResponses query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var responses []models.Response
	for rows.Next() {
		var r models.Response
		if err := rows.Scan(&r.From, &r.Body, &r.Time); err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

// EnqueueReminder inserts a queued reminder and returns its id.
func (s *PostgresStore) EnqueueReminder(recipient, animalName string, runAt time.Time) (string, error) {
	id := util.GenerateRandomID("rem_", 32)
	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO reminders (id, recipient, animal_name, run_at, status, attempt, max_attempts, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 'queued', 0, $5, $6, $7)`,
		id, recipient, animalName, runAt, DefaultReminderMaxAttempts, now, now)
	if err != nil {
		return "", fmt.Errorf("enqueue reminder failed: %w", err)
	}
	return id, nil
}

// ClaimDueReminders atomically marks up to limit due reminders as sending and
// returns them. Uses FOR UPDATE SKIP LOCKED so multiple instances can poll
// the same table safely.
func (s *PostgresStore) ClaimDueReminders(now time.Time, limit int) ([]Reminder, error) {
	rows, err := s.db.Query(
		`UPDATE reminders SET status = 'sending', updated_at = $1
		 WHERE id IN (
			SELECT id FROM reminders
			WHERE status = 'queued' AND run_at <= $1
			ORDER BY run_at ASC LIMIT $2
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, recipient, animal_name, run_at, status, attempt, max_attempts, last_error, created_at, updated_at`,
		now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due reminders failed: %w", err)
	}
	defer rows.Close()

	var claimed []Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, r)
	}
	return claimed, rows.Err()
}

// CompleteReminder marks a reminder as sent.
func (s *PostgresStore) CompleteReminder(id string) error {
	_, err := s.db.Exec(`UPDATE reminders SET status = 'sent', updated_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("complete reminder %s failed: %w", id, err)
	}
	return nil
}

// FailReminder records a delivery failure, requeueing for retry at nextRunAt
// while attempts remain.
func (s *PostgresStore) FailReminder(id string, errMsg string, nextRunAt time.Time) error {
	_, err := s.db.Exec(
		`UPDATE reminders SET
			attempt = attempt + 1,
			last_error = $1,
			status = CASE WHEN attempt + 1 >= max_attempts THEN 'failed' ELSE 'queued' END,
			run_at = CASE WHEN attempt + 1 >= max_attempts THEN run_at ELSE $2 END,
			updated_at = $3
		 WHERE id = $4`,
		errMsg, nextRunAt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("fail reminder %s failed: %w", id, err)
	}
	return nil
}

// RequeueStaleReminders resets reminders stuck in sending back to queued.
func (s *PostgresStore) RequeueStaleReminders(staleBefore time.Time) (int, error) {
	res, err := s.db.Exec(
		`UPDATE reminders SET status = 'queued', updated_at = $1 WHERE status = 'sending' AND updated_at < $2`,
		time.Now(), staleBefore)
	if err != nil {
		return 0, fmt.Errorf("requeue stale reminders failed: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	return s.db.Close()
}
