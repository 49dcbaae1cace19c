// Package store provides storage backends for adoptbot.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/caramelo-ong/adoptbot/internal/models"
	"github.com/caramelo-ong/adoptbot/internal/util"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore implements Store on top of a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store with the given options.
// The DSN is a file path to the SQLite database; the containing directory
// is created if it does not exist.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveFlowState stores or updates flow state for a session.
func (s *SQLiteStore) SaveFlowState(state models.FlowState) error {
	query := `
		INSERT OR REPLACE INTO flow_states (session_id, assistant, stage, step_index, answers, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	var answersJSON string
	if len(state.Answers) > 0 {
		jsonBytes, err := json.Marshal(state.Answers)
		if err != nil {
			slog.Error("SQLiteStore SaveFlowState JSON marshal failed", "error", err, "sessionID", state.SessionID)
			return err
		}
		answersJSON = string(jsonBytes)
	}

	_, err := s.db.Exec(query, state.SessionID, string(state.Assistant), string(state.Stage),
		state.StepIndex, answersJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveFlowState failed", "error", err, "sessionID", state.SessionID, "assistant", state.Assistant)
		return err
	}
	slog.Debug("SQLiteStore SaveFlowState succeeded", "sessionID", state.SessionID, "assistant", state.Assistant, "stage", state.Stage)
	return nil
}

// GetFlowState retrieves flow state for a session, or nil when absent.
func (s *SQLiteStore) GetFlowState(sessionID, assistant string) (*models.FlowState, error) {
	query := `SELECT session_id, assistant, stage, step_index, answers, created_at, updated_at
			  FROM flow_states WHERE session_id = ? AND assistant = ?`

	var state models.FlowState
	var answersJSON string

	err := s.db.QueryRow(query, sessionID, assistant).Scan(
		&state.SessionID, &state.Assistant, &state.Stage, &state.StepIndex,
		&answersJSON, &state.CreatedAt, &state.UpdatedAt)

	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetFlowState not found", "sessionID", sessionID, "assistant", assistant)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetFlowState failed", "error", err, "sessionID", sessionID, "assistant", assistant)
		return nil, err
	}

	if answersJSON != "" {
		state.Answers = make(map[string]string)
		if err := json.Unmarshal([]byte(answersJSON), &state.Answers); err != nil {
			slog.Error("SQLiteStore GetFlowState JSON unmarshal failed", "error", err, "sessionID", sessionID)
			// Continue with empty map rather than failing
			state.Answers = make(map[string]string)
		}
	}

	return &state, nil
}

// DeleteFlowState removes flow state for a session.
func (s *SQLiteStore) DeleteFlowState(sessionID, assistant string) error {
	_, err := s.db.Exec(`DELETE FROM flow_states WHERE session_id = ? AND assistant = ?`, sessionID, assistant)
	if err != nil {
		slog.Error("SQLiteStore DeleteFlowState failed", "error", err, "sessionID", sessionID, "assistant", assistant)
		return err
	}
	slog.Debug("SQLiteStore DeleteFlowState succeeded", "sessionID", sessionID, "assistant", assistant)
	return nil
}

// AddDocument inserts a document record.
func (s *SQLiteStore) AddDocument(doc models.DocumentRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO documents (id, type, original_file_name, storage_locator, uploaded_at, owner_id, subject_id, status, approve_after)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, string(doc.Type), doc.OriginalFileName, doc.StorageLocator,
		doc.UploadedAt, doc.OwnerID, doc.SubjectID, string(doc.Status), doc.ApproveAfter)
	if err != nil {
		slog.Error("SQLiteStore AddDocument failed", "error", err, "id", doc.ID)
		return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
	}
	slog.Debug("SQLiteStore AddDocument succeeded", "id", doc.ID, "owner", doc.OwnerID)
	return nil
}

// ListDocumentsByOwner returns the owner's documents in insertion order.
func (s *SQLiteStore) ListDocumentsByOwner(ownerID string) ([]models.DocumentRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, type, original_file_name, storage_locator, uploaded_at, owner_id, subject_id, status, approve_after
		 FROM documents WHERE owner_id = ? ORDER BY uploaded_at ASC, id ASC`, ownerID)
	if err != nil {
		slog.Error("SQLiteStore ListDocumentsByOwner query failed", "error", err, "owner", ownerID)
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []models.DocumentRecord
	for rows.Next() {
		var d models.DocumentRecord
		if err := rows.Scan(&d.ID, &d.Type, &d.OriginalFileName, &d.StorageLocator,
			&d.UploadedAt, &d.OwnerID, &d.SubjectID, &d.Status, &d.ApproveAfter); err != nil {
			slog.Error("SQLiteStore ListDocumentsByOwner scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate document rows: %w", err)
	}
	return docs, nil
}

// UpdateDocumentStatus sets the status of a document by id.
func (s *SQLiteStore) UpdateDocumentStatus(id string, status models.DocumentStatus) error {
	res, err := s.db.Exec(`UPDATE documents SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		slog.Error("SQLiteStore UpdateDocumentStatus failed", "error", err, "id", id)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// AddAnimal inserts an animal record.
func (s *SQLiteStore) AddAnimal(animal models.Animal) error {
	_, err := s.db.Exec(
		`INSERT INTO animals (id, name, species, size, status, photo_url, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		animal.ID, animal.Name, animal.Species, animal.Size, string(animal.Status),
		animal.PhotoURL, animal.Notes, animal.CreatedAt, animal.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddAnimal failed", "error", err, "id", animal.ID)
		return fmt.Errorf("failed to insert animal %s: %w", animal.ID, err)
	}
	return nil
}

// ListAnimals returns all animal records.
func (s *SQLiteStore) ListAnimals() ([]models.Animal, error) {
	rows, err := s.db.Query(
		`SELECT id, name, species, size, status, photo_url, notes, created_at, updated_at
		 FROM animals ORDER BY created_at ASC, id ASC`)
	if err != nil {
		slog.Error("SQLiteStore ListAnimals query failed", "error", err)
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
func (s *SQLiteStore) GetAnimal(id string) (*models.Animal, error) {
	var a models.Animal
	err := s.db.QueryRow(
		`SELECT id, name, species, size, status, photo_url, notes, created_at, updated_at
		 FROM animals WHERE id = ?`, id).Scan(
		&a.ID, &a.Name, &a.Species, &a.Size, &a.Status, &a.PhotoURL, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetAnimal failed", "error", err, "id", id)
		return nil, err
	}
	return &a, nil
}

// AddResponse appends an inbound channel message to the log.
func (s *SQLiteStore) AddResponse(r models.Response) error {
	_, err := s.db.Exec(`INSERT INTO responses (sender, body, time) VALUES (?, ?, ?)`, r.From, r.Body, r.Time)
	if err != nil {
		slog.Error("SQLiteStore AddResponse failed", "error", err, "from", r.From)
		return fmt.Errorf("failed to insert response from %s: %w", r.From, err)
	}
	return nil
}

// GetResponses returns the inbound message log.
func (s *SQLiteStore) GetResponses() ([]models.Response, error) {
	rows, err := s.db.Query(`SELECT sender, body, time FROM responses ORDER BY id ASC`)
	if err != nil {
		slog.Error("SQLiteStore GetResponses query failed", "error", err)
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
func (s *SQLiteStore) EnqueueReminder(recipient, animalName string, runAt time.Time) (string, error) {
	id := util.GenerateRandomID("rem_", 32)
	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO reminders (id, recipient, animal_name, run_at, status, attempt, max_attempts, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'queued', 0, ?, ?, ?)`,
		id, recipient, animalName, runAt, DefaultReminderMaxAttempts, now, now)
	if err != nil {
		return "", fmt.Errorf("enqueue reminder failed: %w", err)
	}
	slog.Debug("SQLiteStore EnqueueReminder", "id", id, "recipient", recipient, "runAt", runAt)
	return id, nil
}

// ClaimDueReminders marks up to limit due reminders as sending and returns them.
func (s *SQLiteStore) ClaimDueReminders(now time.Time, limit int) ([]Reminder, error) {
	rows, err := s.db.Query(
		`SELECT id, recipient, animal_name, run_at, status, attempt, max_attempts, last_error, created_at, updated_at
		 FROM reminders WHERE status = 'queued' AND run_at <= ? ORDER BY run_at ASC LIMIT ?`,
		now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due reminders query failed: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range claimed {
		if _, err := s.db.Exec(
			`UPDATE reminders SET status = 'sending', updated_at = ? WHERE id = ?`,
			now, claimed[i].ID); err != nil {
			return nil, fmt.Errorf("claim reminder %s failed: %w", claimed[i].ID, err)
		}
		claimed[i].Status = ReminderStatusSending
	}
	return claimed, nil
}

// CompleteReminder marks a reminder as sent.
func (s *SQLiteStore) CompleteReminder(id string) error {
	_, err := s.db.Exec(`UPDATE reminders SET status = 'sent', updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("complete reminder %s failed: %w", id, err)
	}
	return nil
}

// FailReminder records a delivery failure, requeueing for retry at nextRunAt
// while attempts remain.
func (s *SQLiteStore) FailReminder(id string, errMsg string, nextRunAt time.Time) error {
	_, err := s.db.Exec(
		`UPDATE reminders SET
			attempt = attempt + 1,
			last_error = ?,
			status = CASE WHEN attempt + 1 >= max_attempts THEN 'failed' ELSE 'queued' END,
			run_at = CASE WHEN attempt + 1 >= max_attempts THEN run_at ELSE ? END,
			updated_at = ?
		 WHERE id = ?`,
		errMsg, nextRunAt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("fail reminder %s failed: %w", id, err)
	}
	return nil
}

// RequeueStaleReminders resets reminders stuck in sending back to queued.
func (s *SQLiteStore) RequeueStaleReminders(staleBefore time.Time) (int, error) {
	res, err := s.db.Exec(
		`UPDATE reminders SET status = 'queued', updated_at = ? WHERE status = 'sending' AND updated_at < ?`,
		time.Now(), staleBefore)
	if err != nil {
		return 0, fmt.Errorf("requeue stale reminders failed: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
