package store

import (
	"database/sql"
	"fmt"
)

// scanReminder scans a Reminder from sql.Rows.
func scanReminder(rows *sql.Rows) (Reminder, error) {
	var r Reminder
	var animalName, lastError sql.NullString
	err := rows.Scan(
		&r.ID, &r.Recipient, &animalName, &r.RunAt, &r.Status,
		&r.Attempt, &r.MaxAttempts, &lastError, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return r, fmt.Errorf("scan reminder failed: %w", err)
	}
	r.AnimalName = animalName.String
	r.LastError = lastError.String
	return r, nil
}
