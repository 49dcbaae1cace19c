// Package store provides the ReminderRunner for delivering due check-in reminders.
package store

import (
	"context"
	"log/slog"
	"time"
)

// Reminder queue defaults.
const (
	// DefaultReminderMaxAttempts is how many delivery attempts a reminder gets.
	DefaultReminderMaxAttempts = 3
	// DefaultReminderPollInterval is how often the runner checks for due reminders.
	DefaultReminderPollInterval = 30 * time.Second
	// DefaultReminderClaimLimit caps how many reminders one poll claims.
	DefaultReminderClaimLimit = 10
	// DefaultReminderStaleThreshold is how long a reminder may sit in the
	// sending state before crash recovery requeues it.
	DefaultReminderStaleThreshold = 5 * time.Minute
)

// ReminderSender delivers one due reminder. It returns an error if delivery failed.
type ReminderSender func(ctx context.Context, r Reminder) error

// ReminderRunner periodically claims due reminders from the store and hands
// them to the configured sender.
type ReminderRunner struct {
	store          Store
	send           ReminderSender
	pollInterval   time.Duration
	staleThreshold time.Duration
	claimLimit     int
}

// NewReminderRunner creates a new ReminderRunner.
func NewReminderRunner(st Store, send ReminderSender, pollInterval time.Duration) *ReminderRunner {
	if pollInterval <= 0 {
		pollInterval = DefaultReminderPollInterval
	}
	return &ReminderRunner{
		store:          st,
		send:           send,
		pollInterval:   pollInterval,
		staleThreshold: DefaultReminderStaleThreshold,
		claimLimit:     DefaultReminderClaimLimit,
	}
}

// RecoverStaleReminders requeues reminders that were mid-send when the
// process last stopped. Should be called once at startup.
func (r *ReminderRunner) RecoverStaleReminders() error {
	staleBefore := time.Now().Add(-r.staleThreshold)
	n, err := r.store.RequeueStaleReminders(staleBefore)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("ReminderRunner.RecoverStaleReminders: requeued stale reminders", "count", n)
	}
	return nil
}

// Run starts the polling loop. It blocks until the context is cancelled.
func (r *ReminderRunner) Run(ctx context.Context) {
	slog.Info("ReminderRunner.Run: starting", "pollInterval", r.pollInterval)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ReminderRunner.Run: stopping")
			return
		case <-ticker.C:
			r.poll(ctx)
		}
	}
}

func (r *ReminderRunner) poll(ctx context.Context) {
	now := time.Now()
	due, err := r.store.ClaimDueReminders(now, r.claimLimit)
	if err != nil {
		slog.Error("ReminderRunner.poll: claim failed", "error", err)
		return
	}

	for _, reminder := range due {
		slog.Debug("ReminderRunner.poll: delivering reminder", "id", reminder.ID, "recipient", reminder.Recipient, "attempt", reminder.Attempt)
		if err := r.send(ctx, reminder); err != nil {
			slog.Error("ReminderRunner.poll: delivery failed", "id", reminder.ID, "error", err)
			// Exponential backoff: 30s, 60s, 120s, ...
			backoff := time.Duration(30*(1<<reminder.Attempt)) * time.Second
			if failErr := r.store.FailReminder(reminder.ID, err.Error(), now.Add(backoff)); failErr != nil {
				slog.Error("ReminderRunner.poll: fail reminder error", "id", reminder.ID, "error", failErr)
			}
			continue
		}
		if err := r.store.CompleteReminder(reminder.ID); err != nil {
			slog.Error("ReminderRunner.poll: complete reminder error", "id", reminder.ID, "error", err)
		}
		slog.Debug("ReminderRunner.poll: reminder delivered", "id", reminder.ID)
	}
}
