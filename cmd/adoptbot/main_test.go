package main

import (
	"strings"
	"testing"

	"github.com/caramelo-ong/adoptbot/internal/store"
)

func TestReminderMessage(t *testing.T) {
	withName := reminderMessage(store.Reminder{AnimalName: "Rex"})
	if !strings.Contains(withName, "Rex") {
		t.Errorf("reminder with animal name missing the name: %q", withName)
	}
	withoutName := reminderMessage(store.Reminder{})
	if !strings.Contains(withoutName, "check-in") {
		t.Errorf("generic reminder missing check-in instruction: %q", withoutName)
	}
}
