// Package flow implements the conversation engine for adoptbot assistants.
//
// A flow is a declarative, ordered sequence of questions driven one step per
// inbound message. Both assistants share the same engine and differ only in
// their registered flow definitions and intent rules.
package flow

import (
	"fmt"

	"github.com/caramelo-ong/adoptbot/internal/models"
)

// Step is one question in a flow. The user's answer is recorded under Field.
type Step struct {
	Prompt       string
	QuickReplies []models.QuickReply
	Field        string
}

// Completion builds the final summary once every step has been answered.
// It receives the collected answers and returns the summary text plus the
// post-completion quick replies.
type Completion func(answers map[string]string) (string, []models.QuickReply)

// Definition is an immutable flow: an ordered question list plus a
// completion builder. Definitions are registered at startup.
type Definition struct {
	Stage    models.Stage
	Steps    []Step
	Complete Completion
}

var registry = make(map[models.Stage]*Definition)

// Register associates a stage with a flow definition.
func Register(def *Definition) {
	registry[def.Stage] = def
}

// Get retrieves the flow definition for a stage.
func Get(stage models.Stage) (*Definition, bool) {
	def, ok := registry[stage]
	return def, ok
}

// fieldSet returns the declared field names of a definition, in step order.
func (d *Definition) fieldSet() []string {
	fields := make([]string, len(d.Steps))
	for i, s := range d.Steps {
		fields[i] = s.Field
	}
	return fields
}

// validate checks a definition for duplicate or empty field names.
// Called from init when flows register themselves.
func (d *Definition) validate() error {
	seen := make(map[string]bool, len(d.Steps))
	for i, s := range d.Steps {
		if s.Field == "" {
			return fmt.Errorf("flow %s: step %d has no field name", d.Stage, i)
		}
		if seen[s.Field] {
			return fmt.Errorf("flow %s: duplicate field name %q", d.Stage, s.Field)
		}
		seen[s.Field] = true
	}
	if d.Complete == nil {
		return fmt.Errorf("flow %s: missing completion builder", d.Stage)
	}
	return nil
}

// mustRegister registers a definition and panics on an invalid table.
// Flow tables are package data; a bad one is a programming error.
func mustRegister(def *Definition) {
	if err := def.validate(); err != nil {
		panic(err)
	}
	Register(def)
}
