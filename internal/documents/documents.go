// Package documents records uploaded adoption documents and their
// review status.
//
// Approval is not timer driven. Each record stores an approve-after
// timestamp and the pending-to-approved transition is applied lazily
// whenever records are read, so it survives process restarts.
package documents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/caramelo-ong/adoptbot/internal/models"
	"github.com/caramelo-ong/adoptbot/internal/store"
)

// DefaultApprovalDelay is how long an uploaded document stays pending
// before it auto-approves on read.
const DefaultApprovalDelay = 3 * time.Second

// listDisplayLimit bounds how many records the listing message shows.
const listDisplayLimit = 5

// Recorder creates and lists document records.
type Recorder struct {
	store         store.Store
	approvalDelay time.Duration
	now           func() time.Time
}

// RecorderOption configures optional Recorder behavior.
type RecorderOption func(*Recorder)

// WithApprovalDelay overrides the auto-approval delay.
func WithApprovalDelay(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.approvalDelay = d }
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a Recorder backed by a Store.
func NewRecorder(st store.Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:         st,
		approvalDelay: DefaultApprovalDelay,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record validates and stores a new pending document, returning the
// created record and a confirmation message for the uploader.
func (r *Recorder) Record(ctx context.Context, fileName string, docType models.DocumentType, ownerID, subjectID, storageLocator string) (*models.DocumentRecord, models.Message, error) {
	if fileName == "" {
		return nil, models.Message{}, models.ErrEmptyFileName
	}
	if !models.IsValidDocumentType(docType) {
		return nil, models.Message{}, models.ErrInvalidDocumentType
	}
	if ownerID == "" {
		return nil, models.Message{}, models.ErrEmptyOwnerID
	}
	if subjectID == "" {
		return nil, models.Message{}, models.ErrEmptySubjectID
	}

	now := r.now()
	doc := models.DocumentRecord{
		ID:               uuid.New().String(),
		Type:             docType,
		OriginalFileName: fileName,
		StorageLocator:   storageLocator,
		UploadedAt:       now,
		OwnerID:          ownerID,
		SubjectID:        subjectID,
		Status:           models.DocumentStatusPending,
		ApproveAfter:     now.Add(r.approvalDelay),
	}
	if err := r.store.AddDocument(doc); err != nil {
		slog.Error("Recorder.Record store error", "error", err, "ownerID", ownerID, "type", docType)
		return nil, models.Message{}, fmt.Errorf("failed to record document: %w", err)
	}
	slog.Info("Recorder.Record document stored", "id", doc.ID, "ownerID", ownerID, "type", docType, "fileName", fileName)

	confirmation := models.Message{
		ID:        doc.ID,
		Sender:    models.SenderBot,
		Content:   fmt.Sprintf("📄 *%s* received!\n\nFile: %s\n\nYour document is under review. You'll be notified once it's approved.", docType.DisplayName(), fileName),
		Timestamp: now,
		QuickReplies: []models.QuickReply{
			{Label: "Send another", Emoji: "📎"},
			{Label: "My documents", Emoji: "🗂️"},
			{Label: "Back to start", Emoji: "🏠"},
		},
	}
	return &doc, confirmation, nil
}

// ListFor returns an owner's documents in insertion order, applying any
// due auto-approvals first.
func (r *Recorder) ListFor(ctx context.Context, ownerID string) ([]models.DocumentRecord, error) {
	if ownerID == "" {
		return nil, models.ErrEmptyOwnerID
	}
	docs, err := r.store.ListDocumentsByOwner(ownerID)
	if err != nil {
		slog.Error("Recorder.ListFor store error", "error", err, "ownerID", ownerID)
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	now := r.now()
	for i := range docs {
		if docs[i].Status == models.DocumentStatusPending && !docs[i].ApproveAfter.After(now) {
			if err := r.store.UpdateDocumentStatus(docs[i].ID, models.DocumentStatusApproved); err != nil {
				slog.Error("Recorder.ListFor approval update error", "error", err, "id", docs[i].ID)
				return nil, fmt.Errorf("failed to approve document %s: %w", docs[i].ID, err)
			}
			docs[i].Status = models.DocumentStatusApproved
			slog.Debug("Recorder.ListFor auto-approved document", "id", docs[i].ID, "ownerID", ownerID)
		}
	}
	return docs, nil
}

// statusGlyph maps a document status to its display glyph.
func statusGlyph(status models.DocumentStatus) string {
	switch status {
	case models.DocumentStatusApproved:
		return "✅"
	case models.DocumentStatusRejected:
		return "❌"
	default:
		return "⏳"
	}
}

// ListMessage renders the last few documents of an owner as chat text
// with follow-up quick replies. Satisfies the bot's DocumentLister.
func (r *Recorder) ListMessage(ctx context.Context, ownerID string) (string, []models.QuickReply, error) {
	docs, err := r.ListFor(ctx, ownerID)
	if err != nil {
		return "", nil, err
	}
	quickReplies := []models.QuickReply{
		{Label: "Send a document", Emoji: "📎"},
		{Label: "Back to start", Emoji: "🏠"},
	}
	if len(docs) == 0 {
		return "🗂️ You haven't sent any documents yet. You can attach the signed adoption term, vet reports, vaccine proof or photos of your pet at home.", quickReplies, nil
	}

	start := 0
	if len(docs) > listDisplayLimit {
		start = len(docs) - listDisplayLimit
	}
	text := "🗂️ *Your documents:*\n"
	for _, doc := range docs[start:] {
		text += fmt.Sprintf("\n%s %s — %s", statusGlyph(doc.Status), doc.Type.DisplayName(), doc.OriginalFileName)
	}
	return text, quickReplies, nil
}
