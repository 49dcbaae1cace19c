// Package models defines the core data structures for adoptbot.
//
// It includes chat messages, quick replies, document records, and the
// API response envelope shared across modules.
package models

import (
	"errors"
	"time"
)

// Sender identifies who produced a chat message.
type Sender string

const (
	// SenderUser marks a message written by the person chatting with the bot.
	SenderUser Sender = "user"
	// SenderBot marks a message produced by an assistant.
	SenderBot Sender = "bot"
)

// Validation constants for input validation
const (
	// MaxMessageContentLength defines the maximum allowed length for message content
	MaxMessageContentLength = 4096
	// MaxQuickReplies defines the maximum number of quick replies a message may carry
	MaxQuickReplies = 10
	// MaxChannelButtons defines how many quick replies survive the trip to a
	// messaging channel (WhatsApp interactive messages allow at most 3 buttons)
	MaxChannelButtons = 3
	// MaxButtonTitleLength defines the channel-imposed limit on button titles
	MaxButtonTitleLength = 20
	// MaxUploadSizeBytes defines the maximum accepted document upload size (10 MB)
	MaxUploadSizeBytes = 10 << 20
)

// Error variables for better error handling and testability
var (
	ErrEmptyContent          = errors.New("message content cannot be empty")
	ErrContentTooLong        = errors.New("message content exceeds maximum length")
	ErrQuickRepliesOnUserMsg = errors.New("quick replies are only allowed on bot messages")
	ErrTooManyQuickReplies   = errors.New("too many quick replies")
	ErrEmptyQuickReplyLabel  = errors.New("quick reply label cannot be empty")
	ErrEmptySessionID        = errors.New("session id cannot be empty")
	ErrEmptyOwnerID          = errors.New("owner id cannot be empty")
	ErrEmptySubjectID        = errors.New("animal id cannot be empty")
	ErrEmptyFileName         = errors.New("file name cannot be empty")
	ErrInvalidDocumentType   = errors.New("invalid document type")
)

// QuickReply is a suggested answer rendered alongside a bot message.
type QuickReply struct {
	Label  string `json:"label"`
	Emoji  string `json:"emoji,omitempty"`
	Action string `json:"action,omitempty"`
}

// Message represents a single chat message exchanged with an assistant.
type Message struct {
	ID           string       `json:"id"`
	Sender       Sender       `json:"sender"`
	Content      string       `json:"content"`
	ImageRef     string       `json:"image_ref,omitempty"`
	DocumentRef  *DocumentRef `json:"document_ref,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
	QuickReplies []QuickReply `json:"quick_replies,omitempty"`
}

// DocumentRef points at an uploaded document attached to a message.
type DocumentRef struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Locator string `json:"locator"`
}

// Validate checks the structural invariants of a Message.
func (m *Message) Validate() error {
	if m.Content == "" {
		return ErrEmptyContent
	}
	if len(m.Content) > MaxMessageContentLength {
		return ErrContentTooLong
	}
	if len(m.QuickReplies) > 0 && m.Sender != SenderBot {
		return ErrQuickRepliesOnUserMsg
	}
	if len(m.QuickReplies) > MaxQuickReplies {
		return ErrTooManyQuickReplies
	}
	for _, qr := range m.QuickReplies {
		if qr.Label == "" {
			return ErrEmptyQuickReplyLabel
		}
	}
	return nil
}

// DocumentType categorizes an uploaded document.
type DocumentType string

const (
	DocumentTypeAdoptionTerm  DocumentType = "adoption_term"
	DocumentTypeVetReport     DocumentType = "vet_report"
	DocumentTypeAnimalPhoto   DocumentType = "animal_photo"
	DocumentTypeVaccineProof  DocumentType = "vaccine_proof"
	DocumentTypeVisitReport   DocumentType = "visit_report"
	DocumentTypeOther         DocumentType = "other"
)

// documentTypeNames maps document types to their display names.
var documentTypeNames = map[DocumentType]string{
	DocumentTypeAdoptionTerm: "Adoption Terms",
	DocumentTypeVetReport:    "Veterinary Report",
	DocumentTypeAnimalPhoto:  "Animal Photo",
	DocumentTypeVaccineProof: "Proof of Vaccination",
	DocumentTypeVisitReport:  "Visit Report",
	DocumentTypeOther:        "Other Document",
}

// IsValidDocumentType checks if the given document type is recognized.
func IsValidDocumentType(dt DocumentType) bool {
	_, ok := documentTypeNames[dt]
	return ok
}

// DisplayName returns the human-readable name of a document type.
func (dt DocumentType) DisplayName() string {
	if name, ok := documentTypeNames[dt]; ok {
		return name
	}
	return "Document"
}

// DocumentStatus represents the review status of an uploaded document.
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusApproved DocumentStatus = "approved"
	DocumentStatusRejected DocumentStatus = "rejected"
)

// DocumentRecord represents an uploaded document tied to an adopter and an animal.
// ApproveAfter carries the auto-approval due time; the recorder evaluates it
// lazily on read so pending records survive a process restart.
type DocumentRecord struct {
	ID               string         `json:"id"`
	Type             DocumentType   `json:"type"`
	OriginalFileName string         `json:"original_file_name"`
	StorageLocator   string         `json:"storage_locator"`
	UploadedAt       time.Time      `json:"uploaded_at"`
	OwnerID          string         `json:"owner_id"`
	SubjectID        string         `json:"subject_id"`
	Status           DocumentStatus `json:"status"`
	ApproveAfter     time.Time      `json:"approve_after"`
}

// Response represents an incoming message from a messaging channel.
type Response struct {
	From string `json:"from"`
	Body string `json:"body"`
	Time int64  `json:"time"`
}

// MessageStatus represents the delivery status of an outbound channel message.
type MessageStatus string

const (
	// MessageStatusSent indicates the message was sent.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusFailed indicates the message failed to send.
	MessageStatusFailed MessageStatus = "failed"
)

// Receipt records the delivery outcome of an outbound channel message.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
	// APIStatusRecorded indicates data was successfully recorded via API.
	APIStatusRecorded APIStatus = "recorded"
	// APIStatusScheduled indicates an API request resulted in scheduled content.
	APIStatusScheduled APIStatus = "scheduled"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}

// Recorded creates a recorded API response with result data.
func Recorded(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusRecorded), Result: result}
}

// Scheduled creates a scheduled API response with a message.
func Scheduled(message string) APIResponse {
	return APIResponse{Status: string(APIStatusScheduled), Message: message}
}
