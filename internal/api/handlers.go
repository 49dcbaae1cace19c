package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/caramelo-ong/adoptbot/internal/documents"
	"github.com/caramelo-ong/adoptbot/internal/models"
)

// chatRequest is the body of the chat welcome and message endpoints.
type chatRequest struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name,omitempty"`
	Text      string `json:"text,omitempty"`
}

// reminderRequest schedules a one-shot check-in reminder.
type reminderRequest struct {
	To         string `json:"to"`
	AnimalName string `json:"animal_name,omitempty"`
	Days       int    `json:"days"`
}

// scheduleRequest registers a recurring check-in prompt.
type scheduleRequest struct {
	Cron string `json:"cron"`
	To   string `json:"to"`
}

// scheduledCheckinPrompt is the recurring message sent by /api/schedule jobs.
const scheduledCheckinPrompt = "Hi! 💚 It's time for your periodic check-in. Reply \"check-in\" and I'll ask a few quick questions about how things are going."

func (s *Server) welcomeHandler(assistant models.Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			defer r.Body.Close()
		}
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Server.welcomeHandler: failed to decode JSON", "error", err, "assistant", assistant)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		if req.SessionID == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("session_id is required"))
			return
		}

		msg, err := s.bots[assistant].Welcome(r.Context(), req.SessionID, req.Name)
		if err != nil {
			slog.Error("Server.welcomeHandler: welcome failed", "error", err, "assistant", assistant, "sessionID", req.SessionID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to start conversation"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(msg))
	}
}

func (s *Server) messageHandler(assistant models.Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			defer r.Body.Close()
		}
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Server.messageHandler: failed to decode JSON", "error", err, "assistant", assistant)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		if req.SessionID == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("session_id is required"))
			return
		}
		if req.Text == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("text is required"))
			return
		}

		msg, err := s.bots[assistant].Handle(r.Context(), req.SessionID, req.Text)
		if err != nil {
			slog.Error("Server.messageHandler: handle failed", "error", err, "assistant", assistant, "sessionID", req.SessionID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(msg))
	}
}

func (s *Server) documentsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.uploadDocument(w, r)
	case http.MethodGet:
		s.listDocuments(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if err := r.ParseMultipartForm(models.MaxUploadSizeBytes); err != nil {
		slog.Warn("Server.uploadDocument: multipart parse failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("file is required"))
		return
	}
	defer file.Close()

	docType := models.DocumentType(r.FormValue("document_type"))
	ownerID := r.FormValue("owner_id")
	animalID := r.FormValue("animal_id")
	if !models.IsValidDocumentType(docType) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid document_type"))
		return
	}
	if ownerID == "" || animalID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("owner_id and animal_id are required"))
		return
	}
	if err := documents.ValidateUpload(header.Filename, header.Size); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, models.MaxUploadSizeBytes+1))
	if err != nil {
		slog.Error("Server.uploadDocument: read failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to read upload"))
		return
	}
	if int64(len(data)) > models.MaxUploadSizeBytes {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("file exceeds the upload size limit"))
		return
	}

	locator, err := s.storage.Save(header.Filename, data)
	if err != nil {
		slog.Error("Server.uploadDocument: storage save failed", "error", err, "fileName", header.Filename)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store upload"))
		return
	}

	doc, confirmation, err := s.recorder.Record(r.Context(), header.Filename, docType, ownerID, animalID, locator)
	if err != nil {
		slog.Error("Server.uploadDocument: record failed", "error", err, "ownerID", ownerID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record document"))
		return
	}

	writeJSONResponse(w, http.StatusCreated, models.Recorded(map[string]interface{}{
		"document": doc,
		"message":  confirmation,
	}))
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("owner_id query parameter is required"))
		return
	}
	docs, err := s.recorder.ListFor(r.Context(), ownerID)
	if err != nil {
		slog.Error("Server.listDocuments: list failed", "error", err, "ownerID", ownerID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list documents"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(docs))
}

func (s *Server) animalsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		animals, err := s.st.ListAnimals()
		if err != nil {
			slog.Error("Server.animalsHandler: list failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list animals"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(animals))
	case http.MethodPost:
		var animal models.Animal
		if err := json.NewDecoder(r.Body).Decode(&animal); err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		if animal.Status == "" {
			animal.Status = models.AnimalStatusAvailable
		}
		if err := animal.Validate(); err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		now := time.Now()
		animal.ID = uuid.New().String()
		animal.CreatedAt = now
		animal.UpdatedAt = now
		if err := s.st.AddAnimal(animal); err != nil {
			slog.Error("Server.animalsHandler: add failed", "error", err, "name", animal.Name)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to add animal"))
			return
		}
		slog.Info("Server.animalsHandler: animal added", "id", animal.ID, "name", animal.Name)
		writeJSONResponse(w, http.StatusCreated, models.Recorded(animal))
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) remindersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	canonicalTo, err := s.sender.ValidateAndCanonicalizeRecipient(req.To)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if req.Days <= 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("days must be positive"))
		return
	}

	runAt := time.Now().Add(time.Duration(req.Days) * 24 * time.Hour)
	id, err := s.st.EnqueueReminder(canonicalTo, req.AnimalName, runAt)
	if err != nil {
		slog.Error("Server.remindersHandler: enqueue failed", "error", err, "to", canonicalTo)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to schedule reminder"))
		return
	}
	slog.Info("Server.remindersHandler: reminder scheduled", "id", id, "to", canonicalTo, "runAt", runAt)
	writeJSONResponse(w, http.StatusCreated, models.Scheduled(fmt.Sprintf("Check-in reminder %s scheduled for %s", id, runAt.Format(time.RFC3339))))
}

func (s *Server) scheduleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	canonicalTo, err := s.sender.ValidateAndCanonicalizeRecipient(req.To)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if req.Cron == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("cron expression is required"))
		return
	}

	err = s.sched.AddJob(req.Cron, func() {
		if err := s.sender.SendMessage(context.Background(), canonicalTo, scheduledCheckinPrompt); err != nil {
			slog.Error("scheduled check-in prompt failed", "error", err, "to", canonicalTo)
		}
	})
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid cron expression: "+err.Error()))
		return
	}
	slog.Info("Server.scheduleHandler: recurring check-in scheduled", "to", canonicalTo, "cron", req.Cron)
	writeJSONResponse(w, http.StatusCreated, models.Scheduled("Recurring check-in prompt scheduled"))
}
