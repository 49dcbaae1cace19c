package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/caramelo-ong/adoptbot/internal/documents"
	"github.com/caramelo-ong/adoptbot/internal/flow"
	"github.com/caramelo-ong/adoptbot/internal/models"
	"github.com/caramelo-ong/adoptbot/internal/scheduler"
	"github.com/caramelo-ong/adoptbot/internal/store"
)

// stubSender accepts any 6+ digit recipient and records sends.
type stubSender struct {
	sent []string
}

func (s *stubSender) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, recipient)
	if len(digits) < 6 {
		return "", fmt.Errorf("invalid phone number %q", recipient)
	}
	return digits, nil
}

func (s *stubSender) SendMessage(ctx context.Context, to string, body string) error {
	s.sent = append(s.sent, to)
	return nil
}

func newTestServer(t *testing.T) (*Server, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	sessions := flow.NewStoreSessionManager(st)
	recorder := documents.NewRecorder(st)
	storage, err := documents.NewDiskStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStorage failed: %v", err)
	}
	sched := scheduler.NewScheduler()
	t.Cleanup(sched.Stop)
	srv := NewServer(
		flow.NewAdoptionBot(sessions),
		flow.NewFollowupBot(sessions, flow.WithDocumentLister(recorder)),
		recorder, storage, st, &stubSender{}, sched,
	)
	return srv, st
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeAPIResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestWelcomeEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/api/chat/adoption/welcome", chatRequest{SessionID: "s1", Name: "Ana"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	resp := decodeAPIResponse(t, rec)
	if resp.Status != "ok" {
		t.Errorf("response status = %q, want ok", resp.Status)
	}
	result, _ := json.Marshal(resp.Result)
	if !strings.Contains(string(result), "Ana") {
		t.Errorf("greeting does not mention the name: %s", result)
	}
}

func TestWelcomeEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/api/chat/adoption/welcome", chatRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing session_id status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chat/adoption/welcome", nil)
	get := httptest.NewRecorder()
	handler.ServeHTTP(get, req)
	if get.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want %d", get.Code, http.StatusMethodNotAllowed)
	}
}

func TestMessageEndpointDrivesFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/api/chat/adoption/message", chatRequest{SessionID: "s1", Text: "Yes, let's go"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeAPIResponse(t, rec)
	result, _ := json.Marshal(resp.Result)
	if !strings.Contains(string(result), "adoption screening") {
		t.Errorf("trigger did not start the screening: %s", result)
	}
}

func TestDocumentUploadAndList(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "term.pdf")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	fw.Write([]byte("%PDF-1.4 fake"))
	mw.WriteField("document_type", string(models.DocumentTypeAdoptionTerm))
	mw.WriteField("owner_id", "owner-1")
	mw.WriteField("animal_id", "animal-1")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/documents?owner_id=owner-1", nil)
	listRec := httptest.NewRecorder()
	handler.ServeHTTP(listRec, listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list status = %d: %s", listRec.Code, listRec.Body.String())
	}
	if !strings.Contains(listRec.Body.String(), "term.pdf") {
		t.Errorf("listing missing uploaded file: %s", listRec.Body.String())
	}
}

func TestDocumentUploadRejectsBadType(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "malware.exe")
	fw.Write([]byte("MZ"))
	mw.WriteField("document_type", string(models.DocumentTypeOther))
	mw.WriteField("owner_id", "owner-1")
	mw.WriteField("animal_id", "animal-1")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("exe upload status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAnimalsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/api/animals", models.Animal{Name: "Rex", Species: "dog", Size: "medium"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add animal status = %d: %s", rec.Code, rec.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/animals", nil)
	listRec := httptest.NewRecorder()
	handler.ServeHTTP(listRec, listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list status = %d", listRec.Code)
	}
	if !strings.Contains(listRec.Body.String(), "Rex") {
		t.Errorf("listing missing animal: %s", listRec.Body.String())
	}

	bad := postJSON(t, handler, "/api/animals", models.Animal{Species: "dog"})
	if bad.Code != http.StatusBadRequest {
		t.Errorf("invalid animal status = %d, want %d", bad.Code, http.StatusBadRequest)
	}
}

func TestRemindersEndpoint(t *testing.T) {
	srv, st := newTestServer(t)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/api/reminders", reminderRequest{To: "+15551234567", AnimalName: "Rex", Days: 7})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeAPIResponse(t, rec)
	if resp.Status != "scheduled" {
		t.Errorf("response status = %q, want scheduled", resp.Status)
	}

	// Not due yet, so nothing is claimable now.
	due, err := st.ClaimDueReminders(time.Now(), 10)
	if err != nil {
		t.Fatalf("ClaimDueReminders failed: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("reminder due immediately, want due in 7 days")
	}

	bad := postJSON(t, handler, "/api/reminders", reminderRequest{To: "+15551234567", Days: 0})
	if bad.Code != http.StatusBadRequest {
		t.Errorf("zero days status = %d, want %d", bad.Code, http.StatusBadRequest)
	}
}

func TestScheduleEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/api/schedule", scheduleRequest{Cron: "0 9 * * 1", To: "+15551234567"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	bad := postJSON(t, handler, "/api/schedule", scheduleRequest{Cron: "nonsense", To: "+15551234567"})
	if bad.Code != http.StatusBadRequest {
		t.Errorf("invalid cron status = %d, want %d", bad.Code, http.StatusBadRequest)
	}
}
