// Package api exposes the adoptbot HTTP surface: the chat endpoints used
// by the web UI, document upload and listing, the animal registry, and
// reminder scheduling.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/caramelo-ong/adoptbot/internal/documents"
	"github.com/caramelo-ong/adoptbot/internal/flow"
	"github.com/caramelo-ong/adoptbot/internal/models"
	"github.com/caramelo-ong/adoptbot/internal/scheduler"
	"github.com/caramelo-ong/adoptbot/internal/store"
)

// DefaultAddr is the default API listen address.
const DefaultAddr = ":8080"

// Opts holds API server configuration.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// MessageSender sends outbound channel messages, used by the reminder
// and schedule endpoints. Satisfied by messaging.Service.
type MessageSender interface {
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)
	SendMessage(ctx context.Context, to string, body string) error
}

// Server wires the conversation bots, document recorder, store and
// scheduler behind HTTP handlers.
type Server struct {
	addr     string
	bots     map[models.Assistant]*flow.Bot
	recorder *documents.Recorder
	storage  documents.Storage
	st       store.Store
	sender   MessageSender
	sched    *scheduler.Scheduler
	webhooks map[string]http.HandlerFunc
	httpSrv  *http.Server
}

// NewServer creates an API server over the given collaborators.
func NewServer(adoptionBot, followupBot *flow.Bot, recorder *documents.Recorder, storage documents.Storage, st store.Store, sender MessageSender, sched *scheduler.Scheduler, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		addr: cfg.Addr,
		bots: map[models.Assistant]*flow.Bot{
			models.AssistantAdoption: adoptionBot,
			models.AssistantFollowup: followupBot,
		},
		recorder: recorder,
		storage:  storage,
		st:       st,
		sender:   sender,
		sched:    sched,
		webhooks: make(map[string]http.HandlerFunc),
	}
}

// RegisterWebhook mounts an inbound channel webhook, e.g. the Twilio
// message callback. Must be called before Start.
func (s *Server) RegisterWebhook(path string, handler http.HandlerFunc) {
	s.webhooks[path] = handler
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/adoption/welcome", s.welcomeHandler(models.AssistantAdoption))
	mux.HandleFunc("/api/chat/adoption/message", s.messageHandler(models.AssistantAdoption))
	mux.HandleFunc("/api/chat/followup/welcome", s.welcomeHandler(models.AssistantFollowup))
	mux.HandleFunc("/api/chat/followup/message", s.messageHandler(models.AssistantFollowup))
	mux.HandleFunc("/api/documents", s.documentsHandler)
	mux.HandleFunc("/api/animals", s.animalsHandler)
	mux.HandleFunc("/api/reminders", s.remindersHandler)
	mux.HandleFunc("/api/schedule", s.scheduleHandler)
	for path, handler := range s.webhooks {
		mux.HandleFunc(path, handler)
	}
	return mux
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	slog.Info("API server starting", "addr", s.addr)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server failed", "error", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	slog.Info("API server shutting down")
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	return nil
}
