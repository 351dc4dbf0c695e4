// Package api serves the local ingest/observe HTTP surface: directive
// injection for development transports, the SSE trace stream, and health.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/calyptra/voxwire/internal/events"
	"github.com/calyptra/voxwire/internal/message"
)

const maxDirectiveBytes = 256 * 1024

// Ingestor accepts raw directive JSON and dialog turn changes.
// *dispatch.Sequencer satisfies it.
type Ingestor interface {
	OnDirective(raw string, attachmentContextID string) (string, message.ParseStatus)
	SetDialogRequestID(dialogRequestID string)
	Pending() int
}

// Registry reports how many (namespace, name) keys have handlers.
// *dispatch.Router satisfies it.
type Registry interface {
	Handlers() int
}

// Config holds API server configuration.
type Config struct {
	Listen string
	// APIKey is the optional bearer token; empty disables auth.
	APIKey string
}

// Server is the ingest/observe HTTP server.
type Server struct {
	config    Config
	ingest    Ingestor
	registry  Registry
	hub       *events.Hub
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates the API server.
func New(config Config, ingest Ingestor, registry Registry, hub *events.Hub, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		ingest:    ingest,
		registry:  registry,
		hub:       hub,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute, // SSE clients hold the connection open
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/v1/directives", s.handleInjectDirective)
		r.Post("/v1/dialog", s.handleSetDialog)
		r.Get("/events", s.handleEvents)
	})

	return r
}

// HealthzResponse is the /healthz body.
type HealthzResponse struct {
	Status         string `json:"status"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	Handlers       int    `json:"handlers"`
	PendingOrdered int    `json:"pending_ordered"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthzResponse{
		Status:         "ok",
		UptimeSeconds:  int64(time.Since(s.startedAt).Seconds()),
		Handlers:       s.registry.Handlers(),
		PendingOrdered: s.ingest.Pending(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// InjectResponse is the /v1/directives body.
type InjectResponse struct {
	MessageID           string `json:"message_id,omitempty"`
	ParseStatus         string `json:"parse_status"`
	AttachmentContextID string `json:"attachment_context_id,omitempty"`
}

// handleInjectDirective feeds one raw directive into the sequencer, as a
// transport would. Each injected directive gets a fresh attachment context.
func (s *Server) handleInjectDirective(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDirectiveBytes+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) == 0 {
		s.writeError(w, http.StatusBadRequest, "empty body")
		return
	}
	if len(body) > maxDirectiveBytes {
		s.writeError(w, http.StatusRequestEntityTooLarge, "directive too large")
		return
	}

	contextID := uuid.NewString()
	messageID, status := s.ingest.OnDirective(string(body), contextID)

	resp := InjectResponse{
		MessageID:           messageID,
		ParseStatus:         status.String(),
		AttachmentContextID: contextID,
	}
	w.Header().Set("Content-Type", "application/json")
	if status != message.ParseSuccess {
		w.WriteHeader(http.StatusBadRequest)
	} else {
		w.WriteHeader(http.StatusAccepted)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// SetDialogRequest is the /v1/dialog body. An empty id is valid: it clears
// the active dialog and cancels everything queued under the old one.
type SetDialogRequest struct {
	DialogRequestID string `json:"dialog_request_id"`
}

// handleSetDialog installs a new active dialog turn, superseding queued
// directives from older turns.
func (s *Server) handleSetDialog(w http.ResponseWriter, r *http.Request) {
	var req SetDialogRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4*1024)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	s.ingest.SetDialogRequestID(req.DialogRequestID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"dialog_request_id": req.DialogRequestID})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.config.APIKey)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
