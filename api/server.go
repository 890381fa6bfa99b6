package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Support-Router/agent/agents/coordinator"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	qstashx "github.com/tanpawarit/Chative-Support-Router/pkg/qstash"
)

const maxBodyBytes = 1 << 20

// ChatService is the part of *coordinator.Coordinator the HTTP surface uses.
type ChatService interface {
	Chat(ctx context.Context, req coordinator.ChatRequest) (coordinator.ChatResponse, error)
	SessionCount() int
	SweepSessions() int
}

type SignatureVerifier interface {
	Verify(signature string, body []byte, destinationURL string) error
}

type Options struct {
	Version        string
	AllowedOrigins []string

	// Verifier guards POST /sessions/cleanup when set.
	Verifier SignatureVerifier
	// CleanupURL is the public URL QStash signs for; empty skips the check.
	CleanupURL string

	Now func() time.Time
}

type Server struct {
	svc  ChatService
	opts Options
}

func NewServer(svc ChatService, opts Options) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if strings.TrimSpace(opts.Version) == "" {
		opts.Version = "dev"
	}
	s := &Server{svc: svc, opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /sessions/count", s.handleSessionCount)
	mux.HandleFunc("POST /sessions/cleanup", s.handleSessionCleanup)

	return chainMiddlewares(mux,
		withCORS(opts.AllowedOrigins),
		withLogging,
	)
}

type healthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

type sessionCountResponse struct {
	ActiveSessions int `json:"active_sessions"`
}

type cleanupResponse struct {
	Message        string `json:"message"`
	ActiveSessions int    `json:"active_sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Version:   s.opts.Version,
		Timestamp: s.opts.Now().UTC(),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req coordinator.ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		badRequest(w, "message is required")
		return
	}

	resp, err := s.svc.Chat(r.Context(), req)
	if err != nil {
		if errors.Is(err, contractx.ErrInvalidMessage) {
			badRequest(w, "message is required")
			return
		}
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionCountResponse{ActiveSessions: s.svc.SessionCount()})
}

func (s *Server) handleSessionCleanup(w http.ResponseWriter, r *http.Request) {
	if s.opts.Verifier != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			badRequest(w, "unreadable body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if err := s.opts.Verifier.Verify(r.Header.Get(qstashx.SignatureHeader), body, s.opts.CleanupURL); err != nil {
			log.Warn().Err(err).Msg("rejected cleanup request")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
			return
		}
	}

	remaining := s.svc.SweepSessions()
	writeJSON(w, http.StatusOK, cleanupResponse{
		Message:        "Expired sessions cleaned up",
		ActiveSessions: remaining,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("chat request failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "Error processing your request",
	})
}
