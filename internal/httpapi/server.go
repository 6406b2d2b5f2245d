// Package httpapi serves the onboarding protocol over plain HTTP for
// non-Lambda deployments. Same envelope as the Lambda handler; the chat
// route matches the original backend's /api/onboarding/chat.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"onboarding-agent/internal/onboarding"
)

const identityHeader = "x-user-id"

// ChatService is the onboarding surface the server depends on.
type ChatService interface {
	Chat(ctx context.Context, in onboarding.ChatInput) (*onboarding.Snapshot, error)
}

// IdentityResolver maps a request to a stable caller identity.
type IdentityResolver func(*http.Request) string

type chatRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Data string `json:"data"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// Server holds the route handlers and their metrics.
type Server struct {
	svc      ChatService
	identity IdentityResolver
	metrics  *metrics
}

type metrics struct {
	registry *prometheus.Registry
	turns    *prometheus.CounterVec
	duration prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboarding_chat_turns_total",
				Help: "Chat turns by outcome.",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "onboarding_chat_duration_seconds",
				Help: "Chat turn handling time.",
			},
		),
	}
	m.registry.MustRegister(m.turns, m.duration)
	return m
}

type Option func(*Server)

// WithIdentityResolver overrides the default header-based resolver.
func WithIdentityResolver(r IdentityResolver) Option {
	return func(s *Server) {
		if r != nil {
			s.identity = r
		}
	}
}

// NewHandler creates the HTTP handler for the onboarding service.
func NewHandler(svc ChatService, opts ...Option) (http.Handler, error) {
	if svc == nil {
		return nil, errors.New("httpapi: chat service must not be nil")
	}
	s := &Server{
		svc:      svc,
		identity: headerIdentity,
		metrics:  newMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	r.Post("/api/onboarding/chat", s.chat)
	return enableCORS(r), nil
}

func headerIdentity(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(identityHeader)); v != "" {
		return v
	}
	return "anonymous"
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var in chatRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.metrics.turns.WithLabelValues("invalid_input").Inc()
		writeError(w, http.StatusBadRequest, onboarding.ErrorInvalidInput, "malformed_body")
		return
	}

	snap, err := s.svc.Chat(r.Context(), onboarding.ChatInput{
		SessionID: in.SessionID,
		Identity:  s.identity(r),
		Message:   in.Message,
	})
	s.metrics.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		code, status := classify(err)
		s.metrics.turns.WithLabelValues(strings.ToLower(string(code))).Inc()
		slog.Warn("chat turn failed", "code", code, "err", err)
		writeError(w, status, code, "")
		return
	}

	outcome := "ok"
	if snap.Rejection != nil {
		outcome = "rejected"
	}
	s.metrics.turns.WithLabelValues(outcome).Inc()

	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("snapshot marshal failed", "err", err)
		writeError(w, http.StatusInternalServerError, onboarding.ErrorInternal, "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(chatResponse{Data: string(data)})
}

func classify(err error) (onboarding.ErrorCode, int) {
	var oErr *onboarding.Error
	if !errors.As(err, &oErr) {
		return onboarding.ErrorInternal, http.StatusInternalServerError
	}
	switch oErr.Code {
	case onboarding.ErrorInvalidInput:
		return oErr.Code, http.StatusBadRequest
	case onboarding.ErrorNotFound:
		return oErr.Code, http.StatusNotFound
	case onboarding.ErrorInvalidState, onboarding.ErrorConflict:
		return oErr.Code, http.StatusConflict
	case onboarding.ErrorStore:
		return oErr.Code, http.StatusServiceUnavailable
	default:
		return oErr.Code, http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, code onboarding.ErrorCode, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: string(code), Reason: reason})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
