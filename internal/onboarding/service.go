// Package onboarding implements the session state machine driving the
// server-side questionnaire: one question at a time, validated answers,
// AI-paraphrased values, strict registry ordering.
package onboarding

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"onboarding-agent/internal/domain"
	"onboarding-agent/internal/registry"
	"onboarding-agent/internal/store"
	"onboarding-agent/internal/validate"
)

const defaultParaphraseTimeout = 5 * time.Second

// Paraphraser normalizes a validated raw answer into its display form
// (e.g. "1990-05-10" -> "10 May 1990"). Implementations must be idempotent
// under retry; the service never calls them on fetch, only at submission.
type Paraphraser interface {
	Paraphrase(ctx context.Context, step domain.Step, value string) (string, error)
}

// SessionStore is the persistence contract the service depends on. See
// package store for the revision discipline.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Create(ctx context.Context, sess *domain.Session) error
	Save(ctx context.Context, sess *domain.Session) error
}

// ChatInput is one protocol turn. An empty SessionID creates a session for
// the identity; an empty Message on an existing session is a no-op fetch.
type ChatInput struct {
	SessionID string
	Identity  string
	Message   string
}

// Service orchestrates validate -> paraphrase -> advance -> persist for one
// turn. It holds no session state itself.
type Service struct {
	registry    *registry.Registry
	store       SessionStore
	paraphraser Paraphraser
	paraTimeout time.Duration
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithParaphraseTimeout bounds each Paraphraser call. On expiry the raw
// value is used unchanged.
func WithParaphraseTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.paraTimeout = d
		}
	}
}

// WithLogger sets the logger used for paraphrase fallbacks and conflicts.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService builds a Service. The paraphraser may be nil, in which case
// raw values pass through unchanged.
func NewService(reg *registry.Registry, st SessionStore, para Paraphraser, opts ...Option) (*Service, error) {
	if reg == nil {
		return nil, errors.New("onboarding: registry must not be nil")
	}
	if st == nil {
		return nil, errors.New("onboarding: session store must not be nil")
	}
	s := &Service{
		registry:    reg,
		store:       st,
		paraphraser: para,
		paraTimeout: defaultParaphraseTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Overridable for deterministic tests, mirroring uuid minting elsewhere.
var newSessionID = uuid.NewString

var timeNow = time.Now

// Chat applies one protocol turn and returns the resulting snapshot. On a
// revision conflict it re-reads the session and re-applies the message
// against the now-current step exactly once before surfacing CONFLICT.
func (s *Service) Chat(ctx context.Context, in ChatInput) (*Snapshot, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	message := strings.TrimSpace(in.Message)

	if sessionID == "" {
		return s.create(ctx, in.Identity)
	}

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// A bare fetch never mutates anything; re-reading yields an identical
	// snapshot.
	if message == "" {
		return s.snapshot(sess, nil)
	}

	snap, err := s.submit(ctx, sess, message)
	if !errors.Is(err, store.ErrConflict) {
		return snap, err
	}

	s.logger.Warn("session write conflicted, re-reading", "sessionId", sessionID)
	sess, err = s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	snap, err = s.submit(ctx, sess, message)
	if errors.Is(err, store.ErrConflict) {
		return nil, newError(ErrorConflict, "concurrent_update", err)
	}
	return snap, err
}

func (s *Service) create(ctx context.Context, identity string) (*Snapshot, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, newError(ErrorInvalidInput, "empty_identity", nil)
	}
	sess := NewSession(newSessionID(), identity, s.registry.Steps(), timeNow().UTC())
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, newError(ErrorStore, "session_create_error", err)
	}
	return s.snapshot(sess, nil)
}

func (s *Service) load(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(ErrorNotFound, "unknown_session", err)
		}
		return nil, newError(ErrorStore, "session_read_error", err)
	}
	return sess, nil
}

// submit validates message against the current step and, when accepted,
// commits the full transition. A store.ErrConflict escapes unwrapped so
// Chat can re-read and retry.
func (s *Service) submit(ctx context.Context, sess *domain.Session, message string) (*Snapshot, error) {
	if sess.Status != domain.StatusQuestion {
		return nil, newError(ErrorInvalidState, "no_question_pending", nil)
	}

	step, err := s.registry.Step(sess.CurrentStepID)
	if err != nil {
		// The persisted cursor points at a step the catalog no longer has;
		// nothing the client sends can fix this session.
		return nil, newError(ErrorInternal, "catalog_mismatch", err)
	}

	normalized, reason := validate.Answer(step.Template, message)
	if reason != "" {
		// Rejected input never advances or mutates the session.
		return s.snapshot(sess, &Rejection{StepID: step.ID, Reason: reason})
	}

	paraphrased, fallback := s.paraphrase(ctx, step, normalized)
	ans := domain.Answer{
		StepID:      step.ID,
		Raw:         message,
		Paraphrased: paraphrased,
		Fallback:    fallback,
		RecordedAt:  timeNow().UTC(),
	}

	next := sess.Clone()
	if err := Advance(next, ans, timeNow().UTC()); err != nil {
		return nil, newError(ErrorInvalidState, "transition_rejected", err)
	}

	if err := s.store.Save(ctx, next); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, err
		}
		return nil, newError(ErrorStore, "session_write_error", err)
	}
	return s.snapshot(next, nil)
}

// paraphrase runs the adapter under a timeout and reports whether the
// fallback path was taken. The raw value always wins over a blocked turn.
func (s *Service) paraphrase(ctx context.Context, step domain.Step, value string) (string, bool) {
	if s.paraphraser == nil || value == "" {
		return value, false
	}
	ctx, cancel := context.WithTimeout(ctx, s.paraTimeout)
	defer cancel()

	out, err := s.paraphraser.Paraphrase(ctx, step, value)
	if err != nil {
		s.logger.Warn("paraphrase fallback", "stepId", step.ID, "err", err)
		return value, true
	}
	out = strings.TrimSpace(out)
	if out == "" {
		s.logger.Warn("paraphrase returned empty value", "stepId", step.ID)
		return value, true
	}
	return out, false
}
