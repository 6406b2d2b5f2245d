package store

import (
	"context"
	"errors"
	"strings"
	"sync"

	"onboarding-agent/internal/domain"
)

// Memory is an in-process session store. It honors the same revision
// discipline as the Redis and DynamoDB stores so the service and handler
// tests exercise the real concurrency contract.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*domain.Session)}
}

// Get returns a deep copy of the session, or ErrNotFound.
func (m *Memory) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

// Create stores a brand-new session at revision 0.
func (m *Memory) Create(_ context.Context, sess *domain.Session) error {
	if sess == nil || strings.TrimSpace(sess.ID) == "" {
		return errors.New("store: session id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[sess.ID]; exists {
		return ErrConflict
	}
	sess.Revision = 0
	m.sessions[sess.ID] = sess.Clone()
	return nil
}

// Save persists sess if its revision still matches the stored one.
func (m *Memory) Save(_ context.Context, sess *domain.Session) error {
	if sess == nil || strings.TrimSpace(sess.ID) == "" {
		return errors.New("store: session id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[sess.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Revision != sess.Revision {
		return ErrConflict
	}
	next := sess.Clone()
	next.Revision++
	m.sessions[sess.ID] = next
	sess.Revision = next.Revision
	return nil
}
