// Package redis persists onboarding sessions in Redis with optimistic
// concurrency: Save runs a WATCH-guarded check-and-set on the session key
// so a stale revision never overwrites a newer write.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"onboarding-agent/internal/domain"
	"onboarding-agent/internal/store"
)

// Store implements the session store contract on Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for session keys. Zero means no expiration;
// retention then belongs to an external policy.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Store with its own Redis client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Store from an existing client (used by tests
// against miniredis).
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "onboarding:session:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

// Get loads and decodes a session.
func (s *Store) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get session: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("redis: decode session: %w", err)
	}
	return &sess, nil
}

// Create stores a brand-new session at revision 0, failing if the key
// already exists.
func (s *Store) Create(ctx context.Context, sess *domain.Session) error {
	sess.Revision = 0
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redis: encode session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(sess.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis: create session: %w", err)
	}
	if !ok {
		return store.ErrConflict
	}
	return nil
}

// Save persists sess if its revision still matches the stored one. The key
// is WATCHed for the duration of the check, so a concurrent write aborts
// the transaction and surfaces as ErrConflict.
func (s *Store) Save(ctx context.Context, sess *domain.Session) error {
	key := s.key(sess.ID)
	next := sess.Clone()
	next.Revision++

	err := s.client.Watch(ctx, func(tx *backend.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, backend.Nil) {
				return store.ErrNotFound
			}
			return fmt.Errorf("redis: read session: %w", err)
		}
		var cur domain.Session
		if err := json.Unmarshal([]byte(val), &cur); err != nil {
			return fmt.Errorf("redis: decode session: %w", err)
		}
		if cur.Revision != sess.Revision {
			return store.ErrConflict
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("redis: encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)
	if err != nil {
		if errors.Is(err, backend.TxFailedErr) {
			return store.ErrConflict
		}
		return err
	}
	sess.Revision = next.Revision
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
