// Package store defines the session persistence contract shared by every
// backend (memory, Redis, DynamoDB) and provides the in-memory
// implementation.
//
// Contract: Get returns ErrNotFound for unknown ids. Create fails with
// ErrConflict if the id already exists. Save compares the session's
// Revision against the persisted one, rejects stale writes with
// ErrConflict, and on success persists Revision+1 and bumps the caller's
// session in place. Sessions are mutated only through the state machine's
// transition functions, never field-by-field in a store.
package store

import "errors"

var (
	// ErrNotFound means no session exists for the requested id.
	ErrNotFound = errors.New("store: session not found")
	// ErrConflict means another write landed since the session was read.
	ErrConflict = errors.New("store: revision conflict")
)
