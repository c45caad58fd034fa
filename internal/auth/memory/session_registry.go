// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/socialcamp/campauth/internal/auth"
)

// SessionRegistry implements auth.SessionRegistry with a mutex-guarded map.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]auth.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionRegistry creates a registry. A ttl of zero disables expiry.
func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]auth.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (r *SessionRegistry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Open creates or replaces the session for publicID.
func (r *SessionRegistry) Open(ctx context.Context, publicID string, isMaster bool) (*auth.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("SESSION_OPEN_FAILED").Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := auth.NewSessionAt(publicID, isMaster, r.ttl, r.now())
	if err != nil {
		return nil, err
	}
	r.sessions[publicID] = *s
	return s, nil
}

// Close removes the session for publicID.
func (r *SessionRegistry) Close(_ context.Context, publicID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, publicID)
	return nil
}

// Lookup returns the live session for publicID.
func (r *SessionRegistry) Lookup(ctx context.Context, publicID string) (*auth.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("SESSION_LOOKUP_FAILED").Wrap(err)
	}

	r.mu.RLock()
	s, ok := r.sessions[publicID]
	now := r.now()
	r.mu.RUnlock()

	if !ok || s.IsExpiredAt(now) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return &s, nil
}

// DeleteExpired removes expired sessions and returns how many were removed.
func (r *SessionRegistry) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var n int64
	for id, s := range r.sessions {
		if s.IsExpiredAt(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

var _ auth.SessionRegistry = (*SessionRegistry)(nil)
