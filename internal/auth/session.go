// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package auth

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// Session proves that a publicId is currently authenticated.
type Session struct {
	PublicID string
	IsMaster bool
	IssuedAt time.Time
	// ExpiresAt is zero when the registry does not expire sessions.
	ExpiresAt time.Time
}

// NewSessionAt creates a session issued at now. A ttl of zero means no expiry.
func NewSessionAt(publicID string, isMaster bool, ttl time.Duration, now time.Time) (*Session, error) {
	if publicID == "" {
		return nil, oops.Code("SESSION_INVALID_PUBLIC_ID").Errorf("public id cannot be empty")
	}
	if ttl < 0 {
		return nil, oops.Code("SESSION_INVALID_TTL").With("ttl", ttl.String()).Errorf("ttl cannot be negative")
	}

	s := &Session{
		PublicID: publicID,
		IsMaster: isMaster,
		IssuedAt: now.UTC(),
	}
	if ttl > 0 {
		s.ExpiresAt = s.IssuedAt.Add(ttl)
	}
	return s, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the session would be expired at the given time.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !s.ExpiresAt.IsZero() && !t.Before(s.ExpiresAt)
}

// SessionRegistry maps a publicId to its live session.
//
// Open and Close for the same publicId are linearizable. Implementations hold
// only a weak reference to the user: removing a session never touches the
// credential store.
type SessionRegistry interface {
	// Open creates or replaces the session for publicID.
	Open(ctx context.Context, publicID string, isMaster bool) (*Session, error)

	// Close removes the session for publicID. Closing a missing session is
	// not an error.
	Close(ctx context.Context, publicID string) error

	// Lookup returns the live session for publicID, or ErrNotFound.
	Lookup(ctx context.Context, publicID string) (*Session, error)
}
