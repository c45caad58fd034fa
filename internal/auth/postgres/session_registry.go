// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/socialcamp/campauth/internal/auth"
)

// SessionRegistry implements auth.SessionRegistry on the sessions table.
// public_id is the primary key, so the upsert in Open and the delete in
// Close serialize on the same row.
type SessionRegistry struct {
	db  DB
	ttl time.Duration
	now func() time.Time
}

// NewSessionRegistry creates a registry. A ttl of zero disables expiry.
func NewSessionRegistry(db DB, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{db: db, ttl: ttl, now: time.Now}
}

// Open creates or replaces the session for publicID.
func (r *SessionRegistry) Open(ctx context.Context, publicID string, isMaster bool) (*auth.Session, error) {
	session, err := auth.NewSessionAt(publicID, isMaster, r.ttl, r.now())
	if err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	if !session.ExpiresAt.IsZero() {
		expiresAt = &session.ExpiresAt
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO sessions (public_id, is_master, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (public_id) DO UPDATE
		SET is_master = EXCLUDED.is_master,
		    issued_at = EXCLUDED.issued_at,
		    expires_at = EXCLUDED.expires_at
	`, session.PublicID, session.IsMaster, session.IssuedAt, expiresAt)
	if err != nil {
		return nil, oops.Code("SESSION_OPEN_FAILED").
			With("operation", "upsert session").
			With("public_id", publicID).
			Wrap(err)
	}
	return session, nil
}

// Close removes the session for publicID. Deleting nothing is not an error.
func (r *SessionRegistry) Close(ctx context.Context, publicID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE public_id = $1`, publicID)
	if err != nil {
		return oops.Code("SESSION_CLOSE_FAILED").
			With("operation", "delete session").
			With("public_id", publicID).
			Wrap(err)
	}
	return nil
}

// Lookup returns the live session for publicID.
func (r *SessionRegistry) Lookup(ctx context.Context, publicID string) (*auth.Session, error) {
	row := r.db.QueryRow(ctx, `
		SELECT public_id, is_master, issued_at, expires_at
		FROM sessions
		WHERE public_id = $1 AND (expires_at IS NULL OR expires_at > $2)
	`, publicID, r.now().UTC())

	var (
		s         auth.Session
		expiresAt *time.Time
	)
	err := row.Scan(&s.PublicID, &s.IsMaster, &s.IssuedAt, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_LOOKUP_FAILED").
			With("operation", "select session").
			With("public_id", publicID).
			Wrap(err)
	}
	if expiresAt != nil {
		s.ExpiresAt = *expiresAt
	}
	return &s, nil
}

// DeleteExpired removes all expired sessions and returns the count.
func (r *SessionRegistry) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at <= $1
	`, r.now().UTC())
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface checks.
var (
	_ auth.SessionRegistry       = (*SessionRegistry)(nil)
	_ auth.ExpiredSessionDeleter = (*SessionRegistry)(nil)
)
