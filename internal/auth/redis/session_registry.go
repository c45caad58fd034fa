// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

// Package redis implements auth.SessionRegistry on Redis.
package redis

import (
	"context"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/socialcamp/campauth/internal/auth"
)

// DefaultKeyPrefix namespaces session keys.
const DefaultKeyPrefix = "campauth:session:"

const (
	fieldIsMaster = "is_master"
	fieldIssuedAt = "issued_at"
)

// SessionRegistry stores one hash per publicId. Expiry is delegated to Redis
// key TTLs, so there is nothing to sweep.
type SessionRegistry struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a SessionRegistry.
type Option func(*SessionRegistry)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(r *SessionRegistry) { r.prefix = prefix }
}

// NewSessionRegistry creates a registry. A ttl of zero disables expiry.
func NewSessionRegistry(client goredis.UniversalClient, ttl time.Duration, opts ...Option) *SessionRegistry {
	r := &SessionRegistry{
		client: client,
		prefix: DefaultKeyPrefix,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SessionRegistry) key(publicID string) string {
	return r.prefix + publicID
}

// Open creates or replaces the session for publicID. The whole write runs
// in MULTI/EXEC so a concurrent Close sees either the old or the new session.
func (r *SessionRegistry) Open(ctx context.Context, publicID string, isMaster bool) (*auth.Session, error) {
	session, err := auth.NewSessionAt(publicID, isMaster, r.ttl, r.now())
	if err != nil {
		return nil, err
	}

	key := r.key(publicID)
	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldIsMaster, strconv.FormatBool(session.IsMaster),
			fieldIssuedAt, strconv.FormatInt(session.IssuedAt.UnixNano(), 10),
		)
		if r.ttl > 0 {
			pipe.PExpire(ctx, key, r.ttl)
		} else {
			pipe.Persist(ctx, key)
		}
		return nil
	})
	if err != nil {
		return nil, oops.Code("SESSION_OPEN_FAILED").
			With("operation", "redis hset").
			With("public_id", publicID).
			Wrap(err)
	}
	return session, nil
}

// Close removes the session for publicID.
func (r *SessionRegistry) Close(ctx context.Context, publicID string) error {
	if err := r.client.Del(ctx, r.key(publicID)).Err(); err != nil {
		return oops.Code("SESSION_CLOSE_FAILED").
			With("operation", "redis del").
			With("public_id", publicID).
			Wrap(err)
	}
	return nil
}

// Lookup returns the live session for publicID.
func (r *SessionRegistry) Lookup(ctx context.Context, publicID string) (*auth.Session, error) {
	fields, err := r.client.HGetAll(ctx, r.key(publicID)).Result()
	if err != nil {
		return nil, oops.Code("SESSION_LOOKUP_FAILED").
			With("operation", "redis hgetall").
			With("public_id", publicID).
			Wrap(err)
	}
	if len(fields) == 0 {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}

	isMaster, err := strconv.ParseBool(fields[fieldIsMaster])
	if err != nil {
		return nil, oops.Code("SESSION_CORRUPT").With("field", fieldIsMaster).Wrap(err)
	}
	issuedNanos, err := strconv.ParseInt(fields[fieldIssuedAt], 10, 64)
	if err != nil {
		return nil, oops.Code("SESSION_CORRUPT").With("field", fieldIssuedAt).Wrap(err)
	}

	s := &auth.Session{
		PublicID: publicID,
		IsMaster: isMaster,
		IssuedAt: time.Unix(0, issuedNanos).UTC(),
	}
	if r.ttl > 0 {
		s.ExpiresAt = s.IssuedAt.Add(r.ttl)
	}
	return s, nil
}

var _ auth.SessionRegistry = (*SessionRegistry)(nil)
