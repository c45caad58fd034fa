// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package memory

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/socialcamp/campauth/internal/auth"
)

// UserRepository implements auth.UserRepository in memory.
type UserRepository struct {
	mu         sync.RWMutex
	byID       map[ulid.ULID]*auth.User
	byEmail    map[string]ulid.ULID
	byPublicID map[string]ulid.ULID
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[ulid.ULID]*auth.User),
		byEmail:    make(map[string]ulid.ULID),
		byPublicID: make(map[string]ulid.ULID),
	}
}

// Create stores a new user. Both uniqueness checks and the insert happen
// under one lock.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("USER_CREATE_FAILED").With("operation", "insert user").Wrap(err)
	}

	email := auth.NormalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return auth.DuplicateEmailError(nil)
	}
	if _, ok := r.byPublicID[user.PublicID]; ok {
		return auth.DuplicatePublicIDError(nil)
	}

	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[email] = user.ID
	r.byPublicID[user.PublicID] = user.ID
	return nil
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").Wrap(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return r.copyOf(id), nil
}

// GetByPublicID retrieves a user by publicId (exact).
func (r *UserRepository) GetByPublicID(ctx context.Context, publicID string) (*auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("USER_GET_BY_PUBLIC_ID_FAILED").Wrap(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPublicID[publicID]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("public_id", publicID).Wrap(auth.ErrNotFound)
	}
	return r.copyOf(id), nil
}

// UpdatePassword replaces the stored hash for id.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("USER_UPDATE_PASSWORD_FAILED").Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	return nil
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// copyOf must be called with r.mu held.
func (r *UserRepository) copyOf(id ulid.ULID) *auth.User {
	u := *r.byID[id]
	return &u
}

var _ auth.UserRepository = (*UserRepository)(nil)
