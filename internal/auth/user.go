// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User is a registered account. ID and PasswordHash never leave this package
// through Service results.
type User struct {
	ID           ulid.ULID
	Email        string
	PublicID     string
	PasswordHash string
	IsMaster     bool
	CreatedAt    time.Time
}

// NewUser creates a User with a fresh ID. Input shape is validated by Rules
// before this is called; NewUser only guards against empty fields.
func NewUser(email, publicID, passwordHash string, isMaster bool) (*User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, oops.Code(CodeInvalidInput).With("field", "email").Errorf("email cannot be empty")
	}
	if publicID == "" {
		return nil, oops.Code(CodeInvalidInput).With("field", "public_id").Errorf("public id cannot be empty")
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, oops.Code(CodeInvalidInput).With("field", "password_hash").Errorf("password hash cannot be empty")
	}

	return &User{
		ID:           ulid.Make(),
		Email:        email,
		PublicID:     publicID,
		PasswordHash: passwordHash,
		IsMaster:     isMaster,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// NormalizeEmail returns the form used for case-insensitive email comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRepository persists users and enforces email and publicId uniqueness.
type UserRepository interface {
	// Create stores a new user. The uniqueness check and the insert are one
	// atomic step: implementations return a DuplicateEmailError or
	// DuplicatePublicIDError when a constraint rejects the row.
	Create(ctx context.Context, user *User) error

	// GetByEmail retrieves a user by email (case-insensitive).
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByPublicID retrieves a user by publicId (exact match).
	// Returns ErrNotFound if no user has the given publicId.
	GetByPublicID(ctx context.Context, publicID string) (*User, error)

	// UpdatePassword replaces the stored hash, used when upgrading legacy hashes.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
