// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/socialcamp/campauth/internal/auth"
)

const userColumns = `id, email, public_id, password_hash, is_master, created_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user. The unique indexes on LOWER(email) and
// public_id make the check and the insert a single atomic statement.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		user.ID.String(),
		user.Email,
		user.PublicID,
		user.PasswordHash,
		user.IsMaster,
		user.CreatedAt,
	)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch pgErr.ConstraintName {
		case constraintEmail:
			return auth.DuplicateEmailError(err)
		case constraintPublicID:
			return auth.DuplicatePublicIDError(err)
		}
	}
	return oops.Code("USER_CREATE_FAILED").
		With("operation", "insert user").
		With("public_id", user.PublicID).
		Wrap(err)
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return user, nil
}

// GetByPublicID retrieves a user by publicId (exact).
func (r *UserRepository) GetByPublicID(ctx context.Context, publicID string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE public_id = $1
	`, publicID)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("public_id", publicID).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_PUBLIC_ID_FAILED").
			With("operation", "get user by public id").
			With("public_id", publicID).
			Wrap(err)
	}
	return user, nil
}

// UpdatePassword updates only the password hash for a user.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now().UTC())
	if err != nil {
		return oops.Code("USER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User. Scan errors, pgx.ErrNoRows
// included, are returned unwrapped.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr        string
		email        string
		publicID     string
		passwordHash string
		isMaster     bool
		createdAt    time.Time
	)

	if err := row.Scan(&idStr, &email, &publicID, &passwordHash, &isMaster, &createdAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with their own code
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			Wrap(err)
	}

	return &auth.User{
		ID:           id,
		Email:        email,
		PublicID:     publicID,
		PasswordHash: passwordHash,
		IsMaster:     isMaster,
		CreatedAt:    createdAt,
	}, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
