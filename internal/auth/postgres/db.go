// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

// Package postgres implements the auth stores on PostgreSQL via pgx.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the repositories use. pgxmock's pool
// satisfies it, which keeps unit tests free of a live database.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Constraint names created by the users migration.
const (
	constraintEmail    = "users_email_lower_key"
	constraintPublicID = "users_public_id_key"
)
