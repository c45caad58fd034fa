// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialcamp/campauth/internal/auth"
	"github.com/socialcamp/campauth/pkg/errutil"
)

var sessionRowColumns = []string{"public_id", "is_master", "issued_at", "expires_at"}

func fixedClock(r *SessionRegistry, now time.Time) {
	r.now = func() time.Time { return now }
}

func TestSessionRegistry_Open(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("without ttl stores null expiry", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO sessions .* ON CONFLICT \(public_id\) DO UPDATE`).
			WithArgs("ann", true, now, (*time.Time)(nil)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		reg := NewSessionRegistry(mock, 0)
		fixedClock(reg, now)
		s, err := reg.Open(ctx, "ann", true)
		require.NoError(t, err)
		assert.True(t, s.ExpiresAt.IsZero())
	})

	t.Run("with ttl", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs("ann", false, now, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		reg := NewSessionRegistry(mock, time.Hour)
		fixedClock(reg, now)
		s, err := reg.Open(ctx, "ann", false)
		require.NoError(t, err)
		assert.Equal(t, now.Add(time.Hour), s.ExpiresAt)
	})

	t.Run("exec error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs("ann", false, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection refused"))

		_, err := NewSessionRegistry(mock, 0).Open(ctx, "ann", false)
		errutil.AssertErrorCode(t, err, "SESSION_OPEN_FAILED")
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("empty public id never reaches the database", func(t *testing.T) {
		mock := newMockPool(t)
		_, err := NewSessionRegistry(mock, 0).Open(ctx, "", false)
		require.Error(t, err)
	})
}

func TestSessionRegistry_Close(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	mock.ExpectExec(`DELETE FROM sessions WHERE public_id = \$1`).
		WithArgs("ann").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM sessions WHERE public_id = \$1`).
		WithArgs("ann").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM sessions WHERE public_id = \$1`).
		WithArgs("ann").
		WillReturnError(errors.New("connection refused"))

	reg := NewSessionRegistry(mock, 0)
	require.NoError(t, reg.Close(ctx, "ann"))
	require.NoError(t, reg.Close(ctx, "ann"), "deleting nothing is fine")
	errutil.AssertErrorCode(t, reg.Close(ctx, "ann"), "SESSION_CLOSE_FAILED")
}

func TestSessionRegistry_Lookup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	expires := now.Add(time.Hour)

	t.Run("live session", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM sessions`).
			WithArgs("ann", now).
			WillReturnRows(pgxmock.NewRows(sessionRowColumns).AddRow("ann", true, now, &expires))

		reg := NewSessionRegistry(mock, time.Hour)
		fixedClock(reg, now)
		s, err := reg.Lookup(ctx, "ann")
		require.NoError(t, err)
		assert.Equal(t, &auth.Session{PublicID: "ann", IsMaster: true, IssuedAt: now, ExpiresAt: expires}, s)
	})

	t.Run("missing or expired", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM sessions`).WithArgs("ann", pgxmock.AnyArg()).WillReturnError(pgx.ErrNoRows)

		_, err := NewSessionRegistry(mock, 0).Lookup(ctx, "ann")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("query error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM sessions`).WithArgs("ann", pgxmock.AnyArg()).WillReturnError(errors.New("timeout"))

		_, err := NewSessionRegistry(mock, 0).Lookup(ctx, "ann")
		errutil.AssertErrorCode(t, err, "SESSION_LOOKUP_FAILED")
		assert.NotErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionRegistry_DeleteExpired(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at IS NOT NULL`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := NewSessionRegistry(mock, time.Minute).DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
