// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialcamp/campauth/internal/auth"
	"github.com/socialcamp/campauth/pkg/errutil"
)

func newTestRegistry(t *testing.T, ttl time.Duration, opts ...Option) (*SessionRegistry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionRegistry(client, ttl, opts...), mr
}

func TestSessionRegistry_OpenLookupClose(t *testing.T) {
	ctx := context.Background()
	reg, mr := newTestRegistry(t, 0)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	opened, err := reg.Open(ctx, "ann", true)
	require.NoError(t, err)
	assert.True(t, mr.Exists(DefaultKeyPrefix+"ann"))
	assert.Zero(t, mr.TTL(DefaultKeyPrefix+"ann"), "no ttl configured")

	got, err := reg.Lookup(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, opened, got)

	require.NoError(t, reg.Close(ctx, "ann"))
	require.NoError(t, reg.Close(ctx, "ann"), "closing twice is fine")

	_, err = reg.Lookup(ctx, "ann")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSessionRegistry_OpenReplaces(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t, 0)

	_, err := reg.Open(ctx, "ann", false)
	require.NoError(t, err)
	_, err = reg.Open(ctx, "ann", true)
	require.NoError(t, err)

	got, err := reg.Lookup(ctx, "ann")
	require.NoError(t, err)
	assert.True(t, got.IsMaster)
}

func TestSessionRegistry_TTL(t *testing.T) {
	ctx := context.Background()
	reg, mr := newTestRegistry(t, time.Minute)

	opened, err := reg.Open(ctx, "ann", false)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(DefaultKeyPrefix+"ann"))

	got, err := reg.Lookup(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, opened.ExpiresAt, got.ExpiresAt)

	mr.FastForward(time.Minute)

	_, err = reg.Lookup(ctx, "ann")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSessionRegistry_KeyPrefix(t *testing.T) {
	reg, mr := newTestRegistry(t, 0, WithKeyPrefix("test:"))

	_, err := reg.Open(context.Background(), "ann", false)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:ann"))
	assert.False(t, mr.Exists(DefaultKeyPrefix+"ann"))
}

func TestSessionRegistry_CorruptHash(t *testing.T) {
	reg, mr := newTestRegistry(t, 0)
	mr.HSet(DefaultKeyPrefix+"ann", fieldIsMaster, "maybe", fieldIssuedAt, "0")

	_, err := reg.Lookup(context.Background(), "ann")
	errutil.AssertErrorCode(t, err, "SESSION_CORRUPT")
	errutil.AssertErrorContext(t, err, "field", fieldIsMaster)
}

func TestSessionRegistry_ServerDown(t *testing.T) {
	ctx := context.Background()
	reg, mr := newTestRegistry(t, 0)
	mr.Close()

	_, err := reg.Open(ctx, "ann", false)
	errutil.AssertErrorCode(t, err, "SESSION_OPEN_FAILED")

	errutil.AssertErrorCode(t, reg.Close(ctx, "ann"), "SESSION_CLOSE_FAILED")

	_, err = reg.Lookup(ctx, "ann")
	errutil.AssertErrorCode(t, err, "SESSION_LOOKUP_FAILED")
	assert.NotErrorIs(t, err, auth.ErrNotFound)
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid url", func(t *testing.T) {
		_, err := Connect(ctx, "http://localhost")
		errutil.AssertErrorCode(t, err, "REDIS_URL_INVALID")
	})

	t.Run("reachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := Connect(ctx, "redis://"+mr.Addr()+"/0")
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })
		assert.NoError(t, client.Ping(ctx).Err())
	})

	t.Run("unreachable server gives up when the context ends", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
		defer cancel()
		_, err := Connect(ctx, "redis://127.0.0.1:1/0")
		errutil.AssertErrorCode(t, err, "REDIS_CONNECT_FAILED")
	})
}
