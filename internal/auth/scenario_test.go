// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package auth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialcamp/campauth/internal/auth"
	"github.com/socialcamp/campauth/internal/auth/memory"
	"github.com/socialcamp/campauth/pkg/errutil"
)

func newMemoryService(t *testing.T) (*auth.Service, *memory.UserRepository) {
	t.Helper()
	users := memory.NewUserRepository()
	svc, err := auth.NewAuthService(users, memory.NewSessionRegistry(0), fastHasher())
	require.NoError(t, err)
	return svc, users
}

func TestWithRules_ZeroLimitsTakeDefaults(t *testing.T) {
	ctx := context.Background()
	rules := auth.DefaultRules()
	partial := auth.Rules{Email: rules.Email, PublicID: rules.PublicID}

	svc, err := auth.NewAuthService(memory.NewUserRepository(), memory.NewSessionRegistry(0), fastHasher(),
		auth.WithRules(partial))
	require.NoError(t, err)

	_, err = svc.Register(ctx, auth.RegisterInput{Email: "a@x.com", PublicID: "alice", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, auth.RegisterInput{Email: "b@x.com", PublicID: "bob", Password: "short"})
	errutil.AssertErrorCode(t, err, auth.CodeInvalidInput)
	errutil.AssertErrorContext(t, err, "field", "password")

	inverted := partial
	inverted.MinPasswordLength, inverted.MaxPasswordLength = 20, 10
	_, err = auth.NewAuthService(memory.NewUserRepository(), memory.NewSessionRegistry(0), fastHasher(),
		auth.WithRules(inverted))
	errutil.AssertErrorCode(t, err, "AUTH_SERVICE_INVALID")
}

func TestScenario_RegisterSigninSignout(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t)

	id, err := svc.Register(ctx, auth.RegisterInput{Email: "a@x.com", PublicID: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, &auth.Identity{PublicID: "alice", IsMaster: false}, id)

	_, err = svc.Authenticate(ctx, auth.SigninInput{PublicID: "alice", Password: "wrong"})
	errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)

	id, err = svc.Authenticate(ctx, auth.SigninInput{PublicID: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "alice", id.PublicID)

	svc.Signout(ctx, "alice")

	_, err = svc.CheckLogin(ctx, "alice")
	errutil.AssertErrorCode(t, err, auth.CodeNotAuthenticated)
}

func TestProperty_RegisterThenCheckLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t)

	for i, master := range []bool{false, true, false} {
		in := auth.RegisterInput{
			Email:    fmt.Sprintf("user%d@camp.io", i),
			PublicID: fmt.Sprintf("user_%d", i),
			Password: "secret123",
			IsMaster: master,
		}
		registered, err := svc.Register(ctx, in)
		require.NoError(t, err)

		checked, err := svc.CheckLogin(ctx, registered.PublicID)
		require.NoError(t, err)
		assert.Equal(t, registered, checked)
		assert.Equal(t, master, checked.IsMaster)
	}
}

func TestProperty_Duplicates(t *testing.T) {
	ctx := context.Background()
	svc, users := newMemoryService(t)

	_, err := svc.Register(ctx, auth.RegisterInput{Email: "a@x.com", PublicID: "alice", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, auth.RegisterInput{Email: "A@X.com", PublicID: "alice2", Password: "secret123"})
	errutil.AssertErrorCode(t, err, auth.CodeDuplicateEmail)

	_, err = svc.Register(ctx, auth.RegisterInput{Email: "b@x.com", PublicID: "alice", Password: "secret123"})
	errutil.AssertErrorCode(t, err, auth.CodeDuplicatePublicID)

	assert.Equal(t, 1, users.Len())
}

func TestProperty_UnknownAndWrongPasswordAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t)
	_, err := svc.Register(ctx, auth.RegisterInput{Email: "a@x.com", PublicID: "alice", Password: "secret123"})
	require.NoError(t, err)

	wrongPassword, errA := svc.Authenticate(ctx, auth.SigninInput{Email: "a@x.com", Password: "wrong-password"})
	unknownUser, errB := svc.Authenticate(ctx, auth.SigninInput{Email: "nobody@x.com", Password: "secret123"})

	assert.Nil(t, wrongPassword)
	assert.Nil(t, unknownUser)
	assert.Equal(t, auth.ErrorCode(errA), auth.ErrorCode(errB))
	assert.Equal(t, auth.CodeInvalidCredentials, auth.ErrorCode(errA))
	assert.Equal(t, errA.Error(), errB.Error())
}

func TestProperty_SignoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t)

	// No session ever existed.
	svc.Signout(ctx, "ghost")
	svc.Signout(ctx, "ghost")
	_, err := svc.CheckLogin(ctx, "ghost")
	errutil.AssertErrorCode(t, err, auth.CodeNotAuthenticated)

	_, err = svc.Register(ctx, auth.RegisterInput{Email: "a@x.com", PublicID: "alice", Password: "secret123"})
	require.NoError(t, err)
	svc.Signout(ctx, "alice")
	svc.Signout(ctx, "alice")
	_, err = svc.CheckLogin(ctx, "alice")
	errutil.AssertErrorCode(t, err, auth.CodeNotAuthenticated)
}

func TestProperty_RepeatedSigninRefreshesSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t)
	_, err := svc.Register(ctx, auth.RegisterInput{Email: "a@x.com", PublicID: "alice", Password: "secret123", IsMaster: true})
	require.NoError(t, err)

	for range 3 {
		id, err := svc.Authenticate(ctx, auth.SigninInput{Email: "a@x.com", Password: "secret123"})
		require.NoError(t, err)
		assert.True(t, id.IsMaster)
	}
	_, err = svc.CheckLogin(ctx, "alice")
	require.NoError(t, err)
}

func TestProperty_ConcurrentRegisterSamePublicID(t *testing.T) {
	ctx := context.Background()

	for round := range 20 {
		svc, users := newMemoryService(t)

		var wg sync.WaitGroup
		start := make(chan struct{})
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, errs[i] = svc.Register(ctx, auth.RegisterInput{
					Email:    fmt.Sprintf("racer%d@camp.io", i),
					PublicID: "racer",
					Password: "secret123",
				})
			}()
		}
		close(start)
		wg.Wait()

		var ok, dup int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case auth.HasCode(err, auth.CodeDuplicatePublicID):
				dup++
			default:
				t.Fatalf("round %d: unexpected error %v", round, err)
			}
		}
		assert.Equal(t, 1, ok, "round %d", round)
		assert.Equal(t, 1, dup, "round %d", round)
		assert.Equal(t, 1, users.Len(), "round %d", round)
	}
}

func TestService_UpgradesLegacyHashOnSignin(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	weak := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 512, Threads: 1})
	legacyHash, err := weak.Hash("secret123")
	require.NoError(t, err)
	user, err := auth.NewUser("a@x.com", "alice", legacyHash, false)
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, user))

	hasher := fastHasher()
	svc, err := auth.NewAuthService(users, memory.NewSessionRegistry(0), hasher)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, auth.SigninInput{PublicID: "alice", Password: "secret123"})
	require.NoError(t, err)

	stored, err := users.GetByPublicID(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, legacyHash, stored.PasswordHash)
	assert.False(t, hasher.NeedsUpgrade(stored.PasswordHash))

	_, err = svc.Authenticate(ctx, auth.SigninInput{PublicID: "alice", Password: "secret123"})
	require.NoError(t, err, "upgraded hash still verifies")
}
