// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"

	"github.com/socialcamp/campauth/pkg/errutil"
)

// dummyPasswordHash is verified against when a user doesn't exist so that
// response time does not reveal whether the identifier is registered. It is
// used only when the hasher cannot produce its own dummy hash.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// RegisterInput is a signup request.
type RegisterInput struct {
	Email    string
	PublicID string
	Password string
	IsMaster bool
}

// SigninInput is a signin request. Exactly one of Email or PublicID is
// needed; Email wins when both are set.
type SigninInput struct {
	Email    string
	PublicID string
	Password string
}

// Identity is what the boundary receives after a successful register,
// signin, or login check.
type Identity struct {
	PublicID string
	IsMaster bool
}

func identityOf(s *Session) *Identity {
	return &Identity{PublicID: s.PublicID, IsMaster: s.IsMaster}
}

// Service orchestrates signup, signin, signout and login checks over a
// UserRepository and a SessionRegistry. It keeps no state between calls and
// is safe for concurrent use.
type Service struct {
	users     UserRepository
	sessions  SessionRegistry
	hasher    PasswordHasher
	rules     Rules
	logger    *slog.Logger
	metrics   Metrics
	hashSlots *semaphore.Weighted
	dummyHash string
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			return oops.Code("AUTH_SERVICE_INVALID").Errorf("logger is required")
		}
		s.logger = logger
		return nil
	}
}

// WithRules replaces DefaultRules. Zero length limits take the defaults.
func WithRules(rules Rules) Option {
	return func(s *Service) error {
		if rules.Email == nil || rules.PublicID == nil {
			return oops.Code("AUTH_SERVICE_INVALID").Errorf("rules must have email and public id patterns")
		}
		d := DefaultRules()
		if rules.MinPasswordLength <= 0 {
			rules.MinPasswordLength = d.MinPasswordLength
		}
		if rules.MaxPasswordLength <= 0 {
			rules.MaxPasswordLength = d.MaxPasswordLength
		}
		if rules.MaxEmailLength <= 0 {
			rules.MaxEmailLength = d.MaxEmailLength
		}
		if rules.MinPasswordLength > rules.MaxPasswordLength {
			return oops.Code("AUTH_SERVICE_INVALID").
				With("min", rules.MinPasswordLength).
				With("max", rules.MaxPasswordLength).
				Errorf("min password length exceeds max")
		}
		s.rules = rules
		return nil
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) error {
		if m == nil {
			return oops.Code("AUTH_SERVICE_INVALID").Errorf("metrics is required")
		}
		s.metrics = m
		return nil
	}
}

// WithHashConcurrency bounds how many password hashes run at once.
// n <= 0 means GOMAXPROCS.
func WithHashConcurrency(n int) Option {
	return func(s *Service) error {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		s.hashSlots = semaphore.NewWeighted(int64(n))
		return nil
	}
}

// NewAuthService creates a new Service.
func NewAuthService(users UserRepository, sessions SessionRegistry, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("session registry is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}

	s := &Service{
		users:     users,
		sessions:  sessions,
		hasher:    hasher,
		rules:     DefaultRules(),
		logger:    slog.Default(),
		metrics:   noopMetrics{},
		hashSlots: semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
		dummyHash: dummyPasswordHash,
	}
	if d, ok := hasher.(interface{ DummyHash() string }); ok {
		s.dummyHash = d.DummyHash()
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register creates a user and opens its first session.
func (s *Service) Register(ctx context.Context, in RegisterInput) (_ *Identity, err error) {
	defer func() { s.metrics.ObserveOperation(OpRegister, resultOf(err)) }()

	in.Email = strings.TrimSpace(in.Email)
	if err := s.rules.ValidateRegister(in); err != nil {
		return nil, err
	}

	// The probes give a fast, specific answer; the store constraint is what
	// actually guarantees uniqueness under concurrent registrations.
	taken, err := s.emailTaken(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, DuplicateEmailError(nil)
	}
	taken, err = s.publicIDTaken(ctx, in.PublicID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, DuplicatePublicIDError(nil)
	}

	var hash string
	var hashErr error
	if err := s.withHashSlot(ctx, func() { hash, hashErr = s.hasher.Hash(in.Password) }); err != nil {
		return nil, err
	}
	if hashErr != nil {
		return nil, oops.Code("AUTH_HASH_FAILED").With("operation", "hash password").Wrap(hashErr)
	}

	user, err := NewUser(in.Email, in.PublicID, hash, in.IsMaster)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, oops.With("operation", "register").Wrap(err)
	}

	// Past this point the caller can no longer abandon the request: the user
	// row and its session are written together or the error is reported.
	commitCtx := context.WithoutCancel(ctx)

	if err := s.users.Create(commitCtx, user); err != nil {
		if HasCode(err, CodeDuplicateEmail) || HasCode(err, CodeDuplicatePublicID) {
			return nil, err
		}
		errutil.LogErrorContext(ctx, s.logger, "create user failed", err)
		return nil, storeUnavailable("create user")
	}

	session, err := s.sessions.Open(commitCtx, user.PublicID, user.IsMaster)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "open session after register failed", err)
		return nil, storeUnavailable("open session")
	}

	s.logger.InfoContext(ctx, "user registered", "public_id", user.PublicID, "is_master", user.IsMaster)
	return identityOf(session), nil
}

// Authenticate verifies credentials and opens (or replaces) the session.
// Unknown identifiers and wrong passwords fail with the same error.
func (s *Service) Authenticate(ctx context.Context, in SigninInput) (_ *Identity, err error) {
	defer func() { s.metrics.ObserveOperation(OpAuthenticate, resultOf(err)) }()

	if err := s.rules.ValidateSignin(in); err != nil {
		return nil, err
	}

	user, lookupErr := s.lookupUser(ctx, in)

	targetHash := s.dummyHash
	userExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			errutil.LogErrorContext(ctx, s.logger, "signin lookup failed", lookupErr)
			return nil, storeUnavailable("get user")
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always verify, even for unknown users, to keep timing uniform.
	var valid bool
	var verifyErr error
	if err := s.withHashSlot(ctx, func() { valid, verifyErr = s.hasher.Verify(in.Password, targetHash) }); err != nil {
		return nil, err
	}
	if verifyErr != nil && userExists {
		errutil.LogErrorContext(ctx, s.logger, "stored password hash unreadable", verifyErr)
	}

	if !userExists || !valid || verifyErr != nil {
		reason := "bad_password"
		if !userExists {
			reason = "unknown_user"
		}
		s.logger.DebugContext(ctx, "signin failed", "reason", reason)
		return nil, invalidCredentials()
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, in.Password)
	}

	if err := ctx.Err(); err != nil {
		return nil, oops.With("operation", "authenticate").Wrap(err)
	}

	session, err := s.sessions.Open(ctx, user.PublicID, user.IsMaster)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "open session after signin failed", err)
		return nil, storeUnavailable("open session")
	}
	return identityOf(session), nil
}

// Signout closes the session for publicID. An empty publicID is a no-op.
// Registry failures are logged, never returned.
func (s *Service) Signout(ctx context.Context, publicID string) {
	if publicID == "" {
		s.metrics.ObserveOperation(OpSignout, "ok")
		return
	}
	if err := s.sessions.Close(ctx, publicID); err != nil {
		s.metrics.ObserveOperation(OpSignout, CodeStoreUnavailable)
		s.logger.WarnContext(ctx, "best-effort session close failed",
			"operation", "close_session",
			"public_id", publicID,
			"error", err.Error())
		return
	}
	s.metrics.ObserveOperation(OpSignout, "ok")
}

// CheckLogin returns the identity behind a live session. Callers must clear
// any client-held session identifiers when it fails with CodeNotAuthenticated.
func (s *Service) CheckLogin(ctx context.Context, publicID string) (_ *Identity, err error) {
	defer func() { s.metrics.ObserveOperation(OpCheckLogin, resultOf(err)) }()

	if publicID == "" {
		return nil, notAuthenticated()
	}

	session, err := s.sessions.Lookup(ctx, publicID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notAuthenticated()
		}
		errutil.LogErrorContext(ctx, s.logger, "session lookup failed", err)
		return nil, storeUnavailable("lookup session")
	}
	if session.IsExpired() {
		return nil, notAuthenticated()
	}
	return identityOf(session), nil
}

// EmailExists reports whether email is registered (case-insensitive).
func (s *Service) EmailExists(ctx context.Context, email string) (_ bool, err error) {
	defer func() { s.metrics.ObserveOperation(OpEmailExists, resultOf(err)) }()
	return s.emailTaken(ctx, strings.TrimSpace(email))
}

// PublicIDExists reports whether publicID is taken (exact match).
func (s *Service) PublicIDExists(ctx context.Context, publicID string) (_ bool, err error) {
	defer func() { s.metrics.ObserveOperation(OpPublicExists, resultOf(err)) }()
	return s.publicIDTaken(ctx, publicID)
}

func (s *Service) emailTaken(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, nil
	}
	_, err := s.users.GetByEmail(ctx, email)
	return s.taken(ctx, "get user by email", err)
}

func (s *Service) publicIDTaken(ctx context.Context, publicID string) (bool, error) {
	if publicID == "" {
		return false, nil
	}
	_, err := s.users.GetByPublicID(ctx, publicID)
	return s.taken(ctx, "get user by public id", err)
}

func (s *Service) taken(ctx context.Context, operation string, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		errutil.LogErrorContext(ctx, s.logger, operation+" failed", err)
		return false, storeUnavailable(operation)
	}
}

func (s *Service) lookupUser(ctx context.Context, in SigninInput) (*User, error) {
	if email := strings.TrimSpace(in.Email); email != "" {
		return s.users.GetByEmail(ctx, email)
	}
	return s.users.GetByPublicID(ctx, in.PublicID)
}

// upgradeHash rehashes a legacy password after a successful signin.
// Failure leaves the old hash in place.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	var newHash string
	var hashErr error
	if err := s.withHashSlot(ctx, func() { newHash, hashErr = s.hasher.Hash(password) }); err != nil {
		return
	}
	if hashErr == nil {
		hashErr = s.users.UpdatePassword(ctx, user.ID, newHash)
	}
	if hashErr != nil {
		s.logger.WarnContext(ctx, "best-effort password hash upgrade failed",
			"operation", "upgrade_hash",
			"public_id", user.PublicID,
			"error", hashErr.Error())
	}
}

// withHashSlot runs fn while holding one hashing slot.
func (s *Service) withHashSlot(ctx context.Context, fn func()) error {
	if err := s.hashSlots.Acquire(ctx, 1); err != nil {
		return oops.With("operation", "acquire hash slot").Wrap(err)
	}
	defer s.hashSlots.Release(1)

	start := time.Now()
	fn()
	s.metrics.ObserveHash(time.Since(start))
	return nil
}
