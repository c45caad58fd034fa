// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"

	"github.com/socialcamp/campauth/pkg/errutil"
)

// ErrNotFound is returned by repositories and registries when a requested
// user or session does not exist.
var ErrNotFound = errors.New("not found")

// Error codes returned by Service. Callers branch on these codes, never on
// message text.
const (
	CodeInvalidInput       = "AUTH_INVALID_INPUT"
	CodeDuplicateEmail     = "AUTH_DUPLICATE_EMAIL"
	CodeDuplicatePublicID  = "AUTH_DUPLICATE_PUBLIC_ID"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeNotAuthenticated   = "AUTH_NOT_AUTHENTICATED"
	CodeStoreUnavailable   = "AUTH_STORE_UNAVAILABLE"
)

// ErrorCode returns the oops code attached to err, or "" if there is none.
func ErrorCode(err error) string {
	return errutil.Code(err)
}

// HasCode reports whether err carries the given oops code.
func HasCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// DuplicateEmailError builds the error repositories return when the email
// uniqueness constraint rejects an insert.
func DuplicateEmailError(cause error) error {
	b := oops.Code(CodeDuplicateEmail).With("field", "email")
	if cause == nil {
		return b.Errorf("email is already registered")
	}
	return b.Wrapf(cause, "email is already registered")
}

// DuplicatePublicIDError builds the error repositories return when the
// publicId uniqueness constraint rejects an insert.
func DuplicatePublicIDError(cause error) error {
	b := oops.Code(CodeDuplicatePublicID).With("field", "public_id")
	if cause == nil {
		return b.Errorf("public id is already taken")
	}
	return b.Wrapf(cause, "public id is already taken")
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid credentials")
}

func notAuthenticated() error {
	return oops.Code(CodeNotAuthenticated).Errorf("not logged in")
}

// storeUnavailable hides driver detail behind a generic message. Callers log
// the cause before returning it. The cause is not wrapped: oops reports the
// deepest code in a chain, and repository codes must not shadow this one.
func storeUnavailable(operation string) error {
	return oops.Code(CodeStoreUnavailable).
		With("operation", operation).
		Errorf("credential store unavailable")
}
