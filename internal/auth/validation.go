// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Default validation settings.
const (
	DefaultMinPasswordLength = 8
	DefaultMaxPasswordLength = 128
	DefaultMaxEmailLength    = 254
	DefaultEmailPattern      = `^[^@\s]+@[^@\s]+\.[^@\s]+$`
	DefaultPublicIDPattern   = `^[A-Za-z0-9_.-]{1,30}$`
)

// Rules holds the input shape checks applied before any store is touched.
type Rules struct {
	MinPasswordLength int
	MaxPasswordLength int
	MaxEmailLength    int
	Email             *regexp.Regexp
	PublicID          *regexp.Regexp
}

// DefaultRules returns the rules used when none are configured.
func DefaultRules() Rules {
	return Rules{
		MinPasswordLength: DefaultMinPasswordLength,
		MaxPasswordLength: DefaultMaxPasswordLength,
		MaxEmailLength:    DefaultMaxEmailLength,
		Email:             regexp.MustCompile(DefaultEmailPattern),
		PublicID:          regexp.MustCompile(DefaultPublicIDPattern),
	}
}

// NewRules compiles rules from configuration values. Empty patterns and
// non-positive lengths fall back to the defaults.
func NewRules(minPassword, maxPassword int, emailPattern, publicIDPattern string) (Rules, error) {
	r := DefaultRules()
	if minPassword > 0 {
		r.MinPasswordLength = minPassword
	}
	if maxPassword > 0 {
		r.MaxPasswordLength = maxPassword
	}
	if r.MinPasswordLength > r.MaxPasswordLength {
		return Rules{}, oops.Code("AUTH_RULES_INVALID").
			With("min", r.MinPasswordLength).
			With("max", r.MaxPasswordLength).
			Errorf("min password length exceeds max")
	}
	if emailPattern != "" {
		re, err := regexp.Compile(emailPattern)
		if err != nil {
			return Rules{}, oops.Code("AUTH_RULES_INVALID").With("field", "email_pattern").Wrap(err)
		}
		r.Email = re
	}
	if publicIDPattern != "" {
		re, err := regexp.Compile(publicIDPattern)
		if err != nil {
			return Rules{}, oops.Code("AUTH_RULES_INVALID").With("field", "public_id_pattern").Wrap(err)
		}
		r.PublicID = re
	}
	return r, nil
}

// ValidateEmail checks that email is non-empty and email-like.
func (r Rules) ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return invalidInput("email", "email cannot be empty")
	}
	if len(email) > r.MaxEmailLength {
		return oops.Code(CodeInvalidInput).
			With("field", "email").
			With("max", r.MaxEmailLength).
			Errorf("email must be at most %d characters", r.MaxEmailLength)
	}
	if !r.Email.MatchString(email) {
		return invalidInput("email", "email is not a valid address")
	}
	return nil
}

// ValidatePublicID checks that publicID is non-empty and matches the pattern.
func (r Rules) ValidatePublicID(publicID string) error {
	if publicID == "" {
		return invalidInput("public_id", "public id cannot be empty")
	}
	if !r.PublicID.MatchString(publicID) {
		return invalidInput("public_id", "public id contains invalid characters or is too long")
	}
	return nil
}

// ValidatePassword checks the password length in characters.
func (r Rules) ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < r.MinPasswordLength {
		return oops.Code(CodeInvalidInput).
			With("field", "password").
			With("min", r.MinPasswordLength).
			Errorf("password must be at least %d characters", r.MinPasswordLength)
	}
	if n > r.MaxPasswordLength {
		return oops.Code(CodeInvalidInput).
			With("field", "password").
			With("max", r.MaxPasswordLength).
			Errorf("password must be at most %d characters", r.MaxPasswordLength)
	}
	return nil
}

// ValidateRegister applies every rule to a registration request.
func (r Rules) ValidateRegister(in RegisterInput) error {
	if err := r.ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := r.ValidatePublicID(in.PublicID); err != nil {
		return err
	}
	return r.ValidatePassword(in.Password)
}

// ValidateSignin checks that a signin request names one identifier and
// carries a password. Length rules are not applied here so that policy
// changes never lock out existing accounts.
func (r Rules) ValidateSignin(in SigninInput) error {
	if strings.TrimSpace(in.Email) == "" && in.PublicID == "" {
		return invalidInput("identifier", "email or public id is required")
	}
	if in.Password == "" {
		return invalidInput("password", "password cannot be empty")
	}
	return nil
}

func invalidInput(field, msg string) error {
	return oops.Code(CodeInvalidInput).With("field", field).Errorf("%s", msg)
}
