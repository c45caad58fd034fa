// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package web

import (
	"net/http"

	"github.com/socialcamp/campauth/internal/auth"
)

// Codes the boundary reports on its own.
const (
	codeInternal    = "INTERNAL"
	codeRateLimited = "RATE_LIMITED"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client-facing messages are fixed per code; error detail stays in the logs.
var errorMessages = map[string]string{
	auth.CodeInvalidInput:       "request is invalid",
	auth.CodeDuplicateEmail:     "email is already registered",
	auth.CodeDuplicatePublicID:  "public id is already taken",
	auth.CodeInvalidCredentials: "invalid credentials",
	auth.CodeNotAuthenticated:   "not logged in",
	auth.CodeStoreUnavailable:   "service temporarily unavailable",
	codeInternal:                "internal error",
	codeRateLimited:             "too many attempts, try again later",
}

// statusFor maps an auth error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case auth.CodeInvalidInput:
		return http.StatusBadRequest
	case auth.CodeDuplicateEmail, auth.CodeDuplicatePublicID:
		return http.StatusConflict
	case auth.CodeInvalidCredentials, auth.CodeNotAuthenticated:
		return http.StatusUnauthorized
	case auth.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case codeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// publicCode returns the code reported to clients. Codes outside the auth
// error set are internal detail and collapse to codeInternal.
func publicCode(err error) string {
	code := auth.ErrorCode(err)
	if _, ok := errorMessages[code]; !ok {
		return codeInternal
	}
	return code
}
