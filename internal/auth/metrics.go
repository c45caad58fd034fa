// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package auth

import "time"

// Operation names reported to Metrics.
const (
	OpRegister     = "register"
	OpAuthenticate = "authenticate"
	OpSignout      = "signout"
	OpCheckLogin   = "check_login"
	OpEmailExists  = "email_exists"
	OpPublicExists = "public_id_exists"
)

// Metrics receives counters from Service. observability.Metrics is the
// Prometheus implementation.
type Metrics interface {
	// ObserveOperation records the outcome of a Service call. result is
	// "ok" or the error code.
	ObserveOperation(operation, result string)

	// ObserveHash records the duration of one password hash or verify.
	ObserveHash(d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, string) {}
func (noopMetrics) ObserveHash(time.Duration)       {}

func resultOf(err error) string {
	if err == nil {
		return "ok"
	}
	if code := ErrorCode(err); code != "" {
		return code
	}
	return "error"
}
