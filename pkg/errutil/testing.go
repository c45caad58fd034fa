// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package errutil

import (
	"fmt"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode asserts that err carries code, read the same way Code
// reads it for callers.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	_, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	assert.Equal(t, code, Code(err), "error: %v", err)
}

// AssertErrorContext asserts that err is an oops error with the given context key/value.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	ctx := oopsErr.Context()
	assert.Contains(t, ctx, key)
	assert.Equal(t, value, ctx[key])
}

// AssertNoSecrets asserts that neither the message nor the oops context of
// err mentions any of secrets. Use it with plaintext passwords and hashes.
func AssertNoSecrets(t assert.TestingT, err error, secrets ...string) {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	if err == nil {
		return
	}
	text := err.Error()
	if oopsErr, ok := oops.AsOops(err); ok {
		text += fmt.Sprintf(" %v", oopsErr.Context())
	}
	for _, secret := range secrets {
		assert.NotContains(t, text, secret)
	}
}
