// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

// Package memory provides process-local implementations of
// auth.UserRepository and auth.SessionRegistry for tests and single-node
// development. Nothing survives a restart.
package memory
