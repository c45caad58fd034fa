// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

// Package auth provides registration and session authentication for campauth.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates a User with a fresh internal ID
//   - NewSession - creates a Session with an optional expiry
//
// The internal ID and password hash of a User never leave this package
// through Service results; callers only ever see an Identity.
//
// # Stores
//
// Service depends on two narrow interfaces:
//   - UserRepository - durable users with email and publicId uniqueness
//   - SessionRegistry - one live session per publicId, last writer wins
//
// Implementations live in the memory, postgres and redis subpackages.
//
// # Errors
//
// Every failure carries an oops code (CodeInvalidInput, CodeDuplicateEmail,
// CodeDuplicatePublicID, CodeInvalidCredentials, CodeNotAuthenticated,
// CodeStoreUnavailable). Use ErrorCode or HasCode to branch on them.
package auth
