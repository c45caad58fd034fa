// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

// Package web exposes auth.Service over HTTP. It owns the JSON request and
// response shapes, the publicId/isMaster cookies, and the mapping from
// auth error codes to HTTP status codes.
package web
