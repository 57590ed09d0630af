// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package auth implements the credential and session core of Passgate.
//
// # Domain Types
//
// User and Session are plain records persisted through the
// UserRepository and SessionRepository interfaces. Session tokens are
// opaque: 256 random bits, URL-safe base64 without padding, generated
// by GenerateSessionID.
//
// # Services
//
// Service orchestrates the four client-facing operations (Signup,
// Login, Verify, Logout) and returns uniform result values with stable,
// client-safe messages. SessionManager implements the find-or-renew
// protocol that keeps at most one live session per user.
//
// Services are created with New* constructors that validate their
// dependencies; the *WithLogger variants attach a structured diagnostic
// sink for internal failures.
package auth
