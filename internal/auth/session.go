// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes = 32                 // 256 bits of entropy
	SessionIDLength   = 43                 // 32 bytes base64url-encoded, no padding
	SessionTTL        = 7 * 24 * time.Hour // extended on every renewal
)

// Session represents a server-side session row. The session id itself is
// the opaque token handed to clients; it carries no decodable structure.
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
}

// LiveAt reports whether the session is live (not expired) at t.
func (s *Session) LiveAt(t time.Time) bool {
	return s.ExpiresAt.After(t)
}

// GenerateSessionID creates a cryptographically random session token.
// Predictable tokens would allow account takeover, so the only entropy
// source is crypto/rand.
func GenerateSessionID() (string, error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SessionRepository manages session persistence. A session is live iff
// its expiry is strictly after the supplied instant; expired rows are
// never treated as valid but are not reaped in the background.
type SessionRepository interface {
	// FindLiveByUser returns the session id of a live session for the
	// user, or ErrNotFound if none exists.
	FindLiveByUser(ctx context.Context, userID int64, now time.Time) (string, error)

	// Renew updates the expiry of an existing session.
	Renew(ctx context.Context, sessionID string, expiresAt time.Time) error

	// Create inserts a new session row.
	Create(ctx context.Context, sessionID string, userID int64, expiresAt time.Time) error

	// GetUserByLiveSession returns the owning user of a live session, or
	// ErrNotFound if the session is absent or expired.
	GetUserByLiveSession(ctx context.Context, sessionID string, now time.Time) (int64, error)

	// GetUserBySession returns the owning user of a session regardless of
	// expiry. Used to confirm a row exists before deleting it.
	GetUserBySession(ctx context.Context, sessionID string) (int64, error)

	// Delete removes a session row.
	Delete(ctx context.Context, sessionID string) error

	// DeleteExpired removes all sessions expired at now and returns the
	// count of deleted rows.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
