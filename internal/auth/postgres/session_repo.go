// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/passgate/passgate/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool poolIface
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// FindLiveByUser returns the session id of a live session for the user.
func (r *SessionRepository) FindLiveByUser(ctx context.Context, userID int64, now time.Time) (string, error) {
	var sessionID string
	err := r.pool.QueryRow(ctx, `
		SELECT session_id FROM sessions
		WHERE user_id = $1 AND expires_at > $2
	`, userID, now).Scan(&sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", oops.Code("SESSION_NOT_FOUND").
			With("user_id", userID).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return "", oops.Code("SESSION_FIND_LIVE_FAILED").
			With("operation", "find live session by user").
			With("user_id", userID).
			Wrap(err)
	}
	return sessionID, nil
}

// Renew updates the expiry of an existing session.
func (r *SessionRepository) Renew(ctx context.Context, sessionID string, expiresAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE sessions SET expires_at = $2
		WHERE session_id = $1
	`, sessionID, expiresAt)
	if err != nil {
		return oops.Code("SESSION_RENEW_FAILED").
			With("operation", "update session expiry").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// Create inserts a new session row.
func (r *SessionRepository) Create(ctx context.Context, sessionID string, userID int64, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, sessionID, userID, expiresAt)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// GetUserByLiveSession returns the owning user of a live session.
func (r *SessionRepository) GetUserByLiveSession(ctx context.Context, sessionID string, now time.Time) (int64, error) {
	var userID int64
	err := r.pool.QueryRow(ctx, `
		SELECT user_id FROM sessions
		WHERE session_id = $1 AND expires_at > $2
	`, sessionID, now).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return 0, oops.Code("SESSION_GET_USER_FAILED").
			With("operation", "get user by live session").
			Wrap(err)
	}
	return userID, nil
}

// GetUserBySession returns the owning user of a session, ignoring expiry.
func (r *SessionRepository) GetUserBySession(ctx context.Context, sessionID string) (int64, error) {
	var userID int64
	err := r.pool.QueryRow(ctx, `
		SELECT user_id FROM sessions
		WHERE session_id = $1
	`, sessionID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return 0, oops.Code("SESSION_GET_USER_FAILED").
			With("operation", "get user by session").
			Wrap(err)
	}
	return userID, nil
}

// Delete removes a session row.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes all sessions expired at now and returns the count.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
