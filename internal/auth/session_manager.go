// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"

	"github.com/passgate/passgate/internal/observability"
)

// SessionManager hands out session ids using a find-or-renew protocol:
// an existing live session is renewed and reused, otherwise a fresh one
// is created. Under single-writer-per-user access this keeps at most one
// live session per user. The read-then-write sequence runs without a
// transaction or row lock, so two concurrent logins for the same user can
// race and each create a live session; that relaxed guarantee is
// intentional and covered by tests rather than locked away.
type SessionManager struct {
	sessions SessionRepository
	now      func() time.Time
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(sessions SessionRepository) (*SessionManager, error) {
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	return &SessionManager{
		sessions: sessions,
		now:      time.Now,
	}, nil
}

// IssueOrRenew returns a live session id for the user, extending the
// expiry of an existing live session or creating a new one with expiry
// now + SessionTTL.
func (m *SessionManager) IssueOrRenew(ctx context.Context, userID int64) (string, error) {
	now := m.now()
	expiresAt := now.Add(SessionTTL)

	id, err := m.sessions.FindLiveByUser(ctx, userID, now)
	if err == nil {
		if err := m.sessions.Renew(ctx, id, expiresAt); err != nil {
			return "", oops.Code("SESSION_RENEW_FAILED").
				With("operation", "renew session").
				With("user_id", userID).
				Wrap(err)
		}
		observability.RecordSessionIssued("renewed")
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", oops.Code("SESSION_LOOKUP_FAILED").
			With("operation", "find live session").
			With("user_id", userID).
			Wrap(err)
	}

	id, err = GenerateSessionID()
	if err != nil {
		return "", err
	}
	if err := m.sessions.Create(ctx, id, userID, expiresAt); err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "create session").
			With("user_id", userID).
			Wrap(err)
	}
	observability.RecordSessionIssued("new")
	return id, nil
}
