// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/passgate/passgate/pkg/errutil"
)

// Client-facing messages. These are part of the wire contract and must
// stay byte-for-byte stable, typos included.
const (
	MsgEmptyFields      = "Username or password fields empty"
	MsgUsernameLength   = "Username too long or short."
	MsgPasswordLength   = "Password too long or short"
	MsgDuplicateAccount = "Account with same username already exists, try again."
	MsgInternalError    = "Internal server error"
	MsgSignupOK         = "Signup succesful."
	MsgBadCredentials   = "Username or password incorrect"
	MsgLoginOK          = "Login success"
)

// Result is the uniform outcome of Signup and Login.
type Result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// VerifyResult is the outcome of Verify.
type VerifyResult struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
}

// LogoutResult is the outcome of Logout.
type LogoutResult struct {
	Success bool `json:"success"`
}

// Service orchestrates signup, login, verify and logout. It holds no
// persistent state of its own; every operation is a pure request-scoped
// orchestration over the injected collaborators.
//
// User errors surface as specific, stable messages. Internal failures
// (store unreachable, hash engine failure, inconsistent rows) collapse
// to MsgInternalError for the client and are reported in full only to
// the diagnostic logger.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	manager  *SessionManager
	hasher   PasswordHasher
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service with a no-op diagnostic logger.
func NewService(users UserRepository, sessions SessionRepository, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(users, sessions, hasher, slog.New(slog.DiscardHandler))
}

// NewServiceWithLogger creates a Service that reports internal failures
// to the provided logger.
func NewServiceWithLogger(users UserRepository, sessions SessionRepository, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}

	manager, err := NewSessionManager(sessions)
	if err != nil {
		return nil, err
	}

	return &Service{
		users:    users,
		sessions: sessions,
		manager:  manager,
		hasher:   hasher,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Signup registers a new account and logs it in. Structural validation
// runs before any store access so invalid requests cost no round-trips
// and produce deterministic messages.
func (s *Service) Signup(ctx context.Context, username, password, email string) Result {
	if username == "" || password == "" {
		return Result{Message: MsgEmptyFields}
	}
	if !ValidUsernameLength(username) {
		return Result{Message: MsgUsernameLength}
	}
	if !ValidPasswordLength(password) {
		return Result{Message: MsgPasswordLength}
	}

	exists, err := s.users.Exists(ctx, username, email)
	if err != nil {
		return s.internalError("signup: account collision check failed", err)
	}
	if exists {
		return Result{Message: MsgDuplicateAccount}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return s.internalError("signup: password hashing failed", err)
	}

	var emailArg *string
	if email != "" {
		emailArg = &email
	}
	userID, err := s.users.Create(ctx, username, hash, emailArg)
	if err != nil {
		// The collision check and the insert are not atomic; a concurrent
		// signup can slip between them and trip the unique constraint.
		if errors.Is(err, ErrDuplicate) {
			return Result{Message: MsgDuplicateAccount}
		}
		return s.internalError("signup: user insert failed", err)
	}

	sessionID, err := s.manager.IssueOrRenew(ctx, userID)
	if err != nil {
		return s.internalError("signup: session issue failed", err)
	}

	return Result{Success: true, Message: MsgSignupOK, SessionID: sessionID}
}

// Login verifies credentials for an identifier that may be a username or
// an email, and issues or renews a session. Absent users and wrong
// passwords produce the identical message so usernames cannot be
// enumerated through the login endpoint.
func (s *Service) Login(ctx context.Context, identifier, password string) Result {
	if !ValidUsernameLength(identifier) {
		return Result{Message: MsgUsernameLength}
	}
	if !ValidPasswordLength(password) {
		return Result{Message: MsgPasswordLength}
	}

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Result{Message: MsgBadCredentials}
		}
		return s.internalError("login: user lookup failed", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return s.internalError("login: password verification failed", err)
	}
	if !ok {
		return Result{Message: MsgBadCredentials}
	}

	sessionID, err := s.manager.IssueOrRenew(ctx, user.ID)
	if err != nil {
		return s.internalError("login: session issue failed", err)
	}

	return Result{Success: true, Message: MsgLoginOK, SessionID: sessionID}
}

// Verify resolves a session id to the username that owns it. Expired or
// unknown sessions fail without distinguishing detail.
func (s *Service) Verify(ctx context.Context, sessionID string) VerifyResult {
	if sessionID == "" {
		return VerifyResult{}
	}

	userID, err := s.sessions.GetUserByLiveSession(ctx, sessionID, s.now())
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			errutil.LogError(s.logger, "verify: session lookup failed", err)
		}
		return VerifyResult{}
	}

	username, err := s.users.GetUsernameByID(ctx, userID)
	if err != nil {
		// A live session pointing at a missing user is a data
		// inconsistency worth flagging either way.
		errutil.LogError(s.logger, "verify: username resolution failed", err)
		return VerifyResult{}
	}

	return VerifyResult{Success: true, Username: username}
}

// Logout deletes a session row. The row is confirmed to exist first,
// ignoring expiry, so logging out an expired session still removes it.
func (s *Service) Logout(ctx context.Context, sessionID string) LogoutResult {
	if sessionID == "" {
		return LogoutResult{}
	}

	if _, err := s.sessions.GetUserBySession(ctx, sessionID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			errutil.LogError(s.logger, "logout: session lookup failed", err)
		}
		return LogoutResult{}
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		errutil.LogError(s.logger, "logout: session delete failed", err)
		return LogoutResult{}
	}

	return LogoutResult{Success: true}
}

func (s *Service) internalError(msg string, err error) Result {
	errutil.LogError(s.logger, msg, err)
	return Result{Message: MsgInternalError}
}
