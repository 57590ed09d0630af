// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passgate/passgate/internal/auth"
)

// mockUserRepoLogging fails lookups with a configurable error.
type mockUserRepoLogging struct {
	lookupErr error
}

func (m *mockUserRepoLogging) GetByIdentifier(_ context.Context, _ string) (*auth.User, error) {
	return nil, m.lookupErr
}

func (m *mockUserRepoLogging) Exists(_ context.Context, _, _ string) (bool, error) {
	return false, m.lookupErr
}

func (m *mockUserRepoLogging) Create(_ context.Context, _, _ string, _ *string) (int64, error) {
	return 0, m.lookupErr
}

func (m *mockUserRepoLogging) GetIDByUsername(_ context.Context, _ string) (int64, error) {
	return 0, m.lookupErr
}

func (m *mockUserRepoLogging) GetUsernameByID(_ context.Context, _ int64) (string, error) {
	return "", m.lookupErr
}

// mockSessionRepoLogging resolves every session to user 7 and fails
// Delete with a configurable error.
type mockSessionRepoLogging struct {
	deleteErr error
}

func (m *mockSessionRepoLogging) FindLiveByUser(_ context.Context, _ int64, _ time.Time) (string, error) {
	return "", auth.ErrNotFound
}

func (m *mockSessionRepoLogging) Renew(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (m *mockSessionRepoLogging) Create(_ context.Context, _ string, _ int64, _ time.Time) error {
	return nil
}

func (m *mockSessionRepoLogging) GetUserByLiveSession(_ context.Context, _ string, _ time.Time) (int64, error) {
	return 7, nil
}

func (m *mockSessionRepoLogging) GetUserBySession(_ context.Context, _ string) (int64, error) {
	return 7, nil
}

func (m *mockSessionRepoLogging) Delete(_ context.Context, _ string) error {
	return m.deleteErr
}

func (m *mockSessionRepoLogging) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

// mockHasherLogging accepts only "correctpassword".
type mockHasherLogging struct{}

func (m *mockHasherLogging) Hash(_ string) (string, error) {
	return "hashed", nil
}

func (m *mockHasherLogging) Verify(password, _ string) (bool, error) {
	return password == "correctpassword", nil
}

// logEntry represents a parsed JSON log entry.
type logEntry struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestService_Signup_LogsInternalFailure(t *testing.T) {
	lookupErr := errors.New("database connection lost")
	users := &mockUserRepoLogging{lookupErr: lookupErr}
	sessions := &mockSessionRepoLogging{}
	hasher := &mockHasherLogging{}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	svc, err := auth.NewServiceWithLogger(users, sessions, hasher, logger)
	require.NoError(t, err)

	res := svc.Signup(context.Background(), "wizard", "hunter22", "")
	assert.False(t, res.Success)
	assert.Equal(t, auth.MsgInternalError, res.Message)

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "should have logged JSON entry")

	assert.Equal(t, "ERROR", entry.Level)
	assert.Contains(t, entry.Msg, "signup")
	assert.Contains(t, entry.Error, "database connection lost")
}

func TestService_Logout_LogsDeleteFailure(t *testing.T) {
	users := &mockUserRepoLogging{}
	sessions := &mockSessionRepoLogging{deleteErr: errors.New("database timeout")}
	hasher := &mockHasherLogging{}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	svc, err := auth.NewServiceWithLogger(users, sessions, hasher, logger)
	require.NoError(t, err)

	res := svc.Logout(context.Background(), "tok")
	assert.False(t, res.Success)

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "should have logged JSON entry")

	assert.Equal(t, "ERROR", entry.Level)
	assert.Contains(t, entry.Msg, "logout")
	assert.Contains(t, entry.Error, "database timeout")
}

func TestService_Verify_ExpiredSessionIsSilent(t *testing.T) {
	// ErrNotFound on verify is a normal outcome, not a diagnostic event.
	users := &mockUserRepoLogging{}
	sessions := &notFoundSessionRepo{}
	hasher := &mockHasherLogging{}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	svc, err := auth.NewServiceWithLogger(users, sessions, hasher, logger)
	require.NoError(t, err)

	res := svc.Verify(context.Background(), "tok")
	assert.False(t, res.Success)
	assert.Zero(t, buf.Len(), "expired sessions must not be logged as errors")
}

// notFoundSessionRepo answers ErrNotFound for every lookup.
type notFoundSessionRepo struct {
	mockSessionRepoLogging
}

func (m *notFoundSessionRepo) GetUserByLiveSession(_ context.Context, _ string, _ time.Time) (int64, error) {
	return 0, auth.ErrNotFound
}

func (m *notFoundSessionRepo) GetUserBySession(_ context.Context, _ string) (int64, error) {
	return 0, auth.ErrNotFound
}
