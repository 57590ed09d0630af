// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"time"
	"unicode/utf8"
)

// Username and password length constraints, counted in runes.
const (
	MinUsernameLength = 5
	MaxUsernameLength = 20
	MinPasswordLength = 5
	MaxPasswordLength = 255
)

// User represents a registered account. The password hash is opaque to
// everything except the PasswordHasher; the plaintext is never stored.
type User struct {
	ID           int64
	Username     string
	Email        *string // nil when the account was created without an email
	PasswordHash string
	CreatedAt    time.Time
}

// ValidUsernameLength reports whether the username length is within bounds.
func ValidUsernameLength(username string) bool {
	n := utf8.RuneCountInString(username)
	return n >= MinUsernameLength && n <= MaxUsernameLength
}

// ValidPasswordLength reports whether the password length is within bounds.
func ValidPasswordLength(password string) bool {
	n := utf8.RuneCountInString(password)
	return n >= MinPasswordLength && n <= MaxPasswordLength
}

// UserRepository manages user persistence. All implementations must use
// parameter binding for every query.
type UserRepository interface {
	// GetByIdentifier retrieves a user whose username or email equals the
	// identifier. Returns ErrNotFound if no such user exists.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)

	// Exists reports whether an account with the given username or the
	// given email already exists. An empty email matches nothing.
	Exists(ctx context.Context, username, email string) (bool, error)

	// Create inserts a new user and returns its store-assigned id. The
	// email column is stored as NULL when email is nil. Returns
	// ErrDuplicate if the username or email is already taken.
	Create(ctx context.Context, username, passwordHash string, email *string) (int64, error)

	// GetIDByUsername returns the id of the user with the given username.
	// Returns ErrNotFound if no such user exists.
	GetIDByUsername(ctx context.Context, username string) (int64, error)

	// GetUsernameByID returns the username of the user with the given id.
	// Returns ErrNotFound if no such user exists.
	GetUsernameByID(ctx context.Context, id int64) (string, error)
}
