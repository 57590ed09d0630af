// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/passgate/passgate/internal/auth"
)

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByIdentifier retrieves a user whose username or email equals the identifier.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE username = $1 OR email = $1
	`, identifier)

	var user auth.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("identifier", identifier).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_IDENTIFIER_FAILED").
			With("operation", "get user by identifier").
			Wrap(err)
	}
	return &user, nil
}

// Exists reports whether an account with the given username or email exists.
// An empty email never matches because stored emails are non-empty or NULL.
func (r *UserRepository) Exists(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)
	`, username, email).Scan(&exists)
	if err != nil {
		return false, oops.Code("USER_EXISTS_FAILED").
			With("operation", "account collision check").
			With("username", username).
			Wrap(err)
	}
	return exists, nil
}

// Create inserts a new user and returns its store-assigned id.
func (r *UserRepository) Create(ctx context.Context, username, passwordHash string, email *string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id
	`, username, email, passwordHash).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, oops.Code("USER_DUPLICATE").
				With("username", username).
				Wrap(auth.ErrDuplicate)
		}
		return 0, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", username).
			Wrap(err)
	}
	return id, nil
}

// GetIDByUsername returns the id of the user with the given username.
func (r *UserRepository) GetIDByUsername(ctx context.Context, username string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM users WHERE username = $1
	`, username).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return 0, oops.Code("USER_GET_ID_FAILED").
			With("operation", "get user id by username").
			With("username", username).
			Wrap(err)
	}
	return id, nil
}

// GetUsernameByID returns the username of the user with the given id.
func (r *UserRepository) GetUsernameByID(ctx context.Context, id int64) (string, error) {
	var username string
	err := r.pool.QueryRow(ctx, `
		SELECT username FROM users WHERE id = $1
	`, id).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return "", oops.Code("USER_GET_USERNAME_FAILED").
			With("operation", "get username by id").
			With("id", id).
			Wrap(err)
	}
	return username, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
