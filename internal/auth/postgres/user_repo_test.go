// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/pkg/errutil"
)

func TestUserRepository_GetByIdentifier(t *testing.T) {
	createdAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	email := "w@example.com"

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      *auth.User
		wantErr   error
		wantCode  string
	}{
		{
			name: "found by username",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
					AddRow(int64(7), "wizard", &email, "hashed", createdAt)
				mock.ExpectQuery(`SELECT id, username, email, password_hash, created_at`).
					WithArgs("wizard").
					WillReturnRows(rows)
			},
			want: &auth.User{ID: 7, Username: "wizard", Email: &email, PasswordHash: "hashed", CreatedAt: createdAt},
		},
		{
			name: "found with null email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
					AddRow(int64(7), "wizard", (*string)(nil), "hashed", createdAt)
				mock.ExpectQuery(`SELECT id, username, email, password_hash, created_at`).
					WithArgs("wizard").
					WillReturnRows(rows)
			},
			want: &auth.User{ID: 7, Username: "wizard", Email: nil, PasswordHash: "hashed", CreatedAt: createdAt},
		},
		{
			name: "not found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT id, username, email, password_hash, created_at`).
					WithArgs("nobody").
					WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}))
			},
			wantErr:  auth.ErrNotFound,
			wantCode: "USER_NOT_FOUND",
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT id, username, email, password_hash, created_at`).
					WithArgs("wizard").
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: "USER_GET_BY_IDENTIFIER_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewUserRepository(mock)
			identifier := "wizard"
			if tt.wantErr != nil {
				identifier = "nobody"
			}
			got, err := repo.GetByIdentifier(context.Background(), identifier)

			if tt.wantCode != "" {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantCode)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestUserRepository_Exists(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      bool
		wantErr   bool
	}{
		{
			name: "account exists",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs("wizard", "w@example.com").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
			},
			want: true,
		},
		{
			name: "account does not exist",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs("wizard", "w@example.com").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
			},
			want: false,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs("wizard", "w@example.com").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewUserRepository(mock)
			got, err := repo.Exists(context.Background(), "wizard", "w@example.com")

			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "USER_EXISTS_FAILED")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Create(t *testing.T) {
	email := "w@example.com"

	tests := []struct {
		name      string
		email     *string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantID    int64
		wantErr   error
		wantCode  string
	}{
		{
			name:  "successful insert with email",
			email: &email,
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("wizard", &email, "hashed").
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
			},
			wantID: 7,
		},
		{
			name:  "successful insert without email",
			email: nil,
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("wizard", (*string)(nil), "hashed").
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
			},
			wantID: 7,
		},
		{
			name:  "unique violation maps to ErrDuplicate",
			email: nil,
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("wizard", (*string)(nil), "hashed").
					WillReturnError(&pgconn.PgError{Code: "23505"})
			},
			wantErr:  auth.ErrDuplicate,
			wantCode: "USER_DUPLICATE",
		},
		{
			name:  "database error",
			email: nil,
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("wizard", (*string)(nil), "hashed").
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: "USER_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewUserRepository(mock)
			id, err := repo.Create(context.Background(), "wizard", "hashed", tt.email)

			if tt.wantCode != "" {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantCode)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetIDByUsername(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id FROM users WHERE username`).
			WithArgs("wizard").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

		repo := NewUserRepository(mock)
		id, err := repo.GetIDByUsername(context.Background(), "wizard")
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id FROM users WHERE username`).
			WithArgs("nobody").
			WillReturnRows(pgxmock.NewRows([]string{"id"}))

		repo := NewUserRepository(mock)
		_, err = repo.GetIDByUsername(context.Background(), "nobody")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_GetUsernameByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT username FROM users WHERE id`).
			WithArgs(int64(7)).
			WillReturnRows(pgxmock.NewRows([]string{"username"}).AddRow("wizard"))

		repo := NewUserRepository(mock)
		username, err := repo.GetUsernameByID(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, "wizard", username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT username FROM users WHERE id`).
			WithArgs(int64(404)).
			WillReturnRows(pgxmock.NewRows([]string{"username"}))

		repo := NewUserRepository(mock)
		_, err = repo.GetUsernameByID(context.Background(), 404)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
