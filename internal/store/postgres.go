// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package store owns the PostgreSQL pool and schema management.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Ping attempts at startup. The pool itself handles reconnects after
// the initial connection is established.
const (
	pingAttempts    = 5
	pingBaseBackoff = 500 * time.Millisecond
)

// NewPool creates a connection pool for the given connection string and
// verifies connectivity with a bounded fibonacci-backoff ping. The pool
// is safe for concurrent use by all request handlers.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("STORE_POOL_FAILED").
			With("operation", "create connection pool").
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(pingAttempts, retry.NewFibonacci(pingBaseBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("STORE_PING_FAILED").
			With("operation", "ping database").
			With("attempts", pingAttempts).
			Wrap(err)
	}

	return pool, nil
}
