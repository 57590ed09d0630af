// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often the sweeper removes expired sessions.
const DefaultSweepInterval = time.Hour

// SessionSweeper periodically deletes expired sessions. Expired rows are
// already invisible to lookups, so sweeping is housekeeping only and a
// failed cycle is logged and retried on the next tick.
type SessionSweeper struct {
	sessions SessionRepository
	interval time.Duration
	logger   *slog.Logger
	clock    func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSessionSweeper creates a sweeper over the given session repository.
// A non-positive interval falls back to DefaultSweepInterval.
func NewSessionSweeper(sessions SessionRepository, interval time.Duration, logger *slog.Logger) *SessionSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionSweeper{
		sessions: sessions,
		interval: interval,
		logger:   logger,
		clock:    time.Now,
	}
}

// RunOnce executes a single sweep cycle.
func (w *SessionSweeper) RunOnce(ctx context.Context) error {
	deleted, err := w.sessions.DeleteExpired(ctx, w.clock())
	if err != nil {
		return err
	}
	if deleted > 0 {
		w.logger.Info("deleted expired sessions", "count", deleted)
	}
	return nil
}

// Start begins periodic sweeping.
func (w *SessionSweeper) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the sweeper and waits for the current cycle to finish.
func (w *SessionSweeper) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *SessionSweeper) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if err := w.RunOnce(ctx); err != nil {
		w.logger.Error("session sweep failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("session sweep failed", "error", err)
			}
		}
	}
}
