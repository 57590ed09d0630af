// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package httpd exposes the auth service over a JSON-over-HTTP API.
package httpd

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/internal/logging"
	"github.com/passgate/passgate/internal/observability"
)

// AuthService defines the operations the dispatcher forwards to.
type AuthService interface {
	// Signup registers a new account and logs it in.
	Signup(ctx context.Context, username, password, email string) auth.Result

	// Login verifies credentials and issues or renews a session.
	Login(ctx context.Context, identifier, password string) auth.Result

	// Verify resolves a session id to the owning username.
	Verify(ctx context.Context, sessionID string) auth.VerifyResult

	// Logout deletes a session.
	Logout(ctx context.Context, sessionID string) auth.LogoutResult
}

// Server is the HTTP front of the auth service. It decodes JSON request
// bodies, calls into the service, and encodes the service result
// verbatim. All endpoints accept POST only.
type Server struct {
	addr       string
	svc        AuthService
	logger     *slog.Logger
	metrics    *observability.Metrics
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates a new Server. logger may be nil for a silent server;
// metrics may be nil to disable counters.
func NewServer(addr string, svc AuthService, logger *slog.Logger, metrics *observability.Metrics) (*Server, error) {
	if svc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		addr:    addr,
		svc:     svc,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Handler returns the route table wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/signup", s.handleSignup)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/verify", s.handleVerify)
	mux.HandleFunc("/logout", s.handleLogout)
	return s.withRequestContext(mux)
}

// Start begins serving the auth API. It returns an error channel that
// receives any serve error and closes on graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("http server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("http server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("http server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server, waiting for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown http server").Wrap(err)
		}
	}

	s.logger.Info("http server stopped")
	return nil
}

// Addr returns the address the server is listening on, or "" if stopped.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestContext tags every request with a ulid request id, logs the
// outcome, and feeds the request counter.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithRequestID(r.Context(), ulid.Make().String())

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		s.logger.InfoContext(ctx, "request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if s.metrics != nil {
			s.metrics.HTTPRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.status)).Inc()
		}
	})
}
