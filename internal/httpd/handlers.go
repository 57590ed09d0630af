// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package httpd

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/passgate/passgate/internal/auth"
)

// maxBodyBytes bounds request bodies well above the largest valid
// payload (255-char password plus field names).
const maxBodyBytes = 4 << 10

type signupRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Email    *string `json:"email"`
}

type loginRequest struct {
	UsernameOrEmail *string `json:"username_or_email"`
	Password        *string `json:"password"`
}

type sessionRequest struct {
	SessionID *string `json:"session_id"`
}

const msgMalformedBody = "Malformed request body"

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req signupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == nil || req.Password == nil {
		writeJSON(w, http.StatusBadRequest, auth.Result{Message: msgMalformedBody})
		return
	}
	var email string
	if req.Email != nil {
		email = *req.Email
	}
	res := s.svc.Signup(r.Context(), *req.Username, *req.Password, email)
	s.recordAuth("signup", res.Success)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UsernameOrEmail == nil || req.Password == nil {
		writeJSON(w, http.StatusBadRequest, auth.Result{Message: msgMalformedBody})
		return
	}
	res := s.svc.Login(r.Context(), *req.UsernameOrEmail, *req.Password)
	s.recordAuth("login", res.Success)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == nil {
		writeJSON(w, http.StatusBadRequest, auth.VerifyResult{})
		return
	}
	res := s.svc.Verify(r.Context(), *req.SessionID)
	s.recordAuth("verify", res.Success)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == nil {
		writeJSON(w, http.StatusBadRequest, auth.LogoutResult{})
		return
	}
	res := s.svc.Logout(r.Context(), *req.SessionID)
	s.recordAuth("logout", res.Success)
	writeJSON(w, http.StatusOK, res)
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, auth.Result{Message: "method not allowed"})
		return false
	}
	return true
}

// decodeBody parses the JSON body into dst, replying 400 on malformed
// input. Unknown fields are ignored so clients can send extras.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, auth.Result{Message: msgMalformedBody})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) recordAuth(operation string, success bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordAuthResult(operation, success)
}
