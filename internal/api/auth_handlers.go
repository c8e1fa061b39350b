package api

import (
	"errors"
	"net/http"
	"strings"

	"colourstream/internal/auth"
	"colourstream/internal/logging"
)

// requireAuth wraps a handler with bearer JWT validation.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.authenticate(w, r); !ok {
			return
		}
		next(w, r)
	}
}

// authenticate validates the Authorization header and writes a 401 on
// failure. The boolean reports whether the request may proceed.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	if s.deps.Auth == nil {
		s.writeError(w, http.StatusServiceUnavailable, "authentication unavailable")
		return nil, false
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	claims, err := s.deps.Auth.ValidateToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return claims, true
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req loginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	token, err := s.deps.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.log().Error("login failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	s.writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	claims, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.NewPassword) == "" {
		s.writeError(w, http.StatusBadRequest, "new password is required")
		return
	}
	err := s.deps.Auth.ChangePassword(r.Context(), claims.Username, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.log().Error("password change failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "password change failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "changed"})
}
