package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/normanking/taskdeck/internal/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) signupHandler(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.cfg.Auth.SignupRateLimit) {
		return
	}

	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.auth.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, "Email already registered")
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrPasswordTooWeak):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.log.Error("signup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		}
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) signinHandler(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.cfg.Auth.SigninRateLimit) {
		return
	}

	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.auth.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		s.log.Error("signin failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
		return
	}

	if err := s.auth.Logout(r.Context(), token); err != nil {
		s.log.Error("logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

// allowRate enforces the per-IP sliding window on auth endpoints.
func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, maxRequests int) bool {
	if maxRequests <= 0 {
		return true
	}
	if s.limiter.Allow(clientIP(r), maxRequests, time.Minute) {
		return true
	}
	writeError(w, http.StatusTooManyRequests,
		fmt.Sprintf("Rate limit exceeded. Maximum %d requests per 60 seconds.", maxRequests))
	return false
}

// authErrorMessage maps token errors to their 401 bodies.
func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenRevoked):
		return "Token has been revoked"
	case errors.Is(err, auth.ErrTokenExpired):
		return "Token expired"
	default:
		return "Invalid token"
	}
}
