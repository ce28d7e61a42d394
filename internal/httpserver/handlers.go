package httpserver

import (
	"errors"
	"net/http"
	"time"

	authdomain "todo/backend/internal/domain/auth"
)

type loginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	User      *authdomain.User `json:"user,omitempty"`
}

func tokenResponse(token authdomain.Token, user *authdomain.User) loginResponse {
	return loginResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt.UTC(),
		User:      user,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := s.authService.Register(r.Context(), payload.Email, payload.Password, payload.Name)
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, authdomain.ErrEmailExists):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeInternal(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	token, user, err := s.authService.IssueToken(r.Context(), authdomain.Credentials{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		if errors.Is(err, authdomain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeInternal(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse(token, user))
}

func (s *Server) handleRenewToken(w http.ResponseWriter, r *http.Request) {
	identity, ok := authdomain.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	token, err := s.authService.RenewToken(r.Context(), identity)
	if err != nil {
		if errors.Is(err, authdomain.ErrUnauthenticated) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeInternal(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse(token, nil))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := authdomain.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := s.authService.CurrentUser(r.Context(), identity)
	if err != nil {
		if errors.Is(err, authdomain.ErrUserNotFound) {
			// token outlived its account
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeInternal(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
