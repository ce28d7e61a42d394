package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	authdomain "todo/backend/internal/domain/auth"
	"todo/backend/internal/pkg/logger"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

// writeInternal reports an unexpected failure without leaking its cause.
func writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	logger.Errorf(r.Context(), "request failed: %v", err)
	if errors.Is(err, authdomain.ErrServiceUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}
