package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"splitride/internal/auth"
	"splitride/internal/core"
)

var errMissingToken = errors.New("missing bearer token")

const maxBodyBytes = 1 << 20 // 1 MiB

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP statuses. Unknown errors are
// logged and reported as a generic 500 so internals never leak.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, errMissingToken), errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, auth.ErrBadCredentials):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, core.ErrUnauthorized):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, core.ErrInvalidCode),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidRole),
		errors.Is(err, core.ErrInvalidEmail),
		errors.Is(err, core.ErrInvalidWindow),
		errors.Is(err, auth.ErrWeakPassword):
		status = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.Is(err, core.ErrNotPaired):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, core.ErrRiderNotFound),
		errors.Is(err, core.ErrNoSettings),
		errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"url", r.URL.Path)
	}

	writeJSON(w, status, errorResponse{Error: message})
}
