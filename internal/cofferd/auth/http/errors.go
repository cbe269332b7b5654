package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/coffersec/coffer/api/types/v1alpha1"
	"github.com/coffersec/coffer/internal/cofferd/errors"
)

// writeError maps a domain error to its HTTP status and writes the
// standard error body. Token responses must never be cached, so every
// auth response carries Cache-Control: no-store.
func writeError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var status int
	var body v1alpha1.Error

	switch {
	case errors.IsAuthorizationPending(err):
		status = http.StatusPreconditionRequired
		body = v1alpha1.Error{Code: "authorization_pending", Message: "authorization pending"}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter(err)))

	case errors.IsRateLimited(err):
		status = http.StatusTooManyRequests
		body = v1alpha1.Error{Code: "slow_down", Message: "polling too fast"}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter(err)))

	case errors.IsUnauthorized(err):
		status = http.StatusUnauthorized
		body = v1alpha1.Error{Code: "unauthorized", Message: "invalid or expired credentials"}

	case errors.IsInvalidInput(err):
		status = http.StatusBadRequest
		body = v1alpha1.Error{Code: "invalid_request", Message: "invalid request"}

	case errors.IsNotFound(err):
		status = http.StatusNotFound
		body = v1alpha1.Error{Code: "not_found", Message: "not found"}

	default:
		logger.Error("request failed", "error", err)
		status = http.StatusInternalServerError
		body = v1alpha1.Error{Code: "server_error", Message: "an unexpected error occurred"}
	}

	writeJSON(w, status, &body, logger)
}

func writeBadRequest(w http.ResponseWriter, message string, logger *slog.Logger) {
	writeJSON(w, http.StatusBadRequest, &v1alpha1.Error{
		Code:    "invalid_request",
		Message: message,
	}, logger)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}

func retryAfter(err error) int {
	if secs := errors.RetryAfter(err); secs > 0 {
		return secs
	}
	return 1
}
