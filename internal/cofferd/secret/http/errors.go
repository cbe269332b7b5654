package http

import (
	"net/http"

	"github.com/coffersec/coffer/api/types/v1alpha1"
	"github.com/coffersec/coffer/internal/cofferd/errors"
)

type httpError struct {
	msg  string
	code int
}

func (e *httpError) Error() string {
	return e.msg
}

func errBadRequest(msg string) error {
	return &httpError{msg: msg, code: http.StatusBadRequest}
}

func errUnauthorized(msg string) error {
	return &httpError{msg: msg, code: http.StatusUnauthorized}
}

// respondError maps domain errors to HTTP statuses. Internal detail is
// logged, never returned.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := v1alpha1.Error{Code: "server_error", Message: "an unexpected error occurred"}

	switch {
	case errors.IsNotFound(err):
		status = http.StatusNotFound
		body = v1alpha1.Error{Code: "not_found", Message: "secret not found"}
	case errors.IsForbidden(err):
		status = http.StatusForbidden
		body = v1alpha1.Error{Code: "forbidden", Message: "insufficient permissions"}
	case errors.IsInvalidInput(err):
		status = http.StatusBadRequest
		body = v1alpha1.Error{Code: "invalid_request", Message: "invalid request"}
	case errors.IsUnauthorized(err):
		status = http.StatusUnauthorized
		body = v1alpha1.Error{Code: "unauthorized", Message: "invalid or expired credentials"}
	default:
		if he, ok := err.(*httpError); ok {
			status = he.code
			body = v1alpha1.Error{Code: "invalid_request", Message: he.msg}
			if he.code == http.StatusUnauthorized {
				body.Code = "unauthorized"
			}
			break
		}
		h.logger.Error().Err(err).Msg("request failed")
	}

	h.respondJSON(w, status, &body)
}
