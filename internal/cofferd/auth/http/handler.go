// Package http exposes the device login flow over HTTP
package http

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coffersec/coffer/api/types/v1alpha1"
	"github.com/coffersec/coffer/internal/cofferd/auth"
)

// Handler encapsulates the HTTP API for authentication
type Handler struct {
	service *auth.Service
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler for auth endpoints
func NewHandler(service *auth.Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// StartLogin handles POST /start
func (h *Handler) StartLogin(w http.ResponseWriter, r *http.Request) {
	start, err := h.service.StartLogin(r.Context())
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, &v1alpha1.DeviceCodeResponse{
		DeviceCode:      start.DeviceCode,
		UserCode:        start.UserCode,
		VerificationURI: start.VerificationURI,
		ExpiresIn:       start.ExpiresIn,
		PollInterval:    start.Interval,
	}, h.logger)
}

// Poll handles POST /poll
func (h *Handler) Poll(w http.ResponseWriter, r *http.Request) {
	var req v1alpha1.PollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body", h.logger)
		return
	}
	if req.DeviceCode == "" || req.DeviceID == "" {
		writeBadRequest(w, "device_code and device_id are required", h.logger)
		return
	}

	login, err := h.service.Poll(r.Context(), req.DeviceCode, req.DeviceID, remoteIP(r))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse(login), h.logger)
}

// Refresh handles POST /refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req v1alpha1.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body", h.logger)
		return
	}
	if req.RefreshToken == "" || req.DeviceID == "" {
		writeBadRequest(w, "refresh_token and device_id are required", h.logger)
		return
	}

	refreshed, err := h.service.Refresh(r.Context(), req.RefreshToken, req.DeviceID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, &v1alpha1.TokenResponse{
		AccessToken: refreshed.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn(refreshed.ExpiresAt),
	}, h.logger)
}

// Logout handles POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req v1alpha1.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body", h.logger)
		return
	}
	if req.RefreshToken == "" {
		writeBadRequest(w, "refresh_token is required", h.logger)
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, err, h.logger)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}

func tokenResponse(login *auth.LoginResult) *v1alpha1.TokenResponse {
	return &v1alpha1.TokenResponse{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn(login.ExpiresAt),
		User: &v1alpha1.User{
			ID:          login.User.ID,
			Email:       login.User.Email,
			DisplayName: login.User.DisplayName,
			OrgID:       login.User.OrgID,
			IsAdmin:     login.User.IsAdmin,
		},
	}
}

func expiresIn(expiresAt time.Time) int {
	secs := int(time.Until(expiresAt).Seconds())
	if secs < 0 {
		secs = 0
	}
	return secs
}

func remoteIP(r *http.Request) string {
	// middleware.RealIP has already rewritten RemoteAddr when the request
	// came through a trusted proxy
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
