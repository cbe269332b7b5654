// Package http exposes secrets CRUD, sharing and event streaming
package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coffersec/coffer/api/types/v1alpha1"
	authhttp "github.com/coffersec/coffer/internal/cofferd/auth/http"
	"github.com/coffersec/coffer/internal/cofferd/secret"
	"github.com/coffersec/coffer/internal/cofferd/secret/delivery"
)

type Handler struct {
	service  *secret.Service
	streamer *delivery.Streamer
	logger   zerolog.Logger
}

func NewHandler(service *secret.Service, streamer *delivery.Streamer, logger zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		streamer: streamer,
		logger:   logger.With().Str("component", "secret-http").Logger(),
	}
}

// Router returns a router pre-configured with all secret endpoints.
// Every route requires a verified bearer token; the claims arrive via
// the auth middleware mounted by the caller.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts all secret endpoints on the provided router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleListSecrets)
	r.Get("/events/ws", h.handleEvents)
	r.Route("/{name}", func(r chi.Router) {
		r.Get("/", h.handleGetSecret)
		r.Put("/", h.handleSetSecret)
		r.Delete("/", h.handleDeleteSecret)
		r.Get("/history", h.handleHistory)
		r.Get("/acl", h.handleListACLs)
		r.Post("/share", h.handleShare)
		r.Delete("/share", h.handleUnshare)
	})
}

func (h *Handler) handleListSecrets(w http.ResponseWriter, r *http.Request) {
	user, err := h.userContext(r, true)
	if err != nil {
		h.respondError(w, err)
		return
	}

	secrets, err := h.service.List(r.Context(), user)
	if err != nil {
		h.respondError(w, err)
		return
	}

	items := make([]interface{}, 0, len(secrets))
	for i := range secrets {
		items = append(items, toAPISecret(&secrets[i]))
	}
	h.respondJSON(w, http.StatusOK, &v1alpha1.ListResponse{
		Items:      items,
		TotalCount: len(items),
	})
}

func (h *Handler) handleGetSecret(w http.ResponseWriter, r *http.Request) {
	user, err := h.userContext(r, true)
	if err != nil {
		h.respondError(w, err)
		return
	}

	stored, err := h.service.Get(r.Context(), user, chi.URLParam(r, "name"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toAPISecret(stored))
}

func (h *Handler) handleSetSecret(w http.ResponseWriter, r *http.Request) {
	user, err := h.userContext(r, false)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var req v1alpha1.SetSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, errBadRequest("invalid request body"))
		return
	}

	stored, err := h.service.Set(r.Context(), user, chi.URLParam(r, "name"), req.Value)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toAPISecret(stored))
}

func (h *Handler) handleDeleteSecret(w http.ResponseWriter, r *http.Request) {
	user, err := h.userContext(r, false)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), user, chi.URLParam(r, "name")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, err := h.userContext(r, true)
	if err != nil {
		h.respondError(w, err)
		return
	}

	versions, err := h.service.History(r.Context(), user, chi.URLParam(r, "name"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	items := make([]interface{}, 0, len(versions))
	for _, v := range versions {
		items = append(items, &v1alpha1.SecretVersion{
			Version:   v.Version,
			Value:     v.Value,
			ChangedBy: v.ChangedBy,
			ChangedAt: v.ChangedAt,
		})
	}
	h.respondJSON(w, http.StatusOK, &v1alpha1.ListResponse{
		Items:      items,
		TotalCount: len(items),
	})
}

func (h *Handler) handleListACLs(w http.ResponseWriter, r *http.Request) {
	user, err := h.userContext(r, true)
	if err != nil {
		h.respondError(w, err)
		return
	}

	acls, err := h.service.ListACLs(r.Context(), user, chi.URLParam(r, "name"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	items := make([]interface{}, 0, len(acls))
	for _, entry := range acls {
		items = append(items, toAPIAcl(entry))
	}
	h.respondJSON(w, http.StatusOK, &v1alpha1.ListResponse{
		Items:      items,
		TotalCount: len(items),
	})
}

func (h *Handler) handleShare(w http.ResponseWriter, r *http.Request) {
	user, err := h.userContext(r, false)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var req v1alpha1.ShareSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, errBadRequest("invalid request body"))
		return
	}

	err = h.service.Share(r.Context(), user, chi.URLParam(r, "name"), secret.AclEntry{
		Principal:   secret.Principal(req.Principal),
		PrincipalID: req.PrincipalID,
		CanRead:     req.CanRead,
		CanWrite:    req.CanWrite,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnshare(w http.ResponseWriter, r *http.Request) {
	user, err := h.userContext(r, false)
	if err != nil {
		h.respondError(w, err)
		return
	}

	principal := secret.Principal(r.URL.Query().Get("principal"))
	var principalID *uuid.UUID
	if raw := r.URL.Query().Get("principal_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.respondError(w, errBadRequest("invalid principal_id"))
			return
		}
		principalID = &id
	}

	if err := h.service.Unshare(r.Context(), user, chi.URLParam(r, "name"), principal, principalID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	user, err := h.userContext(r, true)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.streamer.ServeWS(w, r, user)
}

// userContext builds the permission context for the request. When
// allowViewAs is set, an admin may substitute another user's identity
// with the view_as query parameter.
func (h *Handler) userContext(r *http.Request, allowViewAs bool) (secret.UserContext, error) {
	claims := authhttp.ClaimsFromContext(r.Context())
	if claims == nil {
		return secret.UserContext{}, errUnauthorized("missing credentials")
	}

	user := secret.UserContext{
		ID:      claims.UserID,
		OrgID:   claims.OrgID,
		IsAdmin: claims.IsAdmin,
		TeamIDs: claims.TeamIDs,
	}

	raw := r.URL.Query().Get("view_as")
	if raw == "" {
		return user, nil
	}
	if !allowViewAs {
		return secret.UserContext{}, errBadRequest("view_as is not supported on this endpoint")
	}

	targetID, err := uuid.Parse(raw)
	if err != nil {
		return secret.UserContext{}, errBadRequest("invalid view_as user id")
	}
	return h.service.AsUser(r.Context(), user, targetID)
}

func toAPISecret(s *secret.Secret) *v1alpha1.Secret {
	return &v1alpha1.Secret{
		ID:        s.ID,
		Name:      s.Name,
		Value:     s.Value,
		OrgID:     s.OrgID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toAPIAcl(entry secret.AclEntry) *v1alpha1.AclEntry {
	return &v1alpha1.AclEntry{
		Principal:   string(entry.Principal),
		PrincipalID: entry.PrincipalID,
		CanRead:     entry.CanRead,
		CanWrite:    entry.CanWrite,
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}
