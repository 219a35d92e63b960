package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/famlink/assist-server-go/internal/middleware"
	"github.com/famlink/assist-server-go/internal/service"
)

type ProfileHandler struct {
	profileService *service.ProfileService
	relService     *service.RelationshipService
}

func NewProfileHandler(
	profileService *service.ProfileService,
	relService *service.RelationshipService,
) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		relService:     relService,
	}
}

func (h *ProfileHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/lookup", h.Lookup)
	r.Patch("/me", h.UpdateMe)

	return r
}

// POST /v1/profiles/lookup
//
// Batch display-name resolution. Ids outside the caller's related set are
// silently dropped from the response rather than erroring, so a stale client
// cache cannot probe for unrelated accounts.
func (h *ProfileHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		UserIDs []string `json:"userIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	profiles, err := h.relService.LookupProfiles(r.Context(), user.ID, req.UserIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

// GET /v1/related-users
func (h *ProfileHandler) RelatedUsers(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	profiles, err := h.relService.RelatedProfiles(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": profiles})
}

// PATCH /v1/profiles/me
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		DisplayName *string `json:"displayName"`
		RequireCode *bool   `json:"requireCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	profile, err := h.profileService.Update(r.Context(), user.ID, req.DisplayName, req.RequireCode)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"profile": profile})
}
