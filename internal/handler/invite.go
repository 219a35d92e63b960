package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/famlink/assist-server-go/internal/audit"
	"github.com/famlink/assist-server-go/internal/middleware"
	"github.com/famlink/assist-server-go/internal/service"
)

type InviteHandler struct {
	inviteService *service.InviteService
}

func NewInviteHandler(inviteService *service.InviteService) *InviteHandler {
	return &InviteHandler{inviteService: inviteService}
}

func (h *InviteHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Post("/accept", h.Accept)

	return r
}

// POST /v1/invites
func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	invite, err := h.inviteService.CreateInvite(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventInviteCreate, UserID: user.ID, Code: invite.Code})

	writeJSON(w, http.StatusCreated, map[string]any{
		"invite": formatInvite(*invite),
	})
}

// GET /v1/invites
func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	invites, err := h.inviteService.ListOpenInvites(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(invites))
	for _, inv := range invites {
		out = append(out, formatInvite(inv))
	}

	writeJSON(w, http.StatusOK, map[string]any{"invites": out})
}

// POST /v1/invites/accept
func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	if req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code is required"})
		return
	}

	invite, err := h.inviteService.AcceptInvite(r.Context(), user.ID, req.Code)
	if err != nil {
		audit.LogFromRequest(r, audit.Event{Type: audit.EventInviteReject, UserID: user.ID})
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventInviteAccept, UserID: user.ID, Code: invite.Code})

	writeJSON(w, http.StatusOK, map[string]any{
		"invite": formatInvite(*invite),
	})
}
