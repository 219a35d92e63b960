package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/famlink/assist-server-go/internal/audit"
	"github.com/famlink/assist-server-go/internal/middleware"
	"github.com/famlink/assist-server-go/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
	stunURL        string
}

func NewSessionHandler(sessionService *service.SessionService, stunURL string) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, stunURL: stunURL}
}

// Routes splits the session surface by credential. Start and stop are
// reachable without a login: the sharing device only knows the 6-digit code
// it was read over the phone, so those two sit behind the IP limiter instead.
func (h *SessionHandler) Routes(auth, userLimit, ipLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(auth, userLimit)
		r.Post("/", h.Create)
		r.Get("/active", h.Active)
		r.Delete("/{code}", h.Close)
	})

	r.Group(func(r chi.Router) {
		r.Use(ipLimit)
		r.Post("/start", h.Start)
		r.Post("/stop", h.Stop)
	})

	return r
}

// POST /v1/sessions
//
// Two callers use this. A viewer creating a session for someone they are
// linked to sends viewerUserId with no sharerName. A sharing device sends
// sharerName (plus an optional note and optional explicit viewer) and gets
// auto-assignment when no viewer is named.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		ViewerUserID *string `json:"viewerUserId"`
		SharerName   string  `json:"sharerName"`
		SharerNote   *string `json:"sharerNote"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	ctx := r.Context()

	if req.SharerName == "" {
		if req.ViewerUserID == nil || *req.ViewerUserID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "viewerUserId is required"})
			return
		}

		session, err := h.sessionService.CreateLinked(ctx, user.ID, *req.ViewerUserID)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"session": formatSession(*session),
		})
		return
	}

	result, err := h.sessionService.CreateWithAutoAssign(ctx, user.ID, req.ViewerUserID, req.SharerName, req.SharerNote)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"session":      formatSession(*result.Session),
		"autoAssigned": result.AutoAssigned,
		"assignReason": result.AssignReason,
	})
}

// POST /v1/sessions/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code       string  `json:"code"`
		SharerName *string `json:"sharerName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	session, err := h.sessionService.ClaimAndStart(r.Context(), req.Code, req.SharerName)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventSessionStart, Code: session.Code})

	// The sharing device starts negotiating right after this call; hand it
	// the ICE server so it does not need its own config.
	writeJSON(w, http.StatusOK, map[string]any{
		"session": formatSession(*session),
		"stunUrl": h.stunURL,
	})
}

// POST /v1/sessions/stop
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	session, err := h.sessionService.Stop(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session": formatSession(*session),
	})
}

// GET /v1/sessions/active
func (h *SessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	result, err := h.sessionService.ActiveForUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	sessions := make([]map[string]any, 0, len(result.Sessions))
	for _, s := range result.Sessions {
		sessions = append(sessions, formatSession(s))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions":    sessions,
		"requireCode": result.RequireCode,
	})
}

// DELETE /v1/sessions/{code}
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	code := chi.URLParam(r, "code")

	session, err := h.sessionService.CloseByCode(r.Context(), user.ID, code)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventSessionClose, UserID: user.ID, Code: session.Code})

	writeJSON(w, http.StatusOK, map[string]any{
		"session": formatSession(*session),
	})
}
