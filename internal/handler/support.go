package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/famlink/assist-server-go/internal/audit"
	"github.com/famlink/assist-server-go/internal/middleware"
	"github.com/famlink/assist-server-go/internal/model"
	"github.com/famlink/assist-server-go/internal/service"
)

type SupportHandler struct {
	supportService *service.SupportService
	camTokens      *service.CameraTokenService
}

func NewSupportHandler(
	supportService *service.SupportService,
	camTokens *service.CameraTokenService,
) *SupportHandler {
	return &SupportHandler{
		supportService: supportService,
		camTokens:      camTokens,
	}
}

// Routes keeps session management behind a login while the transcript
// endpoints stay code-keyed: the remote side of a support chat only holds
// the code.
func (h *SupportHandler) Routes(auth, userLimit, ipLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(auth, userLimit)
		r.Post("/", h.Create)
		r.Delete("/{code}", h.Close)
		r.Post("/{code}/camera-token", h.IssueCameraToken)
	})

	r.Group(func(r chi.Router) {
		r.Use(ipLimit)
		r.Get("/{code}/messages", h.ListMessages)
		r.Post("/{code}/messages", h.AppendMessage)
	})

	return r
}

// POST /v1/support
func (h *SupportHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	session, err := h.supportService.CreateSession(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"session": session})
}

// DELETE /v1/support/{code}
func (h *SupportHandler) Close(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	session, err := h.supportService.CloseSession(r.Context(), user.ID, chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"session": session})
}

// GET /v1/support/{code}/messages
func (h *SupportHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.supportService.ListMessages(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// POST /v1/support/{code}/messages
func (h *SupportHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sender string `json:"sender"`
		Body   string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	message, err := h.supportService.AppendMessage(
		r.Context(),
		chi.URLParam(r, "code"),
		model.SupportSender(req.Sender),
		req.Body,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"message": message})
}

// POST /v1/support/{code}/camera-token
func (h *SupportHandler) IssueCameraToken(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	token, err := h.camTokens.IssueToken(r.Context(), user.ID, chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventCameraTokenIssue, UserID: user.ID, Code: token.SupportCode})

	writeJSON(w, http.StatusCreated, map[string]any{
		"token":     token.Token,
		"expiresAt": token.ExpiresAt,
	})
}

// CameraTokenHandler resolves camera tokens for the unauthenticated second
// device.
type CameraTokenHandler struct {
	camTokens *service.CameraTokenService
}

func NewCameraTokenHandler(camTokens *service.CameraTokenService) *CameraTokenHandler {
	return &CameraTokenHandler{camTokens: camTokens}
}

func (h *CameraTokenHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{token}", h.Resolve)

	return r
}

// GET /v1/camera-tokens/{token}
func (h *CameraTokenHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	code, err := h.camTokens.ResolveToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"supportCode": code})
}
