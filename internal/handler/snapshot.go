package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/famlink/assist-server-go/internal/middleware"
	"github.com/famlink/assist-server-go/internal/service"
)

type SnapshotHandler struct {
	snapshotService *service.SnapshotService
}

func NewSnapshotHandler(snapshotService *service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{snapshotService: snapshotService}
}

func (h *SnapshotHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Upload)

	return r
}

// POST /v1/snapshots
func (h *SnapshotHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		SessionID   string `json:"sessionId"`
		ImageBase64 string `json:"imageBase64"`
		ContentType string `json:"contentType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	if req.SessionID == "" || req.ImageBase64 == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sessionId and imageBase64 are required"})
		return
	}

	result, err := h.snapshotService.Upload(r.Context(), req.SessionID, req.ImageBase64, req.ContentType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}
