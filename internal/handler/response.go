package handler

import (
	"net/http"
	"time"

	"github.com/famlink/assist-server-go/internal/httputil"
	"github.com/famlink/assist-server-go/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func formatSession(s model.Session) map[string]any {
	return map[string]any{
		"id":              s.ID,
		"code":            s.Code,
		"status":          s.Status,
		"viewerUserId":    s.ViewerUserID,
		"sharerName":      s.SharerName,
		"sharerNote":      s.SharerNote,
		"sharerStartedAt": formatTime(s.SharerStartedAt),
		"createdAt":       s.CreatedAt.Format(time.RFC3339),
	}
}

func formatInvite(inv model.Invite) map[string]any {
	return map[string]any{
		"id":        inv.ID,
		"code":      inv.Code,
		"status":    inv.Status,
		"expiresAt": inv.ExpiresAt.Format(time.RFC3339),
	}
}
