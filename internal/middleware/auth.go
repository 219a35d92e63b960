package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/famlink/assist-server-go/internal/audit"
	"github.com/famlink/assist-server-go/internal/model"
	"github.com/famlink/assist-server-go/internal/repository"
	"github.com/famlink/assist-server-go/internal/service"
)

type contextKey string

const UserContextKey contextKey = "user"

func GetUser(ctx context.Context) *model.User {
	if user, ok := ctx.Value(UserContextKey).(*model.User); ok {
		return user
	}
	return nil
}

// AuthMiddleware resolves the current user from a session token (cookie or
// bearer header). Core services never read identity ambiently; handlers
// pass the resolved user id down explicitly.
type AuthMiddleware struct {
	authRepo repository.AuthSessionRepository
	secret   string
}

func NewAuthMiddleware(authRepo repository.AuthSessionRepository, secret string) *AuthMiddleware {
	return &AuthMiddleware{authRepo: authRepo, secret: secret}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing authentication token",
			})
			return
		}

		tokenHash := service.HashToken(m.secret, token)
		user, err := m.authRepo.FindUserByTokenHash(r.Context(), tokenHash)
		if err != nil {
			log.Error().Err(err).Msg("auth middleware: database error")
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Authentication failed",
			})
			return
		}

		if user == nil {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventAuthFailure})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid token",
			})
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	if cookie, err := r.Cookie("fl_session"); err == nil {
		return cookie.Value
	}

	return ""
}
