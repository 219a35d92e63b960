package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/famlink/assist-server-go/internal/config"
	apperrors "github.com/famlink/assist-server-go/internal/errors"
	"github.com/famlink/assist-server-go/internal/model"
	"github.com/famlink/assist-server-go/internal/repository"
)

const authTokenLength = 48

// AuthService mints login sessions. Identity itself comes from outside;
// this only turns an already-verified user id into a bearer token.
type AuthService struct {
	authRepo repository.AuthSessionRepository
	secret   string
}

func NewAuthService(authRepo repository.AuthSessionRepository, secret string) *AuthService {
	return &AuthService{authRepo: authRepo, secret: secret}
}

// MintSession creates an auth session and returns the bearer token. Only
// the keyed hash is stored; the token itself is shown once and never again.
func (s *AuthService) MintSession(ctx context.Context, userID string) (string, *model.AuthSession, error) {
	if userID == "" {
		return "", nil, apperrors.MissingRequired("userId")
	}

	token := randomFrom(cameraTokenChars, authTokenLength)
	expiresAt := time.Now().Add(config.AuthSessionTTL)

	session, err := s.authRepo.Create(ctx, HashToken(s.secret, token), userID, expiresAt)
	if err != nil {
		return "", nil, apperrors.Database(err)
	}

	log.Info().
		Str("userId", userID).
		Time("expiresAt", expiresAt).
		Msg("auth session minted")

	return token, session, nil
}
