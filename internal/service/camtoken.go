package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/famlink/assist-server-go/internal/errors"
	"github.com/famlink/assist-server-go/internal/model"
	"github.com/famlink/assist-server-go/internal/repository"
)

// CameraTokenService issues and resolves the single-use-window capability
// tokens that let a phone join a code's camera channel without a login.
type CameraTokenService struct {
	tokenRepo   repository.CameraTokenRepository
	supportRepo repository.SupportSessionRepository
	tokenTTL    time.Duration
}

func NewCameraTokenService(
	tokenRepo repository.CameraTokenRepository,
	supportRepo repository.SupportSessionRepository,
	tokenTTL time.Duration,
) *CameraTokenService {
	return &CameraTokenService{
		tokenRepo:   tokenRepo,
		supportRepo: supportRepo,
		tokenTTL:    tokenTTL,
	}
}

// IssueToken claims ownership of the support code (creating the session if
// absent), revokes every prior token for it, and mints a fresh one. Only
// one token per code is valid at a time.
func (s *CameraTokenService) IssueToken(ctx context.Context, ownerUserID, supportCode string) (*model.CameraToken, error) {
	// Codes are stored upper-cased; a raw lowercase code here would claim a
	// shadow session next to the real one.
	supportCode = strings.ToUpper(strings.TrimSpace(supportCode))
	if supportCode == "" {
		return nil, apperrors.MissingRequired("supportCode")
	}

	session, err := s.supportRepo.FindOpenByCode(ctx, supportCode)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	if session == nil {
		session, err = s.supportRepo.Create(ctx, supportCode, ownerUserID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
	} else if session.OwnerUserID != ownerUserID {
		return nil, apperrors.Forbidden("Support code is owned by another user")
	}

	if _, err := s.tokenRepo.DeleteBySupportCode(ctx, supportCode); err != nil {
		return nil, apperrors.Database(err)
	}

	token, err := s.tokenRepo.Create(ctx,
		GenerateCameraToken(CameraTokenLength),
		supportCode,
		ownerUserID,
		time.Now().Add(s.tokenTTL),
	)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("supportCode", supportCode).
		Str("ownerUserId", ownerUserID).
		Time("expiresAt", token.ExpiresAt).
		Msg("camera token issued")

	return token, nil
}

// ResolveToken maps a token back to its support code. The token is the
// capability; no identity is required. Expired rows are deleted on sight,
// but expiry is still checked here because the sweep is only advisory.
func (s *CameraTokenService) ResolveToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperrors.MissingRequired("token")
	}

	ct, err := s.tokenRepo.FindByToken(ctx, token)
	if err != nil {
		return "", apperrors.Database(err)
	}
	if ct == nil {
		return "", apperrors.NotFound("Camera token")
	}

	if ct.Expired(time.Now()) {
		if err := s.tokenRepo.Delete(ctx, token); err != nil {
			log.Warn().Err(err).Msg("failed to delete expired camera token")
		}
		return "", apperrors.Expired("Camera token")
	}

	return ct.SupportCode, nil
}
