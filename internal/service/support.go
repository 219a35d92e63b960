package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/famlink/assist-server-go/internal/config"
	apperrors "github.com/famlink/assist-server-go/internal/errors"
	"github.com/famlink/assist-server-go/internal/model"
	"github.com/famlink/assist-server-go/internal/repository"
)

// SupportService manages the text-chat fallback sessions and their
// append-only transcripts.
type SupportService struct {
	supportRepo repository.SupportSessionRepository
}

func NewSupportService(supportRepo repository.SupportSessionRepository) *SupportService {
	return &SupportService{supportRepo: supportRepo}
}

func (s *SupportService) CreateSession(ctx context.Context, ownerUserID string) (*model.SupportSession, error) {
	session, err := insertWithUniqueRetry(ctx, config.CodeRetryAttempts,
		GenerateSupportCode,
		func(ctx context.Context, code string) (*model.SupportSession, error) {
			return s.supportRepo.Create(ctx, code, ownerUserID)
		})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Database(fmt.Errorf("create support session: %w", err))
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("code", session.Code).
		Msg("support session created")

	return session, nil
}

func (s *SupportService) CloseSession(ctx context.Context, ownerUserID, code string) (*model.SupportSession, error) {
	existing, err := s.findOpen(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing.OwnerUserID != ownerUserID {
		return nil, apperrors.Forbidden("Support code is owned by another user")
	}

	session, err := s.supportRepo.Close(ctx, code)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return existing, nil
	}
	return session, nil
}

// AppendMessage adds one transcript entry. Unauthenticated: the code is the
// capability, the same trust model as the signaling channel itself.
func (s *SupportService) AppendMessage(ctx context.Context, code string, sender model.SupportSender, body string) (*model.SupportMessage, error) {
	if !sender.Valid() {
		return nil, apperrors.InvalidInput("sender", "must be parent or child")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.MissingRequired("body")
	}
	if utf8.RuneCountInString(body) > config.SupportMessageMaxLen {
		return nil, apperrors.InvalidInput("body", fmt.Sprintf("must be at most %d characters", config.SupportMessageMaxLen))
	}

	session, err := s.findOpen(ctx, code)
	if err != nil {
		return nil, err
	}

	msg, err := s.supportRepo.AppendMessage(ctx, session.ID, sender, body)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return msg, nil
}

func (s *SupportService) ListMessages(ctx context.Context, code string) ([]model.SupportMessage, error) {
	session, err := s.findOpen(ctx, code)
	if err != nil {
		return nil, err
	}

	messages, err := s.supportRepo.ListMessages(ctx, session.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return messages, nil
}

func (s *SupportService) findOpen(ctx context.Context, code string) (*model.SupportSession, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, apperrors.MissingRequired("code")
	}

	session, err := s.supportRepo.FindOpenByCode(ctx, normalized)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Support session")
	}
	return session, nil
}
