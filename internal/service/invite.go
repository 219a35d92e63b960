package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/famlink/assist-server-go/internal/config"
	"github.com/famlink/assist-server-go/internal/database"
	apperrors "github.com/famlink/assist-server-go/internal/errors"
	"github.com/famlink/assist-server-go/internal/model"
	"github.com/famlink/assist-server-go/internal/repository"
)

// TxRunner runs a function inside a database transaction. *database.DB
// satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

// InviteService issues durable pairing codes and performs the one atomic
// operation that creates relationships: invite acceptance.
type InviteService struct {
	db         TxRunner
	inviteRepo repository.InviteRepository
	relRepo    repository.RelationshipRepository
	inviteTTL  time.Duration
}

func NewInviteService(
	db TxRunner,
	inviteRepo repository.InviteRepository,
	relRepo repository.RelationshipRepository,
	inviteTTL time.Duration,
) *InviteService {
	return &InviteService{
		db:         db,
		inviteRepo: inviteRepo,
		relRepo:    relRepo,
		inviteTTL:  inviteTTL,
	}
}

func (s *InviteService) CreateInvite(ctx context.Context, issuerID string) (*model.Invite, error) {
	expiresAt := time.Now().Add(s.inviteTTL)

	invite, err := insertWithUniqueRetry(ctx, config.CodeRetryAttempts,
		GenerateInviteCode,
		func(ctx context.Context, code string) (*model.Invite, error) {
			return s.inviteRepo.Create(ctx, model.CreateInviteParams{
				Code:      code,
				IssuerID:  issuerID,
				ExpiresAt: expiresAt,
			})
		})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Database(fmt.Errorf("create invite: %w", err))
	}

	log.Info().
		Str("code", invite.Code).
		Str("issuerId", issuerID).
		Time("expiresAt", expiresAt).
		Msg("invite created")

	return invite, nil
}

func (s *InviteService) ListOpenInvites(ctx context.Context, issuerID string) ([]model.Invite, error) {
	invites, err := s.inviteRepo.FindOpenByIssuer(ctx, issuerID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return invites, nil
}

// AcceptInvite transitions the invite open -> accepted and creates the
// relationship row in one transaction, or does neither. Re-acceptance by
// the same user is idempotent; acceptance by anyone else after the claim
// is rejected.
func (s *InviteService) AcceptInvite(ctx context.Context, currentUserID, code string) (*model.Invite, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, apperrors.MissingRequired("code")
	}

	var accepted *model.Invite
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		invites := s.inviteRepo.WithTx(tx)
		rels := s.relRepo.WithTx(tx)

		invite, err := invites.MarkAccepted(ctx, normalized, currentUserID, time.Now())
		if err != nil {
			return fmt.Errorf("mark accepted: %w", err)
		}

		if invite == nil {
			// The conditional update matched nothing: the code is
			// unknown, expired, or already claimed. Decide which.
			existing, err := invites.FindByCode(ctx, normalized)
			if err != nil {
				return fmt.Errorf("find invite: %w", err)
			}
			switch {
			case existing == nil:
				return apperrors.InvalidCode()
			case existing.Status == model.InviteStatusAccepted && existing.AcceptedBy != nil && *existing.AcceptedBy == currentUserID:
				// Double submission by the accepting user.
				accepted = existing
				return nil
			case existing.Status == model.InviteStatusAccepted:
				return apperrors.AlreadyAccepted()
			default:
				return apperrors.Expired("Invite")
			}
		}

		if invite.IssuerID == currentUserID {
			return apperrors.ValidationError("Cannot accept your own invite")
		}

		if _, err := rels.Create(ctx, currentUserID, invite.IssuerID); err != nil {
			return fmt.Errorf("create relationship: %w", err)
		}

		accepted = invite
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("code", normalized).
		Str("acceptedBy", currentUserID).
		Str("issuerId", accepted.IssuerID).
		Msg("invite accepted")

	return accepted, nil
}
