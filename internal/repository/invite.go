package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/famlink/assist-server-go/internal/model"
)

type InviteRepository interface {
	FindByCode(ctx context.Context, code string) (*model.Invite, error)
	FindOpenByIssuer(ctx context.Context, issuerID string) ([]model.Invite, error)
	Create(ctx context.Context, params model.CreateInviteParams) (*model.Invite, error)
	// MarkAccepted flips an open invite to accepted. Returns nil without
	// error when the invite is no longer open (someone else won the race).
	MarkAccepted(ctx context.Context, code string, acceptedBy string, at time.Time) (*model.Invite, error)
	MarkExpired(ctx context.Context) (int64, error)
	WithTx(tx *sqlx.Tx) InviteRepository
}

type inviteRepo struct {
	db sessionDB
}

func NewInviteRepository(db *sqlx.DB) InviteRepository {
	return &inviteRepo{db: db}
}

func (r *inviteRepo) WithTx(tx *sqlx.Tx) InviteRepository {
	return &inviteRepo{db: tx}
}

func (r *inviteRepo) FindByCode(ctx context.Context, code string) (*model.Invite, error) {
	var invite model.Invite
	err := r.db.GetContext(ctx, &invite, `
		SELECT * FROM invites WHERE code = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, code)
	return HandleNotFound(&invite, err)
}

func (r *inviteRepo) FindOpenByIssuer(ctx context.Context, issuerID string) ([]model.Invite, error) {
	var invites []model.Invite
	err := r.db.SelectContext(ctx, &invites, `
		SELECT * FROM invites
		WHERE issuer_id = $1 AND status = 'open' AND expires_at > NOW()
		ORDER BY created_at DESC
	`, issuerID)
	return invites, err
}

func (r *inviteRepo) Create(ctx context.Context, params model.CreateInviteParams) (*model.Invite, error) {
	var invite model.Invite
	err := r.db.GetContext(ctx, &invite, `
		INSERT INTO invites (code, issuer_id, status, expires_at)
		VALUES ($1, $2, 'open', $3)
		RETURNING *
	`, params.Code, params.IssuerID, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *inviteRepo) MarkAccepted(ctx context.Context, code string, acceptedBy string, at time.Time) (*model.Invite, error) {
	var invite model.Invite
	err := r.db.GetContext(ctx, &invite, `
		UPDATE invites SET
			status = 'accepted',
			accepted_by = $2,
			accepted_at = $3
		WHERE code = $1 AND status = 'open' AND expires_at > $3
		RETURNING *
	`, code, acceptedBy, at)
	return HandleNotFound(&invite, err)
}

func (r *inviteRepo) MarkExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE invites SET status = 'expired'
		WHERE status = 'open' AND expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
