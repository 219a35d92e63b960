package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/famlink/assist-server-go/internal/model"
)

type SupportSessionRepository interface {
	FindOpenByCode(ctx context.Context, code string) (*model.SupportSession, error)
	Create(ctx context.Context, code, ownerUserID string) (*model.SupportSession, error)
	Close(ctx context.Context, code string) (*model.SupportSession, error)
	AppendMessage(ctx context.Context, sessionID string, sender model.SupportSender, body string) (*model.SupportMessage, error)
	ListMessages(ctx context.Context, sessionID string) ([]model.SupportMessage, error)
	DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type supportSessionRepo struct {
	db *sqlx.DB
}

func NewSupportSessionRepository(db *sqlx.DB) SupportSessionRepository {
	return &supportSessionRepo{db: db}
}

func (r *supportSessionRepo) FindOpenByCode(ctx context.Context, code string) (*model.SupportSession, error) {
	var session model.SupportSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM support_sessions
		WHERE code = $1 AND status = 'open'
	`, code)
	return HandleNotFound(&session, err)
}

func (r *supportSessionRepo) Create(ctx context.Context, code, ownerUserID string) (*model.SupportSession, error) {
	var session model.SupportSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO support_sessions (code, owner_user_id, status)
		VALUES ($1, $2, 'open')
		RETURNING *
	`, code, ownerUserID)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *supportSessionRepo) Close(ctx context.Context, code string) (*model.SupportSession, error) {
	var session model.SupportSession
	err := r.db.GetContext(ctx, &session, `
		UPDATE support_sessions SET
			status = 'closed',
			updated_at = $2
		WHERE code = $1 AND status = 'open'
		RETURNING *
	`, code, time.Now())
	return HandleNotFound(&session, err)
}

func (r *supportSessionRepo) AppendMessage(ctx context.Context, sessionID string, sender model.SupportSender, body string) (*model.SupportMessage, error) {
	var msg model.SupportMessage
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO support_messages (session_id, sender, body)
		VALUES ($1, $2, $3)
		RETURNING *
	`, sessionID, sender, body)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *supportSessionRepo) ListMessages(ctx context.Context, sessionID string) ([]model.SupportMessage, error) {
	var messages []model.SupportMessage
	err := r.db.SelectContext(ctx, &messages, `
		SELECT * FROM support_messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`, sessionID)
	return messages, err
}

func (r *supportSessionRepo) DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM support_sessions
		WHERE status = 'closed' AND updated_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
