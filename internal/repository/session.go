package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/famlink/assist-server-go/internal/model"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	FindOpenByCode(ctx context.Context, code string) (*model.Session, error)
	FindOpenByViewer(ctx context.Context, viewerUserID string) ([]model.Session, error)
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	// ClaimStart performs the conditional start update: it sets
	// sharer_started_at only when the session is open and not yet started.
	// A nil result with a nil error means the precondition did not hold;
	// the caller decides between "already started" and "no such session"
	// with a follow-up read.
	ClaimStart(ctx context.Context, code string, sharerName *string, at time.Time) (*model.Session, error)
	ClearStarted(ctx context.Context, code string) (*model.Session, error)
	CloseOpenForViewer(ctx context.Context, viewerUserID string, exceptID string) (int64, error)
	Close(ctx context.Context, code string) (*model.Session, error)
	CloseStale(ctx context.Context, olderThan time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

// sessionDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sessionDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type sessionRepo struct {
	db sessionDB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindOpenByCode(ctx context.Context, code string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions
		WHERE code = $1 AND status = 'open'
	`, code)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindOpenByViewer(ctx context.Context, viewerUserID string) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sessions
		WHERE viewer_user_id = $1 AND status = 'open'
		ORDER BY created_at DESC
	`, viewerUserID)
	return sessions, err
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	var startedAt *time.Time
	if params.StartNow {
		now := time.Now()
		startedAt = &now
	}

	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions (code, status, viewer_user_id, sharer_name, sharer_note, sharer_started_at)
		VALUES ($1, 'open', $2, $3, $4, $5)
		RETURNING *
	`, params.Code, params.ViewerUserID, params.SharerName, params.SharerNote, startedAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) ClaimStart(ctx context.Context, code string, sharerName *string, at time.Time) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		UPDATE sessions SET
			sharer_started_at = $2,
			sharer_name = COALESCE($3, sharer_name),
			updated_at = $2
		WHERE code = $1 AND status = 'open' AND sharer_started_at IS NULL
		RETURNING *
	`, code, at, sharerName)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) ClearStarted(ctx context.Context, code string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		UPDATE sessions SET
			sharer_started_at = NULL,
			updated_at = $2
		WHERE code = $1 AND status = 'open'
		RETURNING *
	`, code, time.Now())
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) CloseOpenForViewer(ctx context.Context, viewerUserID string, exceptID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = 'closed',
			updated_at = $3
		WHERE viewer_user_id = $1 AND status = 'open' AND id <> $2
	`, viewerUserID, exceptID, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *sessionRepo) Close(ctx context.Context, code string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		UPDATE sessions SET
			status = 'closed',
			updated_at = $2
		WHERE code = $1 AND status = 'open'
		RETURNING *
	`, code, time.Now())
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) CloseStale(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = 'closed',
			updated_at = NOW()
		WHERE status = 'open' AND created_at < $1
	`, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
