package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/famlink/assist-server-go/internal/model"
)

type AuthSessionRepository interface {
	// FindUserByTokenHash resolves a session token hash to its user,
	// ignoring expired sessions.
	FindUserByTokenHash(ctx context.Context, tokenHash string) (*model.User, error)
	Create(ctx context.Context, tokenHash, userID string, expiresAt time.Time) (*model.AuthSession, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type authSessionRepo struct {
	db *sqlx.DB
}

func NewAuthSessionRepository(db *sqlx.DB) AuthSessionRepository {
	return &authSessionRepo{db: db}
}

func (r *authSessionRepo) FindUserByTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT u.* FROM users u
		JOIN auth_sessions s ON s.user_id = u.id
		WHERE s.token_hash = $1 AND s.expires_at > NOW()
	`, tokenHash)
	return HandleNotFound(&user, err)
}

func (r *authSessionRepo) Create(ctx context.Context, tokenHash, userID string, expiresAt time.Time) (*model.AuthSession, error) {
	var session model.AuthSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO auth_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING *
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *authSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM auth_sessions WHERE expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
