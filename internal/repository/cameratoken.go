package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/famlink/assist-server-go/internal/model"
)

type CameraTokenRepository interface {
	FindByToken(ctx context.Context, token string) (*model.CameraToken, error)
	Create(ctx context.Context, token, supportCode, ownerUserID string, expiresAt time.Time) (*model.CameraToken, error)
	// DeleteBySupportCode enforces the single-active-token policy: issuing
	// a new token first removes every prior one for the code.
	DeleteBySupportCode(ctx context.Context, supportCode string) (int64, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type cameraTokenRepo struct {
	db *sqlx.DB
}

func NewCameraTokenRepository(db *sqlx.DB) CameraTokenRepository {
	return &cameraTokenRepo{db: db}
}

func (r *cameraTokenRepo) FindByToken(ctx context.Context, token string) (*model.CameraToken, error) {
	var ct model.CameraToken
	err := r.db.GetContext(ctx, &ct, `
		SELECT * FROM camera_tokens WHERE token = $1
	`, token)
	return HandleNotFound(&ct, err)
}

func (r *cameraTokenRepo) Create(ctx context.Context, token, supportCode, ownerUserID string, expiresAt time.Time) (*model.CameraToken, error) {
	var ct model.CameraToken
	err := r.db.GetContext(ctx, &ct, `
		INSERT INTO camera_tokens (token, support_code, owner_user_id, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, token, supportCode, ownerUserID, expiresAt)
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

func (r *cameraTokenRepo) DeleteBySupportCode(ctx context.Context, supportCode string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM camera_tokens WHERE support_code = $1
	`, supportCode)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *cameraTokenRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM camera_tokens WHERE token = $1
	`, token)
	return err
}

func (r *cameraTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM camera_tokens WHERE expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
