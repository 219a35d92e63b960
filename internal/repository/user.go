package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/famlink/assist-server-go/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindProfiles(ctx context.Context, ids []string) ([]model.Profile, error)
	UpdateProfile(ctx context.Context, id string, displayName *string, requireCode *bool) (*model.User, error)
}

type userRepo struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE id = $1
	`, id)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindProfiles(ctx context.Context, ids []string) ([]model.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, display_name, require_code FROM users WHERE id IN (?)
	`, ids)
	if err != nil {
		return nil, err
	}

	var profiles []model.Profile
	err = r.db.SelectContext(ctx, &profiles, r.db.Rebind(query), args...)
	return profiles, err
}

func (r *userRepo) UpdateProfile(ctx context.Context, id string, displayName *string, requireCode *bool) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		UPDATE users SET
			display_name = COALESCE($2, display_name),
			require_code = COALESCE($3, require_code),
			updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id, displayName, requireCode)
	return HandleNotFound(&user, err)
}
