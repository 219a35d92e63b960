package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/famlink/assist-server-go/internal/model"
)

type RelationshipRepository interface {
	// RelatedUserIDs returns the ids of everyone linked to userID,
	// regardless of which role userID holds in the stored row.
	RelatedUserIDs(ctx context.Context, userID string) ([]string, error)
	Exists(ctx context.Context, userA, userB string) (bool, error)
	Create(ctx context.Context, childID, helperID string) (*model.Relationship, error)
	WithTx(tx *sqlx.Tx) RelationshipRepository
}

type relationshipRepo struct {
	db sessionDB
}

func NewRelationshipRepository(db *sqlx.DB) RelationshipRepository {
	return &relationshipRepo{db: db}
}

func (r *relationshipRepo) WithTx(tx *sqlx.Tx) RelationshipRepository {
	return &relationshipRepo{db: tx}
}

func (r *relationshipRepo) RelatedUserIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		SELECT DISTINCT other FROM (
			SELECT helper_id AS other FROM relationships WHERE child_id = $1
			UNION
			SELECT child_id AS other FROM relationships WHERE helper_id = $1
		) related
		WHERE other <> $1
	`, userID)
	return ids, err
}

func (r *relationshipRepo) Exists(ctx context.Context, userA, userB string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM relationships
			WHERE (child_id = $1 AND helper_id = $2)
			OR (child_id = $2 AND helper_id = $1)
		)
	`, userA, userB)
	return exists, err
}

func (r *relationshipRepo) Create(ctx context.Context, childID, helperID string) (*model.Relationship, error) {
	var rel model.Relationship
	err := r.db.GetContext(ctx, &rel, `
		INSERT INTO relationships (child_id, helper_id)
		VALUES ($1, $2)
		ON CONFLICT (child_id, helper_id) DO UPDATE SET child_id = EXCLUDED.child_id
		RETURNING *
	`, childID, helperID)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}
