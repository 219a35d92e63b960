package service

import (
	"context"
	"strings"

	apperrors "github.com/famlink/assist-server-go/internal/errors"
	"github.com/famlink/assist-server-go/internal/model"
	"github.com/famlink/assist-server-go/internal/repository"
)

const maxDisplayNameLen = 64

// ProfileService covers a user's own profile. Reads of other users' names go
// through RelationshipService, which enforces the related-set gate.
type ProfileService struct {
	userRepo repository.UserRepository
}

func NewProfileService(userRepo repository.UserRepository) *ProfileService {
	return &ProfileService{userRepo: userRepo}
}

// Update applies a partial profile change. Nil fields are left untouched.
func (s *ProfileService) Update(ctx context.Context, currentUserID string, displayName *string, requireCode *bool) (*model.Profile, error) {
	if displayName != nil {
		trimmed := strings.TrimSpace(*displayName)
		if trimmed == "" {
			return nil, apperrors.ValidationError("Display name cannot be empty")
		}
		if len(trimmed) > maxDisplayNameLen {
			return nil, apperrors.ValidationError("Display name too long")
		}
		displayName = &trimmed
	}

	user, err := s.userRepo.UpdateProfile(ctx, currentUserID, displayName, requireCode)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}

	return &model.Profile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		RequireCode: user.RequireCode,
	}, nil
}
