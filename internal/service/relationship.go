package service

import (
	"context"
	"fmt"

	"github.com/famlink/assist-server-go/internal/model"
	"github.com/famlink/assist-server-go/internal/repository"
)

// RelationshipService answers "may user A act on behalf of user B" and gates
// every profile lookup so display names never leak outside a user's
// relationship set.
type RelationshipService struct {
	relRepo  repository.RelationshipRepository
	userRepo repository.UserRepository
}

func NewRelationshipService(
	relRepo repository.RelationshipRepository,
	userRepo repository.UserRepository,
) *RelationshipService {
	return &RelationshipService{
		relRepo:  relRepo,
		userRepo: userRepo,
	}
}

func (s *RelationshipService) RelatedUserIDs(ctx context.Context, currentUserID string) ([]string, error) {
	ids, err := s.relRepo.RelatedUserIDs(ctx, currentUserID)
	if err != nil {
		return nil, fmt.Errorf("related user ids: %w", err)
	}
	return ids, nil
}

func (s *RelationshipService) IsAuthorized(ctx context.Context, currentUserID, targetID string) (bool, error) {
	if currentUserID == targetID {
		return false, nil
	}
	ok, err := s.relRepo.Exists(ctx, currentUserID, targetID)
	if err != nil {
		return false, fmt.Errorf("relationship exists: %w", err)
	}
	return ok, nil
}

// RelatedProfiles returns the profiles of everyone linked to the caller.
func (s *RelationshipService) RelatedProfiles(ctx context.Context, currentUserID string) ([]model.Profile, error) {
	ids, err := s.RelatedUserIDs(ctx, currentUserID)
	if err != nil {
		return nil, err
	}
	profiles, err := s.userRepo.FindProfiles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find profiles: %w", err)
	}
	return profiles, nil
}

// LookupProfiles resolves display names for the requested ids, silently
// dropping any id outside the caller's relationship set.
func (s *RelationshipService) LookupProfiles(ctx context.Context, currentUserID string, ids []string) ([]model.Profile, error) {
	related, err := s.RelatedUserIDs(ctx, currentUserID)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(related)+1)
	for _, id := range related {
		allowed[id] = true
	}
	allowed[currentUserID] = true

	var filtered []string
	for _, id := range ids {
		if allowed[id] {
			filtered = append(filtered, id)
		}
	}

	profiles, err := s.userRepo.FindProfiles(ctx, filtered)
	if err != nil {
		return nil, fmt.Errorf("find profiles: %w", err)
	}
	return profiles, nil
}
