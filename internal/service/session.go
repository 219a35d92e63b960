package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/famlink/assist-server-go/internal/config"
	apperrors "github.com/famlink/assist-server-go/internal/errors"
	"github.com/famlink/assist-server-go/internal/model"
	"github.com/famlink/assist-server-go/internal/repository"
)

var sessionCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Auto-assignment outcomes reported back to the creating client.
const (
	AssignReasonSingleNoCodeChild = "single_no_code_child"
	AssignReasonNoCandidates      = "no_candidates"
	AssignReasonAmbiguous         = "ambiguous"
	AssignReasonExplicit          = "explicit"
)

type CreateSessionResult struct {
	Session      *model.Session `json:"session"`
	AutoAssigned bool           `json:"autoAssigned"`
	AssignReason string         `json:"assignReason,omitempty"`
}

type ActiveSessionsResult struct {
	Sessions    []model.Session `json:"sessions"`
	RequireCode bool            `json:"requireCode"`
}

// SessionService owns the screen-share lifecycle: unlinked -> linked ->
// started -> stopped -> closed. Start is the only transition with a
// concurrency guarantee; everything else is idempotent in effect.
type SessionService struct {
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	rels        *RelationshipService
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	rels *RelationshipService,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		rels:        rels,
	}
}

// CreateLinked creates an open session targeting a user the caller is
// already related to. Fails closed when no relationship exists.
func (s *SessionService) CreateLinked(ctx context.Context, requesterUserID, targetViewerID string) (*model.Session, error) {
	ok, err := s.rels.IsAuthorized(ctx, requesterUserID, targetViewerID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if !ok {
		return nil, apperrors.NotLinked()
	}

	session, err := s.allocateSession(ctx, model.CreateSessionParams{
		ViewerUserID: &targetViewerID,
	})
	if err != nil {
		return nil, err
	}

	s.supersedePriorOpens(ctx, targetViewerID, session.ID)

	log.Info().
		Str("sessionId", session.ID).
		Str("code", session.Code).
		Str("viewerUserId", targetViewerID).
		Msg("linked session created")

	return session, nil
}

// CreateWithAutoAssign creates a session on behalf of the sharing side,
// resolving the viewer automatically when none is given: among the caller's
// related users, exactly one whose profile opts out of requiring a code.
// Ambiguity means no assignment, never a guess. The creator is presumed to
// start sharing immediately, so the started timestamp is always stamped.
func (s *SessionService) CreateWithAutoAssign(
	ctx context.Context,
	requesterUserID string,
	explicitViewerID *string,
	name string,
	note *string,
) (*CreateSessionResult, error) {
	viewerID := explicitViewerID
	autoAssigned := false
	reason := AssignReasonExplicit

	if viewerID == nil {
		candidate, r, err := s.autoAssignViewer(ctx, requesterUserID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		viewerID = candidate
		reason = r
		autoAssigned = candidate != nil
	} else {
		ok, err := s.rels.IsAuthorized(ctx, requesterUserID, *viewerID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if !ok {
			return nil, apperrors.NotLinked()
		}
	}

	session, err := s.allocateSession(ctx, model.CreateSessionParams{
		ViewerUserID: viewerID,
		SharerName:   name,
		SharerNote:   note,
		StartNow:     true,
	})
	if err != nil {
		return nil, err
	}

	if viewerID != nil {
		s.supersedePriorOpens(ctx, *viewerID, session.ID)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("code", session.Code).
		Bool("autoAssigned", autoAssigned).
		Str("assignReason", reason).
		Msg("session created")

	return &CreateSessionResult{
		Session:      session,
		AutoAssigned: autoAssigned,
		AssignReason: reason,
	}, nil
}

func (s *SessionService) autoAssignViewer(ctx context.Context, requesterUserID string) (*string, string, error) {
	relatedIDs, err := s.rels.RelatedUserIDs(ctx, requesterUserID)
	if err != nil {
		return nil, AssignReasonNoCandidates, err
	}

	profiles, err := s.userRepo.FindProfiles(ctx, relatedIDs)
	if err != nil {
		return nil, AssignReasonNoCandidates, err
	}

	var candidates []string
	for _, p := range profiles {
		if !p.RequireCode {
			candidates = append(candidates, p.ID)
		}
	}

	switch len(candidates) {
	case 0:
		return nil, AssignReasonNoCandidates, nil
	case 1:
		return &candidates[0], AssignReasonSingleNoCodeChild, nil
	default:
		return nil, AssignReasonAmbiguous, nil
	}
}

// ClaimAndStart is the conditional start: exactly one concurrent caller
// observes the claim succeeding; every later caller gets the already-started
// row back unchanged. A code that matches no open session is a 404, matching
// every other code lookup on this API.
func (s *SessionService) ClaimAndStart(ctx context.Context, code string, sharerName *string) (*model.Session, error) {
	if !sessionCodePattern.MatchString(code) {
		return nil, apperrors.InvalidInput("code", "must be 6 digits")
	}

	session, err := s.sessionRepo.ClaimStart(ctx, code, sharerName, time.Now())
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session != nil {
		log.Info().Str("sessionId", session.ID).Str("code", code).Msg("session started")
		return session, nil
	}

	// Zero rows: either someone else started it first, or there is no
	// such open session. The fallback read tells them apart.
	existing, err := s.sessionRepo.FindOpenByCode(ctx, code)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing == nil {
		return nil, apperrors.NotFound("Session")
	}
	return existing, nil
}

// Stop clears the started flag while keeping the session open, so sharing
// can resume on the same code.
func (s *SessionService) Stop(ctx context.Context, code string) (*model.Session, error) {
	if !sessionCodePattern.MatchString(code) {
		return nil, apperrors.InvalidInput("code", "must be 6 digits")
	}

	session, err := s.sessionRepo.ClearStarted(ctx, code)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}

	log.Info().Str("sessionId", session.ID).Str("code", code).Msg("session stopped")
	return session, nil
}

// CloseByCode closes a session for good. Only the session's viewer or a
// user related to the viewer may close it.
func (s *SessionService) CloseByCode(ctx context.Context, currentUserID, code string) (*model.Session, error) {
	existing, err := s.sessionRepo.FindOpenByCode(ctx, code)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing == nil {
		return nil, apperrors.NotFound("Session")
	}

	if existing.ViewerUserID != nil && *existing.ViewerUserID != currentUserID {
		ok, err := s.rels.IsAuthorized(ctx, currentUserID, *existing.ViewerUserID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if !ok {
			return nil, apperrors.Forbidden("Not allowed to close this session")
		}
	}

	session, err := s.sessionRepo.Close(ctx, code)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		// Raced with another close. The terminal state is what matters.
		return existing, nil
	}

	log.Info().Str("sessionId", session.ID).Str("code", code).Msg("session closed")
	return session, nil
}

// ActiveForUser lists the caller's open sessions along with the
// require_code flag that tells the UI whether code entry can be skipped.
func (s *SessionService) ActiveForUser(ctx context.Context, userID string) (*ActiveSessionsResult, error) {
	sessions, err := s.sessionRepo.FindOpenByViewer(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	requireCode, err := s.RequireCode(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ActiveSessionsResult{
		Sessions:    sessions,
		RequireCode: requireCode,
	}, nil
}

// RequireCode reads the per-profile opt-out flag. Missing users default to
// requiring a code: fail closed.
func (s *SessionService) RequireCode(ctx context.Context, userID string) (bool, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return true, apperrors.Database(err)
	}
	if user == nil {
		return true, nil
	}
	return user.RequireCode, nil
}

func (s *SessionService) allocateSession(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	session, err := insertWithUniqueRetry(ctx, config.CodeRetryAttempts,
		GenerateSessionCode,
		func(ctx context.Context, code string) (*model.Session, error) {
			p := params
			p.Code = code
			return s.sessionRepo.Create(ctx, p)
		})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Database(fmt.Errorf("create session: %w", err))
	}
	return session, nil
}

// supersedePriorOpens keeps at most one open session per viewer. Failure
// here is logged, not surfaced: the new session is already committed.
func (s *SessionService) supersedePriorOpens(ctx context.Context, viewerUserID, exceptID string) {
	closed, err := s.sessionRepo.CloseOpenForViewer(ctx, viewerUserID, exceptID)
	if err != nil {
		log.Error().Err(err).Str("viewerUserId", viewerUserID).Msg("failed to close superseded sessions")
		return
	}
	if closed > 0 {
		log.Info().Int64("count", closed).Str("viewerUserId", viewerUserID).Msg("closed superseded sessions")
	}
}
