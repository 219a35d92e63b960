package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/famlink/assist-server-go/internal/model"
	"github.com/famlink/assist-server-go/internal/repository"
)

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) FindOpenByCode(ctx context.Context, code string) (*model.Session, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) FindOpenByViewer(ctx context.Context, viewerUserID string) ([]model.Session, error) {
	args := m.Called(ctx, viewerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Session), args.Error(1)
}

func (m *mockSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) ClaimStart(ctx context.Context, code string, sharerName *string, at time.Time) (*model.Session, error) {
	args := m.Called(ctx, code, sharerName, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) ClearStarted(ctx context.Context, code string) (*model.Session, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) CloseOpenForViewer(ctx context.Context, viewerUserID string, exceptID string) (int64, error) {
	args := m.Called(ctx, viewerUserID, exceptID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSessionRepo) Close(ctx context.Context, code string) (*model.Session, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) CloseStale(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository {
	return m
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindProfiles(ctx context.Context, ids []string) ([]model.Profile, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Profile), args.Error(1)
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id string, displayName *string, requireCode *bool) (*model.User, error) {
	args := m.Called(ctx, id, displayName, requireCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type mockRelationshipRepo struct {
	mock.Mock
}

func (m *mockRelationshipRepo) RelatedUserIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockRelationshipRepo) Exists(ctx context.Context, userA, userB string) (bool, error) {
	args := m.Called(ctx, userA, userB)
	return args.Bool(0), args.Error(1)
}

func (m *mockRelationshipRepo) Create(ctx context.Context, childID, helperID string) (*model.Relationship, error) {
	args := m.Called(ctx, childID, helperID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Relationship), args.Error(1)
}

func (m *mockRelationshipRepo) WithTx(tx *sqlx.Tx) repository.RelationshipRepository {
	return m
}

type mockInviteRepo struct {
	mock.Mock
}

func (m *mockInviteRepo) FindByCode(ctx context.Context, code string) (*model.Invite, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invite), args.Error(1)
}

func (m *mockInviteRepo) FindOpenByIssuer(ctx context.Context, issuerID string) ([]model.Invite, error) {
	args := m.Called(ctx, issuerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Invite), args.Error(1)
}

func (m *mockInviteRepo) Create(ctx context.Context, params model.CreateInviteParams) (*model.Invite, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invite), args.Error(1)
}

func (m *mockInviteRepo) MarkAccepted(ctx context.Context, code string, acceptedBy string, at time.Time) (*model.Invite, error) {
	args := m.Called(ctx, code, acceptedBy, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invite), args.Error(1)
}

func (m *mockInviteRepo) MarkExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInviteRepo) WithTx(tx *sqlx.Tx) repository.InviteRepository {
	return m
}

type mockSupportRepo struct {
	mock.Mock
}

func (m *mockSupportRepo) FindOpenByCode(ctx context.Context, code string) (*model.SupportSession, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SupportSession), args.Error(1)
}

func (m *mockSupportRepo) Create(ctx context.Context, code, ownerUserID string) (*model.SupportSession, error) {
	args := m.Called(ctx, code, ownerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SupportSession), args.Error(1)
}

func (m *mockSupportRepo) Close(ctx context.Context, code string) (*model.SupportSession, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SupportSession), args.Error(1)
}

func (m *mockSupportRepo) AppendMessage(ctx context.Context, sessionID string, sender model.SupportSender, body string) (*model.SupportMessage, error) {
	args := m.Called(ctx, sessionID, sender, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SupportMessage), args.Error(1)
}

func (m *mockSupportRepo) ListMessages(ctx context.Context, sessionID string) ([]model.SupportMessage, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SupportMessage), args.Error(1)
}

func (m *mockSupportRepo) DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockCameraTokenRepo struct {
	mock.Mock
}

func (m *mockCameraTokenRepo) FindByToken(ctx context.Context, token string) (*model.CameraToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CameraToken), args.Error(1)
}

func (m *mockCameraTokenRepo) Create(ctx context.Context, token, supportCode, ownerUserID string, expiresAt time.Time) (*model.CameraToken, error) {
	args := m.Called(ctx, token, supportCode, ownerUserID, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CameraToken), args.Error(1)
}

func (m *mockCameraTokenRepo) DeleteBySupportCode(ctx context.Context, supportCode string) (int64, error) {
	args := m.Called(ctx, supportCode)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCameraTokenRepo) Delete(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockCameraTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
