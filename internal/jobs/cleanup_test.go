package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/famlink/assist-server-go/internal/model"
	"github.com/famlink/assist-server-go/internal/repository"
)

// Counting fakes: cleanup only touches one method per repository, the rest
// are inert.

type fakeCamTokenRepo struct {
	deleteExpiredCalls int
}

func (f *fakeCamTokenRepo) FindByToken(ctx context.Context, token string) (*model.CameraToken, error) {
	return nil, nil
}
func (f *fakeCamTokenRepo) Create(ctx context.Context, token, supportCode, ownerUserID string, expiresAt time.Time) (*model.CameraToken, error) {
	return nil, nil
}
func (f *fakeCamTokenRepo) DeleteBySupportCode(ctx context.Context, supportCode string) (int64, error) {
	return 0, nil
}
func (f *fakeCamTokenRepo) Delete(ctx context.Context, token string) error { return nil }
func (f *fakeCamTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	f.deleteExpiredCalls++
	return 2, nil
}

type fakeInviteRepo struct {
	markExpiredCalls int
}

func (f *fakeInviteRepo) FindByCode(ctx context.Context, code string) (*model.Invite, error) {
	return nil, nil
}
func (f *fakeInviteRepo) FindOpenByIssuer(ctx context.Context, issuerID string) ([]model.Invite, error) {
	return nil, nil
}
func (f *fakeInviteRepo) Create(ctx context.Context, params model.CreateInviteParams) (*model.Invite, error) {
	return nil, nil
}
func (f *fakeInviteRepo) MarkAccepted(ctx context.Context, code string, acceptedBy string, at time.Time) (*model.Invite, error) {
	return nil, nil
}
func (f *fakeInviteRepo) MarkExpired(ctx context.Context) (int64, error) {
	f.markExpiredCalls++
	return 1, nil
}
func (f *fakeInviteRepo) WithTx(tx *sqlx.Tx) repository.InviteRepository { return f }

type fakeAuthRepo struct {
	deleteExpiredCalls int
}

func (f *fakeAuthRepo) FindUserByTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	return nil, nil
}
func (f *fakeAuthRepo) Create(ctx context.Context, tokenHash, userID string, expiresAt time.Time) (*model.AuthSession, error) {
	return nil, nil
}
func (f *fakeAuthRepo) DeleteExpired(ctx context.Context) (int64, error) {
	f.deleteExpiredCalls++
	return 0, nil
}

type fakeSessionRepo struct {
	closeStaleCalls int
	staleCutoff     time.Time
}

func (f *fakeSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}
func (f *fakeSessionRepo) FindOpenByCode(ctx context.Context, code string) (*model.Session, error) {
	return nil, nil
}
func (f *fakeSessionRepo) FindOpenByViewer(ctx context.Context, viewerUserID string) ([]model.Session, error) {
	return nil, nil
}
func (f *fakeSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	return nil, nil
}
func (f *fakeSessionRepo) ClaimStart(ctx context.Context, code string, sharerName *string, at time.Time) (*model.Session, error) {
	return nil, nil
}
func (f *fakeSessionRepo) ClearStarted(ctx context.Context, code string) (*model.Session, error) {
	return nil, nil
}
func (f *fakeSessionRepo) CloseOpenForViewer(ctx context.Context, viewerUserID string, exceptID string) (int64, error) {
	return 0, nil
}
func (f *fakeSessionRepo) Close(ctx context.Context, code string) (*model.Session, error) {
	return nil, nil
}
func (f *fakeSessionRepo) CloseStale(ctx context.Context, olderThan time.Time) (int64, error) {
	f.closeStaleCalls++
	f.staleCutoff = olderThan
	return 3, nil
}
func (f *fakeSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository { return f }

type fakeSupportRepo struct {
	deleteClosedCalls int
}

func (f *fakeSupportRepo) FindOpenByCode(ctx context.Context, code string) (*model.SupportSession, error) {
	return nil, nil
}
func (f *fakeSupportRepo) Create(ctx context.Context, code, ownerUserID string) (*model.SupportSession, error) {
	return nil, nil
}
func (f *fakeSupportRepo) Close(ctx context.Context, code string) (*model.SupportSession, error) {
	return nil, nil
}
func (f *fakeSupportRepo) AppendMessage(ctx context.Context, sessionID string, sender model.SupportSender, body string) (*model.SupportMessage, error) {
	return nil, nil
}
func (f *fakeSupportRepo) ListMessages(ctx context.Context, sessionID string) ([]model.SupportMessage, error) {
	return nil, nil
}
func (f *fakeSupportRepo) DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.deleteClosedCalls++
	return 0, nil
}

func TestCleanupSweepsEverything(t *testing.T) {
	camTokens := &fakeCamTokenRepo{}
	invites := &fakeInviteRepo{}
	auth := &fakeAuthRepo{}
	sessions := &fakeSessionRepo{}
	support := &fakeSupportRepo{}

	job := NewCleanupJob(camTokens, invites, auth, sessions, support, time.Hour)
	job.cleanup()

	assert.Equal(t, 1, camTokens.deleteExpiredCalls)
	assert.Equal(t, 1, invites.markExpiredCalls)
	assert.Equal(t, 1, auth.deleteExpiredCalls)
	assert.Equal(t, 1, sessions.closeStaleCalls)
	assert.Equal(t, 1, support.deleteClosedCalls)

	// Stale sessions are judged against a cutoff in the past.
	assert.True(t, sessions.staleCutoff.Before(time.Now()))
}

func TestCleanupJobStartStop(t *testing.T) {
	job := NewCleanupJob(&fakeCamTokenRepo{}, &fakeInviteRepo{}, &fakeAuthRepo{}, &fakeSessionRepo{}, &fakeSupportRepo{}, time.Hour)
	job.Start()
	job.Stop()
}
