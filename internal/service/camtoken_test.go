package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/famlink/assist-server-go/internal/errors"
	"github.com/famlink/assist-server-go/internal/model"
)

func TestIssueToken(t *testing.T) {
	ctx := context.Background()

	t.Run("claims an unclaimed support code", func(t *testing.T) {
		supportRepo := new(mockSupportRepo)
		supportRepo.On("FindOpenByCode", mock.Anything, "AB12CD").Return(nil, nil)
		supportRepo.On("Create", mock.Anything, "AB12CD", "owner").
			Return(&model.SupportSession{ID: "sp1", Code: "AB12CD", OwnerUserID: "owner"}, nil)

		tokenRepo := new(mockCameraTokenRepo)
		tokenRepo.On("DeleteBySupportCode", mock.Anything, "AB12CD").Return(int64(0), nil)
		tokenRepo.On("Create", mock.Anything, mock.AnythingOfType("string"), "AB12CD", "owner", mock.AnythingOfType("time.Time")).
			Return(&model.CameraToken{Token: "tok", SupportCode: "AB12CD", OwnerUserID: "owner", ExpiresAt: time.Now().Add(30 * time.Minute)}, nil)

		svc := NewCameraTokenService(tokenRepo, supportRepo, 30*time.Minute)

		token, err := svc.IssueToken(ctx, "owner", "AB12CD")
		require.NoError(t, err)
		assert.Equal(t, "AB12CD", token.SupportCode)
		supportRepo.AssertExpectations(t)
	})

	t.Run("revokes prior tokens before minting", func(t *testing.T) {
		supportRepo := new(mockSupportRepo)
		supportRepo.On("FindOpenByCode", mock.Anything, "AB12CD").
			Return(&model.SupportSession{ID: "sp1", Code: "AB12CD", OwnerUserID: "owner"}, nil)

		tokenRepo := new(mockCameraTokenRepo)
		tokenRepo.On("DeleteBySupportCode", mock.Anything, "AB12CD").Return(int64(2), nil)
		tokenRepo.On("Create", mock.Anything, mock.AnythingOfType("string"), "AB12CD", "owner", mock.AnythingOfType("time.Time")).
			Return(&model.CameraToken{Token: "fresh", SupportCode: "AB12CD"}, nil)

		svc := NewCameraTokenService(tokenRepo, supportRepo, 30*time.Minute)

		token, err := svc.IssueToken(ctx, "owner", "AB12CD")
		require.NoError(t, err)
		assert.Equal(t, "fresh", token.Token)
		tokenRepo.AssertExpectations(t)
	})

	t.Run("normalizes the code before looking up ownership", func(t *testing.T) {
		supportRepo := new(mockSupportRepo)
		supportRepo.On("FindOpenByCode", mock.Anything, "AB12CD").
			Return(&model.SupportSession{ID: "sp1", Code: "AB12CD", OwnerUserID: "owner"}, nil)

		tokenRepo := new(mockCameraTokenRepo)
		tokenRepo.On("DeleteBySupportCode", mock.Anything, "AB12CD").Return(int64(0), nil)
		tokenRepo.On("Create", mock.Anything, mock.AnythingOfType("string"), "AB12CD", "owner", mock.AnythingOfType("time.Time")).
			Return(&model.CameraToken{Token: "tok", SupportCode: "AB12CD"}, nil)

		svc := NewCameraTokenService(tokenRepo, supportRepo, 30*time.Minute)

		token, err := svc.IssueToken(ctx, "owner", " ab12cd ")
		require.NoError(t, err)
		assert.Equal(t, "AB12CD", token.SupportCode)
		supportRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty code is rejected up front", func(t *testing.T) {
		svc := NewCameraTokenService(new(mockCameraTokenRepo), new(mockSupportRepo), 30*time.Minute)

		_, err := svc.IssueToken(ctx, "owner", "   ")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))
	})

	t.Run("rejects a code owned by someone else", func(t *testing.T) {
		supportRepo := new(mockSupportRepo)
		supportRepo.On("FindOpenByCode", mock.Anything, "AB12CD").
			Return(&model.SupportSession{ID: "sp1", Code: "AB12CD", OwnerUserID: "other"}, nil)

		svc := NewCameraTokenService(new(mockCameraTokenRepo), supportRepo, 30*time.Minute)

		_, err := svc.IssueToken(ctx, "owner", "AB12CD")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetCode(err))
	})
}

func TestResolveToken(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token resolves to its code", func(t *testing.T) {
		tokenRepo := new(mockCameraTokenRepo)
		tokenRepo.On("FindByToken", mock.Anything, "tok").
			Return(&model.CameraToken{Token: "tok", SupportCode: "AB12CD", ExpiresAt: time.Now().Add(time.Minute)}, nil)

		svc := NewCameraTokenService(tokenRepo, new(mockSupportRepo), 30*time.Minute)

		code, err := svc.ResolveToken(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, "AB12CD", code)
	})

	t.Run("unknown token is a not found", func(t *testing.T) {
		tokenRepo := new(mockCameraTokenRepo)
		tokenRepo.On("FindByToken", mock.Anything, "nope").Return(nil, nil)

		svc := NewCameraTokenService(tokenRepo, new(mockSupportRepo), 30*time.Minute)

		_, err := svc.ResolveToken(ctx, "nope")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})

	t.Run("expired token is deleted and reported expired", func(t *testing.T) {
		tokenRepo := new(mockCameraTokenRepo)
		tokenRepo.On("FindByToken", mock.Anything, "stale").
			Return(&model.CameraToken{Token: "stale", SupportCode: "AB12CD", ExpiresAt: time.Now().Add(-time.Millisecond)}, nil)
		tokenRepo.On("Delete", mock.Anything, "stale").Return(nil)

		svc := NewCameraTokenService(tokenRepo, new(mockSupportRepo), 30*time.Minute)

		_, err := svc.ResolveToken(ctx, "stale")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeExpired, apperrors.GetCode(err))
		tokenRepo.AssertCalled(t, "Delete", mock.Anything, "stale")
	})

	t.Run("empty token is rejected up front", func(t *testing.T) {
		svc := NewCameraTokenService(new(mockCameraTokenRepo), new(mockSupportRepo), 30*time.Minute)

		_, err := svc.ResolveToken(ctx, "")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))
	})
}
