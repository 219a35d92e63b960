package service

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/famlink/assist-server-go/internal/errors"
	"github.com/famlink/assist-server-go/internal/model"
)

type fakeStore struct {
	paths []string
	data  [][]byte
}

func (s *fakeStore) Put(ctx context.Context, path string, data []byte, contentType string) error {
	s.paths = append(s.paths, path)
	s.data = append(s.data, data)
	return nil
}

func (s *fakeStore) URL(path string) string {
	return "https://cdn.example/" + path
}

func TestSnapshotUpload(t *testing.T) {
	ctx := context.Background()
	viewer := "child"
	image := base64.StdEncoding.EncodeToString([]byte("jpegbytes"))

	t.Run("stores under the viewer and session", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		sessions.On("FindByID", mock.Anything, "s1").
			Return(&model.Session{ID: "s1", Code: "123456", ViewerUserID: &viewer}, nil)

		store := &fakeStore{}
		svc := NewSnapshotService(sessions, store)

		result, err := svc.Upload(ctx, "s1", image, "image/jpeg")
		require.NoError(t, err)
		require.Len(t, store.paths, 1)
		assert.Contains(t, store.paths[0], "snapshots/child/s1/")
		assert.Equal(t, []byte("jpegbytes"), store.data[0])
		assert.Equal(t, "https://cdn.example/"+store.paths[0], result.URL)
	})

	t.Run("rejects invalid base64", func(t *testing.T) {
		svc := NewSnapshotService(new(mockSessionRepo), &fakeStore{})

		_, err := svc.Upload(ctx, "s1", "not base64!!", "")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
	})

	t.Run("rejects an unlinked session", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		sessions.On("FindByID", mock.Anything, "s1").
			Return(&model.Session{ID: "s1", Code: "123456"}, nil)

		svc := NewSnapshotService(sessions, &fakeStore{})

		_, err := svc.Upload(ctx, "s1", image, "")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})

	t.Run("unknown session is a not found", func(t *testing.T) {
		sessions := new(mockSessionRepo)
		sessions.On("FindByID", mock.Anything, "ghost").Return(nil, nil)

		svc := NewSnapshotService(sessions, &fakeStore{})

		_, err := svc.Upload(ctx, "ghost", image, "")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})
}
