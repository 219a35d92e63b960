package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/famlink/assist-server-go/internal/errors"
	"github.com/famlink/assist-server-go/internal/repository"
	"github.com/famlink/assist-server-go/internal/storage"
)

const snapshotMaxBytes = 5 << 20

// SnapshotService attaches uploaded images to a session, keyed by the
// session's viewer so helpers can find them later.
type SnapshotService struct {
	sessionRepo repository.SessionRepository
	store       storage.Store
}

func NewSnapshotService(sessionRepo repository.SessionRepository, store storage.Store) *SnapshotService {
	return &SnapshotService{
		sessionRepo: sessionRepo,
		store:       store,
	}
}

type SnapshotResult struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

func (s *SnapshotService) Upload(ctx context.Context, sessionID, imageBase64, contentType string) (*SnapshotResult, error) {
	if sessionID == "" {
		return nil, apperrors.MissingRequired("sessionId")
	}
	if imageBase64 == "" {
		return nil, apperrors.MissingRequired("imageBase64")
	}

	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return nil, apperrors.InvalidInput("imageBase64", "not valid base64")
	}
	if len(data) > snapshotMaxBytes {
		return nil, apperrors.InvalidInput("imageBase64", "image too large")
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}
	if session.ViewerUserID == nil {
		return nil, apperrors.ValidationError("Session is not linked to a viewer")
	}

	path := fmt.Sprintf("snapshots/%s/%s/%d.jpg", *session.ViewerUserID, session.ID, time.Now().UnixMilli())
	if err := s.store.Put(ctx, path, data, contentType); err != nil {
		return nil, apperrors.External("object store", err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("path", path).
		Int("bytes", len(data)).
		Msg("snapshot stored")

	return &SnapshotResult{
		Path: path,
		URL:  s.store.URL(path),
	}, nil
}
