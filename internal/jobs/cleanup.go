package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/famlink/assist-server-go/internal/config"
	"github.com/famlink/assist-server-go/internal/repository"
)

const supportRetention = 30 * 24 * time.Hour

// CleanupJob sweeps expired state on a fixed interval: camera tokens past
// their TTL, invites past their window, dead auth sessions, screen-share
// sessions nobody closed, and long-closed support transcripts.
type CleanupJob struct {
	camTokenRepo repository.CameraTokenRepository
	inviteRepo   repository.InviteRepository
	authRepo     repository.AuthSessionRepository
	sessionRepo  repository.SessionRepository
	supportRepo  repository.SupportSessionRepository
	interval     time.Duration
	done         chan struct{}
}

func NewCleanupJob(
	camTokenRepo repository.CameraTokenRepository,
	inviteRepo repository.InviteRepository,
	authRepo repository.AuthSessionRepository,
	sessionRepo repository.SessionRepository,
	supportRepo repository.SupportSessionRepository,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		camTokenRepo: camTokenRepo,
		inviteRepo:   inviteRepo,
		authRepo:     authRepo,
		sessionRepo:  sessionRepo,
		supportRepo:  supportRepo,
		interval:     interval,
		done:         make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runCleanup(ctx, "camera tokens", j.camTokenRepo.DeleteExpired)
	j.runCleanup(ctx, "invites", j.inviteRepo.MarkExpired)
	j.runCleanup(ctx, "auth sessions", j.authRepo.DeleteExpired)
	j.runCleanup(ctx, "stale sessions", func(ctx context.Context) (int64, error) {
		return j.sessionRepo.CloseStale(ctx, time.Now().Add(-config.StaleSessionAge))
	})
	j.runCleanup(ctx, "support sessions", func(ctx context.Context) (int64, error) {
		return j.supportRepo.DeleteClosedBefore(ctx, time.Now().Add(-supportRetention))
	})
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
