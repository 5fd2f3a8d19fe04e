package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/repository"
)

// TokenCleanupWorker periodically deletes password reset tokens that can no
// longer be redeemed.
type TokenCleanupWorker struct {
	repo            repository.PasswordResetRepository
	retention       time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

func NewTokenCleanupWorker(repo repository.PasswordResetRepository, retention, cleanupInterval time.Duration) *TokenCleanupWorker {
	return &TokenCleanupWorker{
		repo:            repo,
		retention:       retention,
		cleanupInterval: cleanupInterval,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Start runs until ctx is cancelled.
func (w *TokenCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Cleanup(ctx); err != nil {
				log.Ctx(ctx).Error().Err(err).Msg("reset token cleanup failed")
			}
		}
	}
}

func (w *TokenCleanupWorker) Cleanup(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.retention)
	n, err := w.repo.Purge(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Ctx(ctx).Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("purged reset tokens")
	}
	return n, nil
}
