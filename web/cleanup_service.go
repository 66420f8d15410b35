package web

import (
	"context"
	"fmt"
	"time"

	"problem-relay/config"
	"problem-relay/database"

	"go.uber.org/zap"
)

// CleanupService removes sessions past the retention age
type CleanupService struct {
	store  database.SessionStore
	logger *zap.Logger
}

// NewCleanupService creates a new cleanup service instance
func NewCleanupService(store database.SessionStore, logger *zap.Logger) *CleanupService {
	return &CleanupService{
		store:  store,
		logger: logger,
	}
}

// CleanupStaleSessions deletes sessions not written for maxAge.
// Stores that expire entries on their own (redis TTLs) are skipped.
func (cs *CleanupService) CleanupStaleSessions(ctx context.Context, maxAge time.Duration) (int, error) {
	pruner, ok := cs.store.(database.Pruner)
	if !ok {
		cs.logger.Debug("Session store expires entries itself, skipping cleanup")
		return 0, nil
	}

	cutoffTime := time.Now().Add(-maxAge)
	cs.logger.Info("Starting stale session cleanup",
		zap.Time("cutoff_time", cutoffTime),
		zap.Duration("max_age", maxAge))

	deleted, err := pruner.PruneOlderThan(ctx, cutoffTime)
	if err != nil {
		return deleted, fmt.Errorf("failed to prune stale sessions: %w", err)
	}

	cs.logger.Info("Stale session cleanup completed", zap.Int("sessions_deleted", deleted))
	return deleted, nil
}

// StartSessionCleanup runs CleanupStaleSessions on CleanupInterval until ctx
// is done.
func StartSessionCleanup(ctx context.Context, cfg *config.Config, cs *CleanupService, logger *zap.Logger) {
	if !cfg.CleanupEnabled || cfg.CleanupInterval <= 0 || cfg.SessionRetentionAge <= 0 {
		logger.Info("Session cleanup disabled")
		return
	}

	run := func() {
		if _, err := cs.CleanupStaleSessions(ctx, cfg.SessionRetentionAge); err != nil {
			logger.Error("Session cleanup failed", zap.Error(err))
		}
	}
	run()

	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			run()
		case <-ctx.Done():
			return
		}
	}
}
