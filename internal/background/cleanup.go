package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/launchboxhq/launchbox/internal/models"
	"github.com/launchboxhq/launchbox/internal/services"
)

// CleanupManager periodically deletes expired credential records. This
// is garbage collection only: logical invalidation happens through
// expiry and revocation, never through this sweep.
type CleanupManager struct {
	tokens   *services.TokenService
	codes    *services.CodeService
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

func NewCleanupManager(
	tokens *services.TokenService,
	codes *services.CodeService,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		tokens:   tokens,
		codes:    codes,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep on the configured interval until Stop is called
// or the context is cancelled. One sweep runs immediately on startup.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tokensDeleted, err := cm.tokens.Cleanup(cleanupCtx, models.TokenSelection{})
	if err != nil {
		cm.logger.Error("failed to cleanup expired tokens", slog.Any("error", err))
	}

	codesDeleted, err := cm.codes.Cleanup(cleanupCtx, models.CodeSelection{})
	if err != nil {
		cm.logger.Error("failed to cleanup expired codes", slog.Any("error", err))
	}

	if tokensDeleted > 0 || codesDeleted > 0 {
		cm.logger.Info("expired credential cleanup completed",
			slog.Int64("tokens_deleted", tokensDeleted),
			slog.Int64("codes_deleted", codesDeleted))
	}
}

// Stop signals the cleanup manager to stop.
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
