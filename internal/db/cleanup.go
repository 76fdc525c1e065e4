package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/authstarter/pkg/logger"
)

// Expirer removes rows past their expiry.
type Expirer interface {
	DeleteExpired(ctx context.Context) error
}

// RunCleanup calls DeleteExpired on every store each interval until ctx is
// done.
func RunCleanup(ctx context.Context, interval time.Duration, log *slog.Logger, stores ...Expirer) {
	if interval <= 0 || len(stores) == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range stores {
				if err := s.DeleteExpired(ctx); err != nil {
					log.WarnContext(ctx, "expired rows cleanup failed", logger.Component("db"), logger.Error(err))
				}
			}
		}
	}
}
