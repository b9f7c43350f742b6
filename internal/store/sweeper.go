package store

import (
	"context"
	"log/slog"
	"time"
)

// StartSweeper runs a background goroutine that periodically removes
// sessions idle for longer than ttl. It stops when ctx is canceled; the
// returned channel is closed once the goroutine has exited.
func StartSweeper(ctx context.Context, repo Repository, ttl, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweep(ctx, repo, ttl)
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}

func sweep(ctx context.Context, repo Repository, ttl time.Duration) {
	deleted, err := repo.CleanupExpiredSessions(ctx, ttl)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("Session sweeper failed to cleanup expired sessions", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Session sweeper removed expired sessions", "count", deleted)
	}
}
