// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	conflictRetries   = 5
	conflictBaseDelay = 20 * time.Millisecond
)

// IsSQLiteBusyError checks if the error is a SQLITE_BUSY error.
// This occurs when the database is locked by another connection.
func IsSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY")
}

// IsSQLiteLockedError checks if the error is a "database is locked" error.
func IsSQLiteLockedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "database is locked")
}

// IsSQLiteConflictError checks if the error is either a SQLITE_BUSY
// or "database is locked" error.
func IsSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	return IsSQLiteBusyError(err) || IsSQLiteLockedError(err)
}

// RetryOnConflict runs fn, retrying with linear backoff while it fails with a
// SQLite concurrency error. Any other error is returned immediately.
func RetryOnConflict(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= conflictRetries; attempt++ {
		err = fn()
		if !IsSQLiteConflictError(err) {
			return err
		}

		slog.Debug("SQLite conflict, retrying", "op", op, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(time.Duration(attempt) * conflictBaseDelay):
		}
	}
	return fmt.Errorf("%s: gave up after %d attempts: %w", op, conflictRetries, err)
}
