// Package store provides persistence for browser sessions.
package store

import (
	"context"
	"time"

	"github.com/ashureev/coin-gallery/internal/domain"
)

// Repository defines the interface for persisting browser sessions.
type Repository interface {
	// GetSession retrieves a session by id. Returns nil, nil when absent.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// UpsertSession creates or updates a session.
	UpsertSession(ctx context.Context, session *domain.Session) error

	// DeleteSession removes a session.
	DeleteSession(ctx context.Context, id string) error

	// CleanupExpiredSessions removes sessions idle for longer than ttl.
	CleanupExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
