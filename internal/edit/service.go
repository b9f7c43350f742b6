// Package edit applies human edits to coin metadata.
package edit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/coin-gallery/internal/auth"
	"github.com/ashureev/coin-gallery/internal/domain"
	"github.com/ashureev/coin-gallery/internal/metadata"
)

// Status tells whether an update wrote anything.
type Status string

const (
	StatusNoop    Status = "noop"
	StatusUpdated Status = "updated"
)

// Result describes the outcome of a successful update.
type Result struct {
	Status  Status
	Changed []string
	Record  domain.CoinRecord
}

// Notifier is told about every effective update.
type Notifier interface {
	CoinUpdated(id int, changed []string)
}

// Service validates and persists metadata edits.
type Service struct {
	store    *metadata.Store
	gate     *auth.Gate
	notifier Notifier
}

// NewService creates an update service. notifier may be nil.
func NewService(store *metadata.Store, gate *auth.Gate, notifier Notifier) *Service {
	return &Service{store: store, gate: gate, notifier: notifier}
}

// Update applies fields to coin id on behalf of the session. The session
// must be authenticated and csrfToken must match before any input is
// looked at. Identical input is a no-op and performs no write.
func (s *Service) Update(ctx context.Context, sess *domain.Session, csrfToken string, id int, fields domain.EditableFields) (Result, error) {
	if err := s.gate.RequireEditor(sess, csrfToken); err != nil {
		return Result{}, err
	}
	if id < 0 {
		return Result{}, fmt.Errorf("coin id %d: %w", id, domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var result Result
	err := s.store.Update(func(idx metadata.Index) (bool, error) {
		rec, err := idx.Get(id)
		if err != nil {
			return false, err
		}

		clean := Sanitize(fields)
		if err := ValidateYear(clean.Year); err != nil {
			return false, fmt.Errorf("coin %d year %q: %w", id, clean.Year, err)
		}

		changed := clean.Diff(rec.Editable())
		if len(changed) == 0 {
			result = Result{Status: StatusNoop, Record: rec}
			return false, nil
		}

		rec.Apply(clean)
		idx[id] = rec
		result = Result{Status: StatusUpdated, Changed: changed, Record: rec}
		return true, nil
	})
	if err != nil {
		return Result{}, err
	}

	if result.Status == StatusUpdated {
		slog.Info("Coin metadata updated", "coin_id", id, "changed", result.Changed)
		if s.notifier != nil {
			s.notifier.CoinUpdated(id, result.Changed)
		}
	}
	return result, nil
}
