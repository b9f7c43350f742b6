package domain

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

// Error taxonomy. Each sentinel wraps an errdefs class so callers can
// classify errors generically with errdefs.IsNotFound and friends.
var (
	ErrInvalidInput       = fmt.Errorf("invalid input: %w", errdefs.ErrInvalidArgument)
	ErrInvalidYear        = fmt.Errorf("invalid year: %w", errdefs.ErrInvalidArgument)
	ErrNotFound           = fmt.Errorf("coin not found: %w", errdefs.ErrNotFound)
	ErrUnauthorized       = fmt.Errorf("not authenticated: %w", errdefs.ErrUnauthenticated)
	ErrCSRFMismatch       = fmt.Errorf("invalid csrf token: %w", errdefs.ErrPermissionDenied)
	ErrInvalidCredentials = fmt.Errorf("incorrect password: %w", errdefs.ErrUnauthenticated)
	ErrCorruptStore       = fmt.Errorf("corrupt metadata store: %w", errdefs.ErrDataLoss)
	ErrPersistence        = fmt.Errorf("persistence failure: %w", errdefs.ErrInternal)
)

// Machine-readable error kinds.
const (
	KindInvalidInput       = "invalid_input"
	KindInvalidYear        = "invalid_year"
	KindNotFound           = "not_found"
	KindUnauthorized       = "unauthorized"
	KindCSRFMismatch       = "csrf_mismatch"
	KindInvalidCredentials = "invalid_credentials"
	KindCorruptStore       = "corrupt_store"
	KindPersistence        = "persistence"
	KindInternal           = "internal"
)

type kindEntry struct {
	err     error
	kind    string
	message string
}

// Ordered most specific first: ErrInvalidYear and ErrInvalidInput share a class.
var kinds = []kindEntry{
	{ErrInvalidYear, KindInvalidYear, "Invalid year format (YYYY expected)"},
	{ErrInvalidInput, KindInvalidInput, "Invalid input"},
	{ErrNotFound, KindNotFound, "Coin not found"},
	{ErrCSRFMismatch, KindCSRFMismatch, "Invalid CSRF token"},
	{ErrInvalidCredentials, KindInvalidCredentials, "Incorrect password"},
	{ErrUnauthorized, KindUnauthorized, "Not authenticated"},
	{ErrCorruptStore, KindCorruptStore, "Metadata could not be read"},
	{ErrPersistence, KindPersistence, "Metadata could not be saved"},
}

// Kind returns the machine-readable kind of err.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Message returns a generic, non-revealing message for err.
func Message(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.message
		}
	}
	return "Internal error"
}
