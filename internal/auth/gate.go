// Package auth guards metadata edits behind a single shared password and
// per-session CSRF tokens.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/coin-gallery/internal/domain"
)

const (
	csrfTokenBytes = 32

	// MinFailureDelay is the floor for the pause after a wrong password.
	MinFailureDelay = time.Second
)

// Gate authenticates browser sessions against the edit password.
type Gate struct {
	verifier     string
	enabled      bool
	failureDelay time.Duration
}

// NewGate creates a gate for the given edit password. An empty password
// disables editing: no session can ever authenticate. failureDelay below
// MinFailureDelay is raised to it.
func NewGate(password string, failureDelay time.Duration) *Gate {
	if failureDelay < MinFailureDelay {
		failureDelay = MinFailureDelay
	}
	if password == "" {
		slog.Warn("Edit password not configured, metadata editing is disabled")
	}
	return &Gate{
		verifier:     Verifier(password),
		enabled:      password != "",
		failureDelay: failureDelay,
	}
}

// Verifier derives the value stored in a session in place of the password.
func Verifier(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Enabled reports whether an edit password is configured.
func (g *Gate) Enabled() bool {
	return g.enabled
}

// IssueCSRFToken returns the session's CSRF token, generating one on first
// use. An existing token is never rotated.
func (g *Gate) IssueCSRFToken(s *domain.Session) (string, error) {
	if s.CSRFToken != "" {
		return s.CSRFToken, nil
	}
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	s.SetCSRFToken(hex.EncodeToString(buf))
	return s.CSRFToken, nil
}

// CheckCSRF verifies a token supplied with a state-changing request.
func (g *Gate) CheckCSRF(s *domain.Session, token string) error {
	if s.CSRFToken == "" || token == "" {
		return domain.ErrCSRFMismatch
	}
	if subtle.ConstantTimeCompare([]byte(s.CSRFToken), []byte(token)) != 1 {
		return domain.ErrCSRFMismatch
	}
	return nil
}

// IsAuthenticated reports whether the session has logged in with the
// current edit password.
func (g *Gate) IsAuthenticated(s *domain.Session) bool {
	if !g.enabled || s == nil || s.AuthVerifier == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.AuthVerifier), []byte(g.verifier)) == 1
}

// Login checks the CSRF token and the password. On success the session
// receives the verifier. A wrong password is answered only after the
// failure delay.
func (g *Gate) Login(ctx context.Context, s *domain.Session, password, csrfToken string) error {
	if err := g.CheckCSRF(s, csrfToken); err != nil {
		return err
	}

	supplied := sha256.Sum256([]byte(password))
	expected, _ := hex.DecodeString(g.verifier)
	if g.enabled && subtle.ConstantTimeCompare(supplied[:], expected) == 1 {
		s.SetAuthVerifier(g.verifier)
		return nil
	}

	timer := time.NewTimer(g.failureDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return domain.ErrInvalidCredentials
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, ctx.Err())
	}
}

// RequireEditor checks both the authentication marker and the CSRF token,
// in that order.
func (g *Gate) RequireEditor(s *domain.Session, csrfToken string) error {
	if !g.IsAuthenticated(s) {
		return domain.ErrUnauthorized
	}
	return g.CheckCSRF(s, csrfToken)
}
