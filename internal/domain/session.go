package domain

import "time"

// Session is the server-side state of one browser session.
// AuthVerifier holds a digest of the edit password once the browser has
// logged in; the password itself is never stored.
type Session struct {
	ID           string
	CSRFToken    string
	AuthVerifier string
	CreatedAt    time.Time
	LastSeenAt   time.Time

	dirty bool
}

// NewSession creates an empty session with the given id.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  now,
		LastSeenAt: now,
		dirty:      true,
	}
}

// SetCSRFToken stores the CSRF token and marks the session modified.
func (s *Session) SetCSRFToken(token string) {
	s.CSRFToken = token
	s.dirty = true
}

// SetAuthVerifier stores the login verifier and marks the session modified.
func (s *Session) SetAuthVerifier(verifier string) {
	s.AuthVerifier = verifier
	s.dirty = true
}

// Touch records activity on the session.
func (s *Session) Touch(now time.Time) {
	s.LastSeenAt = now
	s.dirty = true
}

// Dirty reports whether the session changed since it was loaded.
func (s *Session) Dirty() bool {
	return s.dirty
}

// MarkClean resets the modification flag after the session was persisted.
func (s *Session) MarkClean() {
	s.dirty = false
}

// Expired reports whether the session has been idle longer than ttl.
func (s *Session) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.LastSeenAt) > ttl
}
