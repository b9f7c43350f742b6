// Package identity attaches a server-side browser session to each request.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/ashureev/coin-gallery/internal/domain"
	"github.com/ashureev/coin-gallery/internal/store"
)

const (
	SessionCookieName = "gallery_session"

	// touchInterval bounds how often last-seen timestamps are written.
	touchInterval = time.Minute
)

type contextKey int

const sessionKey contextKey = iota

var sessionIDPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// SessionFromContext extracts the browser session from the request context.
func SessionFromContext(ctx context.Context) *domain.Session {
	if v, ok := ctx.Value(sessionKey).(*domain.Session); ok {
		return v
	}
	return nil
}

// WithSession returns a context carrying the given session.
func WithSession(ctx context.Context, s *domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func generateSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func isValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// Manager loads, creates and persists browser sessions.
type Manager struct {
	repo  store.Repository
	ttl   time.Duration
	isDev bool
	now   func() time.Time
}

// NewManager creates a session manager. Sessions idle longer than ttl are
// replaced by fresh ones.
func NewManager(repo store.Repository, ttl time.Duration, isDev bool) *Manager {
	return &Manager{repo: repo, ttl: ttl, isDev: isDev, now: time.Now}
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		Expires:  m.now().Add(m.ttl),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   !m.isDev,
	})
}

// load returns the request's session and whether the browser already held
// it.
func (m *Manager) load(ctx context.Context, r *http.Request) (*domain.Session, bool, error) {
	now := m.now()
	if c, err := r.Cookie(SessionCookieName); err == nil && isValidSessionID(c.Value) {
		s, err := m.repo.GetSession(ctx, c.Value)
		if err != nil {
			return nil, false, err
		}
		if s != nil && !s.Expired(m.ttl, now) {
			if now.Sub(s.LastSeenAt) > touchInterval {
				s.Touch(now)
			}
			return s, true, nil
		}
	}

	id, err := generateSessionID()
	if err != nil {
		return nil, false, err
	}
	return domain.NewSession(id, now), false, nil
}

// Commit persists the session if it changed. Handlers that modify the
// session call it before writing their response.
func (m *Manager) Commit(ctx context.Context, s *domain.Session) error {
	if s == nil || !s.Dirty() {
		return nil
	}
	if err := m.repo.UpsertSession(ctx, s); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.MarkClean()
	return nil
}

// Middleware injects the browser session. The cookie is refreshed for
// sessions the browser already holds. A new session gets a cookie only if
// the handler committed it before responding; otherwise it is discarded.
// Changes left uncommitted on issued sessions are persisted afterwards.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, existing, err := m.load(r.Context(), r)
		if err != nil {
			slog.Error("Failed to load session", "error", err, "remote_ip", IPFromRequest(r))
			http.Error(w, `{"error":"failed to establish session"}`, http.StatusInternalServerError)
			return
		}

		sw := &sessionWriter{ResponseWriter: w, m: m, s: s, existing: existing}
		next.ServeHTTP(sw, r.WithContext(WithSession(r.Context(), s)))

		if !existing && !sw.issued {
			return
		}
		if err := m.Commit(context.WithoutCancel(r.Context()), s); err != nil {
			slog.Warn("Failed to persist session after request", "error", err)
		}
	})
}

// sessionWriter sets the session cookie just before the response header is
// written.
type sessionWriter struct {
	http.ResponseWriter
	m           *Manager
	s           *domain.Session
	existing    bool
	wroteHeader bool
	issued      bool
}

func (w *sessionWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		// A clean new session has been committed by the handler.
		if w.existing || !w.s.Dirty() {
			w.m.setCookie(w.ResponseWriter, w.s.ID)
			w.issued = true
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// IPFromRequest returns a normalized remote IP for request tracing and rate
// limiting.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
