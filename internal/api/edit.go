package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/coin-gallery/internal/auth"
	"github.com/ashureev/coin-gallery/internal/domain"
	"github.com/ashureev/coin-gallery/internal/edit"
	"github.com/ashureev/coin-gallery/internal/identity"
	"github.com/containerd/errdefs"
	"github.com/go-chi/chi/v5"
)

const maxEditFormBytes = 64 << 10

// Edit endpoint actions.
const (
	ActionGetCSRF   = "get_csrf"
	ActionCheckAuth = "check_auth"
	ActionLogin     = "login"
	ActionUpdate    = "update"
)

// EditHandler serves the form-encoded edit endpoint.
type EditHandler struct {
	gate     *auth.Gate
	svc      *edit.Service
	sessions *identity.Manager
	limiter  *LoginLimiter
}

// NewEditHandler creates a new edit handler.
func NewEditHandler(gate *auth.Gate, svc *edit.Service, sessions *identity.Manager, limiter *LoginLimiter) *EditHandler {
	return &EditHandler{gate: gate, svc: svc, sessions: sessions, limiter: limiter}
}

// RegisterRoutes registers the edit route behind the session middleware.
func (h *EditHandler) RegisterRoutes(r chi.Router) {
	r.With(h.sessions.Middleware).HandleFunc("/edit", h.ServeHTTP)
}

// StatusFor maps an error to the HTTP status of the edit endpoint. A wrong
// password is not an HTTP error: the response is 200 with success=false.
func StatusFor(err error) int {
	switch {
	case err == nil, errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusOK
	case errdefs.IsInvalidArgument(err):
		return http.StatusBadRequest
	case errdefs.IsNotFound(err):
		return http.StatusNotFound
	case errdefs.IsUnauthorized(err):
		return http.StatusUnauthorized
	case errdefs.IsPermissionDenied(err):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (h *EditHandler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	status := StatusFor(err)
	attrs := []any{"action", action, "kind", domain.Kind(err), "error", err, "ip", identity.IPFromRequest(r)}
	if status >= http.StatusInternalServerError {
		slog.Error("Edit request failed", attrs...)
	} else {
		slog.Warn("Edit request rejected", attrs...)
	}
	JSON(w, status, map[string]any{
		"success": false,
		"message": domain.Message(err),
		"error":   domain.Kind(err),
	})
}

// commit persists session changes before the response is written.
func (h *EditHandler) commit(w http.ResponseWriter, r *http.Request, sess *domain.Session) bool {
	if err := h.sessions.Commit(r.Context(), sess); err != nil {
		slog.Error("Failed to save session", "error", err)
		JSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "Session could not be saved"})
		return false
	}
	return true
}

// ServeHTTP dispatches on the form's action field.
func (h *EditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		JSON(w, http.StatusMethodNotAllowed, map[string]any{"success": false, "message": "Method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxEditFormBytes)
	if err := r.ParseForm(); err != nil {
		JSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Malformed request"})
		return
	}

	sess := identity.SessionFromContext(r.Context())
	if sess == nil {
		slog.Error("Edit request without session")
		JSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "No session"})
		return
	}

	action := r.PostFormValue("action")
	switch action {
	case ActionGetCSRF:
		h.getCSRF(w, r, sess)
	case ActionCheckAuth:
		JSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"message":       "",
			"authenticated": h.gate.IsAuthenticated(sess),
		})
	case ActionLogin:
		h.login(w, r, sess)
	case ActionUpdate:
		h.update(w, r, sess)
	default:
		JSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Unknown action"})
	}
}

func (h *EditHandler) getCSRF(w http.ResponseWriter, r *http.Request, sess *domain.Session) {
	token, err := h.gate.IssueCSRFToken(sess)
	if err != nil {
		h.fail(w, r, ActionGetCSRF, err)
		return
	}
	if !h.commit(w, r, sess) {
		return
	}
	JSON(w, http.StatusOK, map[string]any{"success": true, "message": "", "csrf_token": token})
}

func (h *EditHandler) login(w http.ResponseWriter, r *http.Request, sess *domain.Session) {
	ip := identity.IPFromRequest(r)
	if !h.limiter.Allow(ip) {
		slog.Warn("Login rate limited", "ip", ip)
		w.Header().Set("Retry-After", "60")
		JSON(w, http.StatusTooManyRequests, map[string]any{"success": false, "message": "Too many login attempts"})
		return
	}

	err := h.gate.Login(r.Context(), sess, r.PostFormValue("password"), r.PostFormValue("csrf_token"))
	if err != nil {
		h.fail(w, r, ActionLogin, err)
		return
	}
	if !h.commit(w, r, sess) {
		return
	}
	slog.Info("Editor logged in", "ip", ip)
	JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Authenticated"})
}

func (h *EditHandler) update(w http.ResponseWriter, r *http.Request, sess *domain.Session) {
	// A malformed id still goes through the service so that authentication
	// is checked before the input.
	id, err := edit.ParseCoinID(r.PostFormValue("coin_id"))
	if err != nil {
		id = -1
	}

	fields := domain.EditableFields{
		Country:  r.PostFormValue("country"),
		Currency: r.PostFormValue("currency"),
		Value:    r.PostFormValue("value"),
		Year:     r.PostFormValue("year"),
		Notes:    r.PostFormValue("notes"),
	}
	res, err := h.svc.Update(r.Context(), sess, r.PostFormValue("csrf_token"), id, fields)
	if err != nil {
		h.fail(w, r, ActionUpdate, err)
		return
	}

	message := "Metadata updated"
	if res.Status == edit.StatusNoop {
		message = "No changes"
	}
	JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"status":  res.Status,
		"changed": res.Changed,
	})
}
