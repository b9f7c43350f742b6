package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/coin-gallery/internal/domain"
	"github.com/ashureev/coin-gallery/internal/identity"
	"github.com/ashureev/coin-gallery/internal/live"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func updateForm(token, coinID string, fields map[string]string) url.Values {
	form := url.Values{"action": {ActionUpdate}, "csrf_token": {token}, "coin_id": {coinID}}
	for k, v := range fields {
		form.Set(k, v)
	}
	return form
}

var italy = map[string]string{"country": "Italy", "currency": "Euro", "value": "1 Euro", "year": "", "notes": ""}

func TestEditRejectsNonPost(t *testing.T) {
	env := newTestEnv(t, testMetadata)
	resp, body := env.get(t, "/edit")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodPost, resp.Header.Get("Allow"))
	assert.Contains(t, body, `"success":false`)
}

func TestEditUnknownAction(t *testing.T) {
	env := newTestEnv(t, testMetadata)
	status, got := env.post(t, url.Values{"action": {"delete_everything"}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, got["success"])
}

func TestEditCSRFTokenIsStablePerSession(t *testing.T) {
	env := newTestEnv(t, testMetadata)
	first := env.csrf(t)
	assert.Equal(t, first, env.csrf(t))

	other := newTestEnv(t, testMetadata)
	assert.NotEqual(t, first, other.csrf(t))
}

func TestEditFlow(t *testing.T) {
	env := newTestEnv(t, testMetadata)
	_, events := env.hub.Subscribe()
	token := env.csrf(t)

	status, got := env.post(t, url.Values{"action": {ActionCheckAuth}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, got["authenticated"])

	status, got = env.post(t, updateForm(token, "0", italy))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", got["error"])

	status, got = env.post(t, url.Values{"action": {ActionLogin}, "password": {testPassword}, "csrf_token": {"forged"}})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, false, got["success"])

	env.login(t, token)

	status, got = env.post(t, url.Values{"action": {ActionCheckAuth}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, got["authenticated"])

	status, got = env.post(t, updateForm(token, "0", italy))
	require.Equal(t, http.StatusOK, status, got)
	assert.Equal(t, true, got["success"])
	assert.Equal(t, "updated", got["status"])
	assert.Equal(t, []any{"country"}, got["changed"])

	idx, err := env.store.Load()
	require.NoError(t, err)
	assert.Equal(t, "Italy", idx[0].Country)
	assert.False(t, idx[0].AIGenerated)
	assert.Equal(t, "Lira", idx[1].Currency, "other records are untouched")

	select {
	case ev := <-events:
		assert.Equal(t, live.EventCoinUpdated, ev.Type)
		require.NotNil(t, ev.CoinID)
		assert.Equal(t, 0, *ev.CoinID)
	case <-time.After(time.Second):
		t.Fatal("no live event published")
	}

	status, got = env.post(t, updateForm(token, "0", italy))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "noop", got["status"])
	assert.Equal(t, "No changes", got["message"])
}

// postRaw sends an /edit form with an explicit cookie and no jar.
func postRaw(t *testing.T, env *testEnv, form url.Values, cookie *http.Cookie) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/edit", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	return resp, got
}

func sessionCookieOf(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == identity.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestFirstVisitTokenAndAuthCheckShareSession(t *testing.T) {
	env := newTestEnv(t, testMetadata)

	// Both requests leave the browser before any cookie is set.
	tokenResp, tokenBody := postRaw(t, env, url.Values{"action": {ActionGetCSRF}}, nil)
	checkResp, checkBody := postRaw(t, env, url.Values{"action": {ActionCheckAuth}}, nil)
	require.Equal(t, http.StatusOK, tokenResp.StatusCode)
	require.Equal(t, http.StatusOK, checkResp.StatusCode)
	assert.Equal(t, false, checkBody["authenticated"])

	cookie := sessionCookieOf(tokenResp)
	require.NotNil(t, cookie)
	assert.Nil(t, sessionCookieOf(checkResp), "auth check must not hand out a competing session")

	resp, got := postRaw(t, env, url.Values{
		"action": {ActionLogin}, "password": {testPassword}, "csrf_token": {tokenBody["csrf_token"].(string)},
	}, cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, got["success"], got)
}

func TestEditUpdateErrors(t *testing.T) {
	env := newTestEnv(t, testMetadata)
	token := env.csrf(t)
	env.login(t, token)

	tests := []struct {
		name   string
		form   url.Values
		status int
		kind   string
	}{
		{"bad csrf", updateForm("forged", "0", italy), http.StatusForbidden, domain.KindCSRFMismatch},
		{"malformed id", updateForm(token, "zero", italy), http.StatusBadRequest, domain.KindInvalidInput},
		{"negative id", updateForm(token, "-4", italy), http.StatusBadRequest, domain.KindInvalidInput},
		{"unknown coin", updateForm(token, "42", italy), http.StatusNotFound, domain.KindNotFound},
		{"invalid year", updateForm(token, "0", map[string]string{"country": "France", "year": "19x5"}), http.StatusBadRequest, domain.KindInvalidYear},
		{"five digit year", updateForm(token, "0", map[string]string{"country": "France", "year": "12345"}), http.StatusBadRequest, domain.KindInvalidYear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, got := env.post(t, tt.form)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, got["error"])
			assert.Equal(t, false, got["success"])
		})
	}

	idx, err := env.store.Load()
	require.NoError(t, err)
	assert.Equal(t, "France", idx[0].Country)
}

func TestEditUpdateCorruptStore(t *testing.T) {
	env := newTestEnv(t, "{broken")
	token := env.csrf(t)
	env.login(t, token)

	status, got := env.post(t, updateForm(token, "0", italy))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, domain.KindCorruptStore, got["error"])
	assert.NotContains(t, fmt.Sprint(got["message"]), "broken")
}

func TestLoginWrongPasswordIsDelayed(t *testing.T) {
	env := newTestEnv(t, testMetadata)
	token := env.csrf(t)

	start := time.Now()
	status, got := env.post(t, url.Values{"action": {ActionLogin}, "password": {"guess"}, "csrf_token": {token}})
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, got["success"])
	assert.Equal(t, "Incorrect password", got["message"])
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t, testMetadata)
	env.limiter.mu.Lock()
	env.limiter.perMinute = 1
	env.limiter.mu.Unlock()
	token := env.csrf(t)

	env.login(t, token)

	resp, err := env.client.PostForm(env.srv.URL+"/edit", url.Values{
		"action": {ActionLogin}, "password": {testPassword}, "csrf_token": {token},
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}

func TestEditRejectsOversizedForm(t *testing.T) {
	env := newTestEnv(t, testMetadata)
	form := url.Values{"action": {ActionCheckAuth}, "padding": {strings.Repeat("x", maxEditFormBytes)}}
	status, _ := env.post(t, form)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{domain.ErrInvalidCredentials, http.StatusOK},
		{fmt.Errorf("login: %w", domain.ErrInvalidCredentials), http.StatusOK},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrInvalidYear, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrCSRFMismatch, http.StatusForbidden},
		{domain.ErrCorruptStore, http.StatusInternalServerError},
		{domain.ErrPersistence, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), fmt.Sprint(tt.err))
	}
}
