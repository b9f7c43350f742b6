package store

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/coin-gallery/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetSession(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	now := time.Unix(1_700_000_000, 0)
	sess := domain.NewSession("abc", now)
	sess.SetCSRFToken("token")
	require.NoError(t, s.UpsertSession(ctx, sess))

	got, err = s.GetSession(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "token", got.CSRFToken)
	assert.Empty(t, got.AuthVerifier)
	assert.True(t, got.CreatedAt.Equal(now))
	assert.False(t, got.Dirty())

	got.SetAuthVerifier("digest")
	got.Touch(now.Add(time.Hour))
	require.NoError(t, s.UpsertSession(ctx, got))

	again, err := s.GetSession(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "digest", again.AuthVerifier)
	assert.True(t, again.CreatedAt.Equal(now), "created_at is never overwritten")
	assert.True(t, again.LastSeenAt.Equal(now.Add(time.Hour)))

	require.NoError(t, s.DeleteSession(ctx, "abc"))
	gone, err := s.GetSession(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestCleanupExpiredSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.UpsertSession(ctx, domain.NewSession("old", now.Add(-48*time.Hour))))
	require.NoError(t, s.UpsertSession(ctx, domain.NewSession("fresh", now)))

	deleted, err := s.CleanupExpiredSessions(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	old, err := s.GetSession(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, old)

	fresh, err := s.GetSession(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, fresh)
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

type countingRepo struct {
	Repository
	calls atomic.Int32
}

func (r *countingRepo) CleanupExpiredSessions(context.Context, time.Duration) (int64, error) {
	r.calls.Add(1)
	return 0, nil
}

func TestSweeperStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := &countingRepo{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartSweeper(ctx, repo, time.Hour, 5*time.Millisecond)

	require.Eventually(t, func() bool { return repo.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
