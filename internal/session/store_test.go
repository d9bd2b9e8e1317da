package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ryotagoto/mokuhyo/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, cfg config.SessionConfig) *Store {
	t.Helper()
	if cfg.WorkspacePath == "" {
		cfg.WorkspacePath = t.TempDir()
	}
	store, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func testIdentity() Identity {
	return Identity{OrgID: "org-1", ConversationID: "C1", UserID: "user-1"}
}

func TestUpsertAndActive(t *testing.T) {
	store := openTestStore(t, config.SessionConfig{})
	ctx := context.Background()

	identity := testIdentity()
	sess := &Session{ID: "01TEST", Identity: identity, Step: "why", CreatedAt: time.Now()}
	require.NoError(t, store.Upsert(ctx, sess))

	// Upsert stamps the sliding window.
	assert.False(t, sess.UpdatedAt.IsZero())
	assert.True(t, sess.ExpiresAt.After(time.Now()))

	got, err := store.Active(ctx, identity)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "01TEST", got.ID)
	assert.Equal(t, "why", got.Step)

	// Another identity sees nothing.
	other := Identity{OrgID: "org-1", ConversationID: "C2", UserID: "user-1"}
	got, err = store.Active(ctx, other)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestActiveHidesExpired(t *testing.T) {
	store := openTestStore(t, config.SessionConfig{TTL: "10ms"})
	ctx := context.Background()

	identity := testIdentity()
	require.NoError(t, store.Upsert(ctx, &Session{ID: "01TEST", Identity: identity, Step: "why"}))

	time.Sleep(30 * time.Millisecond)

	got, err := store.Active(ctx, identity)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestActiveHidesTerminal(t *testing.T) {
	store := openTestStore(t, config.SessionConfig{})
	ctx := context.Background()

	identity := testIdentity()
	require.NoError(t, store.Upsert(ctx, &Session{ID: "01TEST", Identity: identity, Step: "complete"}))

	got, err := store.Active(ctx, identity)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Upsert(ctx, &Session{ID: "01TEST", Identity: identity, Step: "abandoned"}))
	got, err = store.Active(ctx, identity)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpsertIsLastWriteWins(t *testing.T) {
	store := openTestStore(t, config.SessionConfig{})
	ctx := context.Background()

	identity := testIdentity()
	require.NoError(t, store.Upsert(ctx, &Session{ID: "01TEST", Identity: identity, Step: "why"}))
	require.NoError(t, store.Upsert(ctx, &Session{ID: "01TEST", Identity: identity, Step: "what", WhyAnswer: "growth"}))

	got, err := store.Active(ctx, identity)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "what", got.Step)
	assert.Equal(t, "growth", got.WhyAnswer)
}

func TestDeleteRemovesSessionAndLog(t *testing.T) {
	dir := t.TempDir()
	store := openTestStore(t, config.SessionConfig{WorkspacePath: dir})
	ctx := context.Background()

	identity := testIdentity()
	require.NoError(t, store.Upsert(ctx, &Session{ID: "01TEST", Identity: identity, Step: "why"}))
	require.NoError(t, store.AppendLog(ctx, LogEntry{ID: "e1", SessionID: "01TEST", Identity: identity, Step: "why", Result: ResultRetry, Timestamp: time.Now()}))

	logPath := store.logPath("01TEST")
	_, err := os.Stat(logPath)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, identity))

	got, err := store.Active(ctx, identity)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = os.Stat(logPath)
	assert.True(t, os.IsNotExist(err))
}

func TestLogRoundtrip(t *testing.T) {
	store := openTestStore(t, config.SessionConfig{})
	ctx := context.Background()

	identity := testIdentity()
	now := time.Now()
	for _, step := range []string{"why", "what", "what"} {
		require.NoError(t, store.AppendLog(ctx, LogEntry{ID: "e-" + step, SessionID: "01TEST", Identity: identity, Step: step, Result: ResultAccepted, Timestamp: now}))
	}

	entries, err := store.Log(ctx, "01TEST")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "why", entries[0].Step)
	assert.Equal(t, "what", entries[2].Step)

	entries, err = store.Log(ctx, "no-such-session")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAttemptCountTrailingRetryRun(t *testing.T) {
	store := openTestStore(t, config.SessionConfig{})
	ctx := context.Background()

	identity := testIdentity()
	now := time.Now()
	addEntry := func(step, result string, ts time.Time) {
		require.NoError(t, store.AppendLog(ctx, LogEntry{ID: ulidLike(step, ts), SessionID: "01TEST", Identity: identity, Step: step, Result: result, Timestamp: ts}))
	}

	// Intro entry at why is not an attempt.
	addEntry("why", ResultAccepted, now.Add(-5*time.Minute))
	addEntry("why", ResultRetry, now.Add(-4*time.Minute))
	addEntry("why", ResultRetry, now.Add(-3*time.Minute))

	count, err := store.AttemptCount(ctx, "01TEST", "why")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Leaving the step resets the series.
	addEntry("what", ResultRetry, now.Add(-2*time.Minute))
	count, err = store.AttemptCount(ctx, "01TEST", "why")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = store.AttemptCount(ctx, "01TEST", "what")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAttemptCountRollingWindow(t *testing.T) {
	store := openTestStore(t, config.SessionConfig{})
	ctx := context.Background()

	identity := testIdentity()
	now := time.Now()
	require.NoError(t, store.AppendLog(ctx, LogEntry{ID: "old", SessionID: "01TEST", Identity: identity, Step: "why", Result: ResultRetry, Timestamp: now.Add(-25 * time.Hour)}))
	require.NoError(t, store.AppendLog(ctx, LogEntry{ID: "new", SessionID: "01TEST", Identity: identity, Step: "why", Result: ResultRetry, Timestamp: now}))

	count, err := store.AttemptCount(ctx, "01TEST", "why")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWorkspaceLockIsExclusive(t *testing.T) {
	dir := t.TempDir()
	cfg := config.SessionConfig{
		WorkspacePath: dir,
		LockTimeout:   "50ms",
		LockRetry:     "10ms",
		LockMaxRetry:  3,
	}

	first, err := Open(cfg)
	require.NoError(t, err)
	defer first.Close()

	_, err = Open(cfg)
	assert.Error(t, err)
}

func TestIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	identity := testIdentity()

	store, err := Open(config.SessionConfig{WorkspacePath: dir})
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, &Session{ID: "01TEST", Identity: identity, Step: "what", WhyAnswer: "growth"}))
	store.Close()

	reopened := openTestStore(t, config.SessionConfig{WorkspacePath: dir})
	got, err := reopened.Active(ctx, identity)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "what", got.Step)
	assert.Equal(t, "growth", got.WhyAnswer)
}

func ulidLike(step string, ts time.Time) string {
	return step + "-" + ts.Format("150405.000000000")
}
