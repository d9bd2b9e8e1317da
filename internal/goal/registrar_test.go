package goal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistrar(t *testing.T) *Registrar {
	t.Helper()
	r, err := NewRegistrar(filepath.Join(t.TempDir(), "goals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRegisterAndGet(t *testing.T) {
	r := newTestRegistrar(t)
	ctx := context.Background()
	now := time.Date(2025, time.June, 12, 9, 0, 0, 0, time.UTC)

	g, err := r.Register(ctx, "g1", "org-1", "user-1",
		"I want to grow into bigger accounts",
		"close 3,000,000 yen in new sales by month end",
		"10 calls every morning",
		now)
	require.NoError(t, err)
	assert.Equal(t, TypeNumeric, g.Type)
	require.NotNil(t, g.TargetValue)
	assert.InDelta(t, 3_000_000, *g.TargetValue, 1e-9)
	assert.Equal(t, UnitCurrency, g.TargetUnit)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), g.PeriodStart)
	assert.Equal(t, time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC), g.PeriodEnd)

	got, err := r.GetByID(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "close 3,000,000 yen in new sales by month end", got.Title)
	assert.Contains(t, got.Description, "Why: I want to grow into bigger accounts")
	assert.Contains(t, got.Description, "How: 10 calls every morning")
	require.NotNil(t, got.TargetValue)
	assert.InDelta(t, 3_000_000, *got.TargetValue, 1e-9)
	assert.True(t, got.CreatedAt.Equal(now))
}

func TestRegisterActionGoalHasNoTarget(t *testing.T) {
	r := newTestRegistrar(t)
	ctx := context.Background()

	g, err := r.Register(ctx, "g2", "org-1", "user-1",
		"growth", "build stronger client relationships", "weekly reviews", time.Now())
	require.NoError(t, err)
	assert.Equal(t, TypeAction, g.Type)
	assert.Nil(t, g.TargetValue)

	got, err := r.GetByID(ctx, "g2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.TargetValue)
}

func TestGetByIDMissing(t *testing.T) {
	r := newTestRegistrar(t)

	got, err := r.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListByUser(t *testing.T) {
	r := newTestRegistrar(t)
	ctx := context.Background()
	base := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	_, err := r.Register(ctx, "g1", "org-1", "user-1", "w", "first goal", "h", base)
	require.NoError(t, err)
	_, err = r.Register(ctx, "g2", "org-1", "user-1", "w", "second goal", "h", base.AddDate(0, 1, 0))
	require.NoError(t, err)
	_, err = r.Register(ctx, "g3", "org-1", "user-2", "w", "someone else", "h", base)
	require.NoError(t, err)

	goals, err := r.ListByUser(ctx, "org-1", "user-1")
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, "second goal", goals[0].Title)
	assert.Equal(t, "first goal", goals[1].Title)
}

func TestDuplicateIDRejected(t *testing.T) {
	r := newTestRegistrar(t)
	ctx := context.Background()

	_, err := r.Register(ctx, "g1", "org-1", "user-1", "w", "t", "h", time.Now())
	require.NoError(t, err)
	_, err = r.Register(ctx, "g1", "org-1", "user-1", "w", "t", "h", time.Now())
	assert.Error(t, err)
}
