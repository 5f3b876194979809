package scheduler

import (
	"context"
	"testing"
	"time"

	"faction-intel/internal/database"
	"faction-intel/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Unix(1700000000, 0)

func newScheduler(t *testing.T) (*Scheduler, *repository.CacheStore) {
	t.Helper()
	store := repository.NewCacheStore(database.NewMemory(), zerolog.Nop())
	return New(store, zerolog.Nop()), store
}

func TestIsDue(t *testing.T) {
	s, _ := newScheduler(t)
	ctx := context.Background()
	require.NoError(t, s.Register(ctx, "roster:5", 30*time.Second, time.Second))

	assert.True(t, s.IsDue("roster:5", t0), "never attempted")

	s.RecordAttempt(ctx, "roster:5", t0)
	assert.False(t, s.IsDue("roster:5", t0))
	assert.False(t, s.IsDue("roster:5", t0.Add(29*time.Second)))
	assert.True(t, s.IsDue("roster:5", t0.Add(30*time.Second)))
	assert.True(t, s.IsDue("roster:5", t0.Add(time.Hour)))
}

func TestUnknownResourceNeverDue(t *testing.T) {
	s, _ := newScheduler(t)
	assert.False(t, s.IsDue("nope", t0))

	// no panic, nothing stored
	s.RecordAttempt(context.Background(), "nope", t0)
	_, ok := s.State("nope")
	assert.False(t, ok)
}

func TestRegisterRejectsNonPositive(t *testing.T) {
	s, _ := newScheduler(t)
	assert.ErrorIs(t, s.Register(context.Background(), "x", 0, time.Second), ErrInvalidInterval)
	assert.ErrorIs(t, s.Register(context.Background(), "x", time.Second, -1), ErrInvalidInterval)
}

func TestConfigureInterval(t *testing.T) {
	s, _ := newScheduler(t)
	ctx := context.Background()
	require.NoError(t, s.Register(ctx, "metadata", 60*time.Second, 10*time.Second))

	assert.ErrorIs(t, s.ConfigureInterval(ctx, "metadata", 0), ErrInvalidInterval)
	assert.ErrorIs(t, s.ConfigureInterval(ctx, "metadata", -time.Second), ErrInvalidInterval)
	assert.ErrorIs(t, s.ConfigureInterval(ctx, "other", time.Second), ErrUnknownResource)

	require.NoError(t, s.ConfigureInterval(ctx, "metadata", 200*time.Millisecond))
	st, ok := s.State("metadata")
	require.True(t, ok)
	assert.Equal(t, time.Second, st.Interval, "floored to the minimum")
	assert.Equal(t, time.Second, st.MinInterval, "min interval clamped to the interval")

	require.NoError(t, s.ConfigureInterval(ctx, "metadata", 5*time.Second))
	s.RecordAttempt(ctx, "metadata", t0)
	assert.False(t, s.IsDue("metadata", t0.Add(4*time.Second)))
	assert.True(t, s.IsDue("metadata", t0.Add(5*time.Second)))
}

func TestMinIntervalGuard(t *testing.T) {
	s, _ := newScheduler(t)
	ctx := context.Background()
	require.NoError(t, s.Register(ctx, "roster:5", 2*time.Second, 2*time.Second))

	s.RecordAttempt(ctx, "roster:5", t0)
	assert.False(t, s.IsDue("roster:5", t0.Add(time.Second)))
	assert.True(t, s.IsDue("roster:5", t0.Add(2*time.Second)))
}

func TestLastAttemptSurvivesRestart(t *testing.T) {
	s, store := newScheduler(t)
	ctx := context.Background()
	require.NoError(t, s.Register(ctx, "roster:5", 30*time.Second, time.Second))
	s.RecordAttempt(ctx, "roster:5", t0)

	restarted := New(store, zerolog.Nop())
	require.NoError(t, restarted.Register(ctx, "roster:5", 45*time.Second, time.Second))

	st, ok := restarted.State("roster:5")
	require.True(t, ok)
	assert.True(t, st.LastAttempt.Equal(t0))
	assert.Equal(t, 45*time.Second, st.Interval, "configured interval wins over the stored one")
	assert.False(t, restarted.IsDue("roster:5", t0.Add(30*time.Second)))
	assert.True(t, restarted.IsDue("roster:5", t0.Add(45*time.Second)))
}

func TestConfiguredIntervalSurvivesRestart(t *testing.T) {
	s, store := newScheduler(t)
	ctx := context.Background()
	require.NoError(t, s.Register(ctx, "metadata", 60*time.Second, time.Second))
	require.NoError(t, s.ConfigureInterval(ctx, "metadata", 5*time.Second))
	s.RecordAttempt(ctx, "metadata", t0)

	restarted := New(store, zerolog.Nop())
	require.NoError(t, restarted.Register(ctx, "metadata", 60*time.Second, time.Second))

	st, ok := restarted.State("metadata")
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, st.Interval)
	assert.True(t, st.Configured)
	assert.True(t, st.LastAttempt.Equal(t0))
	assert.True(t, restarted.IsDue("metadata", t0.Add(5*time.Second)))
}

func TestNextDue(t *testing.T) {
	s, _ := newScheduler(t)
	ctx := context.Background()
	require.NoError(t, s.Register(ctx, "roster:5", 30*time.Second, time.Second))

	next, ok := s.NextDue("roster:5")
	require.True(t, ok)
	assert.True(t, next.IsZero())

	s.RecordAttempt(ctx, "roster:5", t0)
	next, _ = s.NextDue("roster:5")
	assert.True(t, next.Equal(t0.Add(30*time.Second)))

	_, ok = s.NextDue("nope")
	assert.False(t, ok)
}

func TestNilStore(t *testing.T) {
	s := New(nil, zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, s.Register(ctx, "x", time.Second, time.Second))
	s.RecordAttempt(ctx, "x", t0)
	require.NoError(t, s.ConfigureInterval(ctx, "x", 2*time.Second))
}
