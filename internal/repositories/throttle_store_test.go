package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsite/internal/models"
)

func newTestThrottleStore(t *testing.T) (ThrottleStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewThrottleStore(client), mr
}

func TestThrottleStoreGetMissing(t *testing.T) {
	store, _ := newTestThrottleStore(t)

	state, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ThrottleState{}, state)
}

func TestThrottleStoreRoundTrip(t *testing.T) {
	store, _ := newTestThrottleStore(t)
	ctx := context.Background()

	next := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)
	in := models.ThrottleState{Attempts: 4, NextAttemptAt: next}
	require.NoError(t, store.Set(ctx, "s1", in, time.Hour))

	out, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, in.Attempts, out.Attempts)
	assert.True(t, in.NextAttemptAt.Equal(out.NextAttemptAt))

	// sessions are isolated
	other, err := store.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, models.ThrottleState{}, other)
}

func TestThrottleStoreClear(t *testing.T) {
	store, mr := newTestThrottleStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s1", models.ThrottleState{Attempts: 3}, time.Hour))
	require.True(t, mr.Exists("otp:throttle:s1"))

	require.NoError(t, store.Clear(ctx, "s1"))
	assert.False(t, mr.Exists("otp:throttle:s1"))

	// clearing an absent session is not an error
	assert.NoError(t, store.Clear(ctx, "s1"))
}

func TestThrottleStoreTTL(t *testing.T) {
	store, mr := newTestThrottleStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s1", models.ThrottleState{Attempts: 5}, time.Minute))
	mr.FastForward(2 * time.Minute)

	state, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ThrottleState{}, state)
}
