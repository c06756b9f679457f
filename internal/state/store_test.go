package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"server/internal/domain"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), mr
}

func TestStoreLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "r1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Set(ctx, "r1", domain.JobStateQueued))
	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, domain.JobStateQueued, got)

	require.NoError(t, store.Set(ctx, "r1", domain.JobStateProcessing))
	got, err = store.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, domain.JobStateProcessing, got)
}

func TestStoreSetFailedExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetFailed(ctx, "r1"))
	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, domain.JobStateFailed, got)

	ttl := mr.TTL("job:r1")
	require.Equal(t, FailedTTL, ttl)

	mr.FastForward(FailedTTL + time.Second)
	_, err = store.Get(ctx, "r1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreGetRejectsUnknownValue(t *testing.T) {
	store, mr := newTestStore(t)

	require.NoError(t, mr.Set("job:r1", "garbled"))

	_, err := store.Get(context.Background(), "r1")
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreDeleteRollsBack(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "r1", domain.JobStateQueued))
	require.NoError(t, store.Delete(ctx, "r1"))
	require.False(t, mr.Exists("job:r1"))

	_, err := store.Get(ctx, "r1")
	require.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStoreRefreshTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "r1", domain.JobStateQueued))
	require.NoError(t, store.RefreshTTL(ctx, "r1", PollTTL))
	require.Equal(t, PollTTL, mr.TTL("job:r1"))

	// Refresh must not change the stored state.
	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, domain.JobStateQueued, got)
}
