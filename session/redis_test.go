package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, 5*time.Minute), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	rec := &Record{
		SessionID:      "s1",
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
		LastActivityAt: time.Now().UTC().Truncate(time.Second),
		CaptureCount:   3,
	}
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.SessionID, got.SessionID)
	assert.Equal(t, rec.CaptureCount, got.CaptureCount)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
}

func TestRedisStoreGetMissing(t *testing.T) {
	store, _ := newTestRedisStore(t)
	got, err := store.Get(context.Background(), "missing")
	require.NoError(t, err, "absence is not an error")
	assert.Nil(t, got)
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Record{SessionID: "s1"}))
	require.NoError(t, store.Delete(ctx, "s1"))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting again is harmless.
	assert.NoError(t, store.Delete(ctx, "s1"))
}

func TestRedisStoreRecordsExpire(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Record{SessionID: "s1"}))
	mr.FastForward(6 * time.Minute)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got, "record should age out with the TTL")
}

func TestRedisStoreTouchRefreshesTTL(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Record{SessionID: "s1"}))
	mr.FastForward(4 * time.Minute)
	require.NoError(t, store.Touch(ctx, "s1"))
	mr.FastForward(4 * time.Minute)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.NotNil(t, got, "touched record should survive past the original TTL")
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Record{SessionID: "s1", CaptureCount: 1}))
	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.CaptureCount)

	before := got.LastActivityAt
	require.NoError(t, store.Touch(ctx, "s1"))
	after, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, after.LastActivityAt.Before(before))

	require.NoError(t, store.Delete(ctx, "s1"))
	gone, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}
