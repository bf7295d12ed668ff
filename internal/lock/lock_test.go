package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLocker(client), mr
}

func TestRedisLocker_TryLock(t *testing.T) {
	t.Parallel()

	l, mr := setupRedis(t)
	ctx := context.Background()

	release, err := l.TryLock(ctx, "booking-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyPrefix+"booking-1"))

	_, err = l.TryLock(ctx, "booking-1", time.Minute)
	require.ErrorIs(t, err, ErrNotAcquired)

	other, err := l.TryLock(ctx, "booking-2", time.Minute)
	require.NoError(t, err)
	other()

	release()
	release()
	assert.False(t, mr.Exists(keyPrefix+"booking-1"))

	again, err := l.TryLock(ctx, "booking-1", time.Minute)
	require.NoError(t, err)
	again()
}

func TestRedisLocker_ExpiredLockNotReleasedByOldHolder(t *testing.T) {
	t.Parallel()

	l, mr := setupRedis(t)
	ctx := context.Background()

	stale, err := l.TryLock(ctx, "booking-1", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	fresh, err := l.TryLock(ctx, "booking-1", time.Minute)
	require.NoError(t, err)

	stale()
	assert.True(t, mr.Exists(keyPrefix+"booking-1"), "stale release must not delete the new holder's key")

	fresh()
	assert.False(t, mr.Exists(keyPrefix+"booking-1"))
}

func TestRedisLocker_ConnectionError(t *testing.T) {
	t.Parallel()

	l, mr := setupRedis(t)
	mr.Close()

	_, err := l.TryLock(context.Background(), "booking-1", time.Minute)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAcquired)
}

func TestLocalLocker_TryLock(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	release, err := l.TryLock(ctx, "booking-1", time.Minute)
	require.NoError(t, err)

	_, err = l.TryLock(ctx, "booking-1", time.Minute)
	require.ErrorIs(t, err, ErrNotAcquired)

	release()

	second, err := l.TryLock(ctx, "booking-1", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	third, err := l.TryLock(ctx, "booking-1", time.Minute)
	require.NoError(t, err, "expired lock can be re-taken")

	second()
	_, err = l.TryLock(ctx, "booking-1", time.Minute)
	require.ErrorIs(t, err, ErrNotAcquired, "old holder's release must not free the new lock")

	third()
}

func TestConnect(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	addr := mr.Addr()
	client, err := Connect(context.Background(), addr, "", 0)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	mr.Close()
	_, err = Connect(context.Background(), addr, "", 0)
	require.Error(t, err)
}
