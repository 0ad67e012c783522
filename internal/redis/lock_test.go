package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisSlotLockerRunsAndReleases(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisSlotLocker(client, 5*time.Second)
	slot := "Dr. Khan|2026-10-21|11:00 AM"

	ran := false
	err := locker.WithSlotLock(context.Background(), slot, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists(lockKey(slot)))
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists(lockKey(slot)))
}

func TestRedisSlotLockerRejectsContention(t *testing.T) {
	_, client := setupTestRedis(t)
	locker := NewRedisSlotLocker(client, 5*time.Second)
	slot := "Dr. Khan|2026-10-21|11:00 AM"

	err := locker.WithSlotLock(context.Background(), slot, func(ctx context.Context) error {
		inner := locker.WithSlotLock(ctx, slot, func(context.Context) error {
			t.Fatal("nested lock on the same slot must not run")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)

		other := locker.WithSlotLock(ctx, "Dr. Khan|2026-10-21|7:00 PM", func(context.Context) error { return nil })
		assert.NoError(t, other)
		return nil
	})
	require.NoError(t, err)
}

func TestRedisSlotLockerPropagatesError(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisSlotLocker(client, 5*time.Second)
	boom := errors.New("boom")

	err := locker.WithSlotLock(context.Background(), "slot", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(lockKey("slot")))
}

func TestRedisSlotLockerKeepsForeignToken(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisSlotLocker(client, 5*time.Second)

	err := locker.WithSlotLock(context.Background(), "slot", func(context.Context) error {
		// simulate expiry and takeover by another holder
		mr.Set(lockKey("slot"), "someone-else")
		return nil
	})
	require.NoError(t, err)

	val, err := mr.Get(lockKey("slot"))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}

func TestRedisSlotLockerSurfacesRedisErrors(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisSlotLocker(client, time.Second)
	mr.Close()

	err := locker.WithSlotLock(context.Background(), "slot", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockNotAcquired)
}

func TestLocalSlotLocker(t *testing.T) {
	locker := NewLocalSlotLocker()

	err := locker.WithSlotLock(context.Background(), "a", func(ctx context.Context) error {
		assert.ErrorIs(t, locker.WithSlotLock(ctx, "a", func(context.Context) error { return nil }), ErrLockNotAcquired)
		assert.NoError(t, locker.WithSlotLock(ctx, "b", func(context.Context) error { return nil }))
		return nil
	})
	require.NoError(t, err)

	assert.NoError(t, locker.WithSlotLock(context.Background(), "a", func(context.Context) error { return nil }))
}
