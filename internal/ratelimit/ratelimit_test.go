package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryCounter_WindowResets(t *testing.T) {
	now := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	c := NewMemoryCounter()
	c.now = func() time.Time { return now }

	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, resetIn, err := c.Hit(ctx, "user:a", time.Minute)
		require.NoError(t, err)
		require.Equal(t, want, got)
		require.Equal(t, time.Minute, resetIn)
	}

	// other keys are independent
	got, _, err := c.Hit(ctx, "user:b", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, got)

	now = now.Add(time.Minute + time.Second)

	got, _, err = c.Hit(ctx, "user:a", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, got, "a new window starts after expiry")
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

func TestRedisCounter_CountsAndExpires(t *testing.T) {
	mr, rdb := newMiniredis(t)
	c := NewRedisCounter(rdb, "test:")
	ctx := context.Background()

	got, resetIn, err := c.Hit(ctx, "user:a", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, got)
	require.Equal(t, time.Minute, resetIn)
	require.Equal(t, time.Minute, mr.TTL("test:user:a"))

	got, resetIn, err = c.Hit(ctx, "user:a", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 2, got)
	require.True(t, resetIn > 0 && resetIn <= time.Minute)

	mr.FastForward(time.Minute + time.Second)

	got, _, err = c.Hit(ctx, "user:a", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, got)
}

func TestRedisCounter_ErrorWhenUnavailable(t *testing.T) {
	mr, rdb := newMiniredis(t)
	mr.Close()

	_, _, err := NewRedisCounter(rdb, "").Hit(context.Background(), "k", time.Minute)
	require.Error(t, err)
}
