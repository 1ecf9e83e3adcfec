package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Locker{R: client, RetryBackoff: 5 * time.Millisecond}, srv
}

func TestWithLockRunsCallback(t *testing.T) {
	locker, _ := newTestLocker(t)

	ran := false
	err := locker.WithLock(context.Background(), "gate:MSCU1234567", time.Second, func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
}

func TestWithLockReleasesAfterCallback(t *testing.T) {
	locker, srv := newTestLocker(t)

	require.NoError(t, locker.WithLock(context.Background(), "gate:A", time.Second, func(context.Context) error {
		return nil
	}))
	require.False(t, srv.Exists("gate:A"))
}

func TestWithLockBlocksUntilContextCancelled(t *testing.T) {
	locker, srv := newTestLocker(t)
	srv.Set("gate:B", "held-elsewhere")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := locker.WithLock(ctx, "gate:B", time.Second, func(context.Context) error {
		t.Fatal("callback must not run while lock is held")
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
