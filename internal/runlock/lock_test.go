package runlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	l, err := New("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, mr
}

func TestNewWithoutRedisRunsUnlocked(t *testing.T) {
	l, err := New("")
	require.NoError(t, err)
	assert.Nil(t, l)

	lock, err := l.Acquire(context.Background(), RunKey, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, lock)
	assert.NoError(t, lock.Refresh(context.Background(), time.Minute))
	lock.KeepAlive(context.Background(), time.Minute)()
	assert.NoError(t, lock.Release(context.Background()))
	assert.NoError(t, l.Close())
}

func TestNewParsesURL(t *testing.T) {
	l, err := New("redis://:secret@localhost:6380/2")
	require.NoError(t, err)
	defer l.Close()

	opts := l.Client.Options()
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("http://localhost:6379")
	assert.ErrorContains(t, err, "REDIS_URL")
}

func TestAcquireIsExclusive(t *testing.T) {
	l, _ := newTestLocker(t)
	ctx := context.Background()

	first, err := l.Acquire(ctx, RunKey, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, first)

	// a second process, import or sweep, must wait for the first
	_, err = l.Acquire(ctx, RunKey, time.Hour)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Release(ctx))
	again, err := l.Acquire(ctx, RunKey, time.Hour)
	require.NoError(t, err)
	assert.NotNil(t, again)
}

func TestReleaseKeepsForeignLock(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()

	lock, err := l.Acquire(ctx, RunKey, time.Minute)
	require.NoError(t, err)

	// lock expired and another run took it over
	mr.FastForward(2 * time.Minute)
	other, err := l.Acquire(ctx, RunKey, time.Minute)
	require.NoError(t, err)

	require.NoError(t, lock.Release(ctx))
	assert.True(t, mr.Exists(RunKey))
	assert.Equal(t, other.token, mustGet(t, mr, RunKey))

	require.NoError(t, other.Release(ctx))
	assert.False(t, mr.Exists(RunKey))
}

func TestRefreshExtendsTTL(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()

	lock, err := l.Acquire(ctx, RunKey, time.Minute)
	require.NoError(t, err)

	mr.FastForward(50 * time.Second)
	require.NoError(t, lock.Refresh(ctx, time.Minute))
	mr.FastForward(50 * time.Second)

	assert.True(t, mr.Exists(RunKey), "refreshed lock outlives its first ttl")
	assert.Equal(t, 10*time.Second, mr.TTL(RunKey))
}

func TestRefreshLostLock(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()

	lock, err := l.Acquire(ctx, RunKey, time.Minute)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	assert.ErrorIs(t, lock.Refresh(ctx, time.Minute), ErrLockLost)
	assert.False(t, mr.Exists(RunKey))
}

func TestKeepAliveRefreshes(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()

	lock, err := l.Acquire(ctx, RunKey, 300*time.Millisecond)
	require.NoError(t, err)
	mr.SetTTL(RunKey, 50*time.Millisecond)

	stop := lock.KeepAlive(ctx, 300*time.Millisecond)
	defer stop()

	assert.Eventually(t, func() bool {
		return mr.TTL(RunKey) > 100*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
