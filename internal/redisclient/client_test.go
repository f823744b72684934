package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("Integration test - requires redis (set REDIS_TEST_ADDR)")
	}
	c, err := NewClient(addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestTryLockIsExclusive(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "test:" + t.Name()

	token, ok, err := c.TryLock(ctx, key, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = c.TryLock(ctx, key, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.ReleaseLock(ctx, key, "someone-else"))
	_, ok, _ = c.TryLock(ctx, key, time.Second)
	assert.False(t, ok, "foreign token must not release")

	require.NoError(t, c.ReleaseLock(ctx, key, token))
	token, ok, err = c.TryLock(ctx, key, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, c.ReleaseLock(ctx, key, token))
}

func TestMutationLockerWaitsForRelease(t *testing.T) {
	c := newTestClient(t)
	l := NewMutationLocker(c, 5*time.Second)
	key := "test:" + t.Name()

	release, err := l.Acquire(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()

	again, err := l.Acquire(context.Background(), key)
	require.NoError(t, err)
	again()
}

func TestTryLockRejectsBadArguments(t *testing.T) {
	c := &Client{}

	_, _, err := c.TryLock(context.Background(), "", time.Second)
	assert.Error(t, err)
	_, _, err = c.TryLock(context.Background(), "k", 0)
	assert.Error(t, err)
}
