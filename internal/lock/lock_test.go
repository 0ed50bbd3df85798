package lock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	locker := NewLocalLocker()

	release, err := locker.Acquire(ctx, "run")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "run")
	assert.ErrorIs(t, err, ErrRunInProgress)

	other, err := locker.Acquire(ctx, "other")
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, release.Release(ctx))
	again, err := locker.Acquire(ctx, "run")
	require.NoError(t, err)
	assert.NoError(t, again.Release(ctx))
}

func TestLocalLocker_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalLocker().Acquire(ctx, "run")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLockKey(t *testing.T) {
	assert.Equal(t, "lock:audit:health", lockKey("health"))
}
