package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCacheIsNoop(t *testing.T) {
	c := NewCache(nil, time.Minute)
	require.Nil(t, c)

	ctx := context.Background()
	var out []string
	hit, err := c.Get(ctx, RoundPrizesKey(1), &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, c.Set(ctx, RoundPrizesKey(1), []string{"a"}))
	assert.NoError(t, c.Del(ctx, RoundPrizesKey(1)))

	n, err := c.DelPrefix(ctx, PrefixRoundPrizes)
	require.NoError(t, err)
	assert.Zero(t, n)

	token, ok, err := c.TryLock(ctx, DrawLockKey(1), time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)
	assert.NoError(t, c.Unlock(ctx, DrawLockKey(1), token))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "lotto:prizes:7", RoundPrizesKey(7))
	assert.Equal(t, "lotto:draw:lock:7", DrawLockKey(7))
}

func TestPingDisabled(t *testing.T) {
	assert.NoError(t, Ping(context.Background(), time.Second))
}
