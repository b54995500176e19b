package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *goredis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
}

func TestRateLimitStore_AllowsWithinLimit(t *testing.T) {
	client := newTestClient(t)
	defer client.Close()

	store := NewRateLimitStore(client)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := store.Allow(ctx, "user1:deposit_create", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
	}
}

func TestRateLimitStore_BlocksOverLimit(t *testing.T) {
	client := newTestClient(t)
	defer client.Close()

	store := NewRateLimitStore(client)
	ctx := context.Background()

	var last *RateLimitResult
	for i := 0; i < 4; i++ {
		var err error
		last, err = store.Allow(ctx, "user2:deposit_create", 3, time.Minute)
		require.NoError(t, err)
	}

	assert.False(t, last.Allowed)
	assert.Equal(t, int64(0), last.Remaining)
	assert.Equal(t, int64(3), last.Limit)
}

func TestRateLimitStore_KeysAreIndependent(t *testing.T) {
	client := newTestClient(t)
	defer client.Close()

	store := NewRateLimitStore(client)
	ctx := context.Background()

	_, err := store.Allow(ctx, "userA:wallet_read", 1, time.Minute)
	require.NoError(t, err)

	result, err := store.Allow(ctx, "userB:wallet_read", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestHealthCheck_Ping(t *testing.T) {
	client := newTestClient(t)
	defer client.Close()

	hc := NewHealthCheck(client)
	assert.NoError(t, hc.Ping(context.Background()))
	assert.Equal(t, "redis", hc.Name())
}
