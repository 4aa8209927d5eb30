package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/pkg/errors"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(&RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewClient_Success(t *testing.T) {
	client, _ := newTestClient(t)
	assert.NoError(t, client.GetUnderlyingClient().Ping(context.Background()).Err())
	assert.Equal(t, 10, client.config.PoolSize)
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	client, err := NewClient(&RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}, nil)
	assert.Nil(t, client)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
}

func TestClient_Operations(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "foo", "bar", time.Minute).Err())
	val, err := client.Get(ctx, "foo").Result()
	require.NoError(t, err)
	assert.Equal(t, "bar", val)

	ttl, err := client.TTL(ctx, "foo").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	deleted, err := client.Del(ctx, "foo").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.False(t, mr.Exists("foo"))
}

func TestClient_Close(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(&RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	ctx := context.Background()
	assert.ErrorIs(t, client.Ping(ctx), ErrClientClosed)
	assert.ErrorIs(t, client.Get(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Set(ctx, "k", "v", 0).Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Del(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.TTL(ctx, "k").Err(), ErrClientClosed)
}
