package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRedisKVClient struct {
	values     map[string]string
	lastSetKey string
	lastSetTTL time.Duration
	getErr     error
	setErr     error
}

func newMockRedisKVClient() *mockRedisKVClient {
	return &mockRedisKVClient{values: make(map[string]string)}
}

func (m *mockRedisKVClient) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.getErr != nil {
		cmd.SetErr(m.getErr)
		return cmd
	}
	v, ok := m.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockRedisKVClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.lastSetKey = key
	m.lastSetTTL = expiration
	cmd := redis.NewStatusCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	m.values[key] = value.(string)
	cmd.SetVal("OK")
	return cmd
}

func TestMemoryDisplayCache_GetSet(t *testing.T) {
	c := NewMemoryDisplayCache()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, KeyUsername)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, KeyUsername, "Ana"))
	v, ok, err := c.Get(ctx, KeyUsername)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ana", v)
}

func TestMemoryProvider_IsolatesUsers(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	require.NoError(t, p.ForUser("u1").Set(ctx, KeyUsername, "Ana"))
	_, ok, _ := p.ForUser("u2").Get(ctx, KeyUsername)
	assert.False(t, ok)

	v, ok, _ := p.ForUser("u1").Get(ctx, KeyUsername)
	assert.True(t, ok)
	assert.Equal(t, "Ana", v)
}

func TestRedisDisplayCache_PrefixesKeys(t *testing.T) {
	mock := newMockRedisKVClient()
	p := &RedisProvider{client: mock, prefix: "display:"}
	c := p.ForUser(" u1 ")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, KeyProfileImage, "http://cdn/avatars/u1"))
	assert.Equal(t, "display:u1:profileImage", mock.lastSetKey)
	assert.Equal(t, time.Duration(0), mock.lastSetTTL)

	v, ok, err := c.Get(ctx, KeyProfileImage)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "http://cdn/avatars/u1", v)

	_, ok, err = c.Get(ctx, KeyUsername)
	require.NoError(t, err)
	assert.False(t, ok, "redis.Nil must map to absent")
}

func TestRedisDisplayCache_Errors(t *testing.T) {
	mock := newMockRedisKVClient()
	mock.getErr = errors.New("redis down")
	mock.setErr = errors.New("redis down")
	c := (&RedisProvider{client: mock, prefix: "display:"}).ForUser("u1")
	ctx := context.Background()

	_, _, err := c.Get(ctx, KeyUsername)
	assert.Error(t, err)
	assert.Error(t, c.Set(ctx, KeyUsername, "Ana"))
}
