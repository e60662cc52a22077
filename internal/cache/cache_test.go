package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newRedis(t *testing.T) (*RedisProvider, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	p, err := NewRedisProvider(RedisConfig{Addr: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, srv
}

func TestProviders(t *testing.T) {
	redisProvider, _ := newRedis(t)
	providers := map[string]Provider{
		"memory": NewMemoryProvider(),
		"redis":  redisProvider,
	}

	for name, p := range providers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := p.Get(ctx, "absent")
			assert.ErrorIs(t, err, ErrCacheMiss)

			require.NoError(t, p.Set(ctx, "k", []byte("v1"), 0))
			got, err := p.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("v1"), got)

			ok, err := p.SetNX(ctx, "k", []byte("v2"), 0)
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = p.SetNX(ctx, "fresh", []byte("v3"), time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, p.Del(ctx, "k"))
			_, err = p.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrCacheMiss)
		})
	}
}

func TestRedisProviderTTL(t *testing.T) {
	p, srv := newRedis(t)
	ctx := context.Background()

	require.NoError(t, p.Set(ctx, "short", []byte("x"), time.Second))
	srv.FastForward(2 * time.Second)

	_, err := p.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryProviderTTL(t *testing.T) {
	p := NewMemoryProvider()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, p.Set(ctx, "short", []byte("x"), time.Second))
	_, err := p.Get(ctx, "short")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = p.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)

	ok, err := p.SetNX(ctx, "short", []byte("y"), 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryProviderCopiesValues(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()
	value := []byte("abc")

	require.NoError(t, p.Set(ctx, "k", value, 0))
	value[0] = 'z'
	got, err := p.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestRedisProviderRequiresAddr(t *testing.T) {
	_, err := NewRedisProvider(RedisConfig{})
	assert.Error(t, err)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()
	key := Key("report", "gen-1", "1-3")
	assert.Equal(t, "nodedown:report:gen-1:1-3", key)

	var out payload
	assert.ErrorIs(t, GetJSON(ctx, p, key, &out), ErrCacheMiss)

	require.NoError(t, SetJSON(ctx, p, key, payload{Name: "RTR-1", Count: 3}, time.Minute))
	require.NoError(t, GetJSON(ctx, p, key, &out))
	assert.Equal(t, payload{Name: "RTR-1", Count: 3}, out)

	require.NoError(t, p.Set(ctx, "bad", []byte("{"), 0))
	assert.Error(t, GetJSON(ctx, p, "bad", &out))

	assert.ErrorIs(t, GetJSON(ctx, NoopProvider{}, key, &out), ErrCacheMiss)
}
