package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, prefix string) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, prefix), mr
}

func TestStoreGetSetRemove(t *testing.T) {
	s, mr := newTestStore(t, "nuri:")
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "achievementProgress:u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "achievementProgress:u1", `{"counters":{}}`))
	val, ok, err := s.Get(ctx, "achievementProgress:u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"counters":{}}`, val)

	raw, err := mr.Get("nuri:achievementProgress:u1")
	require.NoError(t, err)
	assert.Equal(t, `{"counters":{}}`, raw)

	require.NoError(t, s.Remove(ctx, "achievementProgress:u1"))
	_, ok, err = s.Get(ctx, "achievementProgress:u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreEmptyValueIsPresent(t *testing.T) {
	s, _ := newTestStore(t, "")
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", ""))
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreKeysAndMultiRemove(t *testing.T) {
	s, mr := newTestStore(t, "nuri:")
	ctx := context.Background()

	for _, k := range []string{"progress:u1", "progress:u2", "difficultyProgress:u1", "progressive"} {
		require.NoError(t, s.Set(ctx, k, "{}"))
	}
	require.NoError(t, mr.Set("other:progress:u3", "{}"))

	keys, err := s.Keys(ctx, "progress:")
	require.NoError(t, err)
	assert.Equal(t, []string{"progress:u1", "progress:u2"}, keys)

	require.NoError(t, s.MultiRemove(ctx, "progress:u1", "difficultyProgress:u1", "missing"))
	require.NoError(t, s.MultiRemove(ctx))

	keys, err = s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"progress:u2", "progressive"}, keys)
	assert.True(t, mr.Exists("other:progress:u3"))
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.URL = "redis://" + mr.Addr() + "/0"
	s, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{URL: "not a url"})
	assert.Error(t, err)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `a\*b\?c\[d\]`, escapeGlob("a*b?c[d]"))
}
