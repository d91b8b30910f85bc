package cache

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBlacklist(t *testing.T, defaultTTL time.Duration) (*Blacklist, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBlacklist(client, defaultTTL), mr
}

func TestBlacklist_AddAndIsRevoked(t *testing.T) {
	bl, mr := setupBlacklist(t, 0)
	ctx := context.Background()

	revoked, err := bl.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Add(ctx, "token-a", 10*time.Minute))

	revoked, err = bl.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = bl.IsRevoked(ctx, "token-b")
	require.NoError(t, err)
	assert.False(t, revoked)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], blacklistPrefix))
	assert.NotContains(t, keys[0], "token-a")
	assert.Equal(t, 10*time.Minute, mr.TTL(keys[0]))
}

func TestBlacklist_EntryExpires(t *testing.T) {
	bl, mr := setupBlacklist(t, 0)
	ctx := context.Background()

	require.NoError(t, bl.Add(ctx, "token", 30*time.Second))
	mr.FastForward(31 * time.Second)

	revoked, err := bl.IsRevoked(ctx, "token")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBlacklist_DefaultTTL(t *testing.T) {
	tests := []struct {
		name       string
		defaultTTL time.Duration
		ttl        time.Duration
		want       time.Duration
	}{
		{name: "zero ttl uses package default", ttl: 0, want: DefaultRevocationTTL},
		{name: "negative ttl uses package default", ttl: -time.Second, want: DefaultRevocationTTL},
		{name: "configured default", defaultTTL: 2 * time.Hour, ttl: 0, want: 2 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bl, mr := setupBlacklist(t, tt.defaultTTL)
			require.NoError(t, bl.Add(context.Background(), "token", tt.ttl))
			assert.Equal(t, tt.want, mr.TTL(blacklistKey("token")))
		})
	}
}

func TestBlacklist_SharedAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	c1 := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c2 := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = c1.Close()
		_ = c2.Close()
	})
	ctx := context.Background()

	require.NoError(t, NewBlacklist(c1, 0).Add(ctx, "token", time.Minute))

	revoked, err := NewBlacklist(c2, 0).IsRevoked(ctx, "token")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestBlacklist_ConcurrentAccess(t *testing.T) {
	bl, _ := setupBlacklist(t, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, bl.Add(ctx, "shared", time.Minute))
			_, err := bl.IsRevoked(ctx, "shared")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	revoked, err := bl.IsRevoked(ctx, "shared")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestBlacklist_RedisError(t *testing.T) {
	bl, mr := setupBlacklist(t, 0)
	mr.Close()

	_, err := bl.IsRevoked(context.Background(), "token")
	assert.Error(t, err)
	assert.Error(t, bl.Add(context.Background(), "token", time.Minute))
}
