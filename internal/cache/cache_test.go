package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/academy-engine/internal/models"
)

func TestKey(t *testing.T) {
	require.Equal(t, "academy:page:home", Key("home"))
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c PageCache = Noop{}

	require.NoError(t, c.Set(ctx, &models.RenderedPage{Slug: "home"}))
	page, err := c.Get(ctx, "home")
	require.NoError(t, err)
	require.Nil(t, page)

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestNewRedisCacheFromClientDefaultsTTL(t *testing.T) {
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), 0)
	defer c.Close()
	require.Equal(t, DefaultTTL, c.ttl)
}

// Runs against a live server when ACADEMY_TEST_REDIS_ADDR is set
func TestRedisCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("ACADEMY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ACADEMY_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	c, err := NewRedisCache(ctx, RedisConfig{Addr: addr, DB: 15, TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Purge(ctx)
	require.NoError(t, err)

	miss, err := c.Get(ctx, "about")
	require.NoError(t, err)
	require.Nil(t, miss)

	require.NoError(t, c.Set(ctx, &models.RenderedPage{Slug: "about", Title: "About", HTML: "<p>hi</p>"}))
	require.NoError(t, c.Set(ctx, &models.RenderedPage{Slug: "home", Title: "Home", HTML: "<p>home</p>"}))

	hit, err := c.Get(ctx, "about")
	require.NoError(t, err)
	require.NotNil(t, hit)
	require.True(t, hit.Cached)
	require.Equal(t, "<p>hi</p>", hit.HTML)

	require.NoError(t, c.Invalidate(ctx, "about"))
	miss, err = c.Get(ctx, "about")
	require.NoError(t, err)
	require.Nil(t, miss)

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
