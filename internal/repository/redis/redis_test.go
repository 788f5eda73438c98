package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient connects to REDIS_ADDR, skipping when it is not set
func testClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	c := NewFromRedis(rdb)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestHistoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewHistoryCache(testClient(t), time.Minute)
	sessionID := "test-" + uuid.NewString()
	t.Cleanup(func() { cache.Invalidate(ctx, sessionID) })

	got, err := cache.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Nil(t, got)

	history := []domain.Message{
		{ID: 1, SessionID: sessionID, Role: domain.RoleUser, Content: "sales by region"},
		{ID: 2, SessionID: sessionID, Role: domain.RoleAssistant, Content: "here",
			Chart: &domain.ChartRecord{Type: domain.ChartBar, Title: "Sales"}},
	}
	require.NoError(t, cache.Set(ctx, sessionID, history))

	got, err = cache.Get(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Sales", got[1].Chart.Title)

	require.NoError(t, cache.Invalidate(ctx, sessionID))
	got, err = cache.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 10, 0, time.UTC))
	limiter := NewRateLimiter(testClient(t), 2, 1).WithClock(clock)
	key := "test-" + uuid.NewString()
	t.Cleanup(func() { limiter.Reset(ctx, key) })

	for i := 0; i < 3; i++ {
		allowed, remaining, reset, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 2-i, remaining)
		assert.Equal(t, time.Date(2024, 3, 1, 12, 1, 0, 0, time.UTC), reset)
	}

	allowed, remaining, _, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)

	clock.Advance(time.Minute)
	allowed, _, _, err = limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, allowed)
}
