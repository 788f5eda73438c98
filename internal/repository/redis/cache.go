package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	historyCachePrefix     = "history:"
	defaultHistoryCacheTTL = 5 * time.Minute
)

// HistoryCache keeps recently fetched session histories in Redis
type HistoryCache struct {
	client *Client
	ttl    time.Duration
}

// NewHistoryCache creates a new history cache. A non-positive ttl selects
// the default.
func NewHistoryCache(client *Client, ttl time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = defaultHistoryCacheTTL
	}
	return &HistoryCache{client: client, ttl: ttl}
}

// Get retrieves the cached history of a session. A miss returns nil, nil.
func (c *HistoryCache) Get(ctx context.Context, sessionID string) ([]domain.Message, error) {
	data, err := c.client.rdb.Get(ctx, historyCachePrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history cache: %w", err)
	}

	var messages []domain.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}

	return messages, nil
}

// Set caches the history of a session
func (c *HistoryCache) Set(ctx context.Context, sessionID string, messages []domain.Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	return c.client.rdb.Set(ctx, historyCachePrefix+sessionID, data, c.ttl).Err()
}

// Invalidate removes the cached history of a session
func (c *HistoryCache) Invalidate(ctx context.Context, sessionID string) error {
	return c.client.rdb.Del(ctx, historyCachePrefix+sessionID).Err()
}

// FlushAll removes every cached history
func (c *HistoryCache) FlushAll(ctx context.Context) (int64, error) {
	pattern := historyCachePrefix + "*"
	var cursor uint64
	var deleted int64

	for {
		keys, nextCursor, err := c.client.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			count, err := c.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += count
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}
