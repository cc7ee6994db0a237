package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"shotzi/internal/model"
)

const (
	// ChatCacheKey is the key for the global chat message cache
	ChatCacheKey = "chat:global"

	// ChatCacheCap mirrors the global chat history window
	ChatCacheCap = model.ChatHistoryLimit

	// ChatCacheTTL is the TTL for the chat cache (24 hours)
	ChatCacheTTL = 24 * time.Hour
)

// MessageScore represents a message with its timestamp score for caching
type MessageScore struct {
	MessageID int64
	Timestamp int64 // Unix timestamp
}

// ChatCache defines the interface for global chat cache operations.
// Using an interface enables testing with mocks and potential future backends.
type ChatCache interface {
	// AddMessage adds a message to the global chat cache.
	// Uses pipeline: ZADD + ZREMRANGEBYRANK (maintain cap) + EXPIRE (refresh TTL)
	AddMessage(ctx context.Context, messageID, timestamp int64) error

	// RecentIDs returns the cached message IDs, oldest first, capped at limit.
	RecentIDs(ctx context.Context, limit int) ([]int64, error)

	// WarmCache bulk-inserts messages into the cache.
	WarmCache(ctx context.Context, messages []MessageScore) error

	// Size returns the number of cached messages.
	Size(ctx context.Context) (int64, error)

	// Exists checks whether the cache has been populated.
	// Service layer should warm the cache when this returns false.
	Exists(ctx context.Context) (bool, error)
}

// RedisChatCache implements ChatCache using a Redis Sorted Set.
type RedisChatCache struct {
	client *redis.Client
}

// NewChatCache creates a new ChatCache backed by Redis.
func NewChatCache(client *redis.Client) ChatCache {
	return &RedisChatCache{client: client}
}

// AddMessage adds a message to the cache using a pipeline.
// Pipeline: ZADD + ZREMRANGEBYRANK (trim to cap) + EXPIRE (refresh TTL)
func (c *RedisChatCache) AddMessage(ctx context.Context, messageID, timestamp int64) error {
	startTime := time.Now()

	pipe := c.client.Pipeline()

	pipe.ZAdd(ctx, ChatCacheKey, redis.Z{
		Score:  float64(timestamp),
		Member: strconv.FormatInt(messageID, 10),
	})

	// Keep the newest ChatCacheCap scores, remove the rest
	pipe.ZRemRangeByRank(ctx, ChatCacheKey, 0, int64(-ChatCacheCap-1))

	pipe.Expire(ctx, ChatCacheKey, ChatCacheTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[ChatCache] AddMessage FAILED: message=%d err=%v", messageID, err)
		return fmt.Errorf("add message to chat cache: %w", err)
	}

	log.Printf("[ChatCache] AddMessage OK: message=%d timestamp=%d duration=%v",
		messageID, timestamp, time.Since(startTime))
	return nil
}

// RecentIDs returns the cached message IDs in chronological order.
func (c *RedisChatCache) RecentIDs(ctx context.Context, limit int) ([]int64, error) {
	startTime := time.Now()

	if limit <= 0 || limit > ChatCacheCap {
		limit = ChatCacheCap
	}

	// Newest limit members, then reverse to chronological order
	members, err := c.client.ZRevRange(ctx, ChatCacheKey, 0, int64(limit-1)).Result()
	if err != nil {
		log.Printf("[ChatCache] RecentIDs FAILED: err=%v", err)
		return nil, fmt.Errorf("get chat cache: %w", err)
	}

	// Refresh TTL on access
	c.client.Expire(ctx, ChatCacheKey, ChatCacheTTL)

	ids := make([]int64, len(members))
	for i, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			log.Printf("[ChatCache] RecentIDs parse error: member=%v err=%v", m, err)
			return nil, fmt.Errorf("parse message id: %w", err)
		}
		ids[len(members)-1-i] = id
	}

	log.Printf("[ChatCache] RecentIDs OK: returned=%d duration=%v", len(ids), time.Since(startTime))
	return ids, nil
}

// WarmCache bulk-inserts messages using a pipeline.
func (c *RedisChatCache) WarmCache(ctx context.Context, messages []MessageScore) error {
	if len(messages) == 0 {
		log.Printf("[ChatCache] WarmCache: messages=0 (nothing to warm)")
		return nil
	}

	startTime := time.Now()

	pipe := c.client.Pipeline()

	members := make([]redis.Z, len(messages))
	for i, m := range messages {
		members[i] = redis.Z{
			Score:  float64(m.Timestamp),
			Member: strconv.FormatInt(m.MessageID, 10),
		}
	}
	pipe.ZAdd(ctx, ChatCacheKey, members...)

	pipe.ZRemRangeByRank(ctx, ChatCacheKey, 0, int64(-ChatCacheCap-1))

	pipe.Expire(ctx, ChatCacheKey, ChatCacheTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[ChatCache] WarmCache FAILED: messages=%d err=%v", len(messages), err)
		return fmt.Errorf("warm chat cache: %w", err)
	}

	log.Printf("[ChatCache] WarmCache OK: messages=%d duration=%v", len(messages), time.Since(startTime))
	return nil
}

// Size returns the number of cached messages.
func (c *RedisChatCache) Size(ctx context.Context) (int64, error) {
	size, err := c.client.ZCard(ctx, ChatCacheKey).Result()
	if err != nil {
		log.Printf("[ChatCache] Size FAILED: err=%v", err)
		return 0, fmt.Errorf("get chat cache size: %w", err)
	}

	log.Printf("[ChatCache] Size: size=%d", size)
	return size, nil
}

// Exists checks whether the cache has been populated.
func (c *RedisChatCache) Exists(ctx context.Context) (bool, error) {
	exists, err := c.client.Exists(ctx, ChatCacheKey).Result()
	if err != nil {
		log.Printf("[ChatCache] Exists FAILED: err=%v", err)
		return false, fmt.Errorf("check chat cache exists: %w", err)
	}

	found := exists > 0
	log.Printf("[ChatCache] Exists: found=%t", found)
	return found, nil
}
