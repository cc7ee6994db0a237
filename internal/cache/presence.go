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
	// PresenceKeyPrefix is the key prefix for per-user last-active timestamps
	PresenceKeyPrefix = "presence:user:"

	// PresenceTTL keeps stale entries from lingering long after the online window
	PresenceTTL = 10 * model.OnlineWindow
)

// Presence tracks last-active timestamps for online indicators.
type Presence interface {
	// Touch records a heartbeat for a user at the given time.
	Touch(ctx context.Context, userID int64, at time.Time) error

	// LastActive returns a user's last heartbeat.
	// found=false if the user has no recorded heartbeat.
	LastActive(ctx context.Context, userID int64) (at time.Time, found bool, err error)

	// IsOnline reports whether a user's last heartbeat falls inside the online window.
	IsOnline(ctx context.Context, userID int64, now time.Time) (bool, error)
}

// RedisPresence implements Presence using plain Redis keys.
type RedisPresence struct {
	client *redis.Client
}

// NewPresence creates a new Presence tracker backed by Redis.
func NewPresence(client *redis.Client) Presence {
	return &RedisPresence{client: client}
}

func presenceKey(userID int64) string {
	return fmt.Sprintf("%s%d", PresenceKeyPrefix, userID)
}

// Touch records a heartbeat for a user.
func (p *RedisPresence) Touch(ctx context.Context, userID int64, at time.Time) error {
	key := presenceKey(userID)

	err := p.client.Set(ctx, key, strconv.FormatInt(at.Unix(), 10), PresenceTTL).Err()
	if err != nil {
		log.Printf("[Presence] Touch FAILED: user=%d err=%v", userID, err)
		return fmt.Errorf("record heartbeat: %w", err)
	}

	return nil
}

// LastActive returns a user's last heartbeat.
func (p *RedisPresence) LastActive(ctx context.Context, userID int64) (time.Time, bool, error) {
	key := presenceKey(userID)

	val, err := p.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		log.Printf("[Presence] LastActive FAILED: user=%d err=%v", userID, err)
		return time.Time{}, false, fmt.Errorf("get last active: %w", err)
	}

	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		log.Printf("[Presence] LastActive parse error: user=%d val=%q err=%v", userID, val, err)
		return time.Time{}, false, fmt.Errorf("parse last active: %w", err)
	}

	return time.Unix(unix, 0), true, nil
}

// IsOnline reports whether a user was active inside the online window.
func (p *RedisPresence) IsOnline(ctx context.Context, userID int64, now time.Time) (bool, error) {
	at, found, err := p.LastActive(ctx, userID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return now.Sub(at) <= model.OnlineWindow, nil
}
