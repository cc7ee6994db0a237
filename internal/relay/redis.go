package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// channelPrefix namespaces relay topics in the shared Redis keyspace.
const channelPrefix = "relay:"

// RedisTransport carries relay payloads between processes over Redis pub/sub.
// Pub/sub fits the contract exactly: fire-and-forget, no replay, all current
// listeners of a channel receive every publish.
type RedisTransport struct {
	client *redis.Client
}

// NewRedisTransport creates a transport over the given Redis client.
func NewRedisTransport(client *redis.Client) *RedisTransport {
	return &RedisTransport{client: client}
}

// Send publishes the payload on the topic's channel.
func (t *RedisTransport) Send(ctx context.Context, topic string, p Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := t.client.Publish(ctx, channelPrefix+topic, data).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Listen subscribes to the topic's channel and forwards payloads to fn until
// ctx is cancelled. Malformed payloads are skipped.
func (t *RedisTransport) Listen(ctx context.Context, topic string, fn func(Payload)) error {
	sub := t.client.Subscribe(ctx, channelPrefix+topic)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription channel closed")
			}
			var p Payload
			if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
				continue
			}
			fn(p)
		}
	}
}
