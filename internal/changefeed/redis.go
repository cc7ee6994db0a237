package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// streamPrefix is the key prefix for per-table feed streams.
	streamPrefix = "cf:"

	// streamMaxLen caps each table stream. The feed is a live signal, not a
	// log: anything a subscriber missed is re-derived from a bulk load.
	streamMaxLen = 1000

	// readBlock is how long a subscriber blocks waiting for new entries.
	readBlock = 5 * time.Second
)

// RedisFeed carries events across processes via one Redis Stream per table.
// Subscribers read from "$" so only events after subscription are delivered;
// ordering is loose within a table and unspecified across tables.
type RedisFeed struct {
	client *redis.Client
}

// NewRedisFeed creates a feed backed by Redis Streams.
func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

func streamKey(table string) string {
	return streamPrefix + table
}

// Publish adds an event to the table's stream using XADD with an approximate
// length cap.
func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = f.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(ev.Table),
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		log.Printf("[ChangeFeed] Publish FAILED: table=%s kind=%s err=%v", ev.Table, ev.Kind, err)
		return fmt.Errorf("xadd to stream: %w", err)
	}
	return nil
}

// Subscribe starts a reader goroutine tailing the table's stream from "$".
// The returned cancel function stops the reader and closes the channel.
func (f *RedisFeed) Subscribe(table string) (<-chan Event, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan Event, subscriberBuffer)

	go f.tail(ctx, table, ch)

	return ch, cancel
}

// tail reads new entries from lastID onward, forwarding parsed events.
func (f *RedisFeed) tail(ctx context.Context, table string, ch chan<- Event) {
	defer close(ch)

	key := streamKey(table)
	lastID := "$"

	for {
		streams, err := f.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{key, lastID},
			Count:   int64(subscriberBuffer),
			Block:   readBlock,
		}).Result()

		if ctx.Err() != nil {
			return
		}
		if err == redis.Nil {
			continue // Block timeout, no new entries
		}
		if err != nil {
			log.Printf("[ChangeFeed] Read FAILED: table=%s err=%v", table, err)
			time.Sleep(time.Second) // Back off on error
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				lastID = msg.ID

				ev, err := parseStreamEvent(msg.Values)
				if err != nil {
					log.Printf("[ChangeFeed] parse error: table=%s msgID=%s err=%v", table, msg.ID, err)
					continue // Skip malformed entries
				}

				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// parseStreamEvent parses an Event from stream entry values.
func parseStreamEvent(values map[string]interface{}) (Event, error) {
	data, ok := values["data"].(string)
	if !ok {
		return Event{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var ev Event
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}
