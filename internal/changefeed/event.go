// Package changefeed delivers row-level insert/update/delete notifications for
// named tables to per-view subscriptions. The feed is best effort: views always
// seed their state with an initial bulk load and use the feed only to keep it
// fresh, so a dropped connection degrades freshness, not correctness.
package changefeed

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind is the type of row change carried by an event.
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Table names published on the feed.
const (
	TablePosts          = "posts"
	TableLikes          = "likes"
	TableCommentLikes   = "comment_likes"
	TableComments       = "comments"
	TableFollows        = "follows"
	TableNotifications  = "notifications"
	TableDirectMessages = "direct_messages"
	TableGlobalMessages = "global_messages"
	TablePendingPosts   = "pending_posts"
)

// Event is a single row change. New carries the row after the change (insert,
// update), Old the row before it (update, delete). Consumers must treat an
// event as a patch instruction, never as the new full state: delivery order is
// only loose within one table and unordered across tables.
type Event struct {
	Table string          `json:"table"`
	Kind  Kind            `json:"kind"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
	Ts    int64           `json:"ts"` // Epoch milliseconds at publish time
}

// NewEvent builds an event, marshalling the given rows.
// Either row may be nil depending on the kind.
func NewEvent(table string, kind Kind, newRow, oldRow any) (Event, error) {
	ev := Event{Table: table, Kind: kind, Ts: time.Now().UnixMilli()}

	if newRow != nil {
		data, err := json.Marshal(newRow)
		if err != nil {
			return Event{}, fmt.Errorf("marshal new row: %w", err)
		}
		ev.New = data
	}
	if oldRow != nil {
		data, err := json.Marshal(oldRow)
		if err != nil {
			return Event{}, fmt.Errorf("marshal old row: %w", err)
		}
		ev.Old = data
	}
	return ev, nil
}

// Row returns the row the event should be matched against: New when present,
// otherwise Old (deletes only carry the old row).
func (e Event) Row() json.RawMessage {
	if len(e.New) > 0 {
		return e.New
	}
	return e.Old
}

// DecodeNew unmarshals the event's new row into dst.
func (e Event) DecodeNew(dst any) error {
	if len(e.New) == 0 {
		return fmt.Errorf("event has no new row")
	}
	if err := json.Unmarshal(e.New, dst); err != nil {
		return fmt.Errorf("decode new row: %w", err)
	}
	return nil
}

// DecodeOld unmarshals the event's old row into dst.
func (e Event) DecodeOld(dst any) error {
	if len(e.Old) == 0 {
		return fmt.Errorf("event has no old row")
	}
	if err := json.Unmarshal(e.Old, dst); err != nil {
		return fmt.Errorf("decode old row: %w", err)
	}
	return nil
}
