// Package store is the table gateway: reads and writes addressed by table
// name with projection, filters, ordering and limits, plus write-through
// publication of every committed mutation on the change feed so live views
// converge without polling.
package store

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"shotzi/internal/changefeed"
)

// Store executes queries against Postgres and publishes change events.
type Store struct {
	db   *sqlx.DB
	feed changefeed.Publisher
}

// New creates a store. feed may be nil, in which case mutations are not
// published (bootstrap paths).
func New(db *sqlx.DB, feed changefeed.Publisher) *Store {
	return &Store{db: db, feed: feed}
}

// DB exposes the underlying handle for repository transactions.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Select runs the query into dest (a pointer to a slice). A read failure
// returns an error and leaves dest untouched; callers degrade to empty-result
// rendering.
func (s *Store) Select(ctx context.Context, q *Query, dest any) error {
	sql, args, err := q.SQL()
	if err != nil {
		return err
	}
	if err := s.db.SelectContext(ctx, dest, sql, args...); err != nil {
		return fmt.Errorf("select %s: %w", q.table, err)
	}
	return nil
}

// Get runs the query limited to one row into dest (a pointer to a struct).
func (s *Store) Get(ctx context.Context, q *Query, dest any) error {
	sql, args, err := q.Limit(1).SQL()
	if err != nil {
		return err
	}
	if err := s.db.GetContext(ctx, dest, sql, args...); err != nil {
		return fmt.Errorf("get %s: %w", q.table, err)
	}
	return nil
}

// Count runs a COUNT(*) over the query's filters.
func (s *Store) Count(ctx context.Context, q *Query) (int, error) {
	sql, args, err := q.renderCountSQL()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.GetContext(ctx, &n, sql, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.table, err)
	}
	return n, nil
}

// Insert writes one row and scans the created row (server-assigned id and
// timestamp included) into dest, so optimistic writers can reconcile their
// temporary entries. The insert event is published with the created row.
func (s *Store) Insert(ctx context.Context, table string, values map[string]any, dest any) error {
	cols := sortedKeys(values)

	ph := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		ph[i] = "$" + strconv.Itoa(i+1)
		args[i] = values[c]
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table, strings.Join(cols, ", "), strings.Join(ph, ", "))

	if err := s.db.GetContext(ctx, dest, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}

	s.publish(ctx, table, changefeed.KindInsert, dest, nil)
	return nil
}

// Update patches rows matching the equality filter. newRow, when non-nil, is
// the caller's view of the row after the patch and rides the update event;
// only success or error is reported back.
func (s *Store) Update(ctx context.Context, table string, set map[string]any, eq map[string]any, newRow any) error {
	setCols := sortedKeys(set)
	eqCols := sortedKeys(eq)

	var args []any
	assigns := make([]string, len(setCols))
	for i, c := range setCols {
		args = append(args, set[c])
		assigns[i] = fmt.Sprintf("%s = $%d", c, len(args))
	}
	wheres := make([]string, len(eqCols))
	for i, c := range eqCols {
		args = append(args, eq[c])
		wheres[i] = fmt.Sprintf("%s = $%d", c, len(args))
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		table, strings.Join(assigns, ", "), strings.Join(wheres, " AND "))

	if _, err := s.db.ExecContext(ctx, sql, args...); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}

	s.publish(ctx, table, changefeed.KindUpdate, newRow, nil)
	return nil
}

// Delete removes rows matching the equality filter. oldRow, when non-nil,
// rides the delete event so subscribers can identify what vanished.
func (s *Store) Delete(ctx context.Context, table string, eq map[string]any, oldRow any) error {
	eqCols := sortedKeys(eq)

	var args []any
	wheres := make([]string, len(eqCols))
	for i, c := range eqCols {
		args = append(args, eq[c])
		wheres[i] = fmt.Sprintf("%s = $%d", c, len(args))
	}

	sql := fmt.Sprintf("DELETE FROM %s WHERE %s", table, strings.Join(wheres, " AND "))
	if _, err := s.db.ExecContext(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}

	s.publish(ctx, table, changefeed.KindDelete, nil, oldRow)
	return nil
}

// Publish emits a change event for a mutation performed outside the generic
// write helpers (conflict-aware inserts, transactional repository paths).
// Publication is best effort; the row is committed either way and bulk loads
// remain the source of truth.
func (s *Store) Publish(ctx context.Context, table string, kind changefeed.Kind, newRow, oldRow any) {
	s.publish(ctx, table, kind, newRow, oldRow)
}

func (s *Store) publish(ctx context.Context, table string, kind changefeed.Kind, newRow, oldRow any) {
	if s.feed == nil {
		return
	}
	ev, err := changefeed.NewEvent(table, kind, newRow, oldRow)
	if err != nil {
		log.Printf("[Store] event build FAILED: table=%s kind=%s err=%v", table, kind, err)
		return
	}
	if err := s.feed.Publish(ctx, ev); err != nil {
		log.Printf("[Store] event publish FAILED: table=%s kind=%s err=%v", table, kind, err)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
