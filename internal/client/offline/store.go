// Package offline keeps the client's last-known server state in a local
// SQLite database: a keyed cache with age checks, append-only queues of
// writes awaiting replay, and plain record mirrors used while the server is
// unreachable.
package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"spothire/internal/client/offline/migrations"
)

// DefaultMaxAge is how long a cached value is considered fresh.
const DefaultMaxAge = time.Hour

const cachePrefix = "cache:"

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the database at dsn and applies migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one connection so ":memory:" databases are shared across calls
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate offline store: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SetCache stores v under key, replacing any previous value.
func (s *Store) SetCache(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache[%s]: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, saved_at, value) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET saved_at = excluded.saved_at, value = excluded.value
	`, cachePrefix+key, s.now().UnixMilli(), data)
	if err != nil {
		return fmt.Errorf("failed to set cache[%s]: %w", key, err)
	}
	return nil
}

// GetCache decodes the value under key into out. It reports false when the
// key is missing or older than maxAge; a non-positive maxAge means
// DefaultMaxAge.
func (s *Store) GetCache(ctx context.Context, key string, out interface{}, maxAge time.Duration) (bool, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	var savedAt int64
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT saved_at, value FROM cache_entries WHERE key = ?`, cachePrefix+key).
		Scan(&savedAt, &data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cache[%s]: %w", key, err)
	}

	if s.now().Sub(time.UnixMilli(savedAt)) > maxAge {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		// unreadable entries count as missing
		return false, nil
	}
	return true, nil
}

// PushQueue appends item to the queue named key.
func (s *Store) PushQueue(ctx context.Context, key string, item interface{}) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode queue item[%s]: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO queue_items (queue, value, queued_at) VALUES (?, ?, ?)`,
		key, data, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to push queue[%s]: %w", key, err)
	}
	return nil
}

// ConsumeQueue returns every item of the queue in push order and empties it.
func (s *Store) ConsumeQueue(ctx context.Context, key string) ([]json.RawMessage, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT value FROM queue_items WHERE queue = ? ORDER BY id`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue[%s]: %w", key, err)
	}

	items := []json.RawMessage{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan queue row: %w", err)
		}
		items = append(items, json.RawMessage(data))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate queue rows: %w", err)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_items WHERE queue = ?`, key); err != nil {
		return nil, fmt.Errorf("failed to clear queue[%s]: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return items, nil
}

// QueueLen returns the number of items waiting in the queue.
func (s *Store) QueueLen(ctx context.Context, key string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue_items WHERE queue = ?`, key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count queue[%s]: %w", key, err)
	}
	return n, nil
}

// Mirror decodes the records stored under key into out, which must point to
// a slice. A missing mirror leaves out untouched and reports false.
func (s *Store) Mirror(ctx context.Context, key string, out interface{}) (bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM mirrors WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get mirror[%s]: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode mirror[%s]: %w", key, err)
	}
	return true, nil
}

// SetMirror replaces the records stored under key.
func (s *Store) SetMirror(ctx context.Context, key string, records interface{}) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode mirror[%s]: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mirrors (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, data)
	if err != nil {
		return fmt.Errorf("failed to set mirror[%s]: %w", key, err)
	}
	return nil
}

// AppendMirror adds one record to the end of the mirror under key.
func (s *Store) AppendMirror(ctx context.Context, key string, record interface{}) error {
	var records []json.RawMessage
	if _, err := s.Mirror(ctx, key, &records); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode mirror record[%s]: %w", key, err)
	}
	return s.SetMirror(ctx, key, append(records, data))
}
