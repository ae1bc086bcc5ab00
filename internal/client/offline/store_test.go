package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestOpen_AppliesMigrations(t *testing.T) {
	s, _ := setupStore(t)

	for _, table := range []string{"goose_db_version", "cache_entries", "queue_items", "mirrors"} {
		assert.True(t, tableExists(t, s.db, table), table)
	}
}

func TestOpen_IsIdempotentOnFile(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "offline.db")

	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, s.SetCache(ctx, "k", "v"))
	require.NoError(t, s.Close())

	s, err = Open(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()

	var v string
	ok, err := s.GetCache(ctx, "k", &v, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestCache_LastWriteWinsAndExpires(t *testing.T) {
	s, now := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetCache(ctx, "search:helper", []string{"old"}))
	require.NoError(t, s.SetCache(ctx, "search:helper", []string{"new"}))

	var got []string
	ok, err := s.GetCache(ctx, "search:helper", &got, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"new"}, got)

	var key string
	require.NoError(t, s.db.QueryRow(`SELECT key FROM cache_entries`).Scan(&key))
	assert.Equal(t, "cache:search:helper", key)

	*now = now.Add(DefaultMaxAge + time.Second)
	ok, err = s.GetCache(ctx, "search:helper", &got, 0)
	require.NoError(t, err)
	assert.False(t, ok, "stale after default max age")

	ok, err = s.GetCache(ctx, "search:helper", &got, 2*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "explicit max age wins")
}

func TestCache_Missing(t *testing.T) {
	s, _ := setupStore(t)

	var got map[string]int
	ok, err := s.GetCache(context.Background(), "absent", &got, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestQueue_PushConsume(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.PushQueue(ctx, "pending_status", map[string]string{"id": "1"}))
	require.NoError(t, s.PushQueue(ctx, "pending_status", map[string]string{"id": "2"}))
	require.NoError(t, s.PushQueue(ctx, "other", map[string]string{"id": "x"}))

	n, err := s.QueueLen(ctx, "pending_status")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := s.ConsumeQueue(ctx, "pending_status")
	require.NoError(t, err)
	require.Len(t, items, 2)

	var first map[string]string
	require.NoError(t, json.Unmarshal(items[0], &first))
	assert.Equal(t, "1", first["id"])

	items, err = s.ConsumeQueue(ctx, "pending_status")
	require.NoError(t, err)
	assert.Empty(t, items)

	n, err = s.QueueLen(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "other queues untouched")
}

type record struct {
	Code string `json:"code"`
	TS   int64  `json:"ts"`
}

func TestMirror_SetAppend(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	var got []record
	ok, err := s.Mirror(ctx, "qr_scans", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.AppendMirror(ctx, "qr_scans", record{Code: "ABC234", TS: 1}))
	require.NoError(t, s.AppendMirror(ctx, "qr_scans", record{Code: "ABC234", TS: 2}))

	ok, err = s.Mirror(ctx, "qr_scans", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []record{{"ABC234", 1}, {"ABC234", 2}}, got)

	require.NoError(t, s.SetMirror(ctx, "qr_scans", []record{}))
	got = nil
	_, err = s.Mirror(ctx, "qr_scans", &got)
	require.NoError(t, err)
	assert.Empty(t, got)
}
