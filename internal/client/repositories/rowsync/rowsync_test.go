package rowsync

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  remote_id TEXT,
  deleted INTEGER,
  synced INTEGER,
  updated_at TEXT
);`)
	require.NoError(t, err)
	return db
}

func insert(t *testing.T, db *sql.DB, remoteID any, deleted, synced int, updatedAt string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO items(remote_id, deleted, synced, updated_at) VALUES (?, ?, ?, ?)`, remoteID, deleted, synced, updatedAt)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func load(t *testing.T, db *sql.DB, id int64) models.SyncMeta {
	t.Helper()
	var m Meta
	err := db.QueryRow(`SELECT `+Columns+` FROM items WHERE id = ?`, id).Scan(m.Dest()...)
	require.NoError(t, err)
	var out models.SyncMeta
	m.Into(id, &out)
	return out
}

func TestMeta_ScansNullsAsDefaults(t *testing.T) {
	db := setupDB(t)
	res, err := db.Exec(`INSERT INTO items DEFAULT VALUES`)
	require.NoError(t, err)
	id, _ := res.LastInsertId()

	m := load(t, db, id)
	assert.Equal(t, models.SyncMeta{LocalID: id, Dirty: true}, m)
}

func TestLink_OnlyWhenUnlinked(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	free := insert(t, db, nil, 0, 0, "t1")
	taken := insert(t, db, "k-old", 0, 1, "t1")

	require.NoError(t, Link(ctx, db, "items", free, "k1"))
	require.NoError(t, Link(ctx, db, "items", taken, "k2"))

	assert.Equal(t, "k1", load(t, db, free).RemoteID)
	assert.Equal(t, "k-old", load(t, db, taken).RemoteID)
}

func TestMarkSynced_ClearsDirtyWhenUnchanged(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	id := insert(t, db, nil, 0, 0, "2025-01-01T00:00:00.000Z")

	require.NoError(t, MarkSynced(ctx, db, "items", id, "k1", "2025-01-01T00:00:00.000Z", "2025-01-02T00:00:00.000Z"))

	m := load(t, db, id)
	assert.Equal(t, "k1", m.RemoteID)
	assert.False(t, m.Dirty)
	assert.Equal(t, "2025-01-02T00:00:00.000Z", m.UpdatedAt)
}

func TestMarkSynced_KeepsDirtyWhenEditedMeanwhile(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	id := insert(t, db, nil, 0, 0, "2025-01-03T00:00:00.000Z")

	require.NoError(t, MarkSynced(ctx, db, "items", id, "k1", "2025-01-01T00:00:00.000Z", "2025-01-02T00:00:00.000Z"))

	m := load(t, db, id)
	assert.Equal(t, "k1", m.RemoteID)
	assert.True(t, m.Dirty)
	assert.Equal(t, "2025-01-03T00:00:00.000Z", m.UpdatedAt)
}

func TestMarkDeletedRemote(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	id := insert(t, db, nil, 0, 0, "t1")

	require.NoError(t, MarkDeletedRemote(ctx, db, "items", id, "k9", "t2"))

	m := load(t, db, id)
	assert.True(t, m.Deleted)
	assert.False(t, m.Dirty)
	assert.Equal(t, "k9", m.RemoteID)
	assert.Equal(t, "t2", m.UpdatedAt)
}

func TestSoftDelete_MarksDirty(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	id := insert(t, db, "k1", 0, 1, "t1")

	require.NoError(t, SoftDelete(ctx, db, "items", id, "t2"))

	m := load(t, db, id)
	assert.True(t, m.Deleted)
	assert.True(t, m.Dirty)
	assert.Equal(t, "k1", m.RemoteID)
}

func TestMissingRow_ReturnsNotFound(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	assert.ErrorIs(t, SoftDelete(ctx, db, "items", 42, "t"), common.ErrorNotFound)
	assert.ErrorIs(t, MarkSynced(ctx, db, "items", 42, "k", "a", "b"), common.ErrorNotFound)
	assert.ErrorIs(t, MarkDeletedRemote(ctx, db, "items", 42, "k", "t"), common.ErrorNotFound)
}
