// Package rowsync holds the sync-metadata statements shared by every synced
// table: linking a row to its remote key, confirming a push and applying a
// remote deletion.
package rowsync

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

// Columns is the sync metadata select list in scan order. Older tables may
// hold NULLs in these columns.
const Columns = "remote_id, COALESCE(deleted, 0), COALESCE(synced, 0), COALESCE(updated_at, '')"

// NullString maps "" to NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Meta receives the sync metadata columns of one row.
type Meta struct {
	RemoteID  sql.NullString
	Deleted   bool
	Synced    bool
	UpdatedAt string
}

// Dest returns scan destinations in Columns order.
func (m *Meta) Dest() []any {
	return []any{&m.RemoteID, &m.Deleted, &m.Synced, &m.UpdatedAt}
}

// Into copies the scanned values into a SyncMeta.
func (m *Meta) Into(id int64, out *models.SyncMeta) {
	out.LocalID = id
	out.RemoteID = m.RemoteID.String
	out.Deleted = m.Deleted
	out.Dirty = !m.Synced
	out.UpdatedAt = m.UpdatedAt
}

// Link stamps a remote id on a row that has none.
func Link(ctx context.Context, db dbx.DBTX, table string, localID int64, remoteID string) error {
	q := fmt.Sprintf(`UPDATE %s SET remote_id = ? WHERE id = ? AND remote_id IS NULL`, table)
	if _, err := db.ExecContext(ctx, q, remoteID, localID); err != nil {
		return fmt.Errorf("failed to link %s[%d]: %w", table, localID, err)
	}
	return nil
}

// MarkSynced records a successful push. The dirty flag is cleared only when
// the row was not edited since it was read for the push.
func MarkSynced(ctx context.Context, db dbx.DBTX, table string, localID int64, remoteID, seenUpdatedAt, pushedUpdatedAt string) error {
	q := fmt.Sprintf(`
		UPDATE %s SET remote_id = ?,
			synced = CASE WHEN updated_at = ? THEN 1 ELSE synced END,
			updated_at = CASE WHEN updated_at = ? THEN ? ELSE updated_at END
		WHERE id = ?`, table)
	res, err := db.ExecContext(ctx, q, remoteID, seenUpdatedAt, seenUpdatedAt, pushedUpdatedAt, localID)
	if err != nil {
		return fmt.Errorf("failed to mark %s[%d] synced: %w", table, localID, err)
	}
	return expectOne(res, table, localID)
}

// MarkDeletedRemote soft-deletes a row because the remote store says so.
func MarkDeletedRemote(ctx context.Context, db dbx.DBTX, table string, localID int64, remoteID, updatedAt string) error {
	q := fmt.Sprintf(`
		UPDATE %s SET deleted = 1, synced = 1,
			remote_id = COALESCE(remote_id, ?),
			updated_at = ?
		WHERE id = ?`, table)
	res, err := db.ExecContext(ctx, q, remoteID, updatedAt, localID)
	if err != nil {
		return fmt.Errorf("failed to delete %s[%d]: %w", table, localID, err)
	}
	return expectOne(res, table, localID)
}

// SoftDelete marks a row deleted by the user; the deletion is pushed later.
func SoftDelete(ctx context.Context, db dbx.DBTX, table string, localID int64, updatedAt string) error {
	q := fmt.Sprintf(`UPDATE %s SET deleted = 1, synced = 0, updated_at = ? WHERE id = ?`, table)
	res, err := db.ExecContext(ctx, q, updatedAt, localID)
	if err != nil {
		return fmt.Errorf("failed to soft delete %s[%d]: %w", table, localID, err)
	}
	return expectOne(res, table, localID)
}

func expectOne(res sql.Result, table string, localID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s[%d]: %w", table, localID, common.ErrorNotFound)
	}
	return nil
}
