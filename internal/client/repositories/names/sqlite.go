package names

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/rowsync"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

const selectColumns = `id, name, ` + rowsync.Columns

// SQLiteRepository implements Repository for one name table.
type SQLiteRepository struct {
	db    dbx.DBTX
	table string
}

func NewSQLiteRepository(db dbx.DBTX, table string) *SQLiteRepository {
	return &SQLiteRepository{db: db, table: table}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNamed(s scanner) (models.Named, error) {
	var (
		n    models.Named
		id   int64
		meta rowsync.Meta
	)
	if err := s.Scan(append([]any{&id, &n.Name}, meta.Dest()...)...); err != nil {
		return models.Named{}, err
	}
	meta.Into(id, &n.SyncMeta)
	return n, nil
}

func (r *SQLiteRepository) selectFrom(where string) string {
	return fmt.Sprintf(`SELECT %s FROM %s %s`, selectColumns, r.table, where)
}

func (r *SQLiteRepository) queryOne(ctx context.Context, op, query string, args ...any) (*models.Named, error) {
	n, err := scanNamed(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s %s: %w", op, r.table, err)
	}
	return &n, nil
}

func (r *SQLiteRepository) queryMany(ctx context.Context, op, query string, args ...any) ([]models.Named, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s %s: %w", op, r.table, err)
	}
	defer rows.Close()

	var result []models.Named
	for rows.Next() {
		n, err := scanNamed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", r.table, err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", r.table, err)
	}
	return result, nil
}

// ListActive returns non-deleted rows in insertion order.
func (r *SQLiteRepository) ListActive(ctx context.Context) ([]models.Named, error) {
	return r.queryMany(ctx, "list", r.selectFrom(`WHERE deleted = 0 ORDER BY id ASC`))
}

func (r *SQLiteRepository) Get(ctx context.Context, localID int64) (*models.Named, error) {
	return r.queryOne(ctx, "get", r.selectFrom(`WHERE id = ?`), localID)
}

func (r *SQLiteRepository) FindByName(ctx context.Context, name string) (*models.Named, error) {
	return r.queryOne(ctx, "find",
		r.selectFrom(`WHERE LOWER(name) = LOWER(?) ORDER BY deleted ASC, id ASC LIMIT 1`),
		models.NormalizeName(name))
}

func (r *SQLiteRepository) Insert(ctx context.Context, name, updatedAt string) (int64, error) {
	q := fmt.Sprintf(`INSERT INTO %s (name, deleted, synced, updated_at) VALUES (?, 0, 0, ?)`, r.table)
	res, err := r.db.ExecContext(ctx, q, name, updatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", r.table, err)
	}
	return res.LastInsertId()
}

// Undelete revives a soft-deleted row under the given spelling of its name.
func (r *SQLiteRepository) Undelete(ctx context.Context, localID int64, name, updatedAt string) error {
	q := fmt.Sprintf(`UPDATE %s SET name = ?, deleted = 0, synced = 0, updated_at = ? WHERE id = ?`, r.table)
	res, err := r.db.ExecContext(ctx, q, name, updatedAt, localID)
	if err != nil {
		return fmt.Errorf("failed to undelete %s[%d]: %w", r.table, localID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s[%d]: %w", r.table, localID, common.ErrorNotFound)
	}
	return nil
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, localID int64, updatedAt string) error {
	return rowsync.SoftDelete(ctx, r.db, r.table, localID, updatedAt)
}

func (r *SQLiteRepository) GetDirty(ctx context.Context) ([]models.Named, error) {
	return r.queryMany(ctx, "select dirty", r.selectFrom(`WHERE synced = 0 ORDER BY updated_at ASC, id ASC`))
}

func (r *SQLiteRepository) FindByRemoteID(ctx context.Context, remoteID string) (*models.Named, error) {
	return r.queryOne(ctx, "find by remote id", r.selectFrom(`WHERE remote_id = ? ORDER BY id ASC LIMIT 1`), remoteID)
}

// FindMatch matches on the natural key, deleted rows included.
func (r *SQLiteRepository) FindMatch(ctx context.Context, candidate *models.Named) (*models.Named, error) {
	return r.FindByName(ctx, candidate.Name)
}

func (r *SQLiteRepository) InsertRemote(ctx context.Context, n *models.Named) (int64, error) {
	q := fmt.Sprintf(`INSERT INTO %s (name, remote_id, deleted, synced, updated_at) VALUES (?, ?, 0, 1, ?)`, r.table)
	res, err := r.db.ExecContext(ctx, q, n.Name, rowsync.NullString(n.RemoteID), n.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert remote row into %s: %w", r.table, err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) ApplyRemote(ctx context.Context, n *models.Named) error {
	q := fmt.Sprintf(`UPDATE %s SET name = ?, remote_id = ?, deleted = 0, synced = 1, updated_at = ? WHERE id = ?`, r.table)
	if _, err := r.db.ExecContext(ctx, q, n.Name, rowsync.NullString(n.RemoteID), n.UpdatedAt, n.LocalID); err != nil {
		return fmt.Errorf("failed to apply remote row to %s: %w", r.table, err)
	}
	return nil
}

func (r *SQLiteRepository) Link(ctx context.Context, localID int64, remoteID string) error {
	return rowsync.Link(ctx, r.db, r.table, localID, remoteID)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, localID int64, remoteID, seenUpdatedAt, pushedUpdatedAt string) error {
	return rowsync.MarkSynced(ctx, r.db, r.table, localID, remoteID, seenUpdatedAt, pushedUpdatedAt)
}

func (r *SQLiteRepository) MarkDeletedRemote(ctx context.Context, localID int64, remoteID, updatedAt string) error {
	return rowsync.MarkDeletedRemote(ctx, r.db, r.table, localID, remoteID, updatedAt)
}
