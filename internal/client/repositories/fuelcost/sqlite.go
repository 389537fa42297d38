package fuelcost

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/rowsync"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

const table = "fuel_cost_settings"

const selectLatest = `SELECT id, cost, ` + rowsync.Columns + ` FROM ` + table + ` %s ORDER BY id DESC LIMIT 1`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) latest(ctx context.Context, where string, args ...any) (*models.FuelCost, error) {
	var (
		f    models.FuelCost
		id   int64
		meta rowsync.Meta
	)
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(selectLatest, where), args...)
	err := row.Scan(append([]any{&id, &f.Cost}, meta.Dest()...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fuel cost: %w", err)
	}
	meta.Into(id, &f.SyncMeta)
	return &f, nil
}

func (r *SQLiteRepository) Get(ctx context.Context) (*models.FuelCost, error) {
	return r.latest(ctx, `WHERE deleted = 0`)
}

func (r *SQLiteRepository) Save(ctx context.Context, cost float64, updatedAt string) error {
	cur, err := r.latest(ctx, "")
	if err != nil {
		return err
	}
	if cur == nil {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO `+table+` (cost, deleted, synced, updated_at) VALUES (?, 0, 0, ?)`, cost, updatedAt)
	} else {
		_, err = r.db.ExecContext(ctx,
			`UPDATE `+table+` SET cost = ?, deleted = 0, synced = 0, updated_at = ? WHERE id = ?`,
			cost, updatedAt, cur.LocalID)
	}
	if err != nil {
		return fmt.Errorf("failed to save fuel cost: %w", err)
	}
	return nil
}

// GetDirty returns the authoritative row when it awaits a push.
func (r *SQLiteRepository) GetDirty(ctx context.Context) ([]models.FuelCost, error) {
	cur, err := r.latest(ctx, "")
	if err != nil || cur == nil || !cur.Dirty {
		return nil, err
	}
	return []models.FuelCost{*cur}, nil
}

func (r *SQLiteRepository) FindByRemoteID(ctx context.Context, remoteID string) (*models.FuelCost, error) {
	return r.latest(ctx, `WHERE remote_id = ?`, remoteID)
}

// FindMatch returns the latest row whatever its key: there is only one setting.
func (r *SQLiteRepository) FindMatch(ctx context.Context, _ *models.FuelCost) (*models.FuelCost, error) {
	return r.latest(ctx, "")
}

func (r *SQLiteRepository) InsertRemote(ctx context.Context, f *models.FuelCost) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO `+table+` (cost, remote_id, deleted, synced, updated_at) VALUES (?, ?, 0, 1, ?)`,
		f.Cost, rowsync.NullString(f.RemoteID), f.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert remote fuel cost: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) ApplyRemote(ctx context.Context, f *models.FuelCost) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE `+table+` SET cost = ?, remote_id = ?, deleted = 0, synced = 1, updated_at = ? WHERE id = ?`,
		f.Cost, rowsync.NullString(f.RemoteID), f.UpdatedAt, f.LocalID)
	if err != nil {
		return fmt.Errorf("failed to apply remote fuel cost: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Link(ctx context.Context, localID int64, remoteID string) error {
	return rowsync.Link(ctx, r.db, table, localID, remoteID)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, localID int64, remoteID, seenUpdatedAt, pushedUpdatedAt string) error {
	return rowsync.MarkSynced(ctx, r.db, table, localID, remoteID, seenUpdatedAt, pushedUpdatedAt)
}

func (r *SQLiteRepository) MarkDeletedRemote(ctx context.Context, localID int64, remoteID, updatedAt string) error {
	return rowsync.MarkDeletedRemote(ctx, r.db, table, localID, remoteID, updatedAt)
}
