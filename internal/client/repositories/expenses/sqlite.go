package expenses

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

const table = "expenses"

const fieldColumns = `eng_name, date, cost, category, type, client, status, vehicle_no, description,
	start_location, end_location, distance, fuel_cost, start_time, end_time, time_consumed`

const selectColumns = `id, ` + fieldColumns + `, ` + rowsync.Columns

// sameEntry matches the user-visible fields of an expense.
const sameEntry = `LOWER(TRIM(eng_name)) = LOWER(TRIM(?)) AND date = ? AND cost = ? AND category = ?
	AND type = ? AND client = ? AND status = ? AND vehicle_no = ? AND description = ?
	AND start_location = ? AND end_location = ? AND distance = ? AND start_time = ? AND end_time = ?`

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func fieldArgs(f models.ExpenseFields) []any {
	return []any{
		f.EngName, f.Date, f.Cost, f.Category, f.Type, f.Client, f.Status, f.VehicleNo, f.Description,
		f.StartLocation, f.EndLocation, f.Distance, f.FuelCost, f.StartTime, f.EndTime, f.TimeConsumed,
	}
}

func sameEntryArgs(f models.ExpenseFields) []any {
	return []any{
		f.EngName, f.Date, f.Cost, f.Category, f.Type, f.Client, f.Status, f.VehicleNo, f.Description,
		f.StartLocation, f.EndLocation, f.Distance, f.StartTime, f.EndTime,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (models.Expense, error) {
	var (
		e    models.Expense
		id   int64
		meta rowsync.Meta
	)
	f := &e.ExpenseFields
	dest := []any{&id,
		&f.EngName, &f.Date, &f.Cost, &f.Category, &f.Type, &f.Client, &f.Status, &f.VehicleNo, &f.Description,
		&f.StartLocation, &f.EndLocation, &f.Distance, &f.FuelCost, &f.StartTime, &f.EndTime, &f.TimeConsumed,
	}
	if err := s.Scan(append(dest, meta.Dest()...)...); err != nil {
		return models.Expense{}, err
	}
	meta.Into(id, &e.SyncMeta)
	return e, nil
}

func (r *SQLiteRepository) queryOne(ctx context.Context, op, query string, args ...any) (*models.Expense, error) {
	e, err := scanExpense(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return &e, nil
}

func (r *SQLiteRepository) queryMany(ctx context.Context, op, query string, args ...any) ([]models.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var result []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return result, nil
}

// ListActive returns non-deleted expenses, newest first.
func (r *SQLiteRepository) ListActive(ctx context.Context) ([]models.Expense, error) {
	return r.queryMany(ctx, "list expenses",
		`SELECT `+selectColumns+` FROM expenses WHERE deleted = 0 ORDER BY id DESC`)
}

func (r *SQLiteRepository) Get(ctx context.Context, localID int64) (*models.Expense, error) {
	return r.queryOne(ctx, "get expense",
		`SELECT `+selectColumns+` FROM expenses WHERE id = ?`, localID)
}

// Insert stores a new expense entered on this device; it starts dirty.
func (r *SQLiteRepository) Insert(ctx context.Context, f models.ExpenseFields, updatedAt string) (int64, error) {
	query := `INSERT INTO expenses (` + fieldColumns + `, deleted, synced, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?)`
	res, err := r.db.ExecContext(ctx, query, append(fieldArgs(f), updatedAt)...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert expense: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) Update(ctx context.Context, localID int64, f models.ExpenseFields, updatedAt string) error {
	query := `UPDATE expenses SET eng_name = ?, date = ?, cost = ?, category = ?, type = ?, client = ?,
		status = ?, vehicle_no = ?, description = ?, start_location = ?, end_location = ?, distance = ?,
		fuel_cost = ?, start_time = ?, end_time = ?, time_consumed = ?, synced = 0, updated_at = ?
		WHERE id = ?`
	args := append(fieldArgs(f), updatedAt, localID)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense[%d]: %w", localID, common.ErrorNotFound)
	}
	return nil
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, localID int64, updatedAt string) error {
	return rowsync.SoftDelete(ctx, r.db, table, localID, updatedAt)
}

// FindActiveDuplicate finds an active expense with the same user-visible
// fields, comparing engineer names case-insensitively.
func (r *SQLiteRepository) FindActiveDuplicate(ctx context.Context, f models.ExpenseFields) (*models.Expense, error) {
	return r.queryOne(ctx, "find duplicate expense",
		`SELECT `+selectColumns+` FROM expenses WHERE deleted = 0 AND `+sameEntry+` ORDER BY id DESC LIMIT 1`,
		sameEntryArgs(f)...)
}

// HardDeleteSynced removes deleted rows whose deletion already reached the
// remote store.
func (r *SQLiteRepository) HardDeleteSynced(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE deleted = 1 AND synced = 1`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expenses: %w", err)
	}
	return res.RowsAffected()
}

// GetDirty returns rows with unpushed changes, oldest change first.
func (r *SQLiteRepository) GetDirty(ctx context.Context) ([]models.Expense, error) {
	return r.queryMany(ctx, "select dirty expenses",
		`SELECT `+selectColumns+` FROM expenses WHERE synced = 0 ORDER BY updated_at ASC, id ASC`)
}

func (r *SQLiteRepository) FindByRemoteID(ctx context.Context, remoteID string) (*models.Expense, error) {
	return r.queryOne(ctx, "find expense by remote id",
		`SELECT `+selectColumns+` FROM expenses WHERE remote_id = ? ORDER BY id DESC LIMIT 1`, remoteID)
}

// FindMatch looks for this device's own unlinked copy of a remote expense.
func (r *SQLiteRepository) FindMatch(ctx context.Context, candidate *models.Expense) (*models.Expense, error) {
	return r.queryOne(ctx, "match expense",
		`SELECT `+selectColumns+` FROM expenses WHERE remote_id IS NULL AND deleted = 0 AND `+sameEntry+`
		ORDER BY id DESC LIMIT 1`,
		sameEntryArgs(candidate.ExpenseFields)...)
}

func (r *SQLiteRepository) InsertRemote(ctx context.Context, e *models.Expense) (int64, error) {
	query := `INSERT INTO expenses (` + fieldColumns + `, remote_id, deleted, synced, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 1, ?)`
	args := append(fieldArgs(e.ExpenseFields), rowsync.NullString(e.RemoteID), e.UpdatedAt)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert remote expense: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) ApplyRemote(ctx context.Context, e *models.Expense) error {
	query := `UPDATE expenses SET eng_name = ?, date = ?, cost = ?, category = ?, type = ?, client = ?,
		status = ?, vehicle_no = ?, description = ?, start_location = ?, end_location = ?, distance = ?,
		fuel_cost = ?, start_time = ?, end_time = ?, time_consumed = ?,
		remote_id = ?, deleted = 0, synced = 1, updated_at = ?
		WHERE id = ?`
	args := append(fieldArgs(e.ExpenseFields), rowsync.NullString(e.RemoteID), e.UpdatedAt, e.LocalID)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to apply remote expense: %w", err)
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
