package storage

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

// Column is a column every release expects, with the declaration used to
// add it to an older table.
type Column struct {
	Name string
	Decl string
}

var syncColumns = []Column{
	{Name: "remote_id", Decl: "TEXT"},
	{Name: "deleted", Decl: "INTEGER NOT NULL DEFAULT 0"},
	{Name: "synced", Decl: "INTEGER NOT NULL DEFAULT 0"},
	{Name: "updated_at", Decl: "TEXT NOT NULL DEFAULT ''"},
}

func withSync(cols ...Column) []Column {
	return append(cols, syncColumns...)
}

// RequiredColumns lists, per table, the columns the repositories rely on.
var RequiredColumns = map[string][]Column{
	"expenses": withSync(
		Column{"eng_name", "TEXT NOT NULL DEFAULT ''"},
		Column{"date", "TEXT NOT NULL DEFAULT ''"},
		Column{"cost", "TEXT NOT NULL DEFAULT ''"},
		Column{"category", "TEXT NOT NULL DEFAULT ''"},
		Column{"type", "TEXT NOT NULL DEFAULT ''"},
		Column{"client", "TEXT NOT NULL DEFAULT ''"},
		Column{"status", "TEXT NOT NULL DEFAULT ''"},
		Column{"vehicle_no", "TEXT NOT NULL DEFAULT ''"},
		Column{"description", "TEXT NOT NULL DEFAULT ''"},
		Column{"start_location", "TEXT NOT NULL DEFAULT ''"},
		Column{"end_location", "TEXT NOT NULL DEFAULT ''"},
		Column{"distance", "TEXT NOT NULL DEFAULT ''"},
		Column{"fuel_cost", "REAL NOT NULL DEFAULT 0"},
		Column{"start_time", "TEXT NOT NULL DEFAULT ''"},
		Column{"end_time", "TEXT NOT NULL DEFAULT ''"},
		Column{"time_consumed", "REAL NOT NULL DEFAULT 0"},
	),
	"engineers":          withSync(Column{"name", "TEXT NOT NULL DEFAULT ''"}),
	"clients":            withSync(Column{"name", "TEXT NOT NULL DEFAULT ''"}),
	"fuel_cost_settings": withSync(Column{"cost", "REAL NOT NULL DEFAULT 0"}),
}

// EnsureColumns adds every missing required column. Existing data is kept.
func EnsureColumns(ctx context.Context, db dbx.DBTX) error {
	for table, cols := range RequiredColumns {
		existing, err := tableColumns(ctx, db, table)
		if err != nil {
			return err
		}
		for _, c := range cols {
			if _, ok := existing[c.Name]; ok {
				continue
			}
			q := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, c.Name, c.Decl)
			if _, err := db.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("failed to add column %s.%s: %w", table, c.Name, err)
			}
		}
	}
	return nil
}

func tableColumns(ctx context.Context, db dbx.DBTX, table string) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]struct{})
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table_info row: %w", err)
		}
		cols[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table_info rows: %w", err)
	}
	return cols, nil
}
