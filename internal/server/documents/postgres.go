package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/server/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresStore keeps documents as JSONB rows keyed by (collection, key).
type PostgresStore struct {
	db dbx.DBTX
}

func NewPostgresStore(db dbx.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// OpenPostgres connects through the pgx stdlib driver and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}
	return db, nil
}

// Put upserts the row. xmax is zero only for a freshly inserted tuple.
func (s *PostgresStore) Put(ctx context.Context, doc Document) (bool, error) {
	data, err := json.Marshal(doc.clone().Data)
	if err != nil {
		return false, fmt.Errorf("encode document: %w", err)
	}

	query := `
		INSERT INTO documents (collection, key, data, server_updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, key)
		DO UPDATE SET data = EXCLUDED.data, server_updated_at = EXCLUDED.server_updated_at
		RETURNING (xmax = 0) AS inserted`

	var inserted bool
	if err := s.db.QueryRowContext(ctx, query, doc.Collection, doc.Key, data, doc.UpdatedAt).Scan(&inserted); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return inserted, nil
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	query := `
		SELECT key, data, server_updated_at
		FROM documents
		WHERE collection = $1
		ORDER BY server_updated_at, key`

	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var (
			key       string
			raw       []byte
			updatedAt time.Time
		)
		if err := rows.Scan(&key, &raw, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		data := map[string]any{}
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", collection, key, err)
		}
		out = append(out, Document{Collection: collection, Key: key, Data: data, UpdatedAt: updatedAt})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
