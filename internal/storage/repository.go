// Package storage persists the serialized application state. The aggregate
// is one blob; every save overwrites the previous snapshot wholesale.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotStore is the local persistence contract: load and save the full
// serialized state.
type SnapshotStore interface {
	Load(ctx context.Context) (payload []byte, revision int64, err error)
	Save(ctx context.Context, payload []byte, revision int64) error
	Close() error
}

// SQLiteRepository stores the snapshot in a single-row sqlite table.
type SQLiteRepository struct {
	db *sql.DB
}

var _ SnapshotStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load returns the stored snapshot, or ErrNoSnapshot on a fresh database.
func (r *SQLiteRepository) Load(ctx context.Context) ([]byte, int64, error) {
	var payload []byte
	var revision int64
	err := r.db.QueryRowContext(ctx,
		`SELECT payload, revision FROM snapshots WHERE id = 1`,
	).Scan(&payload, &revision)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNoSnapshot
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load snapshot: %w", err)
	}
	return payload, revision, nil
}

// Save upserts the single snapshot row.
func (r *SQLiteRepository) Save(ctx context.Context, payload []byte, revision int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, payload, revision, updated_at)
		VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			payload = excluded.payload,
			revision = excluded.revision,
			updated_at = CURRENT_TIMESTAMP`,
		string(payload), revision)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	slog.DebugContext(ctx, "Snapshot saved", "revision", revision, "bytes", len(payload))
	return nil
}
