// Package backend selects the local persistence adapter from configuration.
package backend

import (
	"fmt"

	"weeklykeeper/internal/config"
	"weeklykeeper/internal/storage"
)

// Type names a persistence backend.
type Type string

const (
	SQLite Type = "sqlite"
	File   Type = "file"
)

// IsValid reports whether t is a known backend type.
func (t Type) IsValid() bool {
	return t == SQLite || t == File
}

// Open creates the snapshot store the configuration asks for.
func Open(cfg *config.Config) (storage.SnapshotStore, error) {
	switch Type(cfg.DataBackend) {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		return repo, nil
	case File:
		fs, err := storage.NewFileStore(cfg.DataFilePath)
		if err != nil {
			return nil, fmt.Errorf("open file backend: %w", err)
		}
		return fs, nil
	default:
		return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}
