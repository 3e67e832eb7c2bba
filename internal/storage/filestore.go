package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the snapshot in a single JSON file. Revision is not
// tracked; Load reports revision 0.
type FileStore struct {
	path string
}

var _ SnapshotStore = (*FileStore)(nil)

func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) Load(_ context.Context) ([]byte, int64, error) {
	payload, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, ErrNoSnapshot
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read data file: %w", err)
	}
	return payload, 0, nil
}

// Save writes atomically via a temp file so a crash mid-write never leaves a
// truncated snapshot behind.
func (f *FileStore) Save(_ context.Context, payload []byte, _ int64) error {
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0644); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }
