package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
)

// FileSnapshotStore keeps the snapshot in a single JSON file.
type FileSnapshotStore struct {
	path string
}

func NewFileSnapshotStore(path string) (*FileSnapshotStore, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating snapshot directory: %w", err)
		}
	}
	return &FileSnapshotStore{path: path}, nil
}

func (s *FileSnapshotStore) Load(_ context.Context) (domain.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.EmptySnapshot(), nil
		}
		return domain.EmptySnapshot(), fmt.Errorf("%w: reading %s: %v", domain.ErrPersistence, s.path, err)
	}
	return decode(data)
}

// Save writes to a temp file in the same directory and renames it over the
// previous snapshot.
func (s *FileSnapshotStore) Save(_ context.Context, snap domain.Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", domain.ErrPersistence, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: writing temp file: %v", domain.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing temp file: %v", domain.ErrPersistence, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: renaming snapshot: %v", domain.ErrPersistence, err)
	}
	return nil
}
