// Package snapshot implements domain.SnapshotStore on the local filesystem.
// The snapshot is a single JSON document written atomically (temp file +
// rename) so a crash mid-write never leaves a corrupt state file behind.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/degenlabs/moonshot/internal/domain"
)

// FileStore persists the portfolio snapshot to a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore writing to the given path. Parent
// directories are created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save marshals the snapshot and atomically replaces the state file.
func (s *FileStore) Save(ctx context.Context, snap domain.PortfolioSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".portfolio-*.json")
	if err != nil {
		return fmt.Errorf("snapshot: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("snapshot: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("snapshot: close temp: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("snapshot: rename into place: %w", err)
	}
	return nil
}

// Load reads and unmarshals the state file. A missing file returns
// domain.ErrNotFound; the caller decides whether that means "start fresh".
func (s *FileStore) Load(ctx context.Context) (domain.PortfolioSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.PortfolioSnapshot{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.PortfolioSnapshot{}, domain.ErrNotFound
		}
		return domain.PortfolioSnapshot{}, fmt.Errorf("snapshot: read %s: %w", s.path, err)
	}

	var snap domain.PortfolioSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("snapshot: parse %s: %w", s.path, err)
	}
	return snap, nil
}

// Compile-time interface check.
var _ domain.SnapshotStore = (*FileStore)(nil)
