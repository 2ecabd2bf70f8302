package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"docwise-client/internal/shared/storage/object"
	"docwise-client/internal/shared/util"
)

// Store implements ObjectStore using the local filesystem.
type Store struct {
	baseDir string
}

// New creates a new local object store rooted at baseDir.
func New(baseDir string) object.ObjectStore {
	if baseDir == "" {
		baseDir = "."
	}
	return &Store{baseDir: baseDir}
}

// Save writes the reader to baseDir/name through a temp file so a failed
// download never leaves a truncated report behind.
func (s *Store) Save(ctx context.Context, name string, contentType string, r io.Reader) (string, int64, error) {
	_ = contentType
	sanitizedName, err := util.SanitizeFileName(name)
	if err != nil {
		return "", 0, fmt.Errorf("sanitize file name: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(s.baseDir, "."+sanitizedName+".*")
	if err != nil {
		return "", 0, fmt.Errorf("open file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", 0, fmt.Errorf("write body: %w", err)
	}

	fullPath := filepath.Join(s.baseDir, sanitizedName)
	if err := os.Rename(tmpPath, fullPath); err != nil {
		return "", 0, fmt.Errorf("rename: %w", err)
	}
	return fullPath, written, nil
}

var _ object.ObjectStore = (*Store)(nil)
