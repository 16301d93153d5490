package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PosterStore maps jobs onto artifact files under a base directory. Paths
// are namespaced by job id, so no two render tasks ever write the same file.
type PosterStore struct {
	basePath string
}

// NewPosterStore initializes the store rooted at basePath, creating it when
// absent.
func NewPosterStore(basePath string) (*PosterStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if abs, err := filepath.Abs(basePath); err == nil {
		basePath = abs
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &PosterStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *PosterStore) BasePath() string {
	return s.basePath
}

// PathFor returns the artifact location for a job. The job id is the only
// caller-controlled component and ids are uuids, so the path cannot escape
// the base directory.
func (s *PosterStore) PathFor(jobID, format string) string {
	return filepath.Join(s.basePath, jobID+"."+format)
}

// Exists reports whether the artifact file is present on disk.
func (s *PosterStore) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Remove deletes an artifact file, ignoring files already gone.
func (s *PosterStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: remove artifact: %w", err)
	}
	return nil
}
