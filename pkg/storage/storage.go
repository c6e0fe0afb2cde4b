package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage writes files under a base directory.
type Storage struct {
	baseDir string
}

// New creates a Storage rooted at baseDir. An empty baseDir uses the
// working directory.
func New(baseDir string) *Storage {
	return &Storage{baseDir: baseDir}
}

// Path returns the absolute-or-relative path of a file under the base dir.
func (s *Storage) Path(name string) string {
	return filepath.Join(s.baseDir, name)
}

// SaveFile writes content to name, creating parent directories. The file is
// written to a temporary sibling and renamed, so readers never see a
// partial file.
func (s *Storage) SaveFile(name string, content []byte) error {
	filePath := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".tmp-"+filepath.Base(filePath)+"-*")
	if err != nil {
		return fmt.Errorf("error saving file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("error saving file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("error saving file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("error saving file: %w", err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("error saving file: %w", err)
	}

	return nil
}
