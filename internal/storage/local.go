package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrOutsideStorage is returned for relative paths that escape the base directory
var ErrOutsideStorage = errors.New("path outside storage")

// LocalStorage handles file storage on the local filesystem
type LocalStorage struct {
	basePath string
	now      func() time.Time
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	// Ensure the base directory exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath, now: time.Now}, nil
}

// SaveReport archives an exported report under reports/org-<id>/<year>/<month> and
// returns its relative path
func (s *LocalStorage) SaveReport(orgID uint, filename string, data []byte) (string, error) {
	return s.UploadFromBytes(data, filename, ReportDir(orgID))
}

// ReportDir is the relative directory holding an organization's archived reports
func ReportDir(orgID uint) string {
	return filepath.Join("reports", fmt.Sprintf("org-%d", orgID))
}

// OwnsReport reports whether relativePath lies inside the organization's report directory
func OwnsReport(orgID uint, relativePath string) bool {
	clean := filepath.Clean(relativePath)
	return strings.HasPrefix(clean, ReportDir(orgID)+string(filepath.Separator))
}

// UploadFromBytes saves bytes to a file and returns its relative path.
// The stored name is the original base name prefixed with a unique id.
func (s *LocalStorage) UploadFromBytes(data []byte, filename string, subDir string) (string, error) {
	dir := filepath.Join(s.basePath, subDir, s.now().Format("2006/01"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		base = "file"
	}
	filePath := filepath.Join(dir, fmt.Sprintf("%s_%s", uuid.NewString(), base))

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	relPath, _ := filepath.Rel(s.basePath, filePath)
	return relPath, nil
}

// Download returns a file for reading
func (s *LocalStorage) Download(relativePath string) (*os.File, error) {
	filePath, err := s.resolve(relativePath)
	if err != nil {
		return nil, err
	}
	return os.Open(filePath)
}

// Delete removes a file
func (s *LocalStorage) Delete(relativePath string) error {
	filePath, err := s.resolve(relativePath)
	if err != nil {
		return err
	}
	return os.Remove(filePath)
}

// Exists checks if a file exists
func (s *LocalStorage) Exists(relativePath string) bool {
	filePath, err := s.resolve(relativePath)
	if err != nil {
		return false
	}
	_, err = os.Stat(filePath)
	return err == nil
}

// GetSize returns the size of a file in bytes
func (s *LocalStorage) GetSize(relativePath string) (int64, error) {
	filePath, err := s.resolve(relativePath)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *LocalStorage) resolve(relativePath string) (string, error) {
	filePath := filepath.Join(s.basePath, relativePath)
	rel, err := filepath.Rel(s.basePath, filePath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideStorage
	}
	return filePath, nil
}
