package documents

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/caramelo-ong/adoptbot/internal/models"
)

// Storage persists uploaded file bytes and returns a stable locator.
// The recorder only stores and echoes the locator, never the contents.
type Storage interface {
	Save(fileName string, data []byte) (string, error)
}

// allowedExtensions are the upload file types accepted from adopters.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

// ValidateUpload checks a file's name and size against upload limits.
func ValidateUpload(fileName string, size int64) error {
	ext := strings.ToLower(filepath.Ext(fileName))
	if !allowedExtensions[ext] {
		return fmt.Errorf("file type %q not allowed; accepted types are jpg, png, pdf, doc and docx", ext)
	}
	if size > models.MaxUploadSizeBytes {
		return fmt.Errorf("file exceeds the %d MB upload limit", models.MaxUploadSizeBytes>>20)
	}
	return nil
}

// DiskStorage saves uploads under a base directory.
type DiskStorage struct {
	dir string
}

// NewDiskStorage creates a DiskStorage rooted at dir, creating it if needed.
func NewDiskStorage(dir string) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStorage{dir: dir}, nil
}

// Save writes the bytes under a collision-free name and returns the path.
// The original name only contributes its extension; uploads are keyed by
// a fresh id so adopters cannot overwrite each other's files.
func (s *DiskStorage) Save(fileName string, data []byte) (string, error) {
	if err := ValidateUpload(fileName, int64(len(data))); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	path := filepath.Join(s.dir, uuid.New().String()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Error("DiskStorage.Save write error", "error", err, "path", path)
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	slog.Debug("DiskStorage.Save stored upload", "path", path, "bytes", len(data))
	return path, nil
}
