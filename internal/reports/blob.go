package reports

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrBlobNotFound is returned by Fetch for a missing key
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore persists rendered reports under caller-chosen keys
type BlobStore interface {
	Store(ctx context.Context, key string, data []byte) error
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// ValidateBlobKey rejects keys that are empty, absolute or escape the store root
func ValidateBlobKey(key string) error {
	if key == "" {
		return fmt.Errorf("blob key is required")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("blob key %q must be a relative slash-separated path", key)
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("blob key %q is not a clean relative path", key)
	}
	return nil
}

// FilesystemBlobStore writes blobs below a base directory
type FilesystemBlobStore struct {
	basePath string
	logger   *zap.Logger
}

func NewFilesystemBlobStore(basePath string, logger *zap.Logger) (*FilesystemBlobStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &FilesystemBlobStore{basePath: basePath, logger: logger}, nil
}

// Store writes to a temp file and renames it into place
func (s *FilesystemBlobStore) Store(_ context.Context, key string, data []byte) error {
	if err := ValidateBlobKey(key); err != nil {
		return err
	}

	filePath := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		s.logger.Error("Failed to rename temp file to final path",
			zap.String("temp_path", tempPath),
			zap.String("file_path", filePath),
			zap.Error(err))
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.logger.Debug("Blob stored",
		zap.String("key", key),
		zap.Int("size_bytes", len(data)))
	return nil
}

func (s *FilesystemBlobStore) Fetch(_ context.Context, key string) ([]byte, error) {
	if err := ValidateBlobKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, nil
}
