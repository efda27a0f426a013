package utils

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// DefaultUploadDir holds scan images when no object storage is configured.
const DefaultUploadDir = "uploads"

// UploadsURLPrefix is where the API serves the upload directory.
const UploadsURLPrefix = "/uploads"

// LocalImageStore writes scan images under a directory on disk.
type LocalImageStore struct {
	Dir string
}

func NewLocalImageStore(dir string) (*LocalImageStore, error) {
	if dir == "" {
		dir = DefaultUploadDir
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalImageStore{Dir: dir}, nil
}

// SaveImage writes data under key and returns the URL path it is served at.
func (s *LocalImageStore) SaveImage(_ context.Context, key, _ string, data []byte) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty image key")
	}
	clean := path.Clean("/" + key)
	destPath := filepath.Join(s.Dir, filepath.FromSlash(clean))

	// ✅ Ensure the directory for the destination file exists
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return "", err
	}
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return UploadsURLPrefix + clean, nil
}
