package storage

import (
	"context"
	"os"
	"path/filepath"
)

// LocalStorage stores objects under a base directory. Development backend.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, &StorageError{Op: "init", Key: basePath, Err: err}
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (s *LocalStorage) path(key string) string {
	return filepath.Join(s.basePath, filepath.Clean("/"+key))
}

func (s *LocalStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &StorageError{Op: "upload", Key: key, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &StorageError{Op: "upload", Key: key, Err: err}
	}
	return "file://" + path, nil
}

func (s *LocalStorage) Download(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &StorageError{Op: "download", Key: key, Err: ErrNotFound}
		}
		return nil, &StorageError{Op: "download", Key: key, Err: err}
	}
	return data, nil
}

func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, &StorageError{Op: "exists", Key: key, Err: err}
}
