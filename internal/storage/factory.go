package storage

import "fmt"

// NewFromBackend builds the configured storage backend.
func NewFromBackend(backend, localPath string, s3 S3Options) (Storage, error) {
	switch backend {
	case "local":
		return NewLocalStorage(localPath)
	case "s3":
		return NewS3Storage(s3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
