package storage

import (
	"context"
	"errors"
	"io"

	"chunk-upload-system/conf"
)

// Storage unified object storage interface
type Storage interface {
	// Put streams r into key. size is the exact length, or -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, contentType string, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// Copy duplicates srcKey into dstKey without moving bytes through the caller.
	Copy(ctx context.Context, srcKey, dstKey string) error
	// Exists probes key. A nil error with false means the object is definitely absent.
	Exists(ctx context.Context, key string) (bool, error)
	// EnsureBucket creates the configured bucket or container if it is missing.
	EnsureBucket(ctx context.Context) error
	// Bucket returns the bucket or container name recorded on file records.
	Bucket() string
}

var (
	ErrNotFound   = errors.New("file not found")
	ErrInvalid    = errors.New("invalid storage configuration")
	ErrInvalidKey = errors.New("invalid storage key")
	ErrShortWrite = errors.New("stored size does not match declared size")
)

// NewStorage create storage instance by configuration
func NewStorage(cfg conf.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "local":
		return NewLocalStorage(cfg.Local.BasePath)
	case "oss":
		return NewOSSStorage(cfg.OSS.Endpoint, cfg.OSS.AccessKey, cfg.OSS.SecretKey, cfg.OSS.Bucket)
	case "s3":
		return NewS3Storage(cfg.S3.Region, cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.Bucket)
	case "minio":
		return NewMinIOStorage(cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.Bucket)
	default:
		// Default to local storage
		return NewLocalStorage(cfg.Local.BasePath)
	}
}
