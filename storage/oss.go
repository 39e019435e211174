package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSStorage Alibaba Cloud OSS storage
type OSSStorage struct {
	client     *oss.Client
	bucket     *oss.Bucket
	bucketName string
}

// NewOSSStorage create OSS storage instance
func NewOSSStorage(endpoint, accessKey, secretKey, bucketName string) (*OSSStorage, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" || bucketName == "" {
		return nil, ErrInvalid
	}

	// Create OSS client instance
	client, err := oss.New(endpoint, accessKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create oss client: %w", err)
	}

	// Get storage bucket
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &OSSStorage{
		client:     client,
		bucket:     bucket,
		bucketName: bucketName,
	}, nil
}

// Put stream file to OSS
func (s *OSSStorage) Put(ctx context.Context, key string, r io.Reader, contentType string, size int64) error {
	options := []oss.Option{oss.WithContext(ctx)}
	if contentType != "" {
		options = append(options, oss.ContentType(contentType))
	}
	if size >= 0 {
		options = append(options, oss.ContentLength(size))
	}

	if err := s.bucket.PutObject(key, r, options...); err != nil {
		return fmt.Errorf("failed to upload to oss: %w", err)
	}
	return nil
}

// Get get file from OSS
func (s *OSSStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := s.bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		if isOSSNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get from oss: %w", err)
	}
	return body, nil
}

// Delete delete file from OSS
func (s *OSSStorage) Delete(ctx context.Context, key string) error {
	if err := s.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete from oss: %w", err)
	}
	return nil
}

// Copy server-side copy inside the bucket
func (s *OSSStorage) Copy(ctx context.Context, srcKey, dstKey string) error {
	if _, err := s.bucket.CopyObject(srcKey, dstKey, oss.WithContext(ctx)); err != nil {
		if isOSSNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to copy %s to %s in oss: %w", srcKey, dstKey, err)
	}
	return nil
}

// Exists check if file exists in OSS
func (s *OSSStorage) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.bucket.IsObjectExist(key, oss.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to probe oss object: %w", err)
	}
	return exists, nil
}

// EnsureBucket create the bucket if it does not exist
func (s *OSSStorage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.IsBucketExist(s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to probe oss bucket %s: %w", s.bucketName, err)
	}
	if exists {
		return nil
	}
	if err := s.client.CreateBucket(s.bucketName); err != nil {
		return fmt.Errorf("failed to create oss bucket %s: %w", s.bucketName, err)
	}
	return nil
}

// Bucket returns the bucket name
func (s *OSSStorage) Bucket() string {
	return s.bucketName
}

func isOSSNotFound(err error) bool {
	var svcErr oss.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.StatusCode == 404
	}
	return false
}
