package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// copyBufferSize transfer buffer for local writes and copies
const copyBufferSize = 1 << 20

// LocalStorage local file system storage
type LocalStorage struct {
	basePath string
}

// NewLocalStorage create local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if basePath == "" {
		basePath = "./data/files"
	}

	// Ensure directory exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// path resolves key under basePath, rejecting keys that escape it
func (s *LocalStorage) path(key string) (string, error) {
	if key == "" || filepath.IsAbs(key) {
		return "", ErrInvalidKey
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.basePath, clean), nil
}

// Put writes to a temp file next to the target and renames it into place
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader, contentType string, size int64) error {
	filePath, err := s.path(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	written, err := io.CopyBuffer(tmp, &contextReader{ctx: ctx, r: r}, make([]byte, copyBufferSize))
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("%w: wrote %d, expected %d", ErrShortWrite, written, size)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	committed = true

	return nil
}

// Get get file
func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	filePath, err := s.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return f, nil
}

// Delete delete file
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	filePath, err := s.path(key)
	if err != nil {
		return err
	}

	err = os.Remove(filePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// Copy copy file to a new key
func (s *LocalStorage) Copy(ctx context.Context, srcKey, dstKey string) error {
	srcPath, err := s.path(srcKey)
	if err != nil {
		return err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}

	return s.Put(ctx, dstKey, src, "", info.Size())
}

// Exists check if file exists
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	filePath, err := s.path(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return !info.IsDir(), nil
}

// EnsureBucket ensure base path exists
func (s *LocalStorage) EnsureBucket(ctx context.Context) error {
	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create base path: %w", err)
	}
	return nil
}

// Bucket local storage has a single implicit container
func (s *LocalStorage) Bucket() string {
	return "local"
}

// contextReader stops a copy once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
