package database

import (
	"context"
	"errors"

	"chunk-upload-system/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedDatabase caches hash lookups in Redis in front of another Database.
// Cache failures never fail a call; the inner database stays authoritative.
type CachedDatabase struct {
	Database
	cache *Cache
	log   *zap.Logger
}

// NewCachedDatabase wrap inner with cache
func NewCachedDatabase(inner Database, cache *Cache, log *zap.Logger) *CachedDatabase {
	return &CachedDatabase{Database: inner, cache: cache, log: log}
}

func hashCacheKey(hash string) string {
	return "file:hash:" + hash
}

func (c *CachedDatabase) CreateFileRecord(record *model.FileRecord) error {
	if err := c.Database.CreateFileRecord(record); err != nil {
		return err
	}
	c.invalidate(record.FileHash)
	return nil
}

func (c *CachedDatabase) GetLatestActiveFileRecordByHash(hash string) (*model.FileRecord, error) {
	ctx := context.Background()

	var cached model.FileRecord
	err := c.cache.Get(ctx, hashCacheKey(hash), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.log.Warn("Hash cache read failed", zap.String("hash", hash), zap.Error(err))
	}

	record, err := c.Database.GetLatestActiveFileRecordByHash(hash)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, hashCacheKey(hash), record)
	return record, nil
}

func (c *CachedDatabase) UpdateFileRecordStatus(id int64, status model.FileStatus) error {
	record, err := c.Database.GetFileRecordByID(id)
	if err != nil {
		return err
	}
	if err := c.Database.UpdateFileRecordStatus(id, status); err != nil {
		return err
	}
	c.invalidate(record.FileHash)
	return nil
}

func (c *CachedDatabase) invalidate(hash string) {
	if hash == "" {
		return
	}
	_ = c.cache.Delete(context.Background(), hashCacheKey(hash))
}
