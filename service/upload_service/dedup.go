package upload_service

import (
	"context"
	"errors"

	"chunk-upload-system/database"
	"chunk-upload-system/model"

	"go.uber.org/zap"
)

// resolveFastPath returns a new active record backed by a server-side copy when
// identical content is already stored, or nil to continue with a chunked upload.
// Every failure here falls through to the chunked path.
func (s *UploadService) resolveFastPath(ctx context.Context, req *InitUploadRequest) *model.FileRecord {
	log := s.log.With(zap.String("hash", req.FileHash), zap.String("file_name", req.FileName))

	existing, err := s.db.GetLatestActiveFileRecordByHash(req.FileHash)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		log.Warn("Dedup lookup failed", zap.Error(ErrDedupProbe.Wrap(err)))
		return nil
	}
	if existing.FileSize != req.TotalSize {
		log.Info("Dedup candidate size differs from declared size",
			zap.Int64("record_id", existing.ID),
			zap.Int64("record_size", existing.FileSize),
			zap.Int64("declared_size", req.TotalSize))
		return nil
	}

	exists, err := s.storage.Exists(ctx, existing.StorageKey)
	if err != nil {
		log.Warn("Dedup existence probe failed",
			zap.Int64("record_id", existing.ID),
			zap.String("key", existing.StorageKey),
			zap.Error(ErrDedupProbe.Wrap(err)))
		return nil
	}
	if !exists {
		log.Warn("Dedup candidate object missing, invalidating record",
			zap.Int64("record_id", existing.ID),
			zap.String("key", existing.StorageKey))
		if err := s.db.UpdateFileRecordStatus(existing.ID, model.FileStatusInvalid); err != nil {
			log.Warn("Failed to invalidate stale record", zap.Int64("record_id", existing.ID), zap.Error(err))
		}
		return nil
	}

	newKey := s.newStorageKey(req.FileName)
	if err := s.storage.Copy(ctx, existing.StorageKey, newKey); err != nil {
		log.Warn("Dedup copy failed",
			zap.String("src", existing.StorageKey),
			zap.String("dst", newKey),
			zap.Error(ErrDedupProbe.Wrap(err)))
		return nil
	}

	record := &model.FileRecord{
		FileName:    req.FileName,
		StorageKey:  newKey,
		FileSize:    existing.FileSize,
		ContentType: existing.ContentType,
		Bucket:      s.storage.Bucket(),
		Category:    req.Category,
		Owner:       req.Owner,
		FileHash:    existing.FileHash,
		Status:      model.FileStatusActive,
	}
	if err := s.db.CreateFileRecord(record); err != nil {
		log.Warn("Dedup record insert failed", zap.String("key", newKey), zap.Error(ErrDedupProbe.Wrap(err)))
		if derr := s.storage.Delete(ctx, newKey); derr != nil {
			log.Warn("Failed to remove dedup copy", zap.String("key", newKey), zap.Error(derr))
		}
		return nil
	}

	log.Info("Dedup fast path hit",
		zap.Int64("source_record_id", existing.ID),
		zap.Int64("record_id", record.ID),
		zap.String("key", newKey))
	return record
}
