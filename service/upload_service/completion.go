package upload_service

import (
	"context"
	"strings"

	"chunk-upload-system/model"

	"go.uber.org/zap"
)

// CompleteUpload verify the chunk set, merge it into storage, and publish the
// file record. The object is written under a key nothing references, recorded
// as pending, then published by flipping the record to active. A failure in
// any stage keeps the session so the call can be retried; a retry resumes from
// the first stage that has not finished.
func (s *UploadService) CompleteUpload(ctx context.Context, sessionId string) (*model.FileRecord, error) {
	entry, err := s.lockSession(sessionId)
	if err != nil {
		return nil, err
	}

	session := entry.Session
	switch session.State {
	case model.SessionStateOpen:
		if err := s.verifyLocked(session); err != nil {
			entry.Unlock()
			return nil, err
		}
		session.State = model.SessionStateMerging
	case model.SessionStateStored:
		// Object already stored by an earlier attempt; skip straight to the record.
		session.State = model.SessionStateVerifying
	default:
		entry.Unlock()
		return nil, ErrSessionBusy
	}
	snap := *session
	entry.Unlock()

	log := s.log.With(zap.String("session_id", sessionId), zap.String("key", snap.StorageKey))

	if snap.Stored == nil {
		stored, err := s.storeMerged(ctx, snap)
		if err != nil {
			entry.Lock()
			session.State = model.SessionStateOpen
			entry.Unlock()
			if ErrValidation.Has(err) {
				log.Warn("Merged content rejected", zap.Error(err))
				return nil, err
			}
			log.Error("Merge failed", zap.Error(err))
			return nil, uploadFailed(&ErrStorageWrite, err)
		}

		entry.Lock()
		session.Stored = stored
		entry.Unlock()
		snap.Stored = stored
	}

	record, err := s.publishRecord(entry, snap)
	if err != nil {
		entry.Lock()
		session.State = model.SessionStateStored
		entry.Unlock()
		log.Error("Publishing file record failed", zap.Error(err))
		return nil, uploadFailed(&ErrMetadataWrite, err)
	}

	entry.Lock()
	final := s.finishLocked(entry, model.SessionStatePersisted)
	entry.Unlock()
	s.teardown(final)

	log.Info("Upload completed",
		zap.Int64("record_id", record.ID),
		zap.Int64("size", record.FileSize),
		zap.String("hash", record.FileHash))
	return record, nil
}

// verifyLocked chunk set must be exactly 1..total and add up to the declared size
func (s *UploadService) verifyLocked(session *model.UploadSession) error {
	session.State = model.SessionStateVerifying

	if len(session.Received) != session.TotalChunks {
		session.State = model.SessionStateOpen
		return &IncompleteUploadError{Missing: session.TotalChunks - len(session.Received), Total: session.TotalChunks}
	}
	if first := session.FirstMissing(); first != 0 {
		session.State = model.SessionStateOpen
		return &NonContiguousChunksError{FirstMissing: first}
	}
	received := session.ReceivedBytes()
	if received != session.TotalSize {
		session.State = model.SessionStateOpen
		return &SizeMismatchError{Received: received, Declared: session.TotalSize}
	}
	if s.opts.MaxFileSize > 0 && received > s.opts.MaxFileSize {
		session.State = model.SessionStateOpen
		return ErrValidation.New("file size %d exceeds limit %d", received, s.opts.MaxFileSize)
	}
	return nil
}

// storeMerged merge into storage and check the digest against the hint
func (s *UploadService) storeMerged(ctx context.Context, snap model.UploadSession) (*model.StoredObjectInfo, error) {
	var stored *model.StoredObjectInfo
	err := s.mergePool.run(ctx, func() error {
		var merr error
		stored, merr = s.mergeChunks(ctx, snap)
		return merr
	})
	if err != nil {
		return nil, err
	}

	if snap.HashHint != "" && !strings.EqualFold(snap.HashHint, stored.ContentHash) {
		if derr := s.storage.Delete(ctx, snap.StorageKey); derr != nil {
			s.log.Warn("Failed to remove mismatched object", zap.String("key", snap.StorageKey), zap.Error(derr))
		}
		return nil, ErrValidation.New("content hash %s does not match declared hash %s", stored.ContentHash, snap.HashHint)
	}
	return stored, nil
}

// publishRecord insert the pending record once, then activate it
func (s *UploadService) publishRecord(entry *SessionEntry, snap model.UploadSession) (*model.FileRecord, error) {
	record := &model.FileRecord{
		ID:          snap.RecordID,
		FileName:    snap.FileName,
		StorageKey:  snap.StorageKey,
		FileSize:    snap.Stored.Size,
		ContentType: snap.Stored.ContentType,
		Bucket:      s.storage.Bucket(),
		Category:    snap.Category,
		Owner:       snap.Owner,
		FileHash:    snap.Stored.ContentHash,
		Status:      model.FileStatusPending,
	}

	if record.ID == 0 {
		if err := s.db.CreateFileRecord(record); err != nil {
			return nil, err
		}
		entry.Lock()
		entry.Session.RecordID = record.ID
		entry.Unlock()
	}

	if err := s.db.UpdateFileRecordStatus(record.ID, model.FileStatusActive); err != nil {
		return nil, err
	}
	record.Status = model.FileStatusActive

	fresh, err := s.db.GetFileRecordByID(record.ID)
	if err != nil {
		s.log.Debug("Reading back published record failed", zap.Int64("record_id", record.ID), zap.Error(err))
		return record, nil
	}
	return fresh, nil
}
