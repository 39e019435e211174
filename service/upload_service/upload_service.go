package upload_service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"chunk-upload-system/conf"
	"chunk-upload-system/database"
	"chunk-upload-system/model"
	"chunk-upload-system/storage"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options upload service settings
type Options struct {
	MaxFileSize          int64
	MaxChunkSize         int64
	ChunkDir             string
	SessionExpiry        time.Duration
	StrictChunkNumbering bool
	IOWorkers            int
	MergeBufferSize      int
	KeyPrefix            string
}

// OptionsFromConfig build options from the uploader config section
func OptionsFromConfig(cfg conf.UploaderConfig) Options {
	return Options{
		MaxFileSize:          cfg.MaxFileSize,
		MaxChunkSize:         cfg.MaxChunkSize,
		ChunkDir:             cfg.ChunkDir,
		SessionExpiry:        cfg.SessionExpiry,
		StrictChunkNumbering: cfg.StrictChunkNumbering,
		IOWorkers:            cfg.IOWorkers,
		MergeBufferSize:      int(cfg.MergeBufferSize),
		KeyPrefix:            cfg.KeyPrefix,
	}
}

// UploadService chunked upload service: session registry, chunk receiver,
// dedup fast path and completion coordinator
type UploadService struct {
	opts      Options
	storage   storage.Storage
	db        database.Database
	sessions  SessionStore
	chunkPool *ioPool // disk writes of incoming chunks, one buffer at a time
	mergePool *ioPool // merges, never shared with chunk writes
	log       *zap.Logger
	now       func() time.Time
}

// NewUploadService create upload service instance
func NewUploadService(stor storage.Storage, db database.Database, sessions SessionStore, opts Options, log *zap.Logger) (*UploadService, error) {
	if opts.ChunkDir == "" {
		return nil, fmt.Errorf("chunk dir is required")
	}
	if opts.SessionExpiry <= 0 {
		opts.SessionExpiry = 24 * time.Hour
	}
	if opts.MergeBufferSize <= 0 {
		opts.MergeBufferSize = units.MiB
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "files"
	}
	if err := os.MkdirAll(opts.ChunkDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chunk dir: %w", err)
	}

	return &UploadService{
		opts:      opts,
		storage:   stor,
		db:        db,
		sessions:  sessions,
		chunkPool: newIOPool(opts.IOWorkers),
		mergePool: newIOPool(opts.IOWorkers),
		log:       log,
		now:       time.Now,
	}, nil
}

// InitUploadRequest init upload request
type InitUploadRequest struct {
	FileName    string
	TotalSize   int64
	TotalChunks int
	Category    string
	Owner       string
	FileHash    string // Optional SHA256 hex of the whole file
}

// InitUploadResult either a fast-path record or a new session
type InitUploadResult struct {
	FastPath           bool
	Record             *model.FileRecord // Set on fast path
	SessionId          string            // Set on chunked path
	StorageKey         string
	TotalChunks        int
	SuggestedChunkSize int64
	ExpiresAt          time.Time
}

var sha256Hex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// SuggestChunkSize advisory chunk size by total size
func SuggestChunkSize(totalSize int64) int64 {
	switch {
	case totalSize < 10*units.MiB:
		return units.MiB
	case totalSize > units.GiB:
		return 5 * units.MiB
	default:
		return 2 * units.MiB
	}
}

func (s *UploadService) validateInit(req *InitUploadRequest) error {
	req.FileName = strings.TrimSpace(req.FileName)
	req.FileHash = strings.ToLower(strings.TrimSpace(req.FileHash))

	if req.FileName == "" {
		return ErrValidation.New("file name is required")
	}
	if req.TotalSize < 0 {
		return ErrValidation.New("total size must not be negative")
	}
	if s.opts.MaxFileSize > 0 && req.TotalSize > s.opts.MaxFileSize {
		return ErrValidation.New("file size %s exceeds limit %s",
			units.BytesSize(float64(req.TotalSize)), units.BytesSize(float64(s.opts.MaxFileSize)))
	}
	if req.TotalChunks < 1 {
		return ErrValidation.New("total chunks must be at least 1")
	}
	if req.FileHash != "" && !sha256Hex.MatchString(req.FileHash) {
		return ErrValidation.New("file hash must be a sha256 hex digest")
	}
	return nil
}

// InitUpload validate the request, try the dedup fast path, otherwise open a session
func (s *UploadService) InitUpload(ctx context.Context, req InitUploadRequest) (*InitUploadResult, error) {
	if err := s.validateInit(&req); err != nil {
		return nil, err
	}
	suggested := SuggestChunkSize(req.TotalSize)

	if req.FileHash != "" {
		if record := s.resolveFastPath(ctx, &req); record != nil {
			return &InitUploadResult{
				FastPath:           true,
				Record:             record,
				StorageKey:         record.StorageKey,
				SuggestedChunkSize: suggested,
			}, nil
		}
	}

	sessionId := uuid.NewString()
	session := model.NewUploadSession(sessionId, req.FileName, s.newStorageKey(req.FileName), req.TotalSize, req.TotalChunks)
	session.Category = req.Category
	session.Owner = req.Owner
	session.HashHint = req.FileHash
	session.CreatedAt = s.now()
	session.ChunkDir = filepath.Join(s.opts.ChunkDir, sessionId)

	// Registered before the dir exists so an orphan sweep never takes it.
	s.sessions.Put(&SessionEntry{Session: session})
	if err := os.MkdirAll(session.ChunkDir, 0755); err != nil {
		s.sessions.Delete(sessionId)
		return nil, fmt.Errorf("failed to create session chunk dir: %w", err)
	}

	s.log.Info("Upload session created",
		zap.String("session_id", sessionId),
		zap.String("file_name", req.FileName),
		zap.String("size", units.HumanSize(float64(req.TotalSize))),
		zap.Int("total_chunks", req.TotalChunks),
		zap.String("key", session.StorageKey))

	return &InitUploadResult{
		SessionId:          sessionId,
		StorageKey:         session.StorageKey,
		TotalChunks:        req.TotalChunks,
		SuggestedChunkSize: suggested,
		ExpiresAt:          session.ExpiresAt(s.opts.SessionExpiry),
	}, nil
}

// newStorageKey fresh key that no existing record references
func (s *UploadService) newStorageKey(fileName string) string {
	ext := strings.ToLower(path.Ext(filepath.Base(fileName)))
	if len(ext) > 16 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return path.Join(s.opts.KeyPrefix, s.now().UTC().Format("2006/01/02"), uuid.NewString()+ext)
}

// lockSession returns the locked entry of a live session. Expired sessions are
// reclaimed on the spot. The caller must Unlock the entry.
func (s *UploadService) lockSession(sessionId string) (*SessionEntry, error) {
	entry, ok := s.sessions.Get(sessionId)
	if !ok {
		return nil, ErrSessionNotFound
	}

	entry.Lock()
	session := entry.Session
	if session.IsTerminal() {
		entry.Unlock()
		return nil, ErrSessionNotFound
	}
	if !session.IsCompleting() && session.IsExpired(s.now(), s.opts.SessionExpiry) {
		snap := s.finishLocked(entry, model.SessionStateExpired)
		entry.Unlock()
		s.teardown(snap)
		return nil, ErrSessionExpired
	}
	return entry, nil
}

// finishLocked moves a locked entry into a terminal state and drops it from the
// registry. It returns a snapshot for teardown outside the lock.
func (s *UploadService) finishLocked(entry *SessionEntry, state model.SessionState) model.UploadSession {
	entry.Session.State = state
	s.sessions.Delete(entry.Session.SessionId)
	snap := *entry.Session
	return snap
}

// teardown releases the session arena and, for sessions that never got
// published, the stored object and pending record. Failures are logged only.
func (s *UploadService) teardown(snap model.UploadSession) {
	log := s.log.With(zap.String("session_id", snap.SessionId), zap.String("state", string(snap.State)))

	if err := os.RemoveAll(snap.ChunkDir); err != nil {
		log.Warn("Failed to remove session chunk dir", zap.String("dir", snap.ChunkDir), zap.Error(err))
	}

	if snap.State == model.SessionStatePersisted {
		log.Info("Upload session released")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if snap.Stored != nil {
		if err := s.storage.Delete(ctx, snap.StorageKey); err != nil {
			log.Warn("Failed to remove unpublished object", zap.String("key", snap.StorageKey), zap.Error(err))
		}
	}
	if snap.RecordID != 0 {
		if err := s.db.UpdateFileRecordStatus(snap.RecordID, model.FileStatusInvalid); err != nil {
			log.Warn("Failed to invalidate pending record", zap.Int64("record_id", snap.RecordID), zap.Error(err))
		}
	}
	log.Info("Upload session discarded")
}

// AbortUpload discard a session. Unknown ids are a no-op.
func (s *UploadService) AbortUpload(ctx context.Context, sessionId string) error {
	entry, ok := s.sessions.Get(sessionId)
	if !ok {
		return nil
	}

	entry.Lock()
	if entry.Session.IsTerminal() {
		entry.Unlock()
		return nil
	}
	if entry.Session.IsCompleting() {
		entry.Unlock()
		return ErrSessionBusy
	}
	snap := s.finishLocked(entry, model.SessionStateAborted)
	entry.Unlock()

	s.teardown(snap)
	return nil
}

// GetProgress received chunk view of a live session
func (s *UploadService) GetProgress(ctx context.Context, sessionId string) (*model.UploadProgress, error) {
	entry, err := s.lockSession(sessionId)
	if err != nil {
		return nil, err
	}
	defer entry.Unlock()

	session := entry.Session
	received := session.ReceivedNumbers()
	return &model.UploadProgress{
		SessionId:      session.SessionId,
		State:          session.State,
		TotalChunks:    session.TotalChunks,
		ReceivedCount:  len(received),
		ReceivedChunks: received,
		ReceivedBytes:  session.ReceivedBytes(),
		TotalSize:      session.TotalSize,
		ExpiresAt:      session.ExpiresAt(s.opts.SessionExpiry),
	}, nil
}

// ExpireSessions reclaim every session older than the expiry window that is
// not being completed. Returns the number reclaimed.
func (s *UploadService) ExpireSessions(ctx context.Context) int {
	cutoff := s.now().Add(-s.opts.SessionExpiry)

	reclaimed := 0
	for _, entry := range s.sessions.ScanExpired(cutoff) {
		if ctx.Err() != nil {
			break
		}

		entry.Lock()
		if entry.Session.IsTerminal() || entry.Session.IsCompleting() {
			entry.Unlock()
			continue
		}
		snap := s.finishLocked(entry, model.SessionStateExpired)
		entry.Unlock()

		s.teardown(snap)
		reclaimed++
	}
	return reclaimed
}

// PurgeOrphanedChunkDirs remove session dirs left on disk with no live session,
// e.g. after a restart. Returns the number removed.
func (s *UploadService) PurgeOrphanedChunkDirs() (int, error) {
	dirEntries, err := os.ReadDir(s.opts.ChunkDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read chunk dir: %w", err)
	}

	removed := 0
	for _, d := range dirEntries {
		if !d.IsDir() {
			continue
		}
		if _, live := s.sessions.Get(d.Name()); live {
			continue
		}
		dir := filepath.Join(s.opts.ChunkDir, d.Name())
		if err := os.RemoveAll(dir); err != nil {
			s.log.Warn("Failed to remove orphaned chunk dir", zap.String("dir", dir), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// GetFileRecord published record by id
func (s *UploadService) GetFileRecord(ctx context.Context, id int64) (*model.FileRecord, error) {
	record, err := s.db.GetFileRecordByID(id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file record %d: %w", id, err)
	}
	return record, nil
}

// ActiveSessions number of sessions in the registry
func (s *UploadService) ActiveSessions() int {
	return s.sessions.Len()
}
