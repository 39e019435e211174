package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"chunk-upload-system/service/upload_service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UploaderOptions file upload settings
type UploaderOptions struct {
	ChunkSize   int64 // 0 picks the server's tier for the file size
	Parallelism int
	Category    string
	Owner       string
	SkipHash    bool // Do not send a hash hint; disables dedup and digest checks
}

// Uploader drives a whole-file upload over a Client
type Uploader struct {
	client *Client
	opts   UploaderOptions
	log    *zap.Logger
}

// NewUploader create uploader
func NewUploader(client *Client, opts UploaderOptions, log *zap.Logger) *Uploader {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	return &Uploader{client: client, opts: opts, log: log}
}

// SessionError failure after a session was opened; SessionId can be passed to Resume
type SessionError struct {
	SessionId string
	Err       error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s: %v", e.SessionId, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// ProgressFunc receives the byte count of each chunk once it is acknowledged.
// It may be called from several goroutines at once.
type ProgressFunc func(n int64)

func (u *Uploader) chunkSize(totalSize int64) int64 {
	if u.opts.ChunkSize > 0 {
		return u.opts.ChunkSize
	}
	return upload_service.SuggestChunkSize(totalSize)
}

// chunkCount at least one, so an empty file is a single empty chunk
func chunkCount(totalSize, chunkSize int64) int {
	if totalSize == 0 {
		return 1
	}
	return int((totalSize + chunkSize - 1) / chunkSize)
}

func fileSHA256(f *os.File) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, io.NewSectionReader(f, 0, 1<<62)); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// UploadFile uploads path and returns the published record. On an incomplete
// completion the missing chunks are sent once more before giving up.
func (u *Uploader) UploadFile(ctx context.Context, path string, progress ProgressFunc) (*FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	chunkSize := u.chunkSize(size)

	initReq := InitRequest{
		FileName:    filepath.Base(path),
		TotalSize:   size,
		TotalChunks: chunkCount(size, chunkSize),
		Category:    u.opts.Category,
		Owner:       u.opts.Owner,
	}
	if !u.opts.SkipHash {
		if initReq.FileHash, err = fileSHA256(f); err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", path, err)
		}
	}

	initResp, err := u.client.Init(ctx, initReq)
	if err != nil {
		return nil, err
	}
	if initResp.FastPath {
		u.log.Info("Content already stored, fast path",
			zap.String("file", path),
			zap.Int64("record_id", initResp.File.ID))
		if progress != nil {
			progress(size)
		}
		return initResp.File, nil
	}

	u.log.Info("Upload session opened",
		zap.String("session_id", initResp.SessionId),
		zap.Int("total_chunks", initReq.TotalChunks),
		zap.Int64("chunk_size", chunkSize))

	all := make([]int, initReq.TotalChunks)
	for i := range all {
		all[i] = i + 1
	}
	if err := u.sendChunks(ctx, initResp.SessionId, f, size, chunkSize, all, progress); err != nil {
		return nil, &SessionError{SessionId: initResp.SessionId, Err: err}
	}
	file, err := u.complete(ctx, initResp.SessionId, f, size, chunkSize, progress)
	if err != nil {
		return nil, &SessionError{SessionId: initResp.SessionId, Err: err}
	}
	return file, nil
}

// Resume continues an interrupted upload of path into sessionId, sending only
// the chunks the server has not acknowledged.
func (u *Uploader) Resume(ctx context.Context, sessionId, path string, progress ProgressFunc) (*FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()

	p, err := u.client.Progress(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if p.TotalSize != size {
		return nil, fmt.Errorf("session %s expects %d bytes, %s has %d", sessionId, p.TotalSize, path, size)
	}
	chunkSize := u.chunkSize(size)
	if n := chunkCount(size, chunkSize); n != p.TotalChunks {
		return nil, fmt.Errorf("session %s has %d chunks, chunk size %d gives %d; resume with the original chunk size",
			sessionId, p.TotalChunks, chunkSize, n)
	}
	if progress != nil {
		progress(p.ReceivedBytes)
	}

	missing := missingChunks(p.TotalChunks, p.ReceivedChunks)
	u.log.Info("Resuming upload",
		zap.String("session_id", sessionId),
		zap.Int("received", p.ReceivedCount),
		zap.Int("missing", len(missing)))

	if err := u.sendChunks(ctx, sessionId, f, size, chunkSize, missing, progress); err != nil {
		return nil, err
	}
	return u.complete(ctx, sessionId, f, size, chunkSize, progress)
}

func (u *Uploader) complete(ctx context.Context, sessionId string, f *os.File, size, chunkSize int64, progress ProgressFunc) (*FileInfo, error) {
	file, err := u.client.Complete(ctx, sessionId)
	var apiErr *APIError
	if err == nil || !errors.As(err, &apiErr) || apiErr.Missing == 0 {
		return file, err
	}

	u.log.Warn("Server reports missing chunks, resending",
		zap.String("session_id", sessionId),
		zap.Int("missing", apiErr.Missing))
	p, err := u.client.Progress(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if err := u.sendChunks(ctx, sessionId, f, size, chunkSize, missingChunks(p.TotalChunks, p.ReceivedChunks), progress); err != nil {
		return nil, err
	}
	return u.client.Complete(ctx, sessionId)
}

// sendChunks uploads the given chunk numbers with bounded parallelism
func (u *Uploader) sendChunks(ctx context.Context, sessionId string, f *os.File, size, chunkSize int64, numbers []int, progress ProgressFunc) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.opts.Parallelism)

	for _, n := range numbers {
		n := n
		g.Go(func() error {
			offset := int64(n-1) * chunkSize
			length := chunkSize
			if offset+length > size {
				length = size - offset
			}
			if length < 0 {
				length = 0
			}

			data := make([]byte, length)
			if _, err := f.ReadAt(data, offset); err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("failed to read chunk %d: %w", n, err)
			}
			if err := u.client.UploadChunk(gctx, sessionId, n, data); err != nil {
				return err
			}
			if progress != nil {
				progress(length)
			}
			return nil
		})
	}
	return g.Wait()
}

func missingChunks(total int, received []int) []int {
	have := make(map[int]bool, len(received))
	for _, n := range received {
		have[n] = true
	}
	var missing []int
	for i := 1; i <= total; i++ {
		if !have[i] {
			missing = append(missing, i)
		}
	}
	return missing
}
