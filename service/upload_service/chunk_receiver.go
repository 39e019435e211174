package upload_service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"chunk-upload-system/model"

	"go.uber.org/zap"
)

// ChunkAck acknowledgement of one stored chunk
type ChunkAck struct {
	SessionId     string `json:"sessionId"`
	ChunkNumber   int    `json:"chunkNumber"`
	Size          int64  `json:"size"`
	ReceivedCount int    `json:"receivedCount"`
	TotalChunks   int    `json:"totalChunks"`
}

const chunkWriteBufferSize = 256 << 10

func slotPath(dir string, chunkNumber int) string {
	return filepath.Join(dir, strconv.Itoa(chunkNumber))
}

// UploadChunk store one chunk of a session. Chunks may arrive in any order;
// resending a number replaces the earlier bytes.
func (s *UploadService) UploadChunk(ctx context.Context, sessionId string, chunkNumber int, body io.Reader) (*ChunkAck, error) {
	if chunkNumber < 1 {
		return nil, ErrValidation.New("chunk number must be at least 1")
	}

	entry, err := s.lockSession(sessionId)
	if err != nil {
		return nil, err
	}
	if err := s.checkAcceptsChunk(entry.Session, chunkNumber); err != nil {
		entry.Unlock()
		return nil, err
	}
	chunkDir := entry.Session.ChunkDir
	entry.Unlock()

	// The slot is written without the session lock; it only becomes visible
	// through the rename below.
	tmpPath, size, err := s.writeIncoming(ctx, chunkDir, body)
	if err != nil {
		return nil, s.chunkWriteError(ctx, chunkNumber, err)
	}

	entry.Lock()
	defer entry.Unlock()

	session := entry.Session
	switch {
	case session.IsTerminal():
		// Aborted or expired while writing: drop the bytes, never resurrect the session.
		os.Remove(tmpPath)
		os.RemoveAll(chunkDir)
		return nil, ErrSessionNotFound
	case session.State != model.SessionStateOpen:
		os.Remove(tmpPath)
		return nil, ErrSessionBusy
	}
	if err := s.checkAcceptsChunk(session, chunkNumber); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}

	if err := os.Rename(tmpPath, slotPath(chunkDir, chunkNumber)); err != nil {
		os.Remove(tmpPath)
		return nil, uploadFailed(&ErrStorageWrite, fmt.Errorf("failed to commit chunk %d: %w", chunkNumber, err))
	}
	session.Received[chunkNumber] = size
	if chunkNumber > session.TotalChunks {
		session.TotalChunks = chunkNumber
	}

	s.log.Debug("Chunk received",
		zap.String("session_id", sessionId),
		zap.Int("chunk", chunkNumber),
		zap.Int64("size", size),
		zap.Int("received", len(session.Received)),
		zap.Int("total_chunks", session.TotalChunks))

	return &ChunkAck{
		SessionId:     sessionId,
		ChunkNumber:   chunkNumber,
		Size:          size,
		ReceivedCount: len(session.Received),
		TotalChunks:   session.TotalChunks,
	}, nil
}

// checkAcceptsChunk caller holds the entry lock
func (s *UploadService) checkAcceptsChunk(session *model.UploadSession, chunkNumber int) error {
	if session.State != model.SessionStateOpen {
		return ErrSessionBusy
	}
	if s.opts.StrictChunkNumbering && chunkNumber > session.TotalChunks {
		return ErrValidation.New("chunk number %d exceeds declared chunk count %d", chunkNumber, session.TotalChunks)
	}
	return nil
}

// chunkWriteError classify a failed slot write
func (s *UploadService) chunkWriteError(ctx context.Context, chunkNumber int, err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Arena removed underneath us by abort or expiry.
		return ErrSessionNotFound
	case ErrValidation.Has(err):
		return err
	case ctx.Err() != nil:
		return fmt.Errorf("chunk %d interrupted: %w", chunkNumber, ctx.Err())
	default:
		return uploadFailed(&ErrStorageWrite, fmt.Errorf("failed to write chunk %d: %w", chunkNumber, err))
	}
}

// writeIncoming copy body into a temp file inside dir. The body is read
// without holding a pool slot; a slot is taken only for each disk write, so a
// stalled sender never holds up other sessions.
func (s *UploadService) writeIncoming(ctx context.Context, dir string, body io.Reader) (string, int64, error) {
	f, err := os.CreateTemp(dir, ".incoming-*")
	if err != nil {
		return "", 0, err
	}
	tmpPath := f.Name()

	var src io.Reader = &contextReader{ctx: ctx, r: body}
	if s.opts.MaxChunkSize > 0 {
		src = io.LimitReader(src, s.opts.MaxChunkSize+1)
	}

	var size int64
	buf := make([]byte, chunkWriteBufferSize)
	for {
		n, rerr := io.ReadFull(src, buf)
		if n > 0 {
			err = s.chunkPool.run(ctx, func() error {
				_, werr := f.Write(buf[:n])
				return werr
			})
			if err != nil {
				break
			}
			size += int64(n)
		}
		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			break
		}
		if rerr != nil {
			err = rerr
			break
		}
	}

	if err == nil && s.opts.MaxChunkSize > 0 && size > s.opts.MaxChunkSize {
		err = ErrValidation.New("chunk exceeds maximum chunk size of %d bytes", s.opts.MaxChunkSize)
	}
	if err == nil {
		err = s.chunkPool.run(ctx, f.Sync)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", 0, err
	}
	return tmpPath, size, nil
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
