package upload_service

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"chunk-upload-system/model"

	"github.com/gabriel-vasile/mimetype"
)

// chunkSequence reads slots 1..total of a session dir back to back, opening
// one file at a time
type chunkSequence struct {
	dir   string
	total int
	next  int
	cur   *os.File
}

func newChunkSequence(dir string, total int) *chunkSequence {
	return &chunkSequence{dir: dir, total: total, next: 1}
}

func (c *chunkSequence) Read(p []byte) (int, error) {
	for {
		if c.cur == nil {
			if c.next > c.total {
				return 0, io.EOF
			}
			f, err := os.Open(slotPath(c.dir, c.next))
			if err != nil {
				return 0, fmt.Errorf("failed to open chunk %d: %w", c.next, err)
			}
			c.cur = f
			c.next++
		}

		n, err := c.cur.Read(p)
		if errors.Is(err, io.EOF) {
			c.cur.Close()
			c.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *chunkSequence) Close() error {
	if c.cur == nil {
		return nil
	}
	err := c.cur.Close()
	c.cur = nil
	return err
}

// slotsSize sums the on-disk size of slots 1..total
func slotsSize(dir string, total int) (int64, error) {
	var size int64
	for i := 1; i <= total; i++ {
		info, err := os.Stat(slotPath(dir, i))
		if err != nil {
			return 0, fmt.Errorf("failed to stat chunk %d: %w", i, err)
		}
		size += info.Size()
	}
	return size, nil
}

// detectContentType sniff chunk 1, fall back to the file extension
func detectContentType(dir, fileName string) string {
	if mtype, err := mimetype.DetectFile(slotPath(dir, 1)); err == nil && !mtype.Is("application/octet-stream") {
		return mtype.String()
	}
	if byExt := mime.TypeByExtension(filepath.Ext(fileName)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

// mergeChunks streams the ordered chunks of snap into storage under its key,
// hashing on the way through. Memory use is bounded by the merge buffer.
func (s *UploadService) mergeChunks(ctx context.Context, snap model.UploadSession) (*model.StoredObjectInfo, error) {
	size, err := slotsSize(snap.ChunkDir, snap.TotalChunks)
	if err != nil {
		return nil, err
	}
	contentType := detectContentType(snap.ChunkDir, snap.FileName)

	seq := newChunkSequence(snap.ChunkDir, snap.TotalChunks)
	defer seq.Close()

	hasher := sha256.New()
	src := io.TeeReader(bufio.NewReaderSize(seq, s.opts.MergeBufferSize), hasher)

	if err := s.storage.Put(ctx, snap.StorageKey, src, contentType, size); err != nil {
		return nil, err
	}

	return &model.StoredObjectInfo{
		Size:        size,
		ContentHash: hex.EncodeToString(hasher.Sum(nil)),
		ContentType: contentType,
	}, nil
}
