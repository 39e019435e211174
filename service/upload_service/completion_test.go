package upload_service

import (
	"bytes"
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"chunk-upload-system/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteUpload_SingleChunk(t *testing.T) {
	env := newTestEnv(t)
	data := randomBytes(rand.New(rand.NewSource(7)), 500000)

	res := env.init(t, "single.bin", int64(len(data)), 1, "")
	env.put(t, res.SessionId, 1, data)

	record, err := env.svc.CompleteUpload(context.Background(), res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, int64(500000), record.FileSize)
	assert.Equal(t, digestOf(data), record.FileHash)
	assert.Equal(t, res.StorageKey, record.StorageKey)
	assert.Equal(t, "single.bin", record.FileName)
	assert.Equal(t, "docs", record.Category)
	assert.Equal(t, "alice", record.Owner)
	assert.Equal(t, "test-bucket", record.Bucket)
	assert.Equal(t, model.FileStatusActive, record.Status)

	stored, ok := env.stor.object(record.StorageKey)
	require.True(t, ok)
	assert.True(t, bytes.Equal(data, stored))

	assert.Equal(t, 0, env.svc.ActiveSessions())
	_, err = os.Stat(filepath.Join(env.svc.opts.ChunkDir, res.SessionId))
	assert.True(t, os.IsNotExist(err))

	_, err = env.svc.CompleteUpload(context.Background(), res.SessionId)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCompleteUpload_MissingChunkThenRetry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	data := []byte("aaaabbbbcccc")
	chunks := split(data, 3)

	res := env.init(t, "three.txt", int64(len(data)), 3, "")
	env.put(t, res.SessionId, 1, chunks[0])
	env.put(t, res.SessionId, 3, chunks[2])

	_, err := env.svc.CompleteUpload(ctx, res.SessionId)
	var incomplete *IncompleteUploadError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, 1, incomplete.Missing)
	assert.Equal(t, KindRetry, ErrorKind(err))
	assert.Equal(t, 0, env.stor.count())

	env.put(t, res.SessionId, 2, chunks[1])
	record, err := env.svc.CompleteUpload(ctx, res.SessionId)
	require.NoError(t, err)

	stored, _ := env.stor.object(record.StorageKey)
	assert.Equal(t, data, stored)
}

func TestCompleteUpload_ShuffledConcurrentChunks(t *testing.T) {
	r := rand.New(rand.NewSource(20240601))

	for round := 0; round < 6; round++ {
		env := newTestEnv(t)
		size := r.Intn(300000)
		chunkCount := 1 + r.Intn(12)
		data := randomBytes(r, size)
		chunks := split(data, chunkCount)

		res := env.init(t, "shuffled.bin", int64(size), chunkCount, digestOf(data))

		order := r.Perm(chunkCount)
		var wg sync.WaitGroup
		errCh := make(chan error, chunkCount)
		for _, idx := range order {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				_, err := env.svc.UploadChunk(context.Background(), res.SessionId, idx+1, bytes.NewReader(chunks[idx]))
				errCh <- err
			}(idx)
		}
		wg.Wait()
		close(errCh)
		for err := range errCh {
			require.NoError(t, err)
		}

		record, err := env.svc.CompleteUpload(context.Background(), res.SessionId)
		require.NoError(t, err, "round %d", round)
		assert.Equal(t, int64(size), record.FileSize)
		assert.Equal(t, digestOf(data), record.FileHash)

		stored, _ := env.stor.object(record.StorageKey)
		assert.True(t, bytes.Equal(data, stored), "round %d", round)
	}
}

func TestCompleteUpload_EmptyFile(t *testing.T) {
	env := newTestEnv(t)
	res := env.init(t, "empty.txt", 0, 1, "")
	env.put(t, res.SessionId, 1, nil)

	record, err := env.svc.CompleteUpload(context.Background(), res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, int64(0), record.FileSize)
	assert.Equal(t, digestOf(nil), record.FileHash)
}

func TestCompleteUpload_ContentTypeSniffed(t *testing.T) {
	env := newTestEnv(t)
	record := env.uploadAll(t, "notes.dat", []byte("plain readable text\n"), 1, "")
	assert.Contains(t, record.ContentType, "text/plain")
}

func TestCompleteUpload_SizeMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.init(t, "short.bin", 10, 1, "")
	env.put(t, res.SessionId, 1, make([]byte, 6))

	_, err := env.svc.CompleteUpload(ctx, res.SessionId)
	var mismatch *SizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(6), mismatch.Received)
	assert.Equal(t, int64(10), mismatch.Declared)
	assert.Equal(t, KindRetry, ErrorKind(err))

	progress, err := env.svc.GetProgress(ctx, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateOpen, progress.State)

	env.put(t, res.SessionId, 1, make([]byte, 10))
	_, err = env.svc.CompleteUpload(ctx, res.SessionId)
	assert.NoError(t, err)
}

func TestCompleteUpload_HashHintMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	data := []byte("the real content")

	res := env.init(t, "h.txt", int64(len(data)), 1, digestOf([]byte("something else")))
	env.put(t, res.SessionId, 1, data)

	_, err := env.svc.CompleteUpload(ctx, res.SessionId)
	require.Error(t, err)
	assert.True(t, ErrValidation.Has(err))
	assert.Equal(t, 0, env.stor.count())
	assert.Equal(t, 0, env.db.creates())

	progress, err := env.svc.GetProgress(ctx, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateOpen, progress.State)
	require.NoError(t, env.svc.AbortUpload(ctx, res.SessionId))
}

func TestCompleteUpload_StorageFailureRetry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	data := []byte("retry the merge")
	res := env.init(t, "r.txt", int64(len(data)), 1, "")
	env.put(t, res.SessionId, 1, data)

	env.stor.failPuts = 1
	_, err := env.svc.CompleteUpload(ctx, res.SessionId)
	require.Error(t, err)
	assert.True(t, ErrUploadFailed.Has(err))
	assert.True(t, ErrStorageWrite.Has(err))
	assert.Equal(t, KindRetry, ErrorKind(err))
	assert.Equal(t, 0, env.db.creates())

	progress, err := env.svc.GetProgress(ctx, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateOpen, progress.State)
	assert.Equal(t, 1, progress.ReceivedCount)

	record, err := env.svc.CompleteUpload(ctx, res.SessionId)
	require.NoError(t, err)
	stored, _ := env.stor.object(record.StorageKey)
	assert.Equal(t, data, stored)
}

func TestCompleteUpload_MetadataFailureResumes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	data := []byte("record insert fails once")
	res := env.init(t, "m.txt", int64(len(data)), 1, "")
	env.put(t, res.SessionId, 1, data)

	env.db.failCreates = 1
	_, err := env.svc.CompleteUpload(ctx, res.SessionId)
	require.Error(t, err)
	assert.True(t, ErrUploadFailed.Has(err))
	assert.True(t, ErrMetadataWrite.Has(err))

	progress, err := env.svc.GetProgress(ctx, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateStored, progress.State)

	// Stored state rejects further chunks.
	_, err = env.svc.UploadChunk(ctx, res.SessionId, 1, bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrSessionBusy)

	record, err := env.svc.CompleteUpload(ctx, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, 1, env.stor.puts())
	assert.Equal(t, 2, env.db.creates())
	assert.Equal(t, model.FileStatusActive, record.Status)
}

func TestCompleteUpload_ActivationFailureReusesRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	data := []byte("publish fails once")
	res := env.init(t, "p.txt", int64(len(data)), 1, digestOf(data))
	env.put(t, res.SessionId, 1, data)

	env.db.failUpdates = 1
	_, err := env.svc.CompleteUpload(ctx, res.SessionId)
	require.Error(t, err)
	assert.True(t, ErrMetadataWrite.Has(err))

	// Pending records are never dedup sources.
	_, err = env.db.GetLatestActiveFileRecordByHash(digestOf(data))
	assert.Error(t, err)

	record, err := env.svc.CompleteUpload(ctx, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, 1, env.db.creates())
	assert.Equal(t, int64(1), record.ID)
	assert.Equal(t, model.FileStatusActive, record.Status)
}

func TestCompleteUpload_AbortAfterStored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	data := []byte("abandoned after merge")
	res := env.init(t, "x.txt", int64(len(data)), 1, "")
	env.put(t, res.SessionId, 1, data)

	env.db.failUpdates = 1
	_, err := env.svc.CompleteUpload(ctx, res.SessionId)
	require.Error(t, err)
	require.Equal(t, 1, env.stor.count())

	require.NoError(t, env.svc.AbortUpload(ctx, res.SessionId))
	assert.Equal(t, 0, env.stor.count())
	assert.Equal(t, model.FileStatusInvalid, env.db.record(1).Status)
}

func TestCompleteUpload_UnknownSession(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.CompleteUpload(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
