package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"chunk-upload-system/controller"
	"chunk-upload-system/database"
	"chunk-upload-system/service/upload_service"
	"chunk-upload-system/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)
	dir := t.TempDir()

	stor, err := storage.NewLocalStorage(filepath.Join(dir, "files"))
	require.NoError(t, err)
	db, err := database.NewPebbleDatabase(&database.PebbleConfig{DataDir: filepath.Join(dir, "db")}, log)
	require.NoError(t, err)

	svc, err := upload_service.NewUploadService(stor, db, upload_service.NewMemorySessionStore(), upload_service.Options{
		MaxChunkSize:         1 << 20,
		ChunkDir:             filepath.Join(dir, "chunks"),
		SessionExpiry:        time.Hour,
		StrictChunkNumbering: true,
		IOWorkers:            4,
	}, log)
	require.NoError(t, err)

	srv := httptest.NewServer(controller.SetupUploadRouter(svc, "", log))
	t.Cleanup(func() {
		srv.Close()
		db.Close()
	})
	return srv
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestUploader_UploadFileAndDedup(t *testing.T) {
	srv := newTestServer(t)
	data := make([]byte, 4500)
	rand.New(rand.NewSource(3)).Read(data)
	path := writeTempFile(t, "random.bin", data)

	c := NewClient(srv.URL+"/api/v1", 10*time.Second, true)
	u := NewUploader(c, UploaderOptions{ChunkSize: 1000, Parallelism: 3, Owner: "bob"}, zaptest.NewLogger(t))

	var sent int64
	file, err := u.UploadFile(context.Background(), path, func(n int64) { atomic.AddInt64(&sent, n) })
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), file.FileSize)
	assert.Equal(t, sha256Hex(data), file.FileHash)
	assert.Equal(t, "random.bin", file.FileName)
	assert.Equal(t, "bob", file.Owner)
	assert.Equal(t, int64(len(data)), atomic.LoadInt64(&sent))

	fetched, err := c.File(context.Background(), file.ID)
	require.NoError(t, err)
	assert.Equal(t, file.StorageKey, fetched.StorageKey)

	again, err := u.UploadFile(context.Background(), path, nil)
	require.NoError(t, err)
	assert.NotEqual(t, file.ID, again.ID)
	assert.NotEqual(t, file.StorageKey, again.StorageKey)
	assert.Equal(t, file.FileHash, again.FileHash)
}

func TestUploader_EmptyFile(t *testing.T) {
	srv := newTestServer(t)
	path := writeTempFile(t, "empty.txt", nil)

	u := NewUploader(NewClient(srv.URL+"/api/v1", 0, false), UploaderOptions{}, zaptest.NewLogger(t))
	file, err := u.UploadFile(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), file.FileSize)
}

func TestUploader_Resume(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	data := []byte("resumable uploads send only what is missing")
	path := writeTempFile(t, "resume.txt", data)

	c := NewClient(srv.URL+"/api/v1", 0, false)
	const chunkSize = 10
	initResp, err := c.Init(ctx, InitRequest{
		FileName:    "resume.txt",
		TotalSize:   int64(len(data)),
		TotalChunks: chunkCount(int64(len(data)), chunkSize),
	})
	require.NoError(t, err)
	require.NoError(t, c.UploadChunk(ctx, initResp.SessionId, 2, data[10:20]))

	u := NewUploader(c, UploaderOptions{ChunkSize: chunkSize}, zaptest.NewLogger(t))
	file, err := u.Resume(ctx, initResp.SessionId, path, nil)
	require.NoError(t, err)
	assert.Equal(t, sha256Hex(data), file.FileHash)

	_, err = c.Progress(ctx, initResp.SessionId)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "restart", apiErr.Kind)
	assert.False(t, apiErr.Retryable())
}

func TestClient_IncompleteCompletion(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	c := NewClient(srv.URL+"/api/v1", 0, false)

	initResp, err := c.Init(ctx, InitRequest{FileName: "x.bin", TotalSize: 4, TotalChunks: 2})
	require.NoError(t, err)
	require.NoError(t, c.UploadChunk(ctx, initResp.SessionId, 1, []byte("ab")))

	_, err = c.Complete(ctx, initResp.SessionId)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, 1, apiErr.Missing)
	assert.True(t, apiErr.Retryable())

	require.NoError(t, c.Abort(ctx, initResp.SessionId))
}

func TestChunkMath(t *testing.T) {
	assert.Equal(t, 1, chunkCount(0, 10))
	assert.Equal(t, 1, chunkCount(10, 10))
	assert.Equal(t, 2, chunkCount(11, 10))
	assert.Equal(t, []int{1, 3, 5}, missingChunks(5, []int{2, 4}))
	assert.Nil(t, missingChunks(2, []int{1, 2}))
}

func TestUploader_ResumeRejectsDifferentChunkSize(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	data := []byte("resumable uploads send only what is missing")
	path := writeTempFile(t, "resume.txt", data)

	c := NewClient(srv.URL+"/api/v1", 0, false)
	initResp, err := c.Init(ctx, InitRequest{
		FileName:    "resume.txt",
		TotalSize:   int64(len(data)),
		TotalChunks: chunkCount(int64(len(data)), 10),
	})
	require.NoError(t, err)
	require.NoError(t, c.UploadChunk(ctx, initResp.SessionId, 2, data[10:20]))

	u := NewUploader(c, UploaderOptions{ChunkSize: 20}, zaptest.NewLogger(t))
	_, err = u.Resume(ctx, initResp.SessionId, path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "original chunk size")

	p, err := c.Progress(ctx, initResp.SessionId)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, p.ReceivedChunks)
}
