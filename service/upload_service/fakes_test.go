package upload_service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"chunk-upload-system/database"
	"chunk-upload-system/model"
	"chunk-upload-system/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errInjected = errors.New("injected failure")

// memStorage in-memory storage.Storage with failure injection
type memStorage struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	putCalls     int
	failPuts     int
	failCopies   int
	failExists   int
	putGate      chan struct{} // when set, Put blocks until it is closed
	putStarted   chan struct{}
}

func newMemStorage() *memStorage {
	return &memStorage{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (m *memStorage) Put(ctx context.Context, key string, r io.Reader, contentType string, size int64) error {
	m.mu.Lock()
	m.putCalls++
	gate, started := m.putGate, m.putStarted
	fail := m.failPuts > 0
	if fail {
		m.failPuts--
	}
	m.mu.Unlock()

	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}
	if fail {
		return errInjected
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if size >= 0 && int64(len(data)) != size {
		return storage.ErrShortWrite
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.contentTypes[key] = contentType
	return nil
}

func (m *memStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStorage) Copy(ctx context.Context, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCopies > 0 {
		m.failCopies--
		return errInjected
	}
	data, ok := m.objects[srcKey]
	if !ok {
		return storage.ErrNotFound
	}
	m.objects[dstKey] = append([]byte(nil), data...)
	m.contentTypes[dstKey] = m.contentTypes[srcKey]
	return nil
}

func (m *memStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failExists > 0 {
		m.failExists--
		return false, errInjected
	}
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStorage) EnsureBucket(ctx context.Context) error { return nil }

func (m *memStorage) Bucket() string { return "test-bucket" }

func (m *memStorage) object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

func (m *memStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func (m *memStorage) puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putCalls
}

// memDB in-memory database.Database with failure injection
type memDB struct {
	mu          sync.Mutex
	records     map[int64]*model.FileRecord
	nextID      int64
	createCalls int
	failCreates int
	failUpdates int
	failLookups int
}

func newMemDB() *memDB {
	return &memDB{records: make(map[int64]*model.FileRecord)}
}

func (m *memDB) CreateFileRecord(record *model.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.failCreates > 0 {
		m.failCreates--
		return errInjected
	}
	for _, r := range m.records {
		if r.StorageKey == record.StorageKey {
			return fmt.Errorf("duplicate storage key %s", record.StorageKey)
		}
	}
	m.nextID++
	record.ID = m.nextID
	record.CreatedAt = time.Now()
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

func (m *memDB) GetFileRecordByID(id int64) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memDB) GetLatestActiveFileRecordByHash(hash string) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLookups > 0 {
		m.failLookups--
		return nil, errInjected
	}
	var best *model.FileRecord
	for _, r := range m.records {
		if r.FileHash == hash && r.Status == model.FileStatusActive && (best == nil || r.ID > best.ID) {
			best = r
		}
	}
	if best == nil {
		return nil, database.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *memDB) UpdateFileRecordStatus(id int64, status model.FileStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdates > 0 {
		m.failUpdates--
		return errInjected
	}
	r, ok := m.records[id]
	if !ok {
		return database.ErrNotFound
	}
	r.Status = status
	return nil
}

func (m *memDB) Close() error { return nil }

func (m *memDB) record(id int64) *model.FileRecord {
	r, _ := m.GetFileRecordByID(id)
	return r
}

func (m *memDB) creates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls
}

// fakeClock settable time source, safe for use across goroutines
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	svc   *UploadService
	stor  *memStorage
	db    *memDB
	store *MemorySessionStore
}

func newTestEnv(t *testing.T, tweaks ...func(*Options)) *testEnv {
	t.Helper()
	opts := Options{
		MaxFileSize:          1 << 30,
		MaxChunkSize:         16 << 20,
		ChunkDir:             t.TempDir(),
		SessionExpiry:        time.Hour,
		StrictChunkNumbering: true,
		IOWorkers:            4,
		MergeBufferSize:      64 << 10,
		KeyPrefix:            "files",
	}
	for _, tweak := range tweaks {
		tweak(&opts)
	}

	env := &testEnv{stor: newMemStorage(), db: newMemDB(), store: NewMemorySessionStore()}
	svc, err := NewUploadService(env.stor, env.db, env.store, opts, zaptest.NewLogger(t))
	require.NoError(t, err)
	env.svc = svc
	return env
}

func digestOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// split cuts data into n chunks of roughly equal size
func split(data []byte, n int) [][]byte {
	chunks := make([][]byte, n)
	size := (len(data) + n - 1) / n
	for i := 0; i < n; i++ {
		start := i * size
		end := start + size
		if start > len(data) {
			start = len(data)
		}
		if end > len(data) {
			end = len(data)
		}
		chunks[i] = data[start:end]
	}
	return chunks
}

func (e *testEnv) init(t *testing.T, name string, size int64, chunks int, hash string) *InitUploadResult {
	t.Helper()
	res, err := e.svc.InitUpload(context.Background(), InitUploadRequest{
		FileName:    name,
		TotalSize:   size,
		TotalChunks: chunks,
		Category:    "docs",
		Owner:       "alice",
		FileHash:    hash,
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) put(t *testing.T, sessionId string, n int, data []byte) {
	t.Helper()
	_, err := e.svc.UploadChunk(context.Background(), sessionId, n, bytes.NewReader(data))
	require.NoError(t, err)
}

// uploadAll runs a full chunked upload of data and returns the record
func (e *testEnv) uploadAll(t *testing.T, name string, data []byte, chunks int, hash string) *model.FileRecord {
	t.Helper()
	res := e.init(t, name, int64(len(data)), chunks, hash)
	require.False(t, res.FastPath)
	for i, c := range split(data, chunks) {
		e.put(t, res.SessionId, i+1, c)
	}
	record, err := e.svc.CompleteUpload(context.Background(), res.SessionId)
	require.NoError(t, err)
	return record
}
