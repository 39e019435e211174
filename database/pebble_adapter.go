package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"chunk-upload-system/model"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

// PebbleDatabase PebbleDB database implementation with multiple collections
type PebbleDatabase struct {
	collections map[string]*pebble.DB // Map of collection name to PebbleDB instance
	log         *zap.Logger

	fileIDCounter atomic.Int64
	// mu serializes read-modify-write of record values
	mu sync.Mutex
}

// PebbleConfig PebbleDB configuration
type PebbleConfig struct {
	DataDir string
}

// Collection names and their key-value formats
const (
	collectionFileRecord = "file_record" // key: {%020d id}, value: JSON(FileRecord)
	collectionFileHash   = "file_hash"   // key: {hash}:{%020d id}, value: {id}
	collectionCounters   = "counters"    // key: file, value: {max_id}
)

// Counter keys
const (
	keyFileCounter = "file"
)

// NewPebbleDatabase create PebbleDB database instance with multiple collections
func NewPebbleDatabase(config interface{}, log *zap.Logger) (Database, error) {
	cfg, ok := config.(*PebbleConfig)
	if !ok {
		return nil, fmt.Errorf("invalid PebbleDB config type")
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}

	collectionNames := []string{
		collectionFileRecord,
		collectionFileHash,
		collectionCounters,
	}

	// Open PebbleDB for each collection
	collections := make(map[string]*pebble.DB)
	for _, name := range collectionNames {
		collectionPath := filepath.Join(cfg.DataDir, "upload_db", name)

		db, err := pebble.Open(collectionPath, &pebble.Options{})
		if err != nil {
			// Close previously opened databases
			for _, openedDB := range collections {
				openedDB.Close()
			}
			return nil, fmt.Errorf("failed to open collection %s at %s: %w", name, collectionPath, err)
		}
		collections[name] = db
	}

	pdb := &PebbleDatabase{
		collections: collections,
		log:         log,
	}

	if err := pdb.loadCounters(); err != nil {
		pdb.Close()
		return nil, fmt.Errorf("failed to load counters: %w", err)
	}

	log.Info("PebbleDB database opened",
		zap.String("data_dir", cfg.DataDir),
		zap.Int("collections", len(collections)),
		zap.Int64("file_id_counter", pdb.fileIDCounter.Load()))
	return pdb, nil
}

// loadCounters load ID counters from counters collection
func (p *PebbleDatabase) loadCounters() error {
	counterDB := p.collections[collectionCounters]

	val, closer, err := counterDB.Get([]byte(keyFileCounter))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	defer closer.Close()

	count, err := strconv.ParseInt(string(val), 10, 64)
	if err != nil {
		return fmt.Errorf("corrupt file counter %q: %w", val, err)
	}
	p.fileIDCounter.Store(count)
	return nil
}

func recordKey(id int64) []byte {
	return []byte(fmt.Sprintf("%020d", id))
}

func hashKey(hash string, id int64) []byte {
	return []byte(fmt.Sprintf("%s:%020d", hash, id))
}

func (p *PebbleDatabase) CreateFileRecord(record *model.FileRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.fileIDCounter.Add(1)
	if err := p.collections[collectionCounters].Set([]byte(keyFileCounter),
		[]byte(strconv.FormatInt(id, 10)), pebble.Sync); err != nil {
		return fmt.Errorf("failed to persist file counter: %w", err)
	}

	now := time.Now()
	record.ID = id
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.Status == "" {
		record.Status = model.FileStatusPending
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := p.collections[collectionFileRecord].Set(recordKey(id), data, pebble.Sync); err != nil {
		return err
	}

	if record.FileHash != "" {
		if err := p.collections[collectionFileHash].Set(hashKey(record.FileHash, id),
			[]byte(strconv.FormatInt(id, 10)), pebble.Sync); err != nil {
			return err
		}
	}

	return nil
}

func (p *PebbleDatabase) GetFileRecordByID(id int64) (*model.FileRecord, error) {
	data, closer, err := p.collections[collectionFileRecord].Get(recordKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var record model.FileRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode file record %d: %w", id, err)
	}
	return &record, nil
}

// GetLatestActiveFileRecordByHash walks the hash index from the highest id down.
// IDs come from a monotonic counter, so the first active hit is the newest.
func (p *PebbleDatabase) GetLatestActiveFileRecordByHash(hash string) (*model.FileRecord, error) {
	if hash == "" {
		return nil, ErrNotFound
	}

	prefix := hash + ":"
	iter, err := p.collections[collectionFileHash].NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: []byte(prefix + "~"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for iter.Last(); iter.Valid(); iter.Prev() {
		id, err := strconv.ParseInt(string(iter.Value()), 10, 64)
		if err != nil {
			p.log.Warn("Skipping corrupt hash index entry", zap.ByteString("key", iter.Key()))
			continue
		}
		record, err := p.GetFileRecordByID(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if record.IsActive() {
			return record, nil
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	return nil, ErrNotFound
}

func (p *PebbleDatabase) UpdateFileRecordStatus(id int64, status model.FileStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	record, err := p.GetFileRecordByID(id)
	if err != nil {
		return err
	}

	record.Status = status
	record.UpdatedAt = time.Now()

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return p.collections[collectionFileRecord].Set(recordKey(id), data, pebble.Sync)
}

func (p *PebbleDatabase) Close() error {
	var lastErr error
	for name, db := range p.collections {
		if err := db.Close(); err != nil {
			p.log.Error("Failed to close collection", zap.String("collection", name), zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}
