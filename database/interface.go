package database

import (
	"chunk-upload-system/model"

	"go.uber.org/zap"
)

// Database metadata store for file records
type Database interface {
	// CreateFileRecord inserts record and sets its ID.
	CreateFileRecord(record *model.FileRecord) error
	GetFileRecordByID(id int64) (*model.FileRecord, error)
	// GetLatestActiveFileRecordByHash returns the most recently created active
	// record with the given content hash, or ErrNotFound.
	GetLatestActiveFileRecordByHash(hash string) (*model.FileRecord, error)
	// UpdateFileRecordStatus moves a record to status, or ErrNotFound.
	UpdateFileRecordStatus(id int64, status model.FileStatus) error

	// General operations
	Close() error
}

// DBType database type
type DBType string

const (
	DBTypeMySQL  DBType = "mysql"
	DBTypePebble DBType = "pebble"
)

// InitDatabase initialize database with specified type
func InitDatabase(dbType DBType, config interface{}, log *zap.Logger) (Database, error) {
	switch dbType {
	case DBTypeMySQL:
		return NewMySQLDatabase(config, log)
	case DBTypePebble:
		return NewPebbleDatabase(config, log)
	default:
		return nil, ErrUnsupportedDBType
	}
}
