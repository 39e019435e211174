package database

import (
	"errors"
	"fmt"
	"time"

	"chunk-upload-system/model"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MySQLDatabase MySQL database implementation
type MySQLDatabase struct {
	db  *gorm.DB
	log *zap.Logger
}

// MySQLConfig MySQL configuration
type MySQLConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// NewMySQLDatabase create MySQL database instance
func NewMySQLDatabase(config interface{}, log *zap.Logger) (Database, error) {
	cfg, ok := config.(*MySQLConfig)
	if !ok {
		return nil, fmt.Errorf("invalid MySQL config type")
	}

	// Connect database
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect MySQL: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// Set connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&model.FileRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate file records: %w", err)
	}

	log.Info("MySQL database connected successfully")

	return &MySQLDatabase{db: db, log: log}, nil
}

func (m *MySQLDatabase) CreateFileRecord(record *model.FileRecord) error {
	return m.db.Create(record).Error
}

func (m *MySQLDatabase) GetFileRecordByID(id int64) (*model.FileRecord, error) {
	var record model.FileRecord
	err := m.db.Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (m *MySQLDatabase) GetLatestActiveFileRecordByHash(hash string) (*model.FileRecord, error) {
	var record model.FileRecord
	err := m.db.Where("file_hash = ? AND status = ?", hash, model.FileStatusActive).
		Order("created_at DESC").Order("id DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (m *MySQLDatabase) UpdateFileRecordStatus(id int64, status model.FileStatus) error {
	result := m.db.Model(&model.FileRecord{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Same-value updates report zero rows on MySQL; distinguish from a missing row.
		if _, err := m.GetFileRecordByID(id); err != nil {
			return err
		}
	}
	return nil
}

func (m *MySQLDatabase) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
