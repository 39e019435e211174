package model

import "time"

// FileStatus file record status
type FileStatus string

const (
	FileStatusPending FileStatus = "pending" // Object stored, not yet published
	FileStatusActive  FileStatus = "active"  // Published, eligible for dedup
	FileStatusInvalid FileStatus = "invalid" // Soft-invalidated, object missing or abandoned
)

// FileRecord metadata of one stored object
type FileRecord struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// File information
	FileName    string `gorm:"type:varchar(255)" json:"file_name"`                       // Original file name
	StorageKey  string `gorm:"uniqueIndex;type:varchar(500);not null" json:"storage_key"` // Object key, never shared
	FileSize    int64  `json:"file_size"`                                                // Size in bytes
	ContentType string `gorm:"type:varchar(100)" json:"content_type"`                    // MIME type
	Bucket      string `gorm:"type:varchar(255)" json:"bucket"`                          // Bucket or container
	Category    string `gorm:"type:varchar(100);index" json:"category"`                  // Caller supplied category
	Owner       string `gorm:"type:varchar(255);index" json:"owner"`                     // Owner identifier
	FileHash    string `gorm:"type:varchar(64);index" json:"file_hash"`                  // SHA256 hex

	// Status
	Status      FileStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"` // pending/active/invalid
	AccessCount int64      `gorm:"default:0" json:"access_count"`                          // Access counter

	// Timestamps
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specify table name
func (FileRecord) TableName() string {
	return "tb_file_record"
}

// IsActive reports whether the record is published
func (f *FileRecord) IsActive() bool {
	return f != nil && f.Status == FileStatusActive
}
