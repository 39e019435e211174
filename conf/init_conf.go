package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/viper"
)

// Config application configuration structure
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Storage configuration
	Storage StorageConfig

	// Uploader configuration
	Uploader UploaderConfig

	// Redis configuration
	Redis RedisConfig
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	Type         string // Metadata database type: mysql, pebble
	Dsn          string // MySQL DSN
	MaxOpenConns int    // MySQL max open connections
	MaxIdleConns int    // MySQL max idle connections
	DataDir      string // PebbleDB data directory
}

// StorageConfig storage configuration
type StorageConfig struct {
	Type  string
	Local LocalStorageConfig
	OSS   OSSStorageConfig
	S3    S3StorageConfig
	MinIO MinIOStorageConfig
}

// LocalStorageConfig local storage configuration
type LocalStorageConfig struct {
	BasePath string
}

// OSSStorageConfig OSS storage configuration
type OSSStorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// S3StorageConfig AWS S3 storage configuration
type S3StorageConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Endpoint  string // Optional custom endpoint
}

// MinIOStorageConfig MinIO storage configuration
type MinIOStorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// UploaderConfig chunked upload configuration
type UploaderConfig struct {
	Port                 string
	MaxFileSize          int64         // bytes
	MaxChunkSize         int64         // bytes
	ChunkDir             string        // root of the per-session temp directories
	SessionExpiry        time.Duration // sessions older than this are reclaimed
	CleanupInterval      time.Duration // reaper sweep interval
	StrictChunkNumbering bool          // reject chunk numbers above the declared count
	IOWorkers            int           // concurrent chunk writes and merges
	MergeBufferSize      int64         // bytes
	KeyPrefix            string        // storage key prefix for merged objects
	SwaggerBaseUrl       string        // Swagger API base URL (e.g., "example.com:7282")
}

// RedisConfig redis configuration
type RedisConfig struct {
	Enabled  bool   // Enable Redis cache
	Host     string // Redis host
	Port     int    // Redis port
	Password string // Redis password (optional)
	DB       int    // Redis database number
	CacheTTL int    // Cache TTL in seconds (default: 300)
}

// Bucket returns the container name of the configured storage backend
func (s StorageConfig) Bucket() string {
	switch s.Type {
	case "oss":
		return s.OSS.Bucket
	case "s3":
		return s.S3.Bucket
	case "minio":
		return s.MinIO.Bucket
	default:
		return "local"
	}
}

// Cfg global configuration instance
var Cfg *Config

// InitConfig initialize configuration
func InitConfig() error {
	cfg, err := LoadConfig(GetYaml())
	if err != nil {
		return err
	}
	Cfg = cfg
	return nil
}

// LoadConfig reads a yaml config file and applies defaults
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("Fatal error config file: %s", err)
	}

	maxFileSize, err := parseSize(v, "uploader.max_file_size")
	if err != nil {
		return nil, err
	}
	maxChunkSize, err := parseSize(v, "uploader.max_chunk_size")
	if err != nil {
		return nil, err
	}
	mergeBufferSize, err := parseSize(v, "uploader.merge_buffer_size")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Type:         v.GetString("database.type"),
			Dsn:          v.GetString("database.dsn"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
			MaxIdleConns: v.GetInt("database.max_idle_conns"),
			DataDir:      v.GetString("database.data_dir"),
		},

		Storage: StorageConfig{
			Type: v.GetString("storage.type"),
			Local: LocalStorageConfig{
				BasePath: v.GetString("storage.local.base_path"),
			},
			OSS: OSSStorageConfig{
				Endpoint:  v.GetString("storage.oss.endpoint"),
				AccessKey: v.GetString("storage.oss.access_key"),
				SecretKey: v.GetString("storage.oss.secret_key"),
				Bucket:    v.GetString("storage.oss.bucket"),
			},
			S3: S3StorageConfig{
				Region:    v.GetString("storage.s3.region"),
				AccessKey: v.GetString("storage.s3.access_key"),
				SecretKey: v.GetString("storage.s3.secret_key"),
				Bucket:    v.GetString("storage.s3.bucket"),
				Endpoint:  v.GetString("storage.s3.endpoint"),
			},
			MinIO: MinIOStorageConfig{
				Endpoint:  v.GetString("storage.minio.endpoint"),
				AccessKey: v.GetString("storage.minio.access_key"),
				SecretKey: v.GetString("storage.minio.secret_key"),
				Bucket:    v.GetString("storage.minio.bucket"),
			},
		},

		Uploader: UploaderConfig{
			Port:                 v.GetString("uploader.port"),
			MaxFileSize:          maxFileSize,
			MaxChunkSize:         maxChunkSize,
			ChunkDir:             v.GetString("uploader.chunk_dir"),
			SessionExpiry:        v.GetDuration("uploader.session_expiry"),
			CleanupInterval:      v.GetDuration("uploader.cleanup_interval"),
			StrictChunkNumbering: true,
			IOWorkers:            v.GetInt("uploader.io_workers"),
			MergeBufferSize:      mergeBufferSize,
			KeyPrefix:            v.GetString("uploader.key_prefix"),
			SwaggerBaseUrl:       v.GetString("uploader.swagger_base_url"),
		},

		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			CacheTTL: v.GetInt("redis.cache_ttl"),
		},
	}
	if v.IsSet("uploader.strict_chunk_numbering") {
		cfg.Uploader.StrictChunkNumbering = v.GetBool("uploader.strict_chunk_numbering")
	}

	applyDefaults(cfg)
	return cfg, nil
}

// parseSize reads a byte size such as "10GB", "512MiB" or a plain integer
func parseSize(v *viper.Viper, key string) (int64, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	size, err := units.RAMInBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid size for %s: %w", key, err)
	}
	return size, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Uploader.Port == "" {
		cfg.Uploader.Port = "7282"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.Local.BasePath == "" {
		cfg.Storage.Local.BasePath = "./data/files"
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "pebble"
	}
	if cfg.Database.DataDir == "" {
		cfg.Database.DataDir = "./data/db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 100
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 10
	}
	if cfg.Uploader.MaxFileSize == 0 {
		cfg.Uploader.MaxFileSize = 10 * units.GiB
	}
	if cfg.Uploader.MaxChunkSize == 0 {
		cfg.Uploader.MaxChunkSize = 64 * units.MiB
	}
	if cfg.Uploader.ChunkDir == "" {
		cfg.Uploader.ChunkDir = "./data/chunks"
	}
	if cfg.Uploader.SessionExpiry == 0 {
		cfg.Uploader.SessionExpiry = 24 * time.Hour
	}
	if cfg.Uploader.CleanupInterval == 0 {
		cfg.Uploader.CleanupInterval = 10 * time.Minute
	}
	if cfg.Uploader.IOWorkers <= 0 {
		cfg.Uploader.IOWorkers = 8
	}
	if cfg.Uploader.MergeBufferSize == 0 {
		cfg.Uploader.MergeBufferSize = units.MiB
	}
	if cfg.Uploader.KeyPrefix == "" {
		cfg.Uploader.KeyPrefix = "files"
	}
	if cfg.Uploader.SwaggerBaseUrl == "" {
		cfg.Uploader.SwaggerBaseUrl = "localhost:" + cfg.Uploader.Port
	}
	if cfg.Redis.CacheTTL == 0 {
		cfg.Redis.CacheTTL = 300
	}
}
