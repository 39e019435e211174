package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chunk-upload-system/conf"
	"chunk-upload-system/controller"
	"chunk-upload-system/database"
	"chunk-upload-system/service/upload_service"
	"chunk-upload-system/storage"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ENV string

func init() {
	flag.StringVar(&ENV, "env", "loc", "Environment: loc/example/test/prod")
}

// @title           Chunk Upload API
// @version         1.0
// @description     Resumable chunked upload service with content deduplication
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:7282
// @BasePath  /api/v1

// @schemes https http

type app struct {
	log     *zap.Logger
	db      database.Database
	rdb     *redis.Client
	service *upload_service.UploadService
	reaper  *upload_service.CleanupProcessor
	srv     *http.Server
}

func main() {
	// Initialize all components
	a := initAll()
	defer a.cleanup()

	// Start expiry reaper
	a.reaper.Start()

	// Start HTTP API service (in goroutine)
	go startServer(a)
	a.log.Info("Upload API service started successfully")

	// Wait for shutdown signal
	waitForShutdown()

	a.log.Info("Shutting down upload service...")

	// Stop the reaper before the server so no sweep races the last requests
	a.reaper.Stop()

	// Gracefully shutdown HTTP service
	shutdownServer(a)

	a.log.Info("Server exited")
}

// initEnv initialize environment
func initEnv() {
	env, err := conf.ParseEnvironment(ENV)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v, falling back to loc\n", err)
		env = conf.LocalEnvironmentEnum
	}
	conf.SystemEnvironmentEnum = env
	fmt.Printf("Environment: %s\n", env)
}

func newLogger() (*zap.Logger, error) {
	if conf.SystemEnvironmentEnum == conf.LocalEnvironmentEnum {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// initAll initialize all components
func initAll() *app {
	// Parse command line parameters
	flag.Parse()

	// Set environment
	initEnv()

	log, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	a := &app{log: log}

	// Initialize configuration
	if err := conf.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config", zap.Error(err))
	}
	cfg := conf.Cfg
	log.Info("Configuration loaded",
		zap.String("env", conf.SystemEnvironmentEnum.String()),
		zap.String("port", cfg.Uploader.Port))

	// Initialize database
	a.db, err = initDatabase(cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// Initialize Redis (optional, won't fail if disabled or unavailable)
	a.rdb, err = database.InitRedis(cfg.Redis, log)
	if err != nil {
		log.Warn("Redis initialization failed, cache will be disabled", zap.Error(err))
		a.rdb = nil
	}
	db := a.db
	if a.rdb != nil {
		ttl := time.Duration(cfg.Redis.CacheTTL) * time.Second
		db = database.NewCachedDatabase(a.db, database.NewCache(a.rdb, ttl, log), log)
	}

	// Initialize storage
	stor, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := stor.EnsureBucket(ctx); err != nil {
		log.Fatal("Failed to prepare storage bucket", zap.Error(err))
	}
	log.Info("Storage initialized",
		zap.String("type", cfg.Storage.Type),
		zap.String("bucket", cfg.Storage.Bucket()))

	// Create upload service
	a.service, err = upload_service.NewUploadService(stor, db, upload_service.NewMemorySessionStore(),
		upload_service.OptionsFromConfig(cfg.Uploader), log)
	if err != nil {
		log.Fatal("Failed to create upload service", zap.Error(err))
	}
	a.reaper = upload_service.NewCleanupProcessor(a.service, cfg.Uploader.CleanupInterval, log)

	// Setup upload router
	router := controller.SetupUploadRouter(a.service, cfg.Uploader.SwaggerBaseUrl, log)

	// Create HTTP server
	a.srv = &http.Server{
		Addr:    ":" + cfg.Uploader.Port,
		Handler: router,
	}

	return a
}

// cleanup release database and cache connections
func (a *app) cleanup() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error("Failed to close database", zap.Error(err))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Error("Failed to close Redis", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// initDatabase initialize database based on configuration
func initDatabase(cfg conf.DatabaseConfig, log *zap.Logger) (database.Database, error) {
	switch database.DBType(cfg.Type) {
	case database.DBTypeMySQL:
		return database.InitDatabase(database.DBTypeMySQL, &database.MySQLConfig{
			DSN:          cfg.Dsn,
			MaxOpenConns: cfg.MaxOpenConns,
			MaxIdleConns: cfg.MaxIdleConns,
		}, log)

	case database.DBTypePebble:
		return database.InitDatabase(database.DBTypePebble, &database.PebbleConfig{
			DataDir: cfg.DataDir,
		}, log)

	default:
		log.Info("Database type not specified, defaulting to Pebble")
		return database.InitDatabase(database.DBTypePebble, &database.PebbleConfig{
			DataDir: cfg.DataDir,
		}, log)
	}
}

// startServer start HTTP server
func startServer(a *app) {
	a.log.Info("Upload API service starting", zap.String("addr", a.srv.Addr))
	if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.log.Fatal("Failed to start server", zap.Error(err))
	}
}

// waitForShutdown wait for shutdown signal
func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
}

// shutdownServer gracefully shutdown server
func shutdownServer(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.srv.Shutdown(ctx); err != nil {
		a.log.Error("Server forced to shutdown", zap.Error(err))
	}
}
