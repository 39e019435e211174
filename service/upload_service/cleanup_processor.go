package upload_service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CleanupProcessor periodically reclaims expired upload sessions
type CleanupProcessor struct {
	uploadService *UploadService
	stopChan      chan struct{}
	stopOnce      sync.Once
	done          chan struct{}
	started       bool
	interval      time.Duration
	log           *zap.Logger
}

// NewCleanupProcessor create cleanup processor
func NewCleanupProcessor(uploadService *UploadService, interval time.Duration, log *zap.Logger) *CleanupProcessor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &CleanupProcessor{
		uploadService: uploadService,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
		interval:      interval,
		log:           log,
	}
}

// Start start cleanup processor
func (cp *CleanupProcessor) Start() {
	cp.log.Info("Cleanup processor started", zap.Duration("interval", cp.interval))
	cp.started = true
	go cp.run()
}

// Stop stop cleanup processor and wait for the current sweep to finish
func (cp *CleanupProcessor) Stop() {
	cp.stopOnce.Do(func() {
		cp.log.Info("Stopping cleanup processor...")
		close(cp.stopChan)
	})
	if cp.started {
		<-cp.done
	}
}

// run main loop
func (cp *CleanupProcessor) run() {
	defer close(cp.done)

	ticker := time.NewTicker(cp.interval)
	defer ticker.Stop()

	// Session dirs on disk at startup belong to no live session.
	if removed, err := cp.uploadService.PurgeOrphanedChunkDirs(); err != nil {
		cp.log.Warn("Failed to purge orphaned chunk dirs", zap.Error(err))
	} else if removed > 0 {
		cp.log.Info("Purged orphaned chunk dirs", zap.Int("count", removed))
	}

	cp.cleanupExpiredSessions()

	for {
		select {
		case <-cp.stopChan:
			cp.log.Info("Cleanup processor stopped")
			return
		case <-ticker.C:
			cp.cleanupExpiredSessions()
		}
	}
}

// cleanupExpiredSessions one sweep
func (cp *CleanupProcessor) cleanupExpiredSessions() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-cp.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	reclaimed := cp.uploadService.ExpireSessions(ctx)
	if reclaimed > 0 {
		cp.log.Info("Reclaimed expired upload sessions",
			zap.Int("count", reclaimed),
			zap.Int("active", cp.uploadService.ActiveSessions()))
	}
}
