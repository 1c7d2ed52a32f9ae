package service

import (
	"context"
	"sync"
	"time"

	"github.com/itchan-dev/guestbook/internal/domain"
	"github.com/itchan-dev/guestbook/internal/logger"
	"github.com/itchan-dev/guestbook/internal/metrics"
)

// AttachmentGarbageCollector removes uploads that no message references:
// files left behind by a crash between write and insert, or by a failed delete.
type AttachmentGarbageCollector struct {
	storage         GCStorage
	media           GCMediaStorage
	safetyThreshold time.Duration

	mu        sync.Mutex
	lastStats CleanupStats
}

// CleanupStats tracks the last garbage collection run.
type CleanupStats struct {
	RunAt          time.Time
	FilesScanned   int
	OrphanedFiles  int
	FilesDeleted   int
	BytesReclaimed int64
	Duration       time.Duration
	Errors         []string
}

type GCStorage interface {
	// AttachmentNames lists every image_path and video_path in use.
	AttachmentNames(ctx context.Context) ([]domain.FileName, error)
}

type GCMediaStorage interface {
	List() ([]domain.FileName, error)
	Stat(name domain.FileName) (modTime time.Time, size int64, err error)
	Delete(name domain.FileName) error
}

// NewAttachmentGarbageCollector creates a collector that never deletes files
// younger than safetyThreshold; a submission may still be in flight for them.
func NewAttachmentGarbageCollector(storage GCStorage, media GCMediaStorage, safetyThreshold time.Duration) *AttachmentGarbageCollector {
	return &AttachmentGarbageCollector{
		storage:         storage,
		media:           media,
		safetyThreshold: safetyThreshold,
	}
}

// StartBackgroundCleanup runs RunCleanup every interval until ctx is done.
func (gc *AttachmentGarbageCollector) StartBackgroundCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("started attachment garbage collector", "interval", interval, "safety_threshold", gc.safetyThreshold)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stats, err := gc.RunCleanup(ctx)
				if err != nil {
					logger.Log.Error("attachment cleanup failed", "error", err)
					continue
				}
				logger.Log.Info("attachment cleanup completed",
					"scanned", stats.FilesScanned,
					"orphans", stats.OrphanedFiles,
					"deleted", stats.FilesDeleted,
					"bytes_reclaimed", stats.BytesReclaimed,
					"duration", stats.Duration,
					"errors", len(stats.Errors),
				)
			case <-ctx.Done():
				logger.Log.Info("attachment garbage collector stopped")
				return
			}
		}
	}()
}

// RunCleanup executes a single collection cycle.
func (gc *AttachmentGarbageCollector) RunCleanup(ctx context.Context) (CleanupStats, error) {
	start := time.Now()
	stats := CleanupStats{RunAt: start, Errors: []string{}}

	// Files are listed after the referenced names: an upload that is inserted
	// in between shows up as young and is skipped by the threshold.
	referenced, err := gc.storage.AttachmentNames(ctx)
	if err != nil {
		return stats, err
	}
	inUse := make(map[domain.FileName]struct{}, len(referenced))
	for _, name := range referenced {
		inUse[name] = struct{}{}
	}

	files, err := gc.media.List()
	if err != nil {
		return stats, err
	}
	stats.FilesScanned = len(files)

	for _, name := range files {
		if _, ok := inUse[name]; ok {
			continue
		}

		modTime, size, err := gc.media.Stat(name)
		if err != nil {
			stats.Errors = append(stats.Errors, "stat "+name+": "+err.Error())
			continue
		}
		if time.Since(modTime) < gc.safetyThreshold {
			continue
		}

		stats.OrphanedFiles++
		if err := gc.media.Delete(name); err != nil {
			stats.Errors = append(stats.Errors, "delete "+name+": "+err.Error())
			continue
		}
		stats.FilesDeleted++
		stats.BytesReclaimed += size
	}

	stats.Duration = time.Since(start)
	metrics.OrphansDeleted(stats.FilesDeleted)

	gc.mu.Lock()
	gc.lastStats = stats
	gc.mu.Unlock()
	return stats, nil
}

// LastCleanupStats returns statistics from the last completed run.
func (gc *AttachmentGarbageCollector) LastCleanupStats() CleanupStats {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.lastStats
}
