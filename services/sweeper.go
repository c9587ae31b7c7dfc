package services

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-co-op/gocron"

	"doc-intelligence-platform/internal/config"
	"doc-intelligence-platform/internal/logger"
	"doc-intelligence-platform/models"
)

// Sweeper deletes stored PDFs whose age exceeds the configured TTL. It
// is a background maintenance job; a TTL of zero or less disables it
// entirely.
type Sweeper struct {
	store     *BlobStore
	ttl       time.Duration
	interval  time.Duration
	scheduler *gocron.Scheduler
}

func NewSweeper(cfg *config.Config, store *BlobStore) *Sweeper {
	return &Sweeper{
		store:    store,
		ttl:      time.Duration(cfg.StoreTTLSeconds) * time.Second,
		interval: time.Duration(cfg.SweepIntervalSecs) * time.Second,
	}
}

// Start schedules the sweep. No-op when the TTL is disabled.
func (w *Sweeper) Start() {
	if w.ttl <= 0 {
		logger.Info("TTL sweeper disabled")
		return
	}
	w.scheduler = gocron.NewScheduler(time.UTC)
	w.scheduler.Every(w.interval).Do(w.sweep)
	w.scheduler.StartAsync()
	logger.Info("TTL sweeper started", "ttl", w.ttl.String(), "interval", w.interval.String())
}

// Stop halts the scheduler; pending jobs finish first.
func (w *Sweeper) Stop() {
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
}

// sweep enumerates every partition and removes expired PDFs. Errors are
// logged per file and never stop the sweep.
func (w *Sweeper) sweep() {
	cutoff := time.Now().Add(-w.ttl)
	removed := 0
	for _, st := range models.StorageTypes() {
		dir := w.store.PartitionDir(st)
		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.Warn("Sweep cannot read partition", "dir", dir, "error", err)
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".pdf") {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := os.Remove(path); err != nil {
				logger.Warn("Sweep failed to remove expired PDF", "path", path, "error", err)
				continue
			}
			removed++
			logger.Debug("Swept expired PDF", "path", path)
		}
	}
	if removed > 0 {
		logger.Info("TTL sweep removed expired PDFs", "count", removed)
	}
}
