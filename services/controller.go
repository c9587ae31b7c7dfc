package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"doc-intelligence-platform/internal/config"
	"doc-intelligence-platform/internal/logger"
	"doc-intelligence-platform/models"
)

// Controller owns the blob store and the current semantic index. The
// index pointer is swapped atomically during a reset; everything else
// goes through the accessor so callers always see a complete index.
type Controller struct {
	cfg   *config.Config
	store *BlobStore

	mu    sync.RWMutex
	index *SemanticIndex

	embedder  Embedder
	sectioner Sectioner
}

func NewController(cfg *config.Config, store *BlobStore, embedder Embedder, sectioner Sectioner) (*Controller, error) {
	index, err := NewSemanticIndex(cfg, embedder, sectioner)
	if err != nil {
		return nil, err
	}
	return &Controller{
		cfg:       cfg,
		store:     store,
		index:     index,
		embedder:  embedder,
		sectioner: sectioner,
	}, nil
}

// Store exposes the blob store for the HTTP handlers.
func (c *Controller) Store() *BlobStore { return c.store }

// Index returns the current semantic index.
func (c *Controller) Index() *SemanticIndex {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index
}

// PartitionSummary aggregates one partition for the status overview.
type PartitionSummary struct {
	FileCount   int               `json:"file_count"`
	TotalBytes  int64             `json:"total_size_bytes"`
	TotalSizeMB float64           `json:"total_size_mb"`
	Files       []models.FileInfo `json:"files"`
}

// StatusReport is the full storage overview.
type StatusReport struct {
	Summary     map[string]PartitionSummary `json:"summary"`
	TotalFiles  int                         `json:"total_files"`
	TotalSizeMB float64                     `json:"total_size_mb"`
	Directories map[string]string           `json:"storage_directories"`
}

func mb(n int64) float64 {
	return float64(int64(float64(n)/(1024*1024)*100+0.5)) / 100
}

// Status scans every partition and reports per-partition and total
// counts and sizes.
func (c *Controller) Status() (*StatusReport, error) {
	report := &StatusReport{
		Summary:     make(map[string]PartitionSummary),
		Directories: make(map[string]string),
	}
	var totalBytes int64
	listing := c.store.List(nil)
	for _, st := range models.StorageTypes() {
		files := listing[st]
		var partBytes int64
		for _, f := range files {
			partBytes += f.Size
		}
		report.Summary[string(st)] = PartitionSummary{
			FileCount:   len(files),
			TotalBytes:  partBytes,
			TotalSizeMB: mb(partBytes),
			Files:       files,
		}
		report.TotalFiles += len(files)
		totalBytes += partBytes
		report.Directories[string(st)] = c.store.PartitionDir(st)
	}
	report.TotalSizeMB = mb(totalBytes)
	return report, nil
}

// Health probes every partition for existence and writability by
// creating and removing a sentinel file.
func (c *Controller) Health() (bool, map[string]models.PartitionHealth) {
	healthy := true
	partitions := make(map[string]models.PartitionHealth)
	for _, st := range models.StorageTypes() {
		dir := c.store.PartitionDir(st)
		h := models.PartitionHealth{Directory: dir}
		if _, err := os.Stat(dir); err == nil {
			h.Exists = true
			sentinel := filepath.Join(dir, ".write_probe")
			if err := os.WriteFile(sentinel, []byte("ok"), 0o644); err == nil {
				os.Remove(sentinel)
				h.Writable = true
			}
		}
		h.Healthy = h.Exists && h.Writable
		if !h.Healthy {
			healthy = false
		}
		partitions[string(st)] = h
	}
	return healthy, partitions
}

// DebugReport exposes enough internals to diagnose a broken index
// without shell access to the host.
type DebugReport struct {
	Rows             int                   `json:"rows"`
	IndexFileExists  bool                  `json:"index_file_exists"`
	VectorFileExists bool                  `json:"vectors_file_exists"`
	SampleChunks     []models.IndexedChunk `json:"sample_chunks"`
}

func (c *Controller) Debug() *DebugReport {
	idx := c.Index()
	report := &DebugReport{
		Rows:         idx.Rows(),
		SampleChunks: idx.Chunks(3),
	}
	if _, err := os.Stat(filepath.Join(idx.Dir(), indexFileName)); err == nil {
		report.IndexFileExists = true
	}
	if _, err := os.Stat(filepath.Join(idx.Dir(), vectorsFileName)); err == nil {
		report.VectorFileExists = true
	}
	return report
}

// Migrate moves legacy flat-directory PDFs into the viewer partition.
func (c *Controller) Migrate() (int, error) {
	return c.store.MigrateLegacy()
}

// ResetReport summarizes a nuclear clear: what was removed, what the
// verification pass still found, and any partial failures.
type ResetReport struct {
	FilesRemoved      int                          `json:"files_removed"`
	StorageCleared    map[string]models.ClearStats `json:"storage_cleared"`
	IndexReset        bool                         `json:"index_reset"`
	RemainingFiles    int                          `json:"remaining_files"`
	RemainingSections int                          `json:"remaining_sections"`
	Warnings          []string                     `json:"warnings,omitempty"`
}

// Reset performs the nuclear clear: the index directory and every
// partition are recursively deleted and recreated, a fresh empty index
// is swapped in and persisted, and the post-state is verified. Partial
// failures are reported, never swallowed.
func (c *Controller) Reset() (*ResetReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := &ResetReport{StorageCleared: make(map[string]models.ClearStats)}

	status, err := c.Status()
	if err == nil {
		report.FilesRemoved = status.TotalFiles
	}

	// Index directory first so a crash mid-reset leaves no index
	// pointing at removed PDFs.
	indexDir := c.index.Dir()
	if err := os.RemoveAll(indexDir); err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("index dir removal: %v", err))
	}
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("recreating index directory: %w", err)
	}

	for st, s := range c.store.ClearAll() {
		report.StorageCleared[string(st)] = s
		for _, e := range s.Errors {
			report.Warnings = append(report.Warnings, e)
		}
	}

	fresh, err := NewSemanticIndex(c.cfg, c.embedder, c.sectioner)
	if err != nil {
		return nil, err
	}
	if err := fresh.Reset(); err != nil {
		return nil, fmt.Errorf("persisting empty index: %w", err)
	}
	c.index = fresh
	report.IndexReset = true

	// Verify the post-state and surface anything left behind.
	report.RemainingSections = fresh.Rows()
	for _, files := range c.store.List(nil) {
		report.RemainingFiles += len(files)
	}
	if report.RemainingFiles > 0 || report.RemainingSections > 0 {
		logger.Warn("Reset left residual state",
			"remainingFiles", report.RemainingFiles,
			"remainingSections", report.RemainingSections)
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d files and %d sections remain after reset",
				report.RemainingFiles, report.RemainingSections))
	}
	logger.Info("Nuclear reset complete", "filesRemoved", report.FilesRemoved)
	return report, nil
}

// ForceReingest rebuilds the index from every PDF currently stored in
// any partition.
func (c *Controller) ForceReingest(ctx context.Context) (models.IngestResult, error) {
	var items []IngestItem
	listing := c.store.List(nil)
	for _, st := range models.StorageTypes() {
		for _, f := range listing[st] {
			items = append(items, IngestItem{DocID: f.DocID, Path: f.Path})
		}
	}
	return c.Index().Ingest(ctx, items)
}
