package services

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"doc-intelligence-platform/internal/config"
	"doc-intelligence-platform/internal/logger"
	"doc-intelligence-platform/models"
)

// ErrInvalidStorageType is returned for partition names outside
// bulk/fresh/viewer.
var ErrInvalidStorageType = errors.New("invalid storage type")

// BlobStore is the typed, content-addressed on-disk store for PDFs.
// It owns three partition directories plus the legacy flat base
// directory kept for migration.
type BlobStore struct {
	baseDir string
	dirs    map[models.StorageType]string
}

// NewBlobStore creates the store and ensures every partition directory
// exists.
func NewBlobStore(cfg *config.Config) (*BlobStore, error) {
	s := &BlobStore{
		baseDir: cfg.StoreDir,
		dirs: map[models.StorageType]string{
			models.StorageBulk:   cfg.BulkStoreDir,
			models.StorageFresh:  cfg.FreshStoreDir,
			models.StorageViewer: cfg.ViewerStoreDir,
		},
	}
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	for _, dir := range s.dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create partition directory %s: %w", dir, err)
		}
	}
	return s, nil
}

// BaseDir returns the root store directory.
func (s *BlobStore) BaseDir() string { return s.baseDir }

// PartitionDir returns the directory backing the given partition.
func (s *BlobStore) PartitionDir(st models.StorageType) string { return s.dirs[st] }

// DocIDFor computes the 16-hex-char fingerprint of a document's bytes.
// Identical bytes always map to the same id, regardless of filename.
func DocIDFor(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])[:16]
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9 \-_.]`)

// sanitizeFilename keeps alphanumerics, space, dash, underscore and dot,
// then converts spaces to underscores.
func sanitizeFilename(name string) string {
	safe := unsafeFilenameChars.ReplaceAllString(name, "")
	safe = strings.TrimSpace(safe)
	return strings.ReplaceAll(safe, " ", "_")
}

// Put writes the PDF bytes into the chosen partition and returns the
// document id. A file that already exists for the same partition and id
// is left untouched. Filename collisions get a monotonic ".n" counter.
func (s *BlobStore) Put(data []byte, originalName string, st models.StorageType) (string, error) {
	dir, ok := s.dirs[st]
	if !ok {
		return "", ErrInvalidStorageType
	}
	docID := DocIDFor(data)

	// Same partition+id already stored; nothing to do.
	if entries, err := os.ReadDir(dir); err == nil {
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".pdf") && strings.Contains(e.Name(), docID) {
				return docID, nil
			}
		}
	}

	var dest string
	if originalName != "" {
		safe := sanitizeFilename(originalName)
		base := strings.TrimSuffix(safe, filepath.Ext(safe))
		dest = filepath.Join(dir, fmt.Sprintf("%s_%s_%s.pdf", st, base, docID))
		for counter := 1; ; counter++ {
			if _, err := os.Stat(dest); os.IsNotExist(err) {
				break
			}
			dest = filepath.Join(dir, fmt.Sprintf("%s_%s_%s.%d.pdf", st, base, docID, counter))
		}
	} else {
		dest = filepath.Join(dir, fmt.Sprintf("%s_%s.pdf", st, docID))
	}

	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return docID, nil
}

// PathFor resolves a document id to an on-disk path. When a partition
// hint is given that partition is searched first; otherwise all three are
// scanned, then the legacy flat directory. When nothing is found the
// canonical expected path is returned — callers must check existence.
func (s *BlobStore) PathFor(docID string, hint *models.StorageType) string {
	search := models.StorageTypes()
	if hint != nil {
		search = append([]models.StorageType{*hint}, search...)
	}
	seen := map[models.StorageType]bool{}
	for _, st := range search {
		if seen[st] {
			continue
		}
		seen[st] = true
		dir := s.dirs[st]
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if strings.HasSuffix(name, ".pdf") && strings.Contains(name, docID) {
				return filepath.Join(dir, name)
			}
		}
	}

	// Legacy flat layout from before partitions existed.
	legacy := filepath.Join(s.baseDir, docID+".pdf")
	if _, err := os.Stat(legacy); err == nil {
		return legacy
	}

	if hint != nil {
		return filepath.Join(s.dirs[*hint], fmt.Sprintf("%s_%s.pdf", *hint, docID))
	}
	return filepath.Join(s.dirs[models.StorageFresh], fmt.Sprintf("fresh_%s.pdf", docID))
}

// docIDFromFilename recovers the fingerprint from the canonical
// <partition>_<base>_<docid>[.<n>].pdf naming.
func docIDFromFilename(name string) string {
	base := strings.TrimSuffix(name, ".pdf")
	// Strip a trailing collision counter.
	if i := strings.LastIndex(base, "."); i > 0 {
		suffix := base[i+1:]
		if suffix != "" && strings.Trim(suffix, "0123456789") == "" {
			base = base[:i]
		}
	}
	if i := strings.LastIndex(base, "_"); i >= 0 {
		return base[i+1:]
	}
	return base
}

// List scans the filesystem for stored PDFs; it never consults the
// semantic index. A nil partition lists every partition.
func (s *BlobStore) List(hint *models.StorageType) map[models.StorageType][]models.FileInfo {
	results := make(map[models.StorageType][]models.FileInfo)
	types := models.StorageTypes()
	if hint != nil {
		types = []models.StorageType{*hint}
	}
	for _, st := range types {
		dir := s.dirs[st]
		files := []models.FileInfo{}
		entries, err := os.ReadDir(dir)
		if err != nil {
			results[st] = files
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if !strings.HasSuffix(name, ".pdf") {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			files = append(files, models.FileInfo{
				Filename:    name,
				DocID:       docIDFromFilename(name),
				Path:        filepath.Join(dir, name),
				StorageType: st,
				Size:        info.Size(),
				Modified:    info.ModTime().Unix(),
			})
		}
		results[st] = files
	}
	return results
}

// Delete removes the PDF for a document id. Returns true when a file was
// actually removed.
func (s *BlobStore) Delete(docID string, hint *models.StorageType) bool {
	path := s.PathFor(docID, hint)
	if _, err := os.Stat(path); err != nil {
		return false
	}
	if err := os.Remove(path); err != nil {
		logger.Warn("Failed to delete stored PDF", "path", path, "error", err)
		return false
	}
	return true
}

// ClearAll removes every .pdf in every partition. Partial failures are
// allowed and reported per partition.
func (s *BlobStore) ClearAll() map[models.StorageType]models.ClearStats {
	stats := make(map[models.StorageType]models.ClearStats)
	for _, st := range models.StorageTypes() {
		dir := s.dirs[st]
		ststat := models.ClearStats{}
		entries, err := os.ReadDir(dir)
		if err != nil {
			ststat.Errors = append(ststat.Errors, fmt.Sprintf("failed to access directory: %v", err))
			stats[st] = ststat
			continue
		}
		for _, e := range entries {
			if !strings.HasSuffix(e.Name(), ".pdf") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := os.Remove(path); err != nil {
				ststat.Errors = append(ststat.Errors, fmt.Sprintf("failed to remove %s: %v", e.Name(), err))
				continue
			}
			ststat.FilesRemoved++
		}
		stats[st] = ststat
	}
	return stats
}

// MigrateLegacy moves any .pdf left in the flat base directory into the
// viewer partition with a viewer_ prefix, skipping collisions.
func (s *BlobStore) MigrateLegacy() (int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read store directory: %w", err)
	}
	migrated := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".pdf") {
			continue
		}
		src := filepath.Join(s.baseDir, name)
		dst := filepath.Join(s.dirs[models.StorageViewer], "viewer_"+name)
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		if err := os.Rename(src, dst); err != nil {
			logger.Warn("Failed to migrate legacy PDF", "file", name, "error", err)
			continue
		}
		migrated++
		logger.Info("Migrated legacy PDF to viewer storage", "file", name)
	}
	return migrated, nil
}
