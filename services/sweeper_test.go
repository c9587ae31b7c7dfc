package services

import (
	"os"
	"testing"
	"time"

	"doc-intelligence-platform/models"
)

func TestSweepRemovesOnlyExpiredFiles(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreTTLSeconds = 3600
	cfg.SweepIntervalSecs = 60

	store, err := NewBlobStore(cfg)
	if err != nil {
		t.Fatalf("store init: %v", err)
	}
	oldID, err := store.Put([]byte("old"), "old.pdf", models.StorageFresh)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	newID, err := store.Put([]byte("new"), "new.pdf", models.StorageFresh)
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	oldPath := store.PathFor(oldID, nil)
	stale := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldPath, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	NewSweeper(cfg, store).sweep()

	if fileExists(oldPath) {
		t.Fatal("expired file should have been swept")
	}
	if !fileExists(store.PathFor(newID, nil)) {
		t.Fatal("fresh file should survive the sweep")
	}
}

func TestSweeperDisabledWhenTTLZero(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreTTLSeconds = 0
	store, err := NewBlobStore(cfg)
	if err != nil {
		t.Fatalf("store init: %v", err)
	}
	w := NewSweeper(cfg, store)
	w.Start()
	defer w.Stop()
	if w.scheduler != nil {
		t.Fatal("scheduler must not start when TTL is disabled")
	}
}
