package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"doc-intelligence-platform/models"
)

func newTestController(t *testing.T, sectioner Sectioner) *Controller {
	t.Helper()
	cfg := testConfig(t)
	store, err := NewBlobStore(cfg)
	require.NoError(t, err)
	controller, err := NewController(cfg, store, NewHashingEmbedder(0), sectioner)
	require.NoError(t, err)
	return controller
}

func TestControllerStatusCountsFiles(t *testing.T) {
	controller := newTestController(t, &stubSectioner{})
	store := controller.Store()
	_, err := store.Put([]byte("one"), "one.pdf", models.StorageBulk)
	require.NoError(t, err)
	_, err = store.Put([]byte("two"), "two.pdf", models.StorageFresh)
	require.NoError(t, err)

	report, err := controller.Status()
	require.NoError(t, err)
	require.Equal(t, 2, report.TotalFiles)
	require.Equal(t, 1, report.Summary["bulk"].FileCount)
	require.Equal(t, 1, report.Summary["fresh"].FileCount)
	require.Equal(t, 0, report.Summary["viewer"].FileCount)
	require.Len(t, report.Directories, 3)
}

func TestControllerHealthProbe(t *testing.T) {
	controller := newTestController(t, &stubSectioner{})
	healthy, partitions := controller.Health()
	require.True(t, healthy)
	require.Len(t, partitions, 3)
	for st, h := range partitions {
		require.True(t, h.Exists, "%s should exist", st)
		require.True(t, h.Writable, "%s should be writable", st)
		require.True(t, h.Healthy)
	}
}

func TestNuclearReset(t *testing.T) {
	controller := newTestController(t, nil)
	store := controller.Store()

	data := []byte("%PDF-1.4 reset me")
	docID, err := store.Put(data, "reset.pdf", models.StorageFresh)
	require.NoError(t, err)
	path := store.PathFor(docID, nil)

	sectioner := &stubSectioner{sections: map[string][]models.Section{
		path: {{Title: "Victim", Page: 1, Content: "This content is going away together with the stored file shortly."}},
	}}
	controller.sectioner = sectioner
	controller.index.sectioner = sectioner

	_, err = controller.Index().Ingest(context.Background(), []IngestItem{{DocID: docID, Path: path}})
	require.NoError(t, err)
	require.Positive(t, controller.Index().Rows())

	report, err := controller.Reset()
	require.NoError(t, err)
	require.True(t, report.IndexReset)
	require.Zero(t, report.RemainingFiles)
	require.Zero(t, report.RemainingSections)

	matches, err := controller.Index().Query(context.Background(), "victim content", 5)
	require.NoError(t, err)
	require.Empty(t, matches)

	// The store still works after the wipe.
	_, err = store.Put([]byte("new life"), "new.pdf", models.StorageFresh)
	require.NoError(t, err)
}

func TestForceReingestRebuildsFromPartitions(t *testing.T) {
	controller := newTestController(t, nil)
	store := controller.Store()

	docID, err := store.Put([]byte("%PDF-1.4 again"), "again.pdf", models.StorageViewer)
	require.NoError(t, err)
	path := store.PathFor(docID, nil)

	sectioner := &stubSectioner{sections: map[string][]models.Section{
		path: {{Title: "Reindexed", Page: 1, Content: "Content that should reappear after a forced rebuild of the semantic index."}},
	}}
	controller.sectioner = sectioner
	controller.index.sectioner = sectioner

	result, err := controller.ForceReingest(context.Background())
	require.NoError(t, err)
	require.Positive(t, result.Ingested)
	require.Equal(t, result.Ingested, controller.Index().Rows())
}

func TestDebugReportsArtifacts(t *testing.T) {
	controller := newTestController(t, &stubSectioner{})
	require.NoError(t, controller.Index().Reset())

	report := controller.Debug()
	require.Zero(t, report.Rows)
	require.True(t, report.IndexFileExists)
	require.True(t, report.VectorFileExists)
	require.Empty(t, report.SampleChunks)
}
