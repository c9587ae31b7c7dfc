package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"doc-intelligence-platform/internal/config"
	"doc-intelligence-platform/models"
)

// stubSectioner serves canned sections keyed by file path, so index
// tests never touch a real PDF.
type stubSectioner struct {
	sections map[string][]models.Section
}

func (s *stubSectioner) ExtractSections(path string) ([]models.Section, error) {
	return s.sections[path], nil
}

func writeStubPDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 "+name), 0o644))
	return path
}

func newTestIndex(t *testing.T, cfg *config.Config, sectioner Sectioner) *SemanticIndex {
	t.Helper()
	idx, err := NewSemanticIndex(cfg, NewHashingEmbedder(0), sectioner)
	require.NoError(t, err)
	return idx
}

func TestIngestInvariants(t *testing.T) {
	cfg := testConfig(t)
	doc := writeStubPDF(t, cfg.StoreDir, "fresh_report_aaaa111122223333.pdf")
	sectioner := &stubSectioner{sections: map[string][]models.Section{
		doc: {
			{Title: "Methods", Page: 2, Content: "Surveys were mailed to every registered patron last spring. Results were tabulated by county and age group for the annual report."},
			{Title: "Results", Page: 3, Content: "Participation rose by twelve percent compared with the previous year. Rural branches saw the largest gains overall."},
		},
	}}
	idx := newTestIndex(t, cfg, sectioner)

	result, err := idx.Ingest(context.Background(), []IngestItem{{DocID: "aaaa111122223333", Path: doc}})
	require.NoError(t, err)
	require.Positive(t, result.Ingested)

	require.Len(t, idx.vectors, len(idx.chunks))
	for i, chunk := range idx.chunks {
		require.Equal(t, i, chunk.VectorOffset, "offset of chunk %d", i)
		require.Equal(t, "aaaa111122223333", chunk.DocID)
		require.NotEmpty(t, chunk.SectionID)
		require.NotEmpty(t, chunk.Snippet)
		require.Equal(t, "Fresh", chunk.PDFName)
	}
}

func TestIngestSkipsMissingFiles(t *testing.T) {
	cfg := testConfig(t)
	idx := newTestIndex(t, cfg, &stubSectioner{})
	result, err := idx.Ingest(context.Background(), []IngestItem{
		{DocID: "deadbeefdeadbeef", Path: filepath.Join(cfg.StoreDir, "nope.pdf")},
	})
	require.NoError(t, err)
	require.Zero(t, result.Ingested)
	require.Zero(t, idx.Rows())
}

func TestQueryEmptyAndColdStart(t *testing.T) {
	cfg := testConfig(t)
	idx := newTestIndex(t, cfg, &stubSectioner{})

	matches, err := idx.Query(context.Background(), "", 5)
	require.NoError(t, err)
	require.Empty(t, matches)

	matches, err = idx.Query(context.Background(), "  a ", 5)
	require.NoError(t, err)
	require.Empty(t, matches, "queries under 3 non-space chars return nothing")

	matches, err = idx.Query(context.Background(), "anything", 5)
	require.NoError(t, err)
	require.Empty(t, matches, "cold start returns no matches")
}

func TestQueryFindsIngestedHeading(t *testing.T) {
	cfg := testConfig(t)
	doc := writeStubPDF(t, cfg.StoreDir, "fresh_study_bbbb111122223333.pdf")
	sectioner := &stubSectioner{sections: map[string][]models.Section{
		doc: {
			{Title: "Introduction", Page: 1, Content: "The study began with a review of existing literature on reading habits across the province."},
			{Title: "Methods", Page: 2, Content: "Survey methods were chosen for their reach. Each methods decision was documented for reproducibility."},
		},
	}}
	idx := newTestIndex(t, cfg, sectioner)
	_, err := idx.Ingest(context.Background(), []IngestItem{{DocID: "bbbb111122223333", Path: doc}})
	require.NoError(t, err)

	matches, err := idx.Query(context.Background(), "methods", 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	var methods *models.QueryMatch
	for i := range matches {
		if matches[i].SectionHeading == "Methods" {
			methods = &matches[i]
		}
	}
	require.NotNil(t, methods, "a match for the Methods section is expected")
	require.Equal(t, 2, methods.Page)
	require.NotEmpty(t, methods.RelevanceReason)
	require.Contains(t, []string{"Very High", "High", "Medium", "Low"}, methods.Confidence)
	require.GreaterOrEqual(t, methods.Score, cfg.ScoreFloor)

	// Sorted by enhanced score descending.
	for i := 1; i < len(matches); i++ {
		require.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestQueryDeduplicatesByContentFingerprint(t *testing.T) {
	cfg := testConfig(t)
	docA := writeStubPDF(t, cfg.StoreDir, "fresh_a_cccc111122223333.pdf")
	docB := writeStubPDF(t, cfg.StoreDir, "fresh_b_dddd111122223333.pdf")
	shared := "Funding allocations for the coming year include new programs. The board approved the plan unanimously after a long discussion."
	sectioner := &stubSectioner{sections: map[string][]models.Section{
		docA: {{Title: "Budget", Page: 1, Content: shared}},
		docB: {{Title: "Budget", Page: 4, Content: shared}},
	}}
	idx := newTestIndex(t, cfg, sectioner)
	_, err := idx.Ingest(context.Background(), []IngestItem{
		{DocID: "cccc111122223333", Path: docA},
		{DocID: "dddd111122223333", Path: docB},
	})
	require.NoError(t, err)

	matches, err := idx.Query(context.Background(), "funding budget", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1, "identical content must collapse to one result")

	seen := map[string]bool{}
	for _, m := range matches {
		require.False(t, seen[m.SectionID], "duplicate section id in results")
		seen[m.SectionID] = true
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	doc := writeStubPDF(t, cfg.StoreDir, "fresh_doc_eeee111122223333.pdf")
	sectioner := &stubSectioner{sections: map[string][]models.Section{
		doc: {{Title: "Archive Policy", Page: 1, Content: "Records are retained for seven years before being moved to cold storage in the basement annex."}},
	}}
	idx := newTestIndex(t, cfg, sectioner)
	_, err := idx.Ingest(context.Background(), []IngestItem{{DocID: "eeee111122223333", Path: doc}})
	require.NoError(t, err)

	before, err := idx.Query(context.Background(), "archive retention", 5)
	require.NoError(t, err)

	reloaded := newTestIndex(t, cfg, sectioner)
	require.Equal(t, idx.Rows(), reloaded.Rows())
	require.Equal(t, idx.chunks, reloaded.chunks)
	require.Equal(t, idx.vectors, reloaded.vectors)

	after, err := reloaded.Query(context.Background(), "archive retention", 5)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestLoadToleratesCorruptArtifacts(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(cfg.StoreDir, indexDirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, indexFileName), []byte("not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, vectorsFileName), []byte("junk"), 0o644))

	idx := newTestIndex(t, cfg, &stubSectioner{})
	require.Zero(t, idx.Rows())
}

func TestResetIdempotent(t *testing.T) {
	cfg := testConfig(t)
	doc := writeStubPDF(t, cfg.StoreDir, "fresh_doc_ffff111122223333.pdf")
	sectioner := &stubSectioner{sections: map[string][]models.Section{
		doc: {{Title: "Anything", Page: 1, Content: "Some content long enough to be chunked and indexed without trouble at all."}},
	}}
	idx := newTestIndex(t, cfg, sectioner)
	_, err := idx.Ingest(context.Background(), []IngestItem{{DocID: "ffff111122223333", Path: doc}})
	require.NoError(t, err)
	require.Positive(t, idx.Rows())

	require.NoError(t, idx.Reset())
	require.Zero(t, idx.Rows())
	require.NoError(t, idx.Reset())
	require.Zero(t, idx.Rows())

	matches, err := idx.Query(context.Background(), "anything", 5)
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestVectorsCodecRoundTrip(t *testing.T) {
	vectors := [][]float32{
		{0.25, -1.5, 3.75},
		{0, 1, 2},
	}
	data, err := encodeVectors(vectors, 3)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "vectors.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	got, err := readVectors(path)
	require.NoError(t, err)
	require.Equal(t, vectors, got)
}

func TestPDFNameFromFilename(t *testing.T) {
	require.Equal(t, "Fresh", pdfNameFromFilename("fresh_annual_report_aaaa111122223333.pdf"))
	require.Equal(t, "Report", pdfNameFromFilename("report.pdf"))
	require.Equal(t, "My Report", pdfNameFromFilename("my report.pdf"))
}
