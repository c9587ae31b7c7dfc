package services

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"doc-intelligence-platform/internal/config"
	"doc-intelligence-platform/internal/logger"
	"doc-intelligence-platform/models"
)

const (
	indexDirName    = "semantic_index"
	indexFileName   = "index.json"
	vectorsFileName = "vectors.bin"
)

// vectorsMagic prefixes vectors.bin so a stale or foreign file is
// rejected instead of misread.
var vectorsMagic = [4]byte{'D', 'I', 'V', 'X'}

// IngestItem is one document handed to the index: its fingerprint and
// the on-disk path of the PDF.
type IngestItem struct {
	DocID string
	Path  string
}

// SemanticIndex is the persistent vector + metadata store. Queries take
// the read lock; ingest, reset and save take the write lock. The two
// persisted artifacts (index.json and vectors.bin) are kept mutually
// consistent: row i of the matrix belongs to chunks[i].
type SemanticIndex struct {
	mu sync.RWMutex

	dir        string
	scoreFloor float64

	embedder  Embedder
	sectioner Sectioner
	chunker   *Chunker

	chunks  []models.IndexedChunk
	vectors [][]float32
}

// NewSemanticIndex builds an index rooted at STORE_DIR/semantic_index
// and loads any previously persisted state. A corrupt or missing
// artifact degrades to an empty index rather than an error.
func NewSemanticIndex(cfg *config.Config, embedder Embedder, sectioner Sectioner) (*SemanticIndex, error) {
	dir := filepath.Join(cfg.StoreDir, indexDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	idx := &SemanticIndex{
		dir:        dir,
		scoreFloor: cfg.ScoreFloor,
		embedder:   embedder,
		sectioner:  sectioner,
		chunker:    NewChunker(0, 0),
	}
	idx.load()
	return idx, nil
}

// Dir returns the directory holding the persisted artifacts.
func (x *SemanticIndex) Dir() string { return x.dir }

// Rows returns the number of indexed chunks.
func (x *SemanticIndex) Rows() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.chunks)
}

// Chunks returns a copy of the first n chunks, for debug surfaces.
func (x *SemanticIndex) Chunks(n int) []models.IndexedChunk {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if n > len(x.chunks) {
		n = len(x.chunks)
	}
	out := make([]models.IndexedChunk, n)
	copy(out, x.chunks[:n])
	return out
}

// load restores persisted state. Any failure leaves the index empty;
// the store can always be rebuilt by re-ingesting.
func (x *SemanticIndex) load() {
	data, err := os.ReadFile(filepath.Join(x.dir, indexFileName))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read index metadata, starting empty", "error", err)
		}
		return
	}
	var payload struct {
		Sections []models.IndexedChunk `json:"sections"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		logger.Warn("Corrupt index metadata, starting empty", "error", err)
		return
	}

	vectors, err := readVectors(filepath.Join(x.dir, vectorsFileName))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read vector matrix, starting empty", "error", err)
		}
		return
	}

	chunks := payload.Sections
	if len(vectors) != len(chunks) {
		logger.Warn("Index artifacts disagree, truncating to common length",
			"chunks", len(chunks), "rows", len(vectors))
		n := len(chunks)
		if len(vectors) < n {
			n = len(vectors)
		}
		chunks = chunks[:n]
		vectors = vectors[:n]
	}
	for i := range chunks {
		chunks[i].VectorOffset = i
	}
	x.chunks = chunks
	x.vectors = vectors
	logger.Info("Semantic index loaded", "chunks", len(x.chunks))
}

// save persists both artifacts atomically: each is written to a temp
// file and renamed into place, metadata first. Callers hold the write
// lock.
func (x *SemanticIndex) save() error {
	payload := struct {
		Sections []models.IndexedChunk `json:"sections"`
	}{Sections: x.chunks}
	if payload.Sections == nil {
		payload.Sections = []models.IndexedChunk{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling index metadata: %w", err)
	}
	if err := writeAtomic(filepath.Join(x.dir, indexFileName), data); err != nil {
		return err
	}

	bin, err := encodeVectors(x.vectors, x.embedder.Dim())
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(x.dir, vectorsFileName), bin)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func encodeVectors(vectors [][]float32, dim int) ([]byte, error) {
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	var buf bytes.Buffer
	buf.Write(vectorsMagic[:])
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(vectors))); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(dim)); err != nil {
		return nil, err
	}
	for _, row := range vectors {
		if len(row) != dim {
			return nil, fmt.Errorf("vector row has dim %d, want %d", len(row), dim)
		}
		if err := binary.Write(&buf, binary.LittleEndian, row); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func readVectors(path string) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)
	var magic [4]byte
	if _, err := r.Read(magic[:]); err != nil || magic != vectorsMagic {
		return nil, fmt.Errorf("bad vector file header")
	}
	var rows, dim uint32
	if err := binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, err
	}
	if int64(rows)*int64(dim)*4 != int64(r.Len()) {
		return nil, fmt.Errorf("vector file truncated: %d rows x %d dims, %d bytes left", rows, dim, r.Len())
	}
	vectors := make([][]float32, rows)
	for i := range vectors {
		row := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return nil, err
		}
		vectors[i] = row
	}
	return vectors, nil
}

// pdfNameFromFilename derives the display name shown to users from the
// stored filename: the partition-prefixed name keeps only its leading
// token, and the result is spaced and title-cased.
func pdfNameFromFilename(filename string) string {
	name := filename
	if strings.Count(filename, "_") >= 2 {
		if parts := strings.Split(filename, "_"); len(parts) >= 2 {
			name = strings.TrimSpace(parts[0])
		}
	}
	name = strings.TrimSuffix(name, ".pdf")
	name = strings.ReplaceAll(name, "_", " ")
	return titleCase(name)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// Ingest runs the full pipeline for each document: sections, chunks,
// snippets, embeddings, then a persisted append. A document that fails
// extraction is skipped with a log line; the batch continues. Ingesting
// the same document twice appends duplicate chunks; query-time
// deduplication hides them.
func (x *SemanticIndex) Ingest(ctx context.Context, items []IngestItem) (models.IngestResult, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var (
		newChunks []models.IndexedChunk
		embedText []string
	)
	for _, item := range items {
		if _, err := os.Stat(item.Path); err != nil {
			logger.Warn("Skipping missing document", "docId", item.DocID, "path", item.Path)
			continue
		}
		filename := filepath.Base(item.Path)
		pdfName := pdfNameFromFilename(filename)

		sections, err := x.sectioner.ExtractSections(item.Path)
		if err != nil {
			logger.Error("Section extraction failed, skipping document",
				"docId", item.DocID, "error", err)
			continue
		}
		for _, section := range sections {
			sectionChunks := x.chunker.ChunkText(section.Content)
			for chunkIdx, content := range sectionChunks {
				chunkTitle := section.Title
				if len(sectionChunks) > 1 {
					chunkTitle = fmt.Sprintf("%s (Part %d)", section.Title, chunkIdx+1)
				}
				newChunks = append(newChunks, models.IndexedChunk{
					SectionID:      fmt.Sprintf("%s_s%d_c%d", item.DocID, len(x.chunks)+len(newChunks)+1, chunkIdx),
					DocID:          item.DocID,
					Filename:       filename,
					Page:           section.Page,
					Title:          chunkTitle,
					Text:           content,
					Snippet:        MakeSnippet(content),
					PDFName:        pdfName,
					SectionHeading: section.Title,
					SectionContent: content,
				})
				preview := content
				if len(preview) > 200 {
					preview = preview[:200]
				}
				embedText = append(embedText, section.Title+". "+preview)
			}
		}
	}

	if len(newChunks) == 0 {
		return models.IngestResult{Ingested: 0}, nil
	}

	vecs, err := x.embedder.Embed(ctx, embedText)
	if err != nil {
		return models.IngestResult{}, fmt.Errorf("embedding %d chunks: %w", len(embedText), err)
	}
	base := len(x.vectors)
	for i := range newChunks {
		newChunks[i].VectorOffset = base + i
	}
	x.chunks = append(x.chunks, newChunks...)
	x.vectors = append(x.vectors, vecs...)

	if err := x.save(); err != nil {
		return models.IngestResult{}, err
	}
	logger.Info("Ingested chunks", "count", len(newChunks), "total", len(x.chunks))
	return models.IngestResult{Ingested: len(newChunks)}, nil
}

// queryTerms lowercases and splits the query, keeping terms longer than
// two characters.
func queryTerms(text string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, t := range strings.Fields(strings.ToLower(text)) {
		if len(t) > 2 && !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}
	return terms
}

// enhancedScore augments the cosine score with keyword, length and
// heading bonuses, applies the asymmetric multiplier and clamps to
// [0,1]. Heading matches count double toward the keyword bonus.
func enhancedScore(terms []string, content, heading string, semantic float64) float64 {
	score := semantic

	matches := 0
	for _, t := range terms {
		if strings.Contains(content, t) {
			matches++
		}
		if strings.Contains(heading, t) {
			matches += 2
		}
	}
	score += math.Min(0.1, float64(matches)*0.02)

	switch n := len(content); {
	case n >= 100 && n <= 1000:
		score += 0.05
	case n > 1000:
		score += 0.02
	}

	for _, t := range terms {
		if strings.Contains(heading, t) {
			score += 0.05
			break
		}
	}

	if semantic > 0.8 {
		score *= 1.1
	} else if semantic < 0.4 {
		score *= 0.9
	}
	return math.Max(0.0, math.Min(1.0, score))
}

// relevanceReason produces the one-line explanation attached to every
// match. It is never empty.
func relevanceReason(terms []string, content, heading string, score float64) string {
	var matched []string
	for _, t := range terms {
		if strings.Contains(content, t) || strings.Contains(heading, t) {
			matched = append(matched, t)
		}
	}
	var headingTerms []string
	for _, t := range terms {
		if strings.Contains(heading, t) {
			headingTerms = append(headingTerms, t)
		}
	}

	switch {
	case score > 0.8:
		if len(matched) > 0 {
			return "Highly relevant - contains key terms: " + strings.Join(capList(matched, 3), ", ")
		}
		return "Highly relevant - strong semantic and contextual match"
	case score > 0.6:
		if len(matched) > 0 {
			return "Strongly related - discusses: " + strings.Join(capList(matched, 2), ", ")
		}
		if heading != "" {
			topic := strings.TrimSpace(strings.SplitN(heading, ":", 2)[0])
			if len(topic) > 40 {
				topic = topic[:40]
			}
			return "Related section on " + topic
		}
		return "Strongly related topic with similar context"
	case score > 0.4:
		if len(headingTerms) > 0 {
			return fmt.Sprintf("Topic '%s' mentioned in heading", strings.Join(capList(headingTerms, 2), ", "))
		}
		return "Related topic with similar themes and context"
	default:
		if len(matched) > 0 {
			return "Potentially related - mentions: " + strings.Join(capList(matched, 2), ", ")
		}
		return "Additional context on related topic"
	}
}

func capList(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func confidenceLabel(score float64) string {
	switch {
	case score > 0.8:
		return "Very High"
	case score > 0.6:
		return "High"
	case score > 0.4:
		return "Medium"
	default:
		return "Low"
	}
}

// contentFingerprint hashes the lowercased first 300 characters of a
// chunk's content; near-identical chunks collide and are deduplicated.
func contentFingerprint(content string) string {
	preview := content
	if len(preview) > 300 {
		preview = preview[:300]
	}
	preview = strings.ToLower(strings.TrimSpace(preview))
	sum := md5.Sum([]byte(preview))
	return hex.EncodeToString(sum[:])[:16]
}

// Query embeds the text, scores every indexed chunk by cosine
// similarity, reranks the top candidates with the enhanced score,
// deduplicates by content fingerprint and returns at most k explained
// matches sorted by score descending.
func (x *SemanticIndex) Query(ctx context.Context, text string, k int) ([]models.QueryMatch, error) {
	if k <= 0 {
		k = 5
	}
	if len(strings.Join(strings.Fields(text), "")) < 3 {
		return []models.QueryMatch{}, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	if len(x.vectors) == 0 {
		return []models.QueryMatch{}, nil
	}

	qvecs, err := x.embedder.Embed(ctx, []string{strings.TrimSpace(text)})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	q := qvecs[0]

	sims := make([]float64, len(x.vectors))
	for i, row := range x.vectors {
		var dot float64
		for j := range row {
			if j < len(q) {
				dot += float64(row[j]) * float64(q[j])
			}
		}
		sims[i] = dot
	}

	// Rank everything, then rerank only the top 4k candidates.
	order := make([]int, len(sims))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return sims[order[a]] > sims[order[b]] })
	candidates := k * 4
	if candidates > len(order) {
		candidates = len(order)
	}
	if candidates < 1 {
		candidates = 1
	}
	order = order[:candidates]

	terms := queryTerms(text)
	seen := make(map[string]bool)
	var results []models.QueryMatch
	for _, i := range order {
		if len(results) >= k {
			break
		}
		chunk := x.chunks[i]
		semantic := sims[i]
		content := strings.ToLower(chunk.SectionContent)
		heading := strings.ToLower(chunk.SectionHeading)

		score := enhancedScore(terms, content, heading, semantic)
		if score < x.scoreFloor {
			continue
		}
		fp := contentFingerprint(chunk.SectionContent)
		if seen[fp] {
			continue
		}
		seen[fp] = true

		results = append(results, models.QueryMatch{
			DocID:           chunk.DocID,
			Filename:        chunk.Filename,
			Page:            chunk.Page,
			Title:           chunk.Title,
			Snippet:         chunk.Snippet,
			Score:           score,
			SemanticScore:   semantic,
			PDFName:         chunk.PDFName,
			SectionHeading:  chunk.SectionHeading,
			SectionContent:  chunk.SectionContent,
			SectionID:       chunk.SectionID,
			RelevanceReason: relevanceReason(terms, content, heading, score),
			Confidence:      confidenceLabel(score),
		})
	}

	sort.SliceStable(results, func(a, b int) bool { return results[a].Score > results[b].Score })
	if len(results) > k {
		results = results[:k]
	}
	if results == nil {
		results = []models.QueryMatch{}
	}
	return results, nil
}

// Reset drops all in-memory state and persists the empty artifacts.
// Safe to call repeatedly.
func (x *SemanticIndex) Reset() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.chunks = nil
	x.vectors = nil
	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		return fmt.Errorf("recreating index directory: %w", err)
	}
	return x.save()
}
