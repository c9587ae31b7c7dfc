package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"doc-intelligence-platform/internal/config"
	"doc-intelligence-platform/internal/logger"
)

// Embedder produces L2-normalized dense vectors for texts. Output order
// always matches input order.
type Embedder interface {
	Dim() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

const (
	hashingDim = 384
	geminiDim  = 768
)

// NewEmbedder selects the backend: Gemini embeddings when an API key is
// configured, otherwise the deterministic hashing fallback. The Gemini
// backend itself degrades to hashing on failure so queries keep working
// without the model.
func NewEmbedder(cfg *config.Config) Embedder {
	if cfg.GeminiAPIKey != "" {
		return &fallbackEmbedder{
			primary:  newGeminiEmbedder(cfg),
			fallback: NewHashingEmbedder(geminiDim),
		}
	}
	return NewHashingEmbedder(hashingDim)
}

// HashingEmbedder is the mandatory deterministic fallback: each byte of
// the UTF-8 text is accumulated into vec[j mod dim], then the vector is
// L2-normalized. It needs no network or model files, which keeps the
// index operational and the tests hermetic.
type HashingEmbedder struct {
	dim int
}

func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = hashingDim
	}
	return &HashingEmbedder{dim: dim}
}

func (h *HashingEmbedder) Dim() int { return h.dim }

func (h *HashingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, h.dim)
		for j := 0; j < len(t); j++ {
			vec[j%h.dim] += float32(t[j])
		}
		vecs[i] = normalize(vec)
	}
	return vecs, nil
}

// normalize scales a vector to unit L2 norm. The small epsilon keeps
// the all-zero edge case finite.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum) + 1e-6
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// geminiEmbedder calls the Google Generative AI embedding model in
// batches, preserving input order.
type geminiEmbedder struct {
	apiKey    string
	model     string
	batchSize int

	mu     sync.Mutex
	client *genai.Client
}

func newGeminiEmbedder(cfg *config.Config) *geminiEmbedder {
	batch := cfg.EmbedBatchSize
	if batch <= 0 || batch > 100 {
		batch = 100
	}
	return &geminiEmbedder{
		apiKey:    cfg.GeminiAPIKey,
		model:     cfg.GoogleEmbeddingsModel,
		batchSize: batch,
	}
}

func (g *geminiEmbedder) Dim() int { return geminiDim }

func (g *geminiEmbedder) ensureClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	g.client = client
	return client, nil
}

func (g *geminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	client, err := g.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	em := client.EmbeddingModel(g.model)

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := em.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}
		resp, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("embedding batch returned %d vectors for %d texts", len(resp.Embeddings), end-start)
		}
		for _, e := range resp.Embeddings {
			vec := make([]float32, len(e.Values))
			copy(vec, e.Values)
			out = append(out, normalize(vec))
		}
	}
	return out, nil
}

// fallbackEmbedder tries the primary backend and degrades permanently to
// the deterministic fallback on the first failure. Both backends share
// the same dimension so the vector matrix stays consistent.
type fallbackEmbedder struct {
	primary  Embedder
	fallback Embedder
	degraded atomic.Bool
}

func (f *fallbackEmbedder) Dim() int { return f.primary.Dim() }

func (f *fallbackEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if !f.degraded.Load() {
		vecs, err := f.primary.Embed(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		f.degraded.Store(true)
		logger.Warn("Embedding model unavailable, switching to hashing fallback", "error", err)
	}
	return f.fallback.Embed(ctx, texts)
}
