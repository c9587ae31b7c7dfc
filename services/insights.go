package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"doc-intelligence-platform/internal/config"
	"doc-intelligence-platform/models"
)

// ErrProviderDisabled marks a capability that has no configured backend.
// Handlers translate it into a structured disabled response instead of
// an error status.
var ErrProviderDisabled = errors.New("provider disabled")

// InsightProvider generates cross-document observations and
// recommendations for a text selection, given the matches the semantic
// index already found for it.
type InsightProvider interface {
	Insights(ctx context.Context, selection string, matches []models.QueryMatch) ([]string, error)
	Recommend(ctx context.Context, selection string, matches []models.QueryMatch, max int) ([]models.Recommendation, error)
}

// Synthesizer renders a podcast script to audio. No backend ships by
// default; the route degrades to returning the script.
type Synthesizer interface {
	Synthesize(ctx context.Context, script []models.ScriptTurn) ([]byte, error)
}

// NewInsightProvider returns the Gemini-backed provider when an API key
// is configured, otherwise the disabled provider.
func NewInsightProvider(cfg *config.Config) InsightProvider {
	if cfg.GeminiAPIKey != "" {
		return &geminiInsightProvider{apiKey: cfg.GeminiAPIKey, model: cfg.GeminiModel}
	}
	return disabledProvider{}
}

type disabledProvider struct{}

func (disabledProvider) Insights(context.Context, string, []models.QueryMatch) ([]string, error) {
	return nil, ErrProviderDisabled
}

func (disabledProvider) Recommend(context.Context, string, []models.QueryMatch, int) ([]models.Recommendation, error) {
	return nil, ErrProviderDisabled
}

// DisabledSynthesizer is the default audio backend.
type DisabledSynthesizer struct{}

func (DisabledSynthesizer) Synthesize(context.Context, []models.ScriptTurn) ([]byte, error) {
	return nil, ErrProviderDisabled
}

type geminiInsightProvider struct {
	apiKey string
	model  string

	mu     sync.Mutex
	client *genai.Client
}

func (g *geminiInsightProvider) ensureClient(ctx context.Context) (*genai.Client, error) {
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

func (g *geminiInsightProvider) generate(ctx context.Context, prompt string) (string, error) {
	client, err := g.ensureClient(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.GenerativeModel(g.model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// matchContext renders the top matches as prompt context, one block per
// match with source, heading, page and a content excerpt.
func matchContext(matches []models.QueryMatch, limit, contentCap int) string {
	if len(matches) > limit {
		matches = matches[:limit]
	}
	var b strings.Builder
	for _, m := range matches {
		content := m.SectionContent
		if len(content) > contentCap {
			content = content[:contentCap]
		}
		fmt.Fprintf(&b, "[%s - %s, Page %d]:\n%s\n\n", m.PDFName, m.SectionHeading, m.Page, content)
	}
	return b.String()
}

func (g *geminiInsightProvider) Insights(ctx context.Context, selection string, matches []models.QueryMatch) ([]string, error) {
	prompt := "You are an expert analyst helping a user understand connections between documents. " +
		"Based on the user's selected text and related document sections, generate insightful observations.\n\n" +
		"INSTRUCTIONS:\n" +
		"- Generate 4-6 insights that add value beyond what's explicitly stated\n" +
		"- Mix key takeaways, interesting facts, counterpoints, concrete examples and cross-document connections\n" +
		"- Be specific and reference the source documents\n" +
		"- Keep each insight concise (1-2 sentences)\n\n" +
		"USER'S SELECTED TEXT:\n" + selection + "\n\n" +
		"RELATED DOCUMENT SECTIONS:\n" + matchContext(matches, 5, 500)

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return []string{"No insights generated."}, nil
	}
	var insights []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Trim(line, "-•* \t")
		if line == "" {
			continue
		}
		insights = append(insights, line)
		if len(insights) == 6 {
			break
		}
	}
	if len(insights) == 0 {
		insights = []string{text}
	}
	return insights, nil
}

// Recommend turns index matches into recommendations. Gemini supplies a
// one-line reasoning per match; when generation fails the match's own
// relevance reason is used so the endpoint stays useful without the
// model.
func (g *geminiInsightProvider) Recommend(ctx context.Context, selection string, matches []models.QueryMatch, max int) ([]models.Recommendation, error) {
	if max <= 0 || max > len(matches) {
		max = len(matches)
	}
	matches = matches[:max]

	reasons := make([]string, len(matches))
	prompt := "A user selected this text in a PDF:\n" + selection + "\n\n" +
		"For each numbered related section below, write one short sentence explaining why it is worth reading next. " +
		"Answer with one numbered line per section, nothing else.\n\n"
	for i, m := range matches {
		content := m.SectionContent
		if len(content) > 300 {
			content = content[:300]
		}
		prompt += fmt.Sprintf("%d. [%s - %s, Page %d]: %s\n", i+1, m.PDFName, m.SectionHeading, m.Page, content)
	}
	if text, err := g.generate(ctx, prompt); err == nil {
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			var n int
			var rest string
			if _, err := fmt.Sscanf(line, "%d.", &n); err == nil && n >= 1 && n <= len(matches) {
				if i := strings.Index(line, "."); i >= 0 {
					rest = strings.TrimSpace(line[i+1:])
				}
				if rest != "" {
					reasons[n-1] = rest
				}
			}
		}
	}

	recs := make([]models.Recommendation, len(matches))
	for i, m := range matches {
		reason := reasons[i]
		if reason == "" {
			reason = m.RelevanceReason
		}
		recs[i] = models.Recommendation{
			DocID:          m.DocID,
			Filename:       m.Filename,
			Page:           m.Page,
			Title:          m.Title,
			Snippet:        m.Snippet,
			RelevanceScore: m.Score,
			Reasoning:      reason,
		}
	}
	return recs, nil
}

// BuildPodcastScript composes the two-speaker script discussed by the
// audio route. It is deterministic and needs no model.
func BuildPodcastScript(selection string, matches []models.QueryMatch, insights []string) []models.ScriptTurn {
	excerpt := selection
	if len(excerpt) > 100 {
		excerpt = excerpt[:100]
	}
	script := []models.ScriptTurn{
		{Speaker: "host", Text: "Welcome to Document Intelligence Insights! I'm your host, and today we're exploring some fascinating connections across your documents."},
		{Speaker: "analyst", Text: fmt.Sprintf("That's right! Our reader just highlighted an interesting passage: '%s...' Let me show you what I found related to this.", excerpt)},
	}
	if len(matches) > 0 {
		script = append(script, models.ScriptTurn{
			Speaker: "host",
			Text:    "So what connections did you discover across the document library?",
		})
		top := matches
		if len(top) > 3 {
			top = top[:3]
		}
		for _, m := range top {
			script = append(script, models.ScriptTurn{
				Speaker: "analyst",
				Text: fmt.Sprintf("In %s, the section '%s' on page %d stood out. %s.",
					m.PDFName, m.SectionHeading, m.Page, m.RelevanceReason),
			})
		}
	}
	for i, insight := range insights {
		if i == 2 {
			break
		}
		script = append(script, models.ScriptTurn{Speaker: "analyst", Text: insight})
	}
	script = append(script, models.ScriptTurn{
		Speaker: "host",
		Text:    "Great insights! That's all for this episode. Keep exploring your documents!",
	})
	return script
}
