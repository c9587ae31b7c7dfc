package services

import (
	"strings"
	"testing"

	"doc-intelligence-platform/models"
)

func TestSectionContentBetweenHeadings(t *testing.T) {
	spans := []models.Span{
		span("Introduction", 1, 16, 700),
		span("The library opened in 1998 and has grown every year since then.", 1, 12, 650),
		span("It now serves three counties with mobile branches everywhere.", 1, 12, 600),
		span("Methods", 2, 16, 700),
		span("Surveys were mailed to every registered patron last spring.", 2, 12, 650),
	}
	analysis := buildAnalysis(spans)
	outline := []models.OutlineEntry{
		{Level: "H1", Text: "Introduction", Page: 1},
		{Level: "H1", Text: "Methods", Page: 2},
	}

	content := sectionContent(analysis, outline, 0)
	if !strings.Contains(content, "opened in 1998") {
		t.Fatalf("section missing its body: %q", content)
	}
	if strings.Contains(content, "Introduction") {
		t.Fatalf("section must not include its own heading: %q", content)
	}
	if strings.Contains(content, "Surveys were mailed") {
		t.Fatalf("section leaked into the next heading's content: %q", content)
	}

	last := sectionContent(analysis, outline, 1)
	if !strings.Contains(last, "Surveys were mailed") {
		t.Fatalf("last section missing its body: %q", last)
	}
}

func TestExtractSectionsFallback(t *testing.T) {
	spans := []models.Span{
		span("Just some plain paragraph text without any headings at all here.", 1, 12, 700),
		span("More plain text continues on the same page for a while longer.", 1, 12, 650),
	}
	analysis := buildAnalysis(spans)
	sections := fallbackSections(analysis)
	if len(sections) == 0 {
		t.Fatal("fallback should produce at least one section")
	}
	if sections[0].Title != "Page 1 Content" {
		t.Fatalf("fallback title = %q", sections[0].Title)
	}
	if sections[0].Page != 1 {
		t.Fatalf("fallback page = %d, want 1", sections[0].Page)
	}
}

func TestFallbackSplitsLongPages(t *testing.T) {
	long := strings.Repeat("paragraph content ", 200) // ~3600 chars
	analysis := buildAnalysis([]models.Span{span(long, 1, 12, 700)})
	sections := fallbackSections(analysis)
	if len(sections) < 2 {
		t.Fatalf("long page should split into parts, got %d sections", len(sections))
	}
	if !strings.HasPrefix(sections[0].Title, "Page 1 Content (Part") {
		t.Fatalf("part title = %q", sections[0].Title)
	}
	if len(sections) > fallbackMaxChunks {
		t.Fatalf("fallback produced %d sections, cap is %d", len(sections), fallbackMaxChunks)
	}
}

func TestSplitByLength(t *testing.T) {
	parts := splitByLength(strings.Repeat("a", 250), 100)
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(parts))
	}
	if len(parts[0]) != 100 || len(parts[2]) != 50 {
		t.Fatalf("unexpected part sizes: %d, %d, %d", len(parts[0]), len(parts[1]), len(parts[2]))
	}
}
