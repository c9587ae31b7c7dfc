package services

import (
	"testing"

	"doc-intelligence-platform/models"
)

// buildAnalysis assembles a synthetic FontAnalysis from spans, the way
// AnalyzeFonts would from a real document.
func buildAnalysis(spans []models.Span) *FontAnalysis {
	a := &FontAnalysis{
		Spans:     spans,
		SizeHist:  make(map[float64]int),
		PageStart: 1,
	}
	for _, s := range spans {
		a.SizeHist[s.FontSize]++
		if s.Page > a.PageCount {
			a.PageCount = s.Page
		}
	}
	a.BodySize = bodySizeFromHist(a.SizeHist)
	return a
}

func span(text string, page int, size, y float64) models.Span {
	return models.Span{Text: text, Page: page, FontSize: size, Y: y, Length: len(text)}
}

func TestDetectDocType(t *testing.T) {
	cases := []struct {
		text string
		want DocType
	}{
		{"this rfp covers the library", DocTypeRFP},
		{"request for proposal to present", DocTypeRFP},
		{"overview of the foundation level syllabus", DocTypeISTQB},
		{"stem pathways for students", DocTypeSTEM},
		{"an ordinary annual report", DocTypeDefault},
	}
	for _, c := range cases {
		if got := DetectDocType(c.text); got != c.want {
			t.Fatalf("DetectDocType(%q) = %s, want %s", c.text, got, c.want)
		}
	}
}

func TestEnforcePageHierarchySmoothing(t *testing.T) {
	headings := []models.Heading{
		{Text: "a", Page: 1, BaseLevel: 3, Position: 1},
		{Text: "b", Page: 1, BaseLevel: 1, Position: 2},
		{Text: "c", Page: 1, BaseLevel: 4, Position: 3},
		{Text: "d", Page: 1, BaseLevel: 2, Position: 4},
	}
	got := enforcePageHierarchy(headings)
	want := []string{"H1", "H1", "H2", "H2"}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i, entry := range got {
		if entry.Level != want[i] {
			t.Fatalf("entry %d level = %s, want %s", i, entry.Level, want[i])
		}
	}
}

func TestEnforcePageHierarchyNeverSkipsDown(t *testing.T) {
	headings := []models.Heading{
		{Text: "a", BaseLevel: 1},
		{Text: "b", BaseLevel: 4},
		{Text: "c", BaseLevel: 4},
		{Text: "d", BaseLevel: 4},
	}
	got := enforcePageHierarchy(headings)
	want := []string{"H1", "H2", "H3", "H4"}
	for i, entry := range got {
		if entry.Level != want[i] {
			t.Fatalf("entry %d level = %s, want %s", i, entry.Level, want[i])
		}
	}
}

func TestExtractDefaultOutline(t *testing.T) {
	spans := []models.Span{
		span("Annual Report", 1, 20, 700),
		span("1. Introduction", 1, 16, 650),
		span("This year the library expanded its collection substantially.", 1, 12, 600),
		span("2. Operations", 2, 16, 700),
		span("Day to day operations remained stable across branches.", 2, 12, 650),
		span("The quick brown fox jumps over the lazy dog again.", 2, 12, 600),
	}
	e := NewOutlineExtractor()
	result := e.extract(buildAnalysis(spans))

	if result.Title != "Annual Report" {
		t.Fatalf("title = %q, want %q", result.Title, "Annual Report")
	}
	if len(result.Outline) != 2 {
		t.Fatalf("outline has %d entries, want 2: %+v", len(result.Outline), result.Outline)
	}
	if result.Outline[0].Text != "1. Introduction" || result.Outline[0].Level != "H1" {
		t.Fatalf("first entry = %+v", result.Outline[0])
	}
	if result.Outline[1].Text != "2. Operations" || result.Outline[1].Page != 2 {
		t.Fatalf("second entry = %+v", result.Outline[1])
	}
}

func TestFormDocumentSuppressesOutline(t *testing.T) {
	spans := []models.Span{
		span("Application Form for Grant of Leave", 1, 18, 700),
		span("Name and designation of the applicant", 1, 12, 650),
		span("Home town as recorded in the service book", 1, 12, 600),
		span("Whether permanent or temporary employment", 1, 12, 550),
	}
	e := NewOutlineExtractor()
	result := e.extract(buildAnalysis(spans))
	if len(result.Outline) != 0 {
		t.Fatalf("form document should have no outline, got %+v", result.Outline)
	}
	if result.Title == "" {
		t.Fatal("form document should retain its title")
	}
}

func TestRFPCanonicalTitle(t *testing.T) {
	spans := []models.Span{
		span("RFP: Request for Proposal", 1, 24, 700),
		span("To Present a Proposal for Developing", 1, 24, 650),
		span("The digital library will serve every resident of the province.", 1, 12, 600),
	}
	e := NewOutlineExtractor()
	result := e.extract(buildAnalysis(spans))
	if result.Title != rfpCanonicalTitle {
		t.Fatalf("title = %q, want canonical", result.Title)
	}
}

func TestConcatTitlePolicy(t *testing.T) {
	spans := []models.Span{
		span("Overview", 1, 24, 700),
		span("Foundation Level Extensions", 1, 20, 650),
		span("The syllabus describes the agile tester extension in detail.", 1, 12, 600),
	}
	e := NewOutlineExtractor()
	result := e.extract(buildAnalysis(spans))
	if result.Title != "Overview Foundation Level Extensions" {
		t.Fatalf("title = %q", result.Title)
	}
}

func TestBaseHeadingLevel(t *testing.T) {
	rules := headingRulesByType[DocTypeDefault]
	if got := baseHeadingLevel("3. Conclusions", rules); got != 1 {
		t.Fatalf("numbered heading level = %d, want 1", got)
	}
	if got := baseHeadingLevel("3.1 Detailed findings", rules); got != 2 {
		t.Fatalf("sub-numbered heading level = %d, want 2", got)
	}
	if got := baseHeadingLevel("Timeline:", rules); got != 3 {
		t.Fatalf("colon heading level = %d, want 3", got)
	}
	if got := baseHeadingLevel("Unmatched heading", rules); got != 3 {
		t.Fatalf("default level = %d, want 3", got)
	}
}
