package services

import (
	"fmt"
	"strings"

	"doc-intelligence-platform/internal/logger"
	"doc-intelligence-platform/models"
)

// Sectioner turns a PDF into outline-anchored content units. The
// semantic index takes it by interface so tests can feed synthetic
// sections.
type Sectioner interface {
	ExtractSections(path string) ([]models.Section, error)
}

const (
	maxSectionLines = 200
	maxSectionChars = 5000
	minSectionChars = 30

	fallbackPageChunk = 2000
	fallbackMaxChunks = 10
)

// SectionExtractor joins the outline to page content: for every heading
// it collects the lines between it and the next heading in reading
// order.
type SectionExtractor struct {
	outline *OutlineExtractor
}

func NewSectionExtractor() *SectionExtractor {
	return &SectionExtractor{outline: NewOutlineExtractor()}
}

// ExtractSections runs fonts → outline → content walk. An empty outline
// degrades to per-page chunks.
func (x *SectionExtractor) ExtractSections(path string) ([]models.Section, error) {
	analysis, err := AnalyzeFonts(path)
	if err != nil {
		return nil, err
	}
	result := x.outline.extract(analysis)
	if len(result.Outline) == 0 {
		logger.Debug("No outline found, falling back to page chunks", "path", path)
		return fallbackSections(analysis), nil
	}

	sections := make([]models.Section, 0, len(result.Outline))
	for i, heading := range result.Outline {
		content := sectionContent(analysis, result.Outline, i)
		if len(strings.TrimSpace(content)) < minSectionChars {
			continue
		}
		sections = append(sections, models.Section{
			Title:   heading.Text,
			Page:    heading.Page,
			Content: content,
		})
	}
	if len(sections) == 0 {
		return fallbackSections(analysis), nil
	}
	return sections, nil
}

// sectionContent walks the pages between heading i and heading i+1.
// On the heading's own page collection starts after the heading text; on
// the end page it stops at the next heading text; intermediate pages are
// taken whole. Both the line count and total characters are capped.
func sectionContent(analysis *FontAnalysis, outline []models.OutlineEntry, i int) string {
	heading := outline[i]
	startPage := heading.Page
	endPage := analysis.LastPage()
	var nextText string
	hasNext := i+1 < len(outline)
	if hasNext {
		endPage = outline[i+1].Page
		nextText = outline[i+1].Text
	}

	var lines []string
collect:
	for page := startPage; page <= endPage; page++ {
		pageLines := strings.Split(analysis.PageText(page), "\n")
		started := page != startPage
		for _, line := range pageLines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !started {
				if strings.Contains(line, heading.Text) {
					started = true
				}
				continue
			}
			if hasNext && page == endPage && strings.Contains(line, nextText) {
				break collect
			}
			lines = append(lines, line)
			if len(lines) >= maxSectionLines {
				break collect
			}
		}
	}

	content := strings.Join(lines, "\n")
	if len(content) > maxSectionChars {
		content = content[:maxSectionChars]
	}
	return content
}

// fallbackSections splits every page into bounded chunks titled
// "Page N Content [(Part k)]"; only the first few chunks are kept.
func fallbackSections(analysis *FontAnalysis) []models.Section {
	var sections []models.Section
	for page := analysis.PageStart; page <= analysis.LastPage(); page++ {
		text := strings.TrimSpace(analysis.PageText(page))
		if text == "" {
			continue
		}
		parts := splitByLength(text, fallbackPageChunk)
		for k, part := range parts {
			if len(strings.TrimSpace(part)) < minSectionChars {
				continue
			}
			title := fmt.Sprintf("Page %d Content", page)
			if len(parts) > 1 {
				title = fmt.Sprintf("Page %d Content (Part %d)", page, k+1)
			}
			sections = append(sections, models.Section{Title: title, Page: page, Content: part})
			if len(sections) >= fallbackMaxChunks {
				return sections
			}
		}
	}
	return sections
}

func splitByLength(text string, size int) []string {
	if len(text) <= size {
		return []string{text}
	}
	var parts []string
	for len(text) > size {
		parts = append(parts, text[:size])
		text = text[size:]
	}
	if len(text) > 0 {
		parts = append(parts, text)
	}
	return parts
}
