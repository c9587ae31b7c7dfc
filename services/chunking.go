package services

import (
	"regexp"
	"strings"
)

// Chunker splits section content into overlapping sentence-aware chunks
// sized for the embedder's input window.
type Chunker struct {
	targetSize int
	overlap    int
}

// NewChunker creates a chunker; zero values select the defaults
// (512-char target, 100-char overlap cap).
func NewChunker(targetSize, overlap int) *Chunker {
	if targetSize == 0 {
		targetSize = 512
	}
	if overlap == 0 {
		overlap = 100
	}
	return &Chunker{targetSize: targetSize, overlap: overlap}
}

var (
	sentenceBoundaryRe = regexp.MustCompile(`([.!?])\s+([A-Z0-9])`)
	artifactRe         = regexp.MustCompile(`^[0-9\s\-_]+$`)
)

// splitSentences breaks text on sentence boundaries (punctuation
// followed by an uppercase letter or digit) and filters out noise:
// too-short or too-long sentences and number/dash-only PDF artifacts.
func splitSentences(text string) []string {
	marked := sentenceBoundaryRe.ReplaceAllString(strings.TrimSpace(text), "$1\n$2")
	var sentences []string
	for _, s := range strings.Split(marked, "\n") {
		s = strings.TrimSpace(s)
		if len(s) < 10 || len(s) > 1000 {
			continue
		}
		if artifactRe.MatchString(s) {
			continue
		}
		sentences = append(sentences, s)
	}
	return sentences
}

// ChunkText accumulates sentences up to the target size; when the next
// sentence would overflow, the chunk is closed and the next one starts
// with the tail sentences of the previous chunk.
func (c *Chunker) ChunkText(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		// Degenerate section: a single truncated chunk.
		t := strings.TrimSpace(text)
		if len(t) > c.targetSize {
			t = t[:c.targetSize]
		}
		return []string{t}
	}

	var chunks []string
	current := ""
	for _, sentence := range sentences {
		if len(current)+len(sentence) > c.targetSize && current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
			current = c.overlapTail(current) + ". " + sentence
		} else if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	if len(chunks) == 0 {
		t := strings.TrimSpace(text)
		if len(t) > c.targetSize {
			t = t[:c.targetSize]
		}
		return []string{t}
	}
	return chunks
}

// overlapTail takes the last three sentence fragments of a chunk,
// capped at the overlap budget.
func (c *Chunker) overlapTail(chunk string) string {
	parts := strings.Split(chunk, ".")
	if len(parts) > 3 {
		parts = parts[len(parts)-3:]
	}
	var kept []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			kept = append(kept, s)
		}
	}
	tail := strings.Join(kept, ". ")
	if len(tail) > c.overlap {
		tail = tail[len(tail)-c.overlap:]
	}
	return tail
}

// Cue words that mark substantive sentences worth front-loading in a
// snippet.
var snippetCueWords = []string{"include", "such as", "example", "important", "main"}

// MakeSnippet derives a 2-4 sentence excerpt of the chunk. Sentences
// with cue words are promoted to the front; short sentences and page
// markers are skipped. Falls back to a raw prefix when nothing
// qualifies.
func MakeSnippet(text string) string {
	const (
		minSentences = 2
		maxSentences = 4
		maxLen       = 800
	)
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		if len(text) > 400 {
			return text[:400]
		}
		return text
	}

	var best []string
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		if len(sentence) < 20 || strings.Contains(lower, "page ") {
			continue
		}
		cued := false
		for _, cue := range snippetCueWords {
			if strings.Contains(lower, cue) {
				cued = true
				break
			}
		}
		if cued {
			best = append([]string{sentence}, best...)
		} else {
			best = append(best, sentence)
		}
		if len(best) >= maxSentences {
			break
		}
	}
	if len(best) < minSentences && len(sentences) >= minSentences {
		best = sentences
	}
	if len(best) > maxSentences {
		best = best[:maxSentences]
	}

	snippet := strings.Join(best, " ")
	if len(snippet) > maxLen {
		snippet = snippet[:maxLen]
	}
	if snippet == "" {
		if len(text) > 400 {
			return text[:400]
		}
		return text
	}
	return snippet
}
