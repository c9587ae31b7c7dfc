package models

// Span is a single font-consistent text run extracted from a PDF page.
// Coordinates are PDF user-space with the origin at the lower left; Y is
// the baseline of the run.
type Span struct {
	Text      string  `json:"text"`
	Page      int     `json:"page"`
	FontSize  float64 `json:"font_size"`
	FontName  string  `json:"font_name"`
	IsBold    bool    `json:"is_bold"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Length    int     `json:"length"`
	WordCount int     `json:"word_count"`
}

// Heading is a classified heading candidate before hierarchy smoothing.
// Position is the negated Y coordinate so ascending sort gives
// top-to-bottom reading order.
type Heading struct {
	Text      string  `json:"text"`
	Page      int     `json:"page"`
	BaseLevel int     `json:"base_level"`
	Position  float64 `json:"position"`
}

// OutlineEntry is one emitted outline item with its final level H1..H4.
type OutlineEntry struct {
	Level string `json:"level"`
	Text  string `json:"text"`
	Page  int    `json:"page"`
}

// OutlineResult is the full structural summary of a document.
type OutlineResult struct {
	Title   string         `json:"title"`
	Outline []OutlineEntry `json:"outline"`
}

// OutlineResponse is the HTTP payload for POST /outline.
type OutlineResponse struct {
	DocID   string         `json:"docId"`
	Title   string         `json:"title"`
	Outline []OutlineEntry `json:"outline"`
}

// Section is an outline-anchored content unit: the text between a heading
// and the next heading in reading order.
type Section struct {
	Title   string `json:"title"`
	Page    int    `json:"page"`
	Content string `json:"content"`
}
