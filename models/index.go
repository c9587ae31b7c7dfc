package models

// IndexedChunk is the smallest indexed content unit. Every field is
// populated at ingest; VectorOffset is the row of its vector in the
// index matrix.
type IndexedChunk struct {
	SectionID      string `json:"section_id"`
	DocID          string `json:"doc_id"`
	Filename       string `json:"filename"`
	Page           int    `json:"page"`
	Title          string `json:"title"`
	Text           string `json:"text"`
	Snippet        string `json:"snippet"`
	VectorOffset   int    `json:"vector_offset"`
	PDFName        string `json:"pdf_name"`
	SectionHeading string `json:"section_heading"`
	SectionContent string `json:"section_content"`
}

// QueryMatch is one ranked, deduplicated, explained search result.
type QueryMatch struct {
	DocID           string  `json:"docId"`
	Filename        string  `json:"filename"`
	Page            int     `json:"page"`
	Title           string  `json:"title"`
	Snippet         string  `json:"snippet"`
	Score           float64 `json:"score"`
	SemanticScore   float64 `json:"semantic_score"`
	PDFName         string  `json:"pdf_name"`
	SectionHeading  string  `json:"section_heading"`
	SectionContent  string  `json:"section_content"`
	SectionID       string  `json:"section_id"`
	RelevanceReason string  `json:"relevance_reason"`
	Confidence      string  `json:"confidence"`
}

// IngestResult reports how many chunks an ingest run appended.
type IngestResult struct {
	Ingested int `json:"ingested"`
}
