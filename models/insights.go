package models

// Recommendation is one cross-document pointer generated for a text
// selection.
type Recommendation struct {
	DocID          string  `json:"docId"`
	Filename       string  `json:"filename"`
	Page           int     `json:"page"`
	Title          string  `json:"title"`
	Snippet        string  `json:"snippet"`
	RelevanceScore float64 `json:"relevance_score"`
	Reasoning      string  `json:"reasoning"`
}

// ScriptTurn is one speaker turn of a generated podcast script.
type ScriptTurn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}
