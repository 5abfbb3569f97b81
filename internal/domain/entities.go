package domain

import (
	"encoding/json"
	"time"
)

// Document is one corpus record. Fields other than id, title and
// description are kept verbatim in Extra.
type Document struct {
	ID          int
	Title       string
	Description string
	Extra       map[string]json.RawMessage
}

// Text is the string that gets tokenized or embedded for the document.
func (d Document) Text() string {
	return d.Title + " " + d.Description
}

// ScoredDocument is a document with the score it earned for one query.
type ScoredDocument struct {
	Document
	Score float64
}

// IndexStats summarizes a loaded or freshly built index.
type IndexStats struct {
	Documents    int       `json:"documents"`
	Terms        int       `json:"terms"`
	AvgDocLength float64   `json:"avg_doc_length"`
	Analyzer     string    `json:"analyzer"`
	BuiltAt      time.Time `json:"built_at"`
}

type SearchResult struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score"`
}

// NewSearchResult flattens a scored document for CLI and HTTP output.
func NewSearchResult(sd ScoredDocument) SearchResult {
	return SearchResult{
		ID:          sd.Document.ID,
		Title:       sd.Document.Title,
		Description: sd.Document.Description,
		Score:       sd.Score,
	}
}
