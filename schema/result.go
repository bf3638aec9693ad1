package schema

import "time"

// SearchOptions controls a single vector store query.
type SearchOptions struct {
	TopK      int
	Threshold float64
	// Filter restricts matches by metadata equality. Values are primitive
	// scalars; list-valued metadata is stored JSON-encoded.
	Filter map[string]any
}

// SearchResult is one vector store match. Distance is the raw metric
// reported by the store; the orchestrator converts it to similarity via
// max(0, 1-distance).
type SearchResult struct {
	Document Document
	Score    float64
	Distance float64
}

// Citation is a read-only projection of a matched chunk, built fresh per
// search call and never persisted by the engine.
type Citation struct {
	Title            string  `json:"title"`
	Authors          []string `json:"authors"`
	Source           string  `json:"source"`
	PublicationDate  string  `json:"publication_date,omitempty"`
	DOI              string  `json:"doi,omitempty"`
	URL              string  `json:"url,omitempty"`
	DocumentType     string  `json:"document_type"`
	MedicalSpecialty string  `json:"medical_specialty,omitempty"`
	Section          string  `json:"section,omitempty"`
	ConfidenceScore  float64 `json:"confidence_score"`
	RelevanceScore   float64 `json:"relevance_score"`
	Excerpt          string  `json:"excerpt"`
}

// RAGSearchResult is the engine's output for one query.
//
// Invariant: len(Documents) == len(Citations) == len(ConfidenceScores).
type RAGSearchResult struct {
	Query            string         `json:"query"`
	Documents        []string       `json:"documents"`
	Citations        []Citation     `json:"citations"`
	ConfidenceScores []float64      `json:"confidence_scores"`
	SearchMetadata   map[string]any `json:"search_metadata"`
	TotalResults     int            `json:"total_results"`
	SearchTimestamp  time.Time      `json:"search_timestamp"`
}

// EmptyResult returns a degraded-but-non-fatal result carrying errMsg in
// SearchMetadata under "error".
func EmptyResult(query, errMsg string) *RAGSearchResult {
	meta := map[string]any{}
	if errMsg != "" {
		meta["error"] = errMsg
	}
	return &RAGSearchResult{
		Query:            query,
		Documents:        []string{},
		Citations:        []Citation{},
		ConfidenceScores: []float64{},
		SearchMetadata:   meta,
		SearchTimestamp:  time.Now().UTC(),
	}
}
