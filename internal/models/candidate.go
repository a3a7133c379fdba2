// Package models defines core data structures for candidates, queries, and search results.
package models

// Candidate is one document returned by either the lexical or the vector engine.
// RawScore is engine-native: 1/rank for lexical hits, similarity for vector hits.
// Raw scores from different engines must never be compared directly.
type Candidate struct {
	ID          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	URLOrPath   string   `json:"url_or_path,omitempty"`
	SourceType  string   `json:"source_type,omitempty"`
	PublishedAt string   `json:"published_at,omitempty"`
	Snippet     string   `json:"snippet,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	RawScore    float64  `json:"raw_score"`
}

// MergedResult is a candidate after cross-engine deduplication and scoring.
// LexNorm and VecNorm are 0 when the id was absent from that engine's results.
type MergedResult struct {
	ID          string
	Title       string
	URLOrPath   string
	SourceType  string
	PublishedAt string
	Snippet     string
	Tags        []string
	LexNorm     float64
	VecNorm     float64
	HybridScore float64
}

// Document is a searchable document as loaded into the embedded engines.
type Document struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	URLOrPath   string   `json:"url_or_path,omitempty"`
	SourceType  string   `json:"source_type,omitempty"`
	PublishedAt string   `json:"published_at,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ContentText string   `json:"content_text"`
}
