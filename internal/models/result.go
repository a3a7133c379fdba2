package models

import "time"

// SearchHit is a single ranked result in the search response.
type SearchHit struct {
	ID          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	URLOrPath   string   `json:"url_or_path,omitempty"`
	Snippet     string   `json:"snippet,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	SourceType  string   `json:"source_type,omitempty"`
	PublishedAt string   `json:"published_at,omitempty"`
	Score       float64  `json:"score"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Hits []SearchHit `json:"hits"`
	// TookMS is the total handling time.
	TookMS    int64 `json:"took_ms"`
	LexicalMS int64 `json:"meili_ms"`
	VectorMS  int64 `json:"qdrant_ms"`
	MergeMS   int64 `json:"merge_ms"`
	// VectorUsed is false when the vector engine failed or is not configured
	// and the ranking is lexical-only.
	VectorUsed bool `json:"vector_used"`
}

// QueryRecord is the observability record emitted once per handled search.
type QueryRecord struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"ts"`
	Query      string    `json:"q"`
	Filters    *Filters  `json:"filters,omitempty"`
	Alpha      float64   `json:"alpha"`
	Limit      int       `json:"limit"`
	TookMS     int64     `json:"took_ms"`
	LexicalMS  int64     `json:"meili_ms"`
	VectorMS   int64     `json:"qdrant_ms"`
	MergeMS    int64     `json:"merge_ms"`
	Top3       []string  `json:"top3"`
	VectorUsed bool      `json:"vector_used"`
	RemoteAddr string    `json:"ip,omitempty"`
}
