package models

import (
	"strings"
)

// Filters restricts lexical retrieval. SourceType values are OR-ed, Tags are AND-ed,
// and DateFrom/DateTo are inclusive ISO-8601 date bounds on published_at.
type Filters struct {
	SourceType []string `json:"source_type,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	DateFrom   string   `json:"date_from,omitempty"`
	DateTo     string   `json:"date_to,omitempty"`
}

// IsEmpty reports whether no filter is set.
func (f *Filters) IsEmpty() bool {
	if f == nil {
		return true
	}
	return len(f.SourceType) == 0 && len(f.Tags) == 0 && f.DateFrom == "" && f.DateTo == ""
}

// SearchRequest is the body of POST /search. Limit and Alpha are pointers so that
// an absent value can be told apart from an explicit zero.
type SearchRequest struct {
	Query   string   `json:"q"`
	Limit   *int     `json:"limit,omitempty"`
	Alpha   *float64 `json:"alpha,omitempty"`
	Filters *Filters `json:"filters,omitempty"`
}

// TrimmedQuery returns the query text with surrounding whitespace removed.
func (r *SearchRequest) TrimmedQuery() string {
	return strings.TrimSpace(r.Query)
}
