// Package cli provides output and client helpers for the hybridsearch command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/hybridsearch/internal/models"
	"github.com/hyperjump/hybridsearch/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

const snippetWidth = 200

var highlightTags = strings.NewReplacer("<em>", "", "</em>", "", "<mark>", "", "</mark>", "")

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	mode := "hybrid"
	if !response.VectorUsed {
		mode = "lexical only"
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (%s; lexical %dms, vector %dms, merge %dms)\n\n",
		len(response.Hits), response.TookMS, mode, response.LexicalMS, response.VectorMS, response.MergeMS)
	for i, hit := range response.Hits {
		writeOneHit(w, i+1, hit)
	}
}

func writeOneHit(w io.Writer, rank int, hit models.SearchHit) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", rank, hit.Score)
	fmt.Fprintf(w, "ID: %s\n", hit.ID)
	if hit.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", hit.Title)
	}
	if hit.URLOrPath != "" {
		fmt.Fprintf(w, "URL: %s\n", hit.URLOrPath)
	}
	var meta []string
	if hit.SourceType != "" {
		meta = append(meta, hit.SourceType)
	}
	if hit.PublishedAt != "" {
		meta = append(meta, hit.PublishedAt)
	}
	if len(hit.Tags) > 0 {
		meta = append(meta, "tags: "+strings.Join(hit.Tags, ", "))
	}
	if len(meta) > 0 {
		fmt.Fprintf(w, "%s\n", strings.Join(meta, " | "))
	}
	if hit.Snippet != "" {
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(PlainSnippet(hit.Snippet), snippetWidth))
	}
	fmt.Fprintln(w)
}

// PlainSnippet removes highlight markup from a snippet.
func PlainSnippet(s string) string {
	return highlightTags.Replace(s)
}

// SplitList splits a comma-separated flag value, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
