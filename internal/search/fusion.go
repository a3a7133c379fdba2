// Package search merges lexical and vector candidates into one hybrid ranking.
package search

import (
	"sort"
	"strings"

	"github.com/hyperjump/hybridsearch/internal/models"
)

// missingDate sorts below every real ISO-8601 date prefix.
const missingDate = "0000-00-00"

// Normalize rescales raw scores from one engine into [0,1] by dividing by the
// largest positive score. Negative scores clamp to 0. If no score is positive,
// every output is 0. The output is parallel to the input.
func Normalize(scores []float64) []float64 {
	out := make([]float64, len(scores))
	var maxScore float64
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	if maxScore <= 0 {
		return out
	}
	for i, s := range scores {
		if s > 0 {
			out[i] = s / maxScore
		}
	}
	return out
}

func rawScores(candidates []models.Candidate) []float64 {
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = c.RawScore
	}
	return scores
}

// Merge combines both candidate lists into a deduplicated, sorted ranking.
// Lexical candidates are inserted first, so their descriptive fields win for ids
// present in both lists. Candidates without an id are dropped; a repeated id within
// one list keeps its first occurrence.
func Merge(lex, vec []models.Candidate, alpha float64, query string) []models.MergedResult {
	lexNorm := Normalize(rawScores(lex))
	vecNorm := Normalize(rawScores(vec))

	merged := make([]models.MergedResult, 0, len(lex)+len(vec))
	byID := make(map[string]int, len(lex)+len(vec))

	for i, c := range lex {
		if c.ID == "" {
			continue
		}
		if _, seen := byID[c.ID]; seen {
			continue
		}
		byID[c.ID] = len(merged)
		r := fromCandidate(c)
		r.LexNorm = lexNorm[i]
		merged = append(merged, r)
	}

	vecSeen := make(map[string]bool, len(vec))
	for i, c := range vec {
		if c.ID == "" || vecSeen[c.ID] {
			continue
		}
		vecSeen[c.ID] = true
		if pos, ok := byID[c.ID]; ok {
			merged[pos].VecNorm = vecNorm[i]
			continue
		}
		byID[c.ID] = len(merged)
		r := fromCandidate(c)
		r.VecNorm = vecNorm[i]
		merged = append(merged, r)
	}

	for i := range merged {
		merged[i].HybridScore = alpha*merged[i].LexNorm + (1-alpha)*merged[i].VecNorm
	}
	SortResults(merged, query)
	return merged
}

func fromCandidate(c models.Candidate) models.MergedResult {
	return models.MergedResult{
		ID:          c.ID,
		Title:       c.Title,
		URLOrPath:   c.URLOrPath,
		SourceType:  c.SourceType,
		PublishedAt: c.PublishedAt,
		Snippet:     c.Snippet,
		Tags:        c.Tags,
	}
}

// SortResults orders results with the hybrid comparator for query.
func SortResults(results []models.MergedResult, query string) {
	q := normalizeTitle(query)
	sort.SliceStable(results, func(i, j int) bool {
		return Less(&results[i], &results[j], q)
	})
}

// Less reports whether a ranks above b. normQuery must already be trimmed and
// lower-cased. Ties fall through hybrid score, exact title match, publication
// day (newest first), title and finally id, so the order is total.
func Less(a, b *models.MergedResult, normQuery string) bool {
	if a.HybridScore != b.HybridScore {
		return a.HybridScore > b.HybridScore
	}
	aExact := normQuery != "" && normalizeTitle(a.Title) == normQuery
	bExact := normQuery != "" && normalizeTitle(b.Title) == normQuery
	if aExact != bExact {
		return aExact
	}
	if ad, bd := dayKey(a.PublishedAt), dayKey(b.PublishedAt); ad != bd {
		return ad > bd
	}
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.ID < b.ID
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// dayKey is the first 10 characters of an ISO-8601 timestamp, compared as a string.
func dayKey(publishedAt string) string {
	if publishedAt == "" {
		return missingDate
	}
	if len(publishedAt) > 10 {
		return publishedAt[:10]
	}
	return publishedAt
}
