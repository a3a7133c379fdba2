package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/highlight/highlighter/html"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/hybridsearch/internal/models"
)

// Field names in the embedded index. published_day holds the 10-char ISO date
// prefix so inclusive date-range filters compare whole days.
const (
	fieldTitle        = "title"
	fieldContent      = "content_text"
	fieldURLOrPath    = "url_or_path"
	fieldSourceType   = "source_type"
	fieldTags         = "tags"
	fieldPublishedAt  = "published_at"
	fieldPublishedDay = "published_day"
)

// BleveIndex implements LexicalEngine with an embedded Bleve index. It serves
// local development and tests with the same filter semantics as Meilisearch.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If the path already exists, the existing index is opened and reused.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func newIndexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	// Standard analyzer (lowercase + tokenize, no stemming) so exact words match.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldTitle, textFieldMapping)
	docMapping.AddFieldMappingsAt(fieldContent, textFieldMapping)

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt(fieldSourceType, keywordFieldMapping)
	docMapping.AddFieldMappingsAt(fieldTags, keywordFieldMapping)
	docMapping.AddFieldMappingsAt(fieldPublishedDay, keywordFieldMapping)

	storedOnly := bleve.NewTextFieldMapping()
	storedOnly.Index = false
	storedOnly.IncludeInAll = false
	docMapping.AddFieldMappingsAt(fieldURLOrPath, storedOnly)
	docMapping.AddFieldMappingsAt(fieldPublishedAt, storedOnly)

	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping
	return im
}

// Index adds or replaces doc.
func (b *BleveIndex) Index(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}
	data := map[string]interface{}{
		fieldTitle:       doc.Title,
		fieldContent:     doc.ContentText,
		fieldURLOrPath:   doc.URLOrPath,
		fieldSourceType:  doc.SourceType,
		fieldPublishedAt: doc.PublishedAt,
	}
	if len(doc.Tags) > 0 {
		data[fieldTags] = doc.Tags
	}
	if doc.PublishedAt != "" {
		data[fieldPublishedDay] = datePrefix(doc.PublishedAt)
	}
	return b.index.Index(doc.ID, data)
}

// Delete removes a document by id.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Search matches query against title and content, applies filters, and returns
// up to limit candidates with RawScore = 1/rank and an HTML-highlighted snippet.
func (b *BleveIndex) Search(ctx context.Context, query string, filters *models.Filters, limit int) ([]models.Candidate, error) {
	titleQuery := bleve.NewMatchQuery(query)
	titleQuery.SetField(fieldTitle)
	contentQuery := bleve.NewMatchQuery(query)
	contentQuery.SetField(fieldContent)
	var q blevequery.Query = bleve.NewDisjunctionQuery(titleQuery, contentQuery)
	if fq := buildBleveFilter(filters); fq != nil {
		q = bleve.NewConjunctionQuery(q, fq)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{fieldTitle, fieldURLOrPath, fieldSourceType, fieldPublishedAt, fieldTags}
	req.Highlight = bleve.NewHighlightWithStyle(html.Name)
	req.Highlight.AddField(fieldContent)

	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: bleve search failed: %v", ErrUnavailable, err)
	}
	out := make([]models.Candidate, len(results.Hits))
	for i, hit := range results.Hits {
		c := models.Candidate{
			ID:          hit.ID,
			Title:       stringField(hit.Fields, fieldTitle),
			URLOrPath:   stringField(hit.Fields, fieldURLOrPath),
			SourceType:  stringField(hit.Fields, fieldSourceType),
			PublishedAt: stringField(hit.Fields, fieldPublishedAt),
			Tags:        stringsField(hit.Fields, fieldTags),
			RawScore:    rankScore(i),
		}
		if frags := hit.Fragments[fieldContent]; len(frags) > 0 {
			c.Snippet = frags[0]
		}
		out[i] = c
	}
	return out, nil
}

// buildBleveFilter mirrors BuildMeiliFilter: source types OR-ed, tags AND-ed,
// inclusive day range. Returns nil when no filter is set.
func buildBleveFilter(f *models.Filters) blevequery.Query {
	if f.IsEmpty() {
		return nil
	}
	var must []blevequery.Query
	if len(f.SourceType) > 0 {
		anyOf := make([]blevequery.Query, len(f.SourceType))
		for i, t := range f.SourceType {
			tq := bleve.NewTermQuery(t)
			tq.SetField(fieldSourceType)
			anyOf[i] = tq
		}
		must = append(must, bleve.NewDisjunctionQuery(anyOf...))
	}
	for _, tag := range f.Tags {
		tq := bleve.NewTermQuery(tag)
		tq.SetField(fieldTags)
		must = append(must, tq)
	}
	if f.DateFrom != "" || f.DateTo != "" {
		inclusive := true
		rq := bleve.NewTermRangeInclusiveQuery(datePrefix(f.DateFrom), datePrefix(f.DateTo), &inclusive, &inclusive)
		rq.SetField(fieldPublishedDay)
		must = append(must, rq)
	}
	return bleve.NewConjunctionQuery(must...)
}

// DocCount returns the number of indexed documents.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

func datePrefix(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

// stringsField handles Bleve returning a single string for one-element arrays.
func stringsField(fields map[string]interface{}, name string) []string {
	switch v := fields[name].(type) {
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
