package keyword

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"github.com/hyperjump/hybridsearch/internal/models"
)

const (
	highlightPreTag  = "<em>"
	highlightPostTag = "</em>"
)

var meiliAttributes = []string{"id", "title", "url_or_path", "tags", "published_at", "source_type"}

// MeiliClient implements LexicalEngine against a Meilisearch index.
type MeiliClient struct {
	client *http.Client
	index  meilisearch.IndexManager
}

// NewMeiliClient returns a client for index at baseURL. A nil httpClient uses a
// dedicated client; request deadlines come from the caller's context. The SDK's
// retries are disabled so one search is one request.
func NewMeiliClient(baseURL, apiKey, index string, httpClient *http.Client) *MeiliClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	sm := meilisearch.New(strings.TrimRight(baseURL, "/"),
		meilisearch.WithAPIKey(apiKey),
		meilisearch.WithCustomClient(httpClient),
		meilisearch.DisableRetries(),
	)
	return &MeiliClient{client: httpClient, index: sm.Index(index)}
}

type meiliHit struct {
	ID          json.RawMessage `json:"id"`
	Title       string          `json:"title"`
	URLOrPath   string          `json:"url_or_path"`
	Tags        []string        `json:"tags"`
	PublishedAt string          `json:"published_at"`
	SourceType  string          `json:"source_type"`
	Formatted   *struct {
		ContentText string `json:"content_text"`
	} `json:"_formatted"`
}

// Search queries the index and returns hits with RawScore = 1/rank and the
// highlighted content excerpt as snippet.
func (m *MeiliClient) Search(ctx context.Context, query string, filters *models.Filters, limit int) ([]models.Candidate, error) {
	req := &meilisearch.SearchRequest{
		Limit:                 int64(limit),
		AttributesToRetrieve:  meiliAttributes,
		AttributesToHighlight: []string{"content_text"},
		HighlightPreTag:       highlightPreTag,
		HighlightPostTag:      highlightPostTag,
	}
	if filter := BuildMeiliFilter(filters); filter != "" {
		req.Filter = filter
	}
	resp, err := m.index.SearchWithContext(ctx, query, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Hits arrive as generic documents; re-decode them into the typed hit.
	raw, err := json.Marshal(resp.Hits)
	if err != nil {
		return nil, fmt.Errorf("%w: encode meili hits: %v", ErrUnavailable, err)
	}
	var hits []meiliHit
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, fmt.Errorf("%w: decode meili hits: %v", ErrUnavailable, err)
	}

	candidates := make([]models.Candidate, 0, len(hits))
	for i, h := range hits {
		c := models.Candidate{
			ID:          models.IDFromJSON(h.ID),
			Title:       h.Title,
			URLOrPath:   h.URLOrPath,
			SourceType:  h.SourceType,
			PublishedAt: h.PublishedAt,
			Tags:        h.Tags,
			RawScore:    rankScore(i),
		}
		if h.Formatted != nil {
			c.Snippet = h.Formatted.ContentText
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// Close releases idle connections.
func (m *MeiliClient) Close() error {
	m.client.CloseIdleConnections()
	return nil
}

// BuildMeiliFilter renders filters as a Meilisearch filter expression.
// Returns "" when no filter is set.
func BuildMeiliFilter(f *models.Filters) string {
	if f.IsEmpty() {
		return ""
	}
	var clauses []string
	if len(f.SourceType) > 0 {
		parts := make([]string, len(f.SourceType))
		for i, t := range f.SourceType {
			parts[i] = fmt.Sprintf("source_type = %s", quoteFilterValue(t))
		}
		clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
	}
	if len(f.Tags) > 0 {
		parts := make([]string, len(f.Tags))
		for i, t := range f.Tags {
			parts[i] = fmt.Sprintf("tags = %s", quoteFilterValue(t))
		}
		clauses = append(clauses, "("+strings.Join(parts, " AND ")+")")
	}
	if f.DateFrom != "" {
		clauses = append(clauses, "published_at >= "+quoteFilterValue(f.DateFrom))
	}
	if f.DateTo != "" {
		clauses = append(clauses, "published_at <= "+quoteFilterValue(f.DateTo))
	}
	return strings.Join(clauses, " AND ")
}

func quoteFilterValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return "'" + strings.ReplaceAll(v, "'", `\'`) + "'"
}
