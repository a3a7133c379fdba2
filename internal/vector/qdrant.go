package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hyperjump/hybridsearch/internal/models"
)

// QdrantClient implements VectorEngine against a Qdrant collection over its REST API.
type QdrantClient struct {
	client     *http.Client
	baseURL    string
	collection string
}

var _ VectorEngine = (*QdrantClient)(nil)

// NewQdrantClient returns a client for collection at baseURL. A nil httpClient uses a
// dedicated client; deadlines come from the caller's context.
func NewQdrantClient(baseURL, collection string, httpClient *http.Client) *QdrantClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &QdrantClient{
		client:     httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
	}
}

type qdrantSearchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type qdrantPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload struct {
		ID          json.RawMessage `json:"id"`
		Title       string          `json:"title"`
		URLOrPath   string          `json:"url_or_path"`
		SourceType  string          `json:"source_type"`
		PublishedAt string          `json:"published_at"`
	} `json:"payload"`
}

type qdrantSearchResponse struct {
	Result []qdrantPoint `json:"result"`
}

// Search returns the nearest points with their payloads. The document id is read
// from payload.id, falling back to the point id.
func (q *QdrantClient) Search(ctx context.Context, query []float32, limit int) ([]models.Candidate, error) {
	body, err := json.Marshal(qdrantSearchRequest{Vector: query, Limit: limit, WithPayload: true})
	if err != nil {
		return nil, fmt.Errorf("marshal qdrant request: %w", err)
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", q.baseURL, q.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: qdrant returned %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out qdrantSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode qdrant response: %v", ErrUnavailable, err)
	}
	candidates := make([]models.Candidate, 0, len(out.Result))
	for _, p := range out.Result {
		id := models.IDFromJSON(p.Payload.ID)
		if id == "" {
			id = models.IDFromJSON(p.ID)
		}
		candidates = append(candidates, models.Candidate{
			ID:          id,
			Title:       p.Payload.Title,
			URLOrPath:   p.Payload.URLOrPath,
			SourceType:  p.Payload.SourceType,
			PublishedAt: p.Payload.PublishedAt,
			RawScore:    p.Score,
		})
	}
	return candidates, nil
}

// Close releases idle connections.
func (q *QdrantClient) Close() error {
	q.client.CloseIdleConnections()
	return nil
}
