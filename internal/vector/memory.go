package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/hybridsearch/internal/models"
	"github.com/hyperjump/hybridsearch/pkg/utils"
)

// MemoryIndex is an in-memory vector index using brute-force cosine similarity.
// Stored and query vectors are L2-normalized, matching a Qdrant cosine collection.
// Suitable for tests and local development when no Qdrant instance is available.
type MemoryIndex struct {
	dimensions int
	payloads   []models.Candidate
	vectors    [][]float32
	positions  map[string]int
	mu         sync.RWMutex
}

var _ VectorEngine = (*MemoryIndex)(nil)

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		positions:  make(map[string]int),
	}, nil
}

// Add stores vectors with their descriptive payloads. An existing id is replaced.
// The batch is validated before anything is stored, so a bad entry leaves the
// index unchanged.
func (m *MemoryIndex) Add(ctx context.Context, payloads []models.Candidate, vectors [][]float32) error {
	if len(payloads) != len(vectors) {
		return fmt.Errorf("payloads and vectors length mismatch")
	}
	for i, p := range payloads {
		if p.ID == "" {
			return fmt.Errorf("payload %d has no id", i)
		}
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("payload %s: vector dimension mismatch: got %d, expected %d", p.ID, len(vectors[i]), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range payloads {
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		utils.NormalizeL2(vec)
		p.RawScore = 0
		if pos, ok := m.positions[p.ID]; ok {
			m.payloads[pos] = p
			m.vectors[pos] = vec
			continue
		}
		m.positions[p.ID] = len(m.payloads)
		m.payloads = append(m.payloads, p)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search returns the top-k payloads by cosine similarity.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]models.Candidate, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("%w: query dimension mismatch: got %d, expected %d", ErrUnavailable, len(query), m.dimensions)
	}
	q := make([]float32, len(query))
	copy(q, query)
	utils.NormalizeL2(q)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.payloads) == 0 {
		return nil, nil
	}
	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, len(m.payloads))
	for i, vec := range m.vectors {
		scores[i] = scored{pos: i, score: InnerProduct(q, vec)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	result := make([]models.Candidate, k)
	for i := 0; i < k; i++ {
		c := m.payloads[scores[i].pos]
		c.RawScore = scores[i].score
		result[i] = c
	}
	return result, nil
}

// Remove deletes vectors by id, rebuilding the backing slices.
func (m *MemoryIndex) Remove(ctx context.Context, ids []string) error {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	payloads := make([]models.Candidate, 0, len(m.payloads))
	vectors := make([][]float32, 0, len(m.vectors))
	positions := make(map[string]int, len(m.positions))
	for i, p := range m.payloads {
		if removeSet[p.ID] {
			continue
		}
		positions[p.ID] = len(payloads)
		payloads = append(payloads, p)
		vectors = append(vectors, m.vectors[i])
	}
	m.payloads, m.vectors, m.positions = payloads, vectors, positions
	return nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payloads)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
