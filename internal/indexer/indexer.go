// Package indexer loads documents from a JSON Lines file into the embedded
// lexical and vector engines.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hyperjump/hybridsearch/internal/embedding"
	"github.com/hyperjump/hybridsearch/internal/models"
	"github.com/hyperjump/hybridsearch/pkg/utils"
)

const snippetLength = 200

// DocumentIndex is a lexical engine that accepts documents.
type DocumentIndex interface {
	Index(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, id string) error
}

// VectorIndex is a vector engine that accepts vectors with candidate payloads.
type VectorIndex interface {
	Add(ctx context.Context, payloads []models.Candidate, vectors [][]float32) error
	Remove(ctx context.Context, ids []string) error
}

// Stats reports the outcome of one load.
type Stats struct {
	Indexed int
	Removed int
}

// Indexer keeps the embedded engines in sync with a document file. Ids present in
// the previous load but missing from the current one are deleted.
type Indexer struct {
	documents DocumentIndex
	vectors   VectorIndex
	embedder  embedding.Embedder
	logger    *zap.Logger

	mu     sync.Mutex
	loaded map[string]struct{}
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for load events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer. documents or vectors may be nil when the
// corresponding engine is remote; vectors requires embedder.
func NewIndexer(documents DocumentIndex, vectors VectorIndex, embedder embedding.Embedder, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		documents: documents,
		vectors:   vectors,
		embedder:  embedder,
		logger:    zap.NewNop(),
		loaded:    make(map[string]struct{}),
	}
	if embedder == nil {
		idx.vectors = nil
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Enabled reports whether any engine can be loaded locally.
func (idx *Indexer) Enabled() bool {
	return idx.documents != nil || idx.vectors != nil
}

// ReadDocuments decodes a stream of JSON documents, one per line. Every document
// needs an id; a later duplicate replaces an earlier one.
func ReadDocuments(r io.Reader) ([]*models.Document, error) {
	dec := json.NewDecoder(r)
	var docs []*models.Document
	positions := make(map[string]int)
	for n := 1; ; n++ {
		var doc models.Document
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("document %d: %w", n, err)
		}
		doc.ID = strings.TrimSpace(doc.ID)
		if doc.ID == "" {
			return nil, fmt.Errorf("document %d: missing id", n)
		}
		if pos, ok := positions[doc.ID]; ok {
			docs[pos] = &doc
			continue
		}
		positions[doc.ID] = len(docs)
		docs = append(docs, &doc)
	}
	return docs, nil
}

// LoadFile reads path and loads its documents.
func (idx *Indexer) LoadFile(ctx context.Context, path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	docs, err := ReadDocuments(f)
	if err != nil {
		return Stats{}, fmt.Errorf("read %s: %w", path, err)
	}
	stats, err := idx.Load(ctx, docs)
	if err != nil {
		return stats, err
	}
	idx.logger.Info("documents loaded",
		zap.String("path", path),
		zap.Int("indexed", stats.Indexed),
		zap.Int("removed", stats.Removed),
	)
	return stats, nil
}

// Load indexes docs and removes previously loaded ids that are no longer present.
// Embeddings are computed first, so an embedder failure changes nothing.
func (idx *Indexer) Load(ctx context.Context, docs []*models.Document) (Stats, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var payloads []models.Candidate
	var vectors [][]float32
	if idx.vectors != nil {
		payloads = make([]models.Candidate, 0, len(docs))
		vectors = make([][]float32, 0, len(docs))
		for _, doc := range docs {
			vec, err := idx.embedder.Embed(ctx, embedText(doc))
			if err != nil {
				return Stats{}, fmt.Errorf("embed document %s: %w", doc.ID, err)
			}
			payloads = append(payloads, payload(doc))
			vectors = append(vectors, vec)
		}
	}

	current := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		current[doc.ID] = struct{}{}
	}
	var stale []string
	for id := range idx.loaded {
		if _, ok := current[id]; !ok {
			stale = append(stale, id)
		}
	}

	if idx.documents != nil {
		for _, doc := range docs {
			if err := idx.documents.Index(ctx, doc); err != nil {
				return Stats{}, fmt.Errorf("index document %s: %w", doc.ID, err)
			}
		}
		for _, id := range stale {
			if err := idx.documents.Delete(ctx, id); err != nil {
				return Stats{}, fmt.Errorf("delete document %s: %w", id, err)
			}
		}
	}
	if idx.vectors != nil {
		if err := idx.vectors.Add(ctx, payloads, vectors); err != nil {
			return Stats{}, fmt.Errorf("add vectors: %w", err)
		}
		if len(stale) > 0 {
			if err := idx.vectors.Remove(ctx, stale); err != nil {
				return Stats{}, fmt.Errorf("remove vectors: %w", err)
			}
		}
	}

	idx.loaded = current
	return Stats{Indexed: len(docs), Removed: len(stale)}, nil
}

func embedText(doc *models.Document) string {
	if doc.Title == "" {
		return doc.ContentText
	}
	return doc.Title + "\n" + doc.ContentText
}

func payload(doc *models.Document) models.Candidate {
	return models.Candidate{
		ID:          doc.ID,
		Title:       doc.Title,
		URLOrPath:   doc.URLOrPath,
		SourceType:  doc.SourceType,
		PublishedAt: doc.PublishedAt,
		Tags:        doc.Tags,
		Snippet:     utils.Truncate(doc.ContentText, snippetLength),
	}
}
