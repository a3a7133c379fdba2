package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/hybridsearch/internal/config"
	"github.com/hyperjump/hybridsearch/internal/embedding"
	"github.com/hyperjump/hybridsearch/internal/keyword"
	"github.com/hyperjump/hybridsearch/internal/models"
	"github.com/hyperjump/hybridsearch/internal/vector"
)

// ErrLexicalUnavailable means the lexical engine failed and no ranking can be produced.
var ErrLexicalUnavailable = errors.New("lexical backend unavailable")

const (
	defaultFetchLimit     = 50
	defaultBackendTimeout = 15 * time.Second
)

// Engine fetches candidates from the lexical and vector engines in parallel.
type Engine struct {
	lexical    keyword.LexicalEngine
	embedder   embedding.Embedder
	vector     vector.VectorEngine
	fetchLimit int
	timeout    time.Duration
	logger     *zap.Logger
}

// FetchResult holds the raw candidates of one query.
type FetchResult struct {
	Lexical        []models.Candidate
	Vector         []models.Candidate
	VectorUsed     bool
	LexicalElapsed time.Duration
	VectorElapsed  time.Duration
}

// fetchOutcome is the result of one backend call.
type fetchOutcome struct {
	candidates []models.Candidate
	err        error
	elapsed    time.Duration
}

// NewEngine creates an engine. embedder and vectorEngine may be nil, in which case
// ranking is lexical-only.
func NewEngine(
	lexical keyword.LexicalEngine,
	embedder embedding.Embedder,
	vectorEngine vector.VectorEngine,
	cfg *config.SearchConfig,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		lexical:    lexical,
		embedder:   embedder,
		vector:     vectorEngine,
		fetchLimit: defaultFetchLimit,
		timeout:    defaultBackendTimeout,
		logger:     logger,
	}
	if cfg != nil {
		if cfg.FetchLimit > 0 {
			e.fetchLimit = cfg.FetchLimit
		}
		if cfg.BackendTimeout > 0 {
			e.timeout = cfg.BackendTimeout
		}
	}
	return e
}

// VectorEnabled reports whether a vector engine is configured.
func (e *Engine) VectorEnabled() bool {
	return e.vector != nil && e.embedder != nil
}

// Fetch runs both retrievals concurrently. A lexical failure is returned as
// ErrLexicalUnavailable; a vector failure yields an empty vector list with
// VectorUsed=false.
func (e *Engine) Fetch(ctx context.Context, query string, filters *models.Filters) (*FetchResult, error) {
	var lexOut, vecOut fetchOutcome
	g, gctx := errgroup.WithContext(ctx)

	// A lexical error cancels gctx so the vector fetch stops early; vector
	// errors never fail the group.
	g.Go(func() error {
		lexOut = e.fetchLexical(gctx, query, filters)
		return lexOut.err
	})
	if e.VectorEnabled() {
		g.Go(func() error {
			vecOut = e.fetchVector(gctx, query)
			return nil
		})
	}
	_ = g.Wait()

	if lexOut.err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.Error("lexical search failed", zap.String("query", query), zap.Error(lexOut.err))
		return nil, fmt.Errorf("%w: %w", ErrLexicalUnavailable, lexOut.err)
	}

	result := &FetchResult{
		Lexical:        lexOut.candidates,
		LexicalElapsed: lexOut.elapsed,
		VectorElapsed:  vecOut.elapsed,
	}
	if !e.VectorEnabled() {
		return result, nil
	}
	if vecOut.err != nil {
		e.logger.Warn("vector search failed, using lexical-only ranking",
			zap.String("query", query), zap.Error(vecOut.err))
		return result, nil
	}
	result.Vector = vecOut.candidates
	result.VectorUsed = true
	return result, nil
}

func (e *Engine) fetchLexical(ctx context.Context, query string, filters *models.Filters) fetchOutcome {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	candidates, err := e.lexical.Search(ctx, query, filters, e.fetchLimit)
	return fetchOutcome{candidates: candidates, err: err, elapsed: time.Since(start)}
}

// fetchVector embeds the query and searches the vector engine under one timeout.
func (e *Engine) fetchVector(ctx context.Context, query string) fetchOutcome {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return fetchOutcome{err: fmt.Errorf("embed query: %w", err), elapsed: time.Since(start)}
	}
	candidates, err := e.vector.Search(ctx, vec, e.fetchLimit)
	return fetchOutcome{candidates: candidates, err: err, elapsed: time.Since(start)}
}

// Close releases the engine's backends.
func (e *Engine) Close() error {
	var errs []error
	if e.lexical != nil {
		errs = append(errs, e.lexical.Close())
	}
	if e.embedder != nil {
		errs = append(errs, e.embedder.Close())
	}
	if e.vector != nil {
		errs = append(errs, e.vector.Close())
	}
	return errors.Join(errs...)
}
