package search

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/hybridsearch/internal/config"
	"github.com/hyperjump/hybridsearch/internal/models"
)

// ErrEmptyQuery is returned when the trimmed query text is empty.
var ErrEmptyQuery = errors.New("query cannot be empty")

// Settings are the request defaults and bounds that can change at runtime.
type Settings struct {
	DefaultAlpha float64
	DefaultLimit int
	MaxLimit     int
}

// SettingsFromConfig extracts Settings from the search config section.
func SettingsFromConfig(cfg *config.SearchConfig) Settings {
	s := Settings{
		DefaultAlpha: cfg.DefaultAlphaOrDefault(),
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
	}
	if s.MaxLimit < 1 {
		s.MaxLimit = 50
	}
	if s.DefaultLimit < 1 {
		s.DefaultLimit = 10
	}
	return s
}

// RecordSink receives one QueryRecord per handled search.
type RecordSink interface {
	Record(ctx context.Context, rec *models.QueryRecord) error
}

// LogSink writes query records to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a sink that logs records at Info.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, rec *models.QueryRecord) error {
	s.logger.Info("search",
		zap.String("id", rec.ID),
		zap.String("request_id", middleware.GetReqID(ctx)),
		zap.String("q", rec.Query),
		zap.Any("filters", rec.Filters),
		zap.Float64("alpha", rec.Alpha),
		zap.Int("limit", rec.Limit),
		zap.Int64("took_ms", rec.TookMS),
		zap.Int64("meili_ms", rec.LexicalMS),
		zap.Int64("qdrant_ms", rec.VectorMS),
		zap.Int64("merge_ms", rec.MergeMS),
		zap.Strings("top3", rec.Top3),
		zap.Bool("vector_used", rec.VectorUsed),
		zap.String("ip", rec.RemoteAddr),
	)
	return nil
}

// Service answers search requests: it validates and clamps the request, fetches,
// merges, truncates and records.
type Service struct {
	engine   *Engine
	settings atomic.Pointer[Settings]
	sinks    []RecordSink
	logger   *zap.Logger
}

// NewService creates a service over engine.
func NewService(engine *Engine, cfg *config.SearchConfig, logger *zap.Logger, sinks ...RecordSink) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{engine: engine, sinks: sinks, logger: logger}
	s.UpdateSettings(cfg)
	return s
}

// UpdateSettings swaps the request defaults and bounds. Safe to call while
// searches are in flight.
func (s *Service) UpdateSettings(cfg *config.SearchConfig) {
	settings := SettingsFromConfig(cfg)
	s.settings.Store(&settings)
}

// Settings returns the current settings snapshot.
func (s *Service) Settings() Settings {
	return *s.settings.Load()
}

// Search runs one hybrid query. remoteAddr is only recorded.
func (s *Service) Search(ctx context.Context, req *models.SearchRequest, remoteAddr string) (*models.SearchResponse, error) {
	start := time.Now()
	query := req.TrimmedQuery()
	if query == "" {
		return nil, ErrEmptyQuery
	}
	settings := s.settings.Load()
	limit := ClampLimit(req.Limit, settings.DefaultLimit, settings.MaxLimit)
	alpha := ClampAlpha(req.Alpha, settings.DefaultAlpha)

	fetched, err := s.engine.Fetch(ctx, query, req.Filters)
	if err != nil {
		return nil, err
	}

	mergeStart := time.Now()
	merged := Merge(fetched.Lexical, fetched.Vector, alpha, query)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	hits := make([]models.SearchHit, len(merged))
	for i, r := range merged {
		hits[i] = models.SearchHit{
			ID:          r.ID,
			Title:       r.Title,
			URLOrPath:   r.URLOrPath,
			Snippet:     r.Snippet,
			Tags:        r.Tags,
			SourceType:  r.SourceType,
			PublishedAt: r.PublishedAt,
			Score:       r.HybridScore,
		}
	}
	mergeElapsed := time.Since(mergeStart)

	resp := &models.SearchResponse{
		Hits:       hits,
		TookMS:     time.Since(start).Milliseconds(),
		LexicalMS:  fetched.LexicalElapsed.Milliseconds(),
		VectorMS:   fetched.VectorElapsed.Milliseconds(),
		MergeMS:    mergeElapsed.Milliseconds(),
		VectorUsed: fetched.VectorUsed,
	}
	s.record(ctx, query, req.Filters, alpha, limit, resp, remoteAddr)
	return resp, nil
}

func (s *Service) record(ctx context.Context, query string, filters *models.Filters, alpha float64, limit int, resp *models.SearchResponse, remoteAddr string) {
	if len(s.sinks) == 0 {
		return
	}
	top := len(resp.Hits)
	if top > 3 {
		top = 3
	}
	top3 := make([]string, top)
	for i := 0; i < top; i++ {
		top3[i] = resp.Hits[i].ID
	}
	rec := &models.QueryRecord{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Query:      query,
		Filters:    filters,
		Alpha:      alpha,
		Limit:      limit,
		TookMS:     resp.TookMS,
		LexicalMS:  resp.LexicalMS,
		VectorMS:   resp.VectorMS,
		MergeMS:    resp.MergeMS,
		Top3:       top3,
		VectorUsed: resp.VectorUsed,
		RemoteAddr: remoteAddr,
	}
	for _, sink := range s.sinks {
		if err := sink.Record(ctx, rec); err != nil {
			s.logger.Warn("failed to record query", zap.String("id", rec.ID), zap.Error(err))
		}
	}
}

// ClampLimit returns requested, or def when absent or zero, clamped to [1, maxLimit].
func ClampLimit(requested *int, def, maxLimit int) int {
	limit := def
	if requested != nil && *requested != 0 {
		limit = *requested
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// ClampAlpha returns requested, or def when absent, clamped to [0, 1].
func ClampAlpha(requested *float64, def float64) float64 {
	alpha := def
	if requested != nil {
		alpha = *requested
	}
	if alpha < 0 {
		return 0
	}
	if alpha > 1 {
		return 1
	}
	return alpha
}

// VectorEnabled reports whether a vector engine is configured.
func (s *Service) VectorEnabled() bool {
	return s.engine.VectorEnabled()
}
