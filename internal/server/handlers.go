package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/hybridsearch/internal/models"
	"github.com/hyperjump/hybridsearch/internal/search"
)

const (
	maxRequestBody      = 1 << 20
	defaultRecentLimit  = 20
	maxRecentQueryLimit = 500
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", req.Query))
	response, err := s.service.Search(r.Context(), &req, clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, search.ErrEmptyQuery):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, search.ErrLexicalUnavailable):
			s.respondError(w, http.StatusServiceUnavailable, search.ErrLexicalUnavailable.Error())
		default:
			s.logger.Error("search failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "search failed")
		}
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleFacets returns empty facet counts; aggregation is not implemented.
func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]map[string]int{
		"source_type": {},
		"tags":        {},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	settings := s.service.Settings()
	resp := map[string]interface{}{
		"vector_enabled": s.service.VectorEnabled(),
		"settings": map[string]interface{}{
			"default_alpha": settings.DefaultAlpha,
			"default_limit": settings.DefaultLimit,
			"max_limit":     settings.MaxLimit,
		},
	}
	if s.queries != nil {
		count, err := s.queries.Count(r.Context())
		if err != nil {
			s.logger.Error("status: count queries failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["queries"] = count
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecentQueries(w http.ResponseWriter, r *http.Request) {
	if s.queries == nil {
		s.respondError(w, http.StatusNotImplemented, "query log not enabled")
		return
	}
	limit := defaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentQueryLimit)
	}
	records, err := s.queries.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("list recent queries failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*models.QueryRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"queries": records})
}

// clientIP returns the request address without the port. RealIP middleware has
// already applied X-Forwarded-For / X-Real-IP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
