package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/academy-engine/internal/search"
)

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	page, err := s.content.RenderPage(r.Context(), slug)
	if err != nil {
		respondServiceError(w, err, "render page", "slug", slug)
		return
	}

	if page.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		respondError(w, http.StatusServiceUnavailable, "search_unavailable", "search is not enabled")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "q is required")
		return
	}

	results, err := s.indexer.Index().Search(query, queryInt(r, "limit", search.DefaultLimit))
	if err != nil {
		// Malformed query string syntax
		slog.Debug("search failed", "query", query, "error", err)
		respondError(w, http.StatusBadRequest, "invalid_query", "could not parse search query")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": results,
		"total":   len(results),
	})
}
