package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// --- Admin handlers (API key auth) ---

func (s *Server) handlePurgeCache(w http.ResponseWriter, r *http.Request) {
	client := ClientFromContext(r.Context())

	deleted, err := s.content.Cache().Purge(r.Context())
	if err != nil {
		respondServiceError(w, err, "purge cache")
		return
	}

	slog.Info("page cache purged by client", "client", client.Name, "keys_deleted", deleted)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "cache purged",
		"deleted": deleted,
	})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		respondError(w, http.StatusServiceUnavailable, "search_unavailable", "search is not enabled")
		return
	}

	count, err := s.indexer.Rebuild(r.Context())
	if err != nil {
		respondServiceError(w, err, "rebuild search index")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "search index rebuilt",
		"documents": count,
	})
}

func (s *Server) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	limit := queryInt(r, "limit", 50)
	if limit == 0 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)

	enrollments, err := s.learning.ListEnrollments(r.Context(), slug, limit, offset)
	if err != nil {
		respondServiceError(w, err, "list enrollments", "course", slug)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"enrollments": enrollments,
		"total":       len(enrollments),
		"limit":       limit,
		"offset":      offset,
	})
}

func (s *Server) handleDispatchLeads(w http.ResponseWriter, r *http.Request) {
	result, err := s.dispatcher.Dispatch(r.Context())
	if err != nil {
		respondServiceError(w, err, "dispatch leads")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
