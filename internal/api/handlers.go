package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/terra-clan/academy-engine/internal/catalog"
	"github.com/terra-clan/academy-engine/internal/content"
	"github.com/terra-clan/academy-engine/internal/leads"
	"github.com/terra-clan/academy-engine/internal/learning"
	"github.com/terra-clan/academy-engine/internal/services"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// errorStatus maps service errors to an HTTP status and error code
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, catalog.ErrCourseNotFound):
		return http.StatusNotFound, "course_not_found"
	case errors.Is(err, catalog.ErrLessonNotFound):
		return http.StatusNotFound, "lesson_not_found"
	case errors.Is(err, learning.ErrEnrollmentNotFound):
		return http.StatusNotFound, "enrollment_not_found"
	case errors.Is(err, content.ErrPageNotFound):
		return http.StatusNotFound, "page_not_found"
	case errors.Is(err, learning.ErrEnrollmentInactive):
		return http.StatusForbidden, "enrollment_inactive"
	case errors.Is(err, learning.ErrInvalidEmail),
		errors.Is(err, learning.ErrInvalidWatchTime),
		errors.Is(err, leads.ErrInvalidLead):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, leads.ErrWebhookDisabled):
		return http.StatusConflict, "webhook_disabled"
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondServiceError writes err, logging anything that is not a client error
func respondServiceError(w http.ResponseWriter, err error, action string, attrs ...any) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("failed to "+action, append([]any{"error", err}, attrs...)...)
		respondError(w, status, code, "failed to "+action)
		return
	}
	respondError(w, status, code, err.Error())
}

// decodeJSON decodes a request body, writing a 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// queryInt parses a non-negative integer query parameter
func queryInt(r *http.Request, key string, defaultValue int) int {
	if str := r.URL.Query().Get(key); str != "" {
		if v, err := strconv.Atoi(str); err == nil && v >= 0 {
			return v
		}
	}
	return defaultValue
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results := s.health.HealthCheckAll(r.Context())

	checks := make(map[string]string, len(results))
	for name, err := range results {
		if err != nil {
			slog.Warn("dependency not ready", "dependency", name, "error", err)
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	if !services.Healthy(results) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(apiResponse{
			Success: false,
			Data:    map[string]interface{}{"status": "not_ready", "checks": checks},
			Error:   &apiError{Code: "not_ready", Message: "service not ready"},
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": checks,
	})
}
