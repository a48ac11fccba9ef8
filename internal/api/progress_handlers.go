package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/academy-engine/internal/models"
)

// --- Enrollment and progress handlers (token auth) ---

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req models.EnrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "email is required")
		return
	}

	enrollment, created, err := s.learning.Enroll(r.Context(), slug, req)
	if err != nil {
		respondServiceError(w, err, "create enrollment", "course", slug)
		return
	}

	// The token is only handed out once
	if !created {
		respondError(w, http.StatusConflict, "already_enrolled", "this email is already enrolled in the course")
		return
	}

	respondJSON(w, http.StatusCreated, models.EnrollResponse{
		ID:          enrollment.ID,
		Token:       enrollment.Token,
		CourseSlug:  enrollment.CourseSlug,
		Status:      enrollment.Status,
		ProgressURL: s.progressURL(enrollment.Token),
		CreatedAt:   enrollment.CreatedAt,
	})
}

func (s *Server) progressURL(token string) string {
	return fmt.Sprintf("%s/api/v1/enrollments/%s/progress", s.config.PublicURL, token)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	progress, err := s.learning.CourseProgress(r.Context(), token)
	if err != nil {
		respondServiceError(w, err, "get progress")
		return
	}

	respondJSON(w, http.StatusOK, progress)
}

func (s *Server) handleRecordWatch(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	lessonID := chi.URLParam(r, "lessonId")

	var req models.WatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lp, err := s.learning.RecordWatchTime(r.Context(), token, lessonID, req.Seconds)
	if err != nil {
		respondServiceError(w, err, "record watch time", "lesson_id", lessonID)
		return
	}

	respondJSON(w, http.StatusOK, lp)
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	lessonID := chi.URLParam(r, "lessonId")

	lp, err := s.learning.CompleteLesson(r.Context(), token, lessonID)
	if err != nil {
		respondServiceError(w, err, "complete lesson", "lesson_id", lessonID)
		return
	}

	respondJSON(w, http.StatusOK, lp)
}
