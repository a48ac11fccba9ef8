package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/academy-engine/internal/models"
)

// Catalog handlers

type courseDetail struct {
	*models.Course
	Instructors     []*models.Instructor `json:"instructors"`
	DurationMinutes float64              `json:"duration_minutes"`
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses := s.catalog.ListCourses()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"courses": courses,
		"total":   len(courses),
	})
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	course, err := s.catalog.GetCourse(slug)
	if err != nil {
		respondServiceError(w, err, "get course", "slug", slug)
		return
	}

	var duration float64
	for _, l := range course.Lessons {
		duration += l.Duration()
	}

	respondJSON(w, http.StatusOK, courseDetail{
		Course:          course,
		Instructors:     s.catalog.CourseInstructors(course),
		DurationMinutes: duration,
	})
}

func (s *Server) handleListInstructors(w http.ResponseWriter, r *http.Request) {
	instructors := s.catalog.ListInstructors()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"instructors": instructors,
		"total":       len(instructors),
	})
}

func (s *Server) handleListTestimonials(w http.ResponseWriter, r *http.Request) {
	featured, _ := strconv.ParseBool(r.URL.Query().Get("featured"))

	testimonials := s.catalog.ListTestimonials(featured)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"testimonials": testimonials,
		"total":        len(testimonials),
	})
}
