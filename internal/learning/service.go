// Package learning manages enrollments and the progress students record while watching lessons.
package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/academy-engine/internal/catalog"
	"github.com/terra-clan/academy-engine/internal/models"
	"github.com/terra-clan/academy-engine/internal/progress"
	"github.com/terra-clan/academy-engine/internal/storage"
)

var (
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrEnrollmentInactive = errors.New("enrollment is not active")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidWatchTime   = errors.New("watch time must be a non-negative number of seconds")
	ErrLessonNotFound     = catalog.ErrLessonNotFound
)

// Store is the persistence used by the learning service
type Store interface {
	CreateEnrollment(ctx context.Context, e *models.Enrollment) error
	GetEnrollmentByToken(ctx context.Context, token string) (*models.Enrollment, error)
	GetEnrollmentByEmail(ctx context.Context, courseSlug, email string) (*models.Enrollment, error)
	ListEnrollments(ctx context.Context, courseSlug string, limit, offset int) ([]*models.Enrollment, error)
	ListProgress(ctx context.Context, enrollmentID string) ([]*models.ProgressRecord, error)
	RecordWatchTime(ctx context.Context, enrollmentID, lessonID string, seconds float64) (*models.ProgressRecord, error)
	MarkLessonCompleted(ctx context.Context, enrollmentID, lessonID string) (*models.ProgressRecord, error)
}

// Courses resolves published courses
type Courses interface {
	GetCourse(slug string) (*models.Course, error)
}

// CourseProgress is the progress of one enrollment through its course
type CourseProgress struct {
	EnrollmentID string `json:"enrollment_id"`
	CourseSlug   string `json:"course_slug"`
	CourseTitle  string `json:"course_title"`
	progress.Summary
}

// Service implements enrollment and progress operations
type Service struct {
	store   Store
	courses Courses
	now     func() time.Time
}

// NewService creates a learning service
func NewService(store Store, courses Courses) *Service {
	return &Service{
		store:   store,
		courses: courses,
		now:     time.Now,
	}
}

// Enroll registers an email for a course. Enrolling twice returns the existing enrollment.
func (s *Service) Enroll(ctx context.Context, courseSlug string, req models.EnrollRequest) (*models.Enrollment, bool, error) {
	course, err := s.courses.GetCourse(courseSlug)
	if err != nil {
		return nil, false, err
	}

	email, ok := models.NormalizeEmail(req.Email)
	if !ok {
		return nil, false, ErrInvalidEmail
	}

	existing, err := s.store.GetEnrollmentByEmail(ctx, course.Slug, email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	token, err := models.GenerateEnrollmentToken()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate token: %w", err)
	}

	enrollment := &models.Enrollment{
		ID:         uuid.New().String(),
		Token:      token,
		CourseSlug: course.Slug,
		Email:      email,
		Name:       req.Name,
		Status:     models.EnrollmentActive,
		CreatedAt:  s.now(),
	}

	if err := s.store.CreateEnrollment(ctx, enrollment); err != nil {
		if !errors.Is(err, storage.ErrDuplicateEnrollment) {
			return nil, false, fmt.Errorf("failed to create enrollment: %w", err)
		}
		// A concurrent request enrolled the same email first
		existing, err := s.store.GetEnrollmentByEmail(ctx, course.Slug, email)
		if err != nil {
			return nil, false, fmt.Errorf("failed to check enrollment: %w", err)
		}
		if existing == nil {
			return nil, false, fmt.Errorf("failed to create enrollment: %w", storage.ErrDuplicateEnrollment)
		}
		return existing, false, nil
	}

	slog.Info("enrollment created",
		"enrollment_id", enrollment.ID,
		"course", course.Slug,
	)

	return enrollment, true, nil
}

// Enrollment resolves an access token
func (s *Service) Enrollment(ctx context.Context, token string) (*models.Enrollment, error) {
	if token == "" {
		return nil, ErrEnrollmentNotFound
	}
	e, err := s.store.GetEnrollmentByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	if e == nil {
		return nil, ErrEnrollmentNotFound
	}
	return e, nil
}

// CourseProgress aggregates the stored progress of an enrollment
func (s *Service) CourseProgress(ctx context.Context, token string) (*CourseProgress, error) {
	e, err := s.Enrollment(ctx, token)
	if err != nil {
		return nil, err
	}

	course, err := s.courses.GetCourse(e.CourseSlug)
	if err != nil {
		return nil, err
	}

	records, err := s.store.ListProgress(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}

	summary := progress.Summarize(course.Lessons, progress.NewLookup(records))
	for _, lp := range summary.Overshoots() {
		slog.Warn("watch time exceeds lesson duration",
			"course", course.Slug,
			"lesson_id", lp.LessonID,
			"raw_percent", lp.RawPercent,
		)
	}

	return &CourseProgress{
		EnrollmentID: e.ID,
		CourseSlug:   course.Slug,
		CourseTitle:  course.Title,
		Summary:      summary,
	}, nil
}

// RecordWatchTime stores the elapsed watch time of a lesson
func (s *Service) RecordWatchTime(ctx context.Context, token, lessonID string, seconds float64) (*progress.LessonProgress, error) {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return nil, ErrInvalidWatchTime
	}

	e, lesson, err := s.resolveLesson(ctx, token, lessonID)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.RecordWatchTime(ctx, e.ID, lesson.ID, seconds)
	if err != nil {
		return nil, fmt.Errorf("failed to record watch time: %w", err)
	}

	return lessonProgress(lesson, rec), nil
}

// CompleteLesson marks a lesson as completed
func (s *Service) CompleteLesson(ctx context.Context, token, lessonID string) (*progress.LessonProgress, error) {
	e, lesson, err := s.resolveLesson(ctx, token, lessonID)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.MarkLessonCompleted(ctx, e.ID, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to complete lesson: %w", err)
	}

	slog.Info("lesson completed",
		"enrollment_id", e.ID,
		"course", e.CourseSlug,
		"lesson_id", lesson.ID,
	)

	return lessonProgress(lesson, rec), nil
}

// ListEnrollments returns the enrollments of a course
func (s *Service) ListEnrollments(ctx context.Context, courseSlug string, limit, offset int) ([]*models.Enrollment, error) {
	if _, err := s.courses.GetCourse(courseSlug); err != nil {
		return nil, err
	}
	enrollments, err := s.store.ListEnrollments(ctx, courseSlug, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, nil
}

func (s *Service) resolveLesson(ctx context.Context, token, lessonID string) (*models.Enrollment, *models.Lesson, error) {
	e, err := s.Enrollment(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if !e.IsActive() {
		return nil, nil, ErrEnrollmentInactive
	}

	course, err := s.courses.GetCourse(e.CourseSlug)
	if err != nil {
		return nil, nil, err
	}

	lesson := course.FindLesson(lessonID)
	if lesson == nil {
		return nil, nil, ErrLessonNotFound
	}
	return e, lesson, nil
}

func lessonProgress(lesson *models.Lesson, rec *models.ProgressRecord) *progress.LessonProgress {
	summary := progress.Summarize([]models.Lesson{*lesson}, progress.NewLookup([]*models.ProgressRecord{rec}))
	return &summary.Lessons[0]
}
