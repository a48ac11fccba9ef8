package learning

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/terra-clan/academy-engine/internal/catalog"
	"github.com/terra-clan/academy-engine/internal/models"
	"github.com/terra-clan/academy-engine/internal/progress"
	"github.com/terra-clan/academy-engine/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.MemoryRepository) {
	t.Helper()

	courses := catalog.NewLoader()
	courses.Add(&models.Course{
		Slug:      "backend-go",
		Title:     "Backend Go",
		Published: true,
		Lessons: []models.Lesson{
			{ID: "bg-01", Title: "Intro", Video: &models.Video{DurationMinutes: 10}},
			{ID: "bg-02", Title: "HTTP", Video: &models.Video{DurationMinutes: 20}},
			{ID: "bg-03", Title: "Reading"},
			{ID: "bg-04", Title: "Wrap-up", Video: &models.Video{DurationMinutes: 5}},
		},
	})

	repo := storage.NewMemoryRepository()
	return NewService(repo, courses), repo
}

func enroll(t *testing.T, svc *Service) *models.Enrollment {
	t.Helper()
	e, created, err := svc.Enroll(context.Background(), "backend-go", models.EnrollRequest{Email: " Student@Example.com ", Name: "Student"})
	require.NoError(t, err)
	require.True(t, created)
	return e
}

func TestEnroll(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	e := enroll(t, svc)
	require.Equal(t, "student@example.com", e.Email)
	require.Equal(t, models.EnrollmentActive, e.Status)
	require.Len(t, e.Token, 48)

	again, created, err := svc.Enroll(ctx, "backend-go", models.EnrollRequest{Email: "student@example.com"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, e.ID, again.ID)

	_, _, err = svc.Enroll(ctx, "backend-go", models.EnrollRequest{Email: "nope"})
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, _, err = svc.Enroll(ctx, "unknown", models.EnrollRequest{Email: "a@example.com"})
	require.ErrorIs(t, err, catalog.ErrCourseNotFound)
}

func TestCourseProgress(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	e := enroll(t, svc)

	_, err := svc.CompleteLesson(ctx, e.Token, "bg-01")
	require.NoError(t, err)

	lp, err := svc.RecordWatchTime(ctx, e.Token, "bg-02", 300)
	require.NoError(t, err)
	require.Equal(t, progress.StatusInProgress, lp.Status)
	require.InDelta(t, 25.0, lp.Percent, 1e-9)

	// Overshoot of stale duration metadata is clamped for display
	lp, err = svc.RecordWatchTime(ctx, e.Token, "bg-04", 600)
	require.NoError(t, err)
	require.Equal(t, 100.0, lp.Percent)
	require.InDelta(t, 200.0, lp.RawPercent, 1e-9)

	cp, err := svc.CourseProgress(ctx, e.Token)
	require.NoError(t, err)
	require.Equal(t, "backend-go", cp.CourseSlug)
	require.Equal(t, 4, cp.LessonCount)
	require.Equal(t, 1, cp.CompletedCount)
	require.Equal(t, 2, cp.InProgressCount)
	require.InDelta(t, 25.0, cp.CompletionPercent, 1e-9)
	require.Equal(t, progress.StatusNotStarted, cp.Lessons[2].Status)
	require.Equal(t, []string{"bg-01", "bg-02", "bg-03", "bg-04"}, lessonIDs(cp.Lessons))
}

func TestRecordWatchTimeErrors(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	e := enroll(t, svc)

	_, err := svc.RecordWatchTime(ctx, e.Token, "bg-01", -1)
	require.ErrorIs(t, err, ErrInvalidWatchTime)

	_, err = svc.RecordWatchTime(ctx, e.Token, "bg-01", math.NaN())
	require.ErrorIs(t, err, ErrInvalidWatchTime)

	_, err = svc.RecordWatchTime(ctx, e.Token, "missing", 10)
	require.ErrorIs(t, err, ErrLessonNotFound)

	_, err = svc.RecordWatchTime(ctx, "bad-token", "bg-01", 10)
	require.ErrorIs(t, err, ErrEnrollmentNotFound)

	repo.SetEnrollmentStatus(e.ID, models.EnrollmentCancelled)
	_, err = svc.CompleteLesson(ctx, e.Token, "bg-01")
	require.ErrorIs(t, err, ErrEnrollmentInactive)

	// Cancelled enrollments still read their progress
	_, err = svc.CourseProgress(ctx, e.Token)
	require.NoError(t, err)
}

func TestListEnrollments(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	enroll(t, svc)

	list, err := svc.ListEnrollments(ctx, "backend-go", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.ListEnrollments(ctx, "unknown", 10, 0)
	require.ErrorIs(t, err, catalog.ErrCourseNotFound)
}

func lessonIDs(lessons []progress.LessonProgress) []string {
	ids := make([]string, len(lessons))
	for i, lp := range lessons {
		ids[i] = lp.LessonID
	}
	return ids
}

// staleLookupStore misses the first email lookup, as when another request
// enrolls the same email between the check and the insert
type staleLookupStore struct {
	*storage.MemoryRepository
	missed bool
}

func (s *staleLookupStore) GetEnrollmentByEmail(ctx context.Context, courseSlug, email string) (*models.Enrollment, error) {
	if !s.missed {
		s.missed = true
		return nil, nil
	}
	return s.MemoryRepository.GetEnrollmentByEmail(ctx, courseSlug, email)
}

func TestEnrollConcurrentDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	first := enroll(t, svc)

	racing := NewService(&staleLookupStore{MemoryRepository: repo}, svc.courses)
	again, created, err := racing.Enroll(ctx, "backend-go", models.EnrollRequest{Email: "student@example.com"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, again.ID)
}
