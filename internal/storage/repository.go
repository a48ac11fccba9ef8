package storage

import (
	"context"
	"errors"
	"time"

	"github.com/terra-clan/academy-engine/internal/models"
)

// ErrDuplicateEnrollment is returned when the email is already enrolled in the course
var ErrDuplicateEnrollment = errors.New("enrollment already exists")

// Repository defines the interface for academy persistence.
// Getters return nil, nil when the record does not exist.
type Repository interface {
	// Pages
	GetPage(ctx context.Context, slug string) (*models.Page, error)
	ListPublishedPages(ctx context.Context) ([]*models.Page, error)
	UpsertPage(ctx context.Context, p *models.Page) error

	// Enrollments
	CreateEnrollment(ctx context.Context, e *models.Enrollment) error
	GetEnrollmentByToken(ctx context.Context, token string) (*models.Enrollment, error)
	GetEnrollmentByEmail(ctx context.Context, courseSlug, email string) (*models.Enrollment, error)
	ListEnrollments(ctx context.Context, courseSlug string, limit, offset int) ([]*models.Enrollment, error)

	// Lesson progress
	ListProgress(ctx context.Context, enrollmentID string) ([]*models.ProgressRecord, error)
	RecordWatchTime(ctx context.Context, enrollmentID, lessonID string, seconds float64) (*models.ProgressRecord, error)
	MarkLessonCompleted(ctx context.Context, enrollmentID, lessonID string) (*models.ProgressRecord, error)

	// Leads
	CreateLead(ctx context.Context, l *models.Lead) error
	// Claims hold a pending lead for one sender until the lease expires or an outcome is recorded
	ClaimLead(ctx context.Context, id string, lease time.Duration) (*models.Lead, error)
	ClaimPendingLeads(ctx context.Context, limit int, lease time.Duration) ([]*models.Lead, error)
	MarkLeadForwarded(ctx context.Context, id string) error
	MarkLeadAttemptFailed(ctx context.Context, id, lastError string, maxAttempts int) error

	// API Clients
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
