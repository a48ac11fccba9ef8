package models

import (
	"crypto/rand"
	"encoding/hex"
	"net/mail"
	"strings"
	"time"
)

// EnrollmentStatus represents the current state of an enrollment
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// Enrollment is a student's registration for a course.
// The token is the student's credential for progress endpoints and is only
// serialized through EnrollResponse.
type Enrollment struct {
	ID         string           `json:"id"`
	Token      string           `json:"-"`
	CourseSlug string           `json:"course_slug"`
	Email      string           `json:"email"`
	Name       string           `json:"name,omitempty"`
	Status     EnrollmentStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
}

// IsActive returns true if the enrollment can record progress
func (e *Enrollment) IsActive() bool {
	return e.Status == EnrollmentActive
}

// GenerateEnrollmentToken creates a cryptographically random 48-char hex token
func GenerateEnrollmentToken() (string, error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// ProgressRecord is the stored progress of one lesson for one enrollment
type ProgressRecord struct {
	EnrollmentID string     `json:"enrollment_id"`
	LessonID     string     `json:"lesson_id"`
	Completed    bool       `json:"completed"`
	WatchTime    float64    `json:"watch_time"` // seconds
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// EnrollRequest represents a request to register for a course
type EnrollRequest struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// EnrollResponse is returned after registering for a course
type EnrollResponse struct {
	ID          string           `json:"id"`
	Token       string           `json:"token"`
	CourseSlug  string           `json:"course_slug"`
	Status      EnrollmentStatus `json:"status"`
	ProgressURL string           `json:"progress_url"`
	CreatedAt   time.Time        `json:"created_at"`
}

// WatchRequest records elapsed watch time of a lesson
type WatchRequest struct {
	Seconds float64 `json:"seconds"`
}

// NormalizeEmail trims and lowercases an address, reporting whether it is well formed
func NormalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return email, false
	}
	return email, true
}
