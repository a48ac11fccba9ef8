// Package leads captures marketing form submissions and forwards them to the automation webhook.
package leads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/academy-engine/internal/models"
)

// ErrInvalidLead is wrapped by every validation failure
var ErrInvalidLead = errors.New("invalid lead")

// Known forms
const (
	FormContact        = "contact"
	FormNewsletter     = "newsletter"
	FormCourseInterest = "course-interest"
)

var knownForms = map[string]bool{
	FormContact:        true,
	FormNewsletter:     true,
	FormCourseInterest: true,
}

const maxMessageLength = 5000

// claimLease bounds how long a sender holds a lead before another may retry it.
// It must exceed the webhook timeout.
const claimLease = 5 * time.Minute

// Store is the persistence used for leads
type Store interface {
	CreateLead(ctx context.Context, l *models.Lead) error
	ClaimLead(ctx context.Context, id string, lease time.Duration) (*models.Lead, error)
	ClaimPendingLeads(ctx context.Context, limit int, lease time.Duration) ([]*models.Lead, error)
	MarkLeadForwarded(ctx context.Context, id string) error
	MarkLeadAttemptFailed(ctx context.Context, id, lastError string, maxAttempts int) error
}

// Service stores leads and forwards them
type Service struct {
	store       Store
	forwarder   Forwarder
	maxAttempts int
}

// NewService creates a lead service
func NewService(store Store, forwarder Forwarder, maxAttempts int) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Service{
		store:       store,
		forwarder:   forwarder,
		maxAttempts: maxAttempts,
	}
}

// Validate normalizes a request and checks required fields
func Validate(req *models.LeadRequest) error {
	req.Form = strings.ToLower(strings.TrimSpace(req.Form))
	if req.Form == "" {
		return fmt.Errorf("%w: form is required", ErrInvalidLead)
	}
	if !knownForms[req.Form] {
		return fmt.Errorf("%w: unknown form %q", ErrInvalidLead, req.Form)
	}

	email, ok := models.NormalizeEmail(req.Email)
	if !ok {
		return fmt.Errorf("%w: a valid email is required", ErrInvalidLead)
	}
	req.Email = email

	req.Name = strings.TrimSpace(req.Name)
	req.CourseSlug = strings.TrimSpace(req.CourseSlug)
	if req.Form == FormCourseInterest && req.CourseSlug == "" {
		return fmt.Errorf("%w: course_slug is required for %s", ErrInvalidLead, FormCourseInterest)
	}
	if len(req.Message) > maxMessageLength {
		return fmt.Errorf("%w: message exceeds %d characters", ErrInvalidLead, maxMessageLength)
	}
	return nil
}

// Submit validates and stores a lead, then tries to forward it right away.
// A failed forward leaves the lead pending for the dispatcher.
func (s *Service) Submit(ctx context.Context, req models.LeadRequest) (*models.Lead, error) {
	if err := Validate(&req); err != nil {
		return nil, err
	}

	lead := &models.Lead{
		ID:         uuid.New().String(),
		Form:       req.Form,
		Email:      req.Email,
		Name:       req.Name,
		Phone:      strings.TrimSpace(req.Phone),
		CourseSlug: req.CourseSlug,
		Message:    req.Message,
		Fields:     req.Fields,
		Status:     models.LeadPending,
		CreatedAt:  time.Now(),
	}

	if err := s.store.CreateLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to store lead: %w", err)
	}

	slog.Info("lead captured", "lead_id", lead.ID, "form", lead.Form)

	if s.forwarder != nil && s.forwarder.Enabled() {
		// The dispatcher skips leads claimed here
		claimed, err := s.store.ClaimLead(ctx, lead.ID, claimLease)
		if err != nil {
			slog.Error("failed to claim lead", "lead_id", lead.ID, "error", err)
		} else if claimed != nil {
			s.deliver(ctx, claimed)
			lead = claimed
		}
	}

	return lead, nil
}

// deliver forwards one lead and records the outcome on it
func (s *Service) deliver(ctx context.Context, lead *models.Lead) bool {
	err := s.forwarder.Forward(ctx, lead)
	if err == nil {
		if err := s.store.MarkLeadForwarded(ctx, lead.ID); err != nil {
			slog.Error("failed to mark lead forwarded", "lead_id", lead.ID, "error", err)
			return false
		}
		now := time.Now()
		lead.Status = models.LeadForwarded
		lead.Attempts++
		lead.LastError = ""
		lead.ForwardedAt = &now
		return true
	}

	slog.Warn("lead forward failed",
		"lead_id", lead.ID,
		"attempt", lead.Attempts+1,
		"error", err,
	)

	if err := s.store.MarkLeadAttemptFailed(ctx, lead.ID, err.Error(), s.maxAttempts); err != nil {
		slog.Error("failed to record lead attempt", "lead_id", lead.ID, "error", err)
		return false
	}
	lead.Attempts++
	lead.LastError = err.Error()
	if lead.Attempts >= s.maxAttempts {
		lead.Status = models.LeadFailed
		slog.Error("lead marked failed", "lead_id", lead.ID, "attempts", lead.Attempts)
	}
	return false
}
