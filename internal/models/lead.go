package models

import (
	"time"
)

// LeadStatus represents the forwarding state of a lead
type LeadStatus string

const (
	LeadPending   LeadStatus = "pending"
	LeadForwarded LeadStatus = "forwarded"
	LeadFailed    LeadStatus = "failed"
)

// IsTerminal returns true if the lead will not be forwarded again
func (s LeadStatus) IsTerminal() bool {
	return s == LeadForwarded || s == LeadFailed
}

// Lead is a submission of a lead-capture form
type Lead struct {
	ID          string            `json:"id"`
	Form        string            `json:"form"` // contact | newsletter | course-interest
	Email       string            `json:"email"`
	Name        string            `json:"name,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	CourseSlug  string            `json:"course_slug,omitempty"`
	Message     string            `json:"message,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	Status      LeadStatus        `json:"status"`
	Attempts    int               `json:"attempts"`
	LastError   string            `json:"last_error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	ForwardedAt *time.Time        `json:"forwarded_at,omitempty"`
}

// LeadRequest represents a form submission
type LeadRequest struct {
	Form       string            `json:"form"`
	Email      string            `json:"email"`
	Name       string            `json:"name,omitempty"`
	Phone      string            `json:"phone,omitempty"`
	CourseSlug string            `json:"course_slug,omitempty"`
	Message    string            `json:"message,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}
