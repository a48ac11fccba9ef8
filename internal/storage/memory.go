package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/terra-clan/academy-engine/internal/models"
)

// MemoryRepository implements Repository in process memory.
// Used for local development without PostgreSQL and in tests.
type MemoryRepository struct {
	mu          sync.RWMutex
	pages       map[string]*models.Page
	enrollments map[string]*models.Enrollment // by ID
	progress    map[string]map[string]*models.ProgressRecord
	leads       map[string]*models.Lead
	leaseUntil  map[string]time.Time // lead claims
	clients     map[string]*models.ApiClient
	now         func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		pages:       make(map[string]*models.Page),
		enrollments: make(map[string]*models.Enrollment),
		progress:    make(map[string]map[string]*models.ProgressRecord),
		leads:       make(map[string]*models.Lead),
		leaseUntil:  make(map[string]time.Time),
		clients:     make(map[string]*models.ApiClient),
		now:         time.Now,
	}
}

// AddClient registers an API client
func (m *MemoryRepository) AddClient(c *models.ApiClient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.clients[c.ApiKey] = &cp
}

func (m *MemoryRepository) GetPage(_ context.Context, slug string) (*models.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pages[slug]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryRepository) ListPublishedPages(_ context.Context) ([]*models.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pages []*models.Page
	for _, p := range m.pages {
		if p.Published {
			cp := *p
			pages = append(pages, &cp)
		}
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Slug < pages[j].Slug })
	return pages, nil
}

func (m *MemoryRepository) UpsertPage(_ context.Context, p *models.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.UpdatedAt = m.now()
	m.pages[p.Slug] = &cp
	return nil
}

func (m *MemoryRepository) CreateEnrollment(_ context.Context, e *models.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.enrollments {
		if existing.Token == e.Token {
			return fmt.Errorf("failed to create enrollment: duplicate token")
		}
		if existing.CourseSlug == e.CourseSlug && strings.EqualFold(existing.Email, e.Email) {
			return ErrDuplicateEnrollment
		}
	}
	cp := *e
	m.enrollments[e.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetEnrollmentByToken(_ context.Context, token string) (*models.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.enrollments {
		if e.Token == token {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) GetEnrollmentByEmail(_ context.Context, courseSlug, email string) (*models.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.enrollments {
		if e.CourseSlug == courseSlug && strings.EqualFold(e.Email, email) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) ListEnrollments(_ context.Context, courseSlug string, limit, offset int) ([]*models.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*models.Enrollment
	for _, e := range m.enrollments {
		if e.CourseSlug == courseSlug {
			cp := *e
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	if offset > 0 {
		if offset >= len(result) {
			return nil, nil
		}
		result = result[offset:]
	}
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// SetEnrollmentStatus changes the status of an enrollment
func (m *MemoryRepository) SetEnrollmentStatus(id string, status models.EnrollmentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.enrollments[id]; ok {
		e.Status = status
	}
}

func (m *MemoryRepository) ListProgress(_ context.Context, enrollmentID string) ([]*models.ProgressRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []*models.ProgressRecord
	for _, rec := range m.progress[enrollmentID] {
		cp := *rec
		records = append(records, &cp)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].LessonID < records[j].LessonID })
	return records, nil
}

func (m *MemoryRepository) RecordWatchTime(_ context.Context, enrollmentID, lessonID string, seconds float64) (*models.ProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.progressRecord(enrollmentID, lessonID)
	if seconds > rec.WatchTime {
		rec.WatchTime = seconds
	}
	rec.UpdatedAt = m.now()
	cp := *rec
	return &cp, nil
}

func (m *MemoryRepository) MarkLessonCompleted(_ context.Context, enrollmentID, lessonID string) (*models.ProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.progressRecord(enrollmentID, lessonID)
	now := m.now()
	rec.Completed = true
	rec.UpdatedAt = now
	if rec.CompletedAt == nil {
		rec.CompletedAt = &now
	}
	cp := *rec
	return &cp, nil
}

// progressRecord returns the stored record, creating it. Caller holds the lock.
func (m *MemoryRepository) progressRecord(enrollmentID, lessonID string) *models.ProgressRecord {
	byLesson, ok := m.progress[enrollmentID]
	if !ok {
		byLesson = make(map[string]*models.ProgressRecord)
		m.progress[enrollmentID] = byLesson
	}
	rec, ok := byLesson[lessonID]
	if !ok {
		rec = &models.ProgressRecord{EnrollmentID: enrollmentID, LessonID: lessonID}
		byLesson[lessonID] = rec
	}
	return rec
}

func (m *MemoryRepository) CreateLead(_ context.Context, l *models.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.leads[l.ID] = &cp
	return nil
}

func (m *MemoryRepository) ClaimLead(_ context.Context, id string, lease time.Duration) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.leads[id]
	if !ok || !m.claimable(l) {
		return nil, nil
	}
	m.leaseUntil[id] = m.now().Add(lease)
	cp := *l
	return &cp, nil
}

func (m *MemoryRepository) ClaimPendingLeads(_ context.Context, limit int, lease time.Duration) ([]*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var leads []*models.Lead
	for _, l := range m.leads {
		if m.claimable(l) {
			leads = append(leads, l)
		}
	}
	sort.Slice(leads, func(i, j int) bool { return leads[i].CreatedAt.Before(leads[j].CreatedAt) })
	if limit > 0 && limit < len(leads) {
		leads = leads[:limit]
	}

	until := m.now().Add(lease)
	claimed := make([]*models.Lead, 0, len(leads))
	for _, l := range leads {
		m.leaseUntil[l.ID] = until
		cp := *l
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (m *MemoryRepository) claimable(l *models.Lead) bool {
	if l.Status != models.LeadPending {
		return false
	}
	until, held := m.leaseUntil[l.ID]
	return !held || !m.now().Before(until)
}

// GetLead returns a stored lead
func (m *MemoryRepository) GetLead(id string) *models.Lead {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.leads[id]
	if !ok {
		return nil
	}
	cp := *l
	return &cp
}

func (m *MemoryRepository) MarkLeadForwarded(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.leads[id]
	if !ok {
		return fmt.Errorf("lead not found: %s", id)
	}
	delete(m.leaseUntil, id)
	now := m.now()
	l.Status = models.LeadForwarded
	l.Attempts++
	l.LastError = ""
	l.ForwardedAt = &now
	return nil
}

func (m *MemoryRepository) MarkLeadAttemptFailed(_ context.Context, id, lastError string, maxAttempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.leads[id]
	if !ok {
		return fmt.Errorf("lead not found: %s", id)
	}
	delete(m.leaseUntil, id)
	l.Attempts++
	l.LastError = lastError
	if l.Attempts >= maxAttempts {
		l.Status = models.LeadFailed
	}
	return nil
}

func (m *MemoryRepository) GetClientByApiKey(_ context.Context, apiKey string) (*models.ApiClient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[apiKey]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryRepository) UpdateClientLastUsed(_ context.Context, apiKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[apiKey]; ok {
		now := m.now()
		c.LastUsedAt = &now
	}
	return nil
}

func (m *MemoryRepository) Ping(context.Context) error { return nil }

func (m *MemoryRepository) Close() error { return nil }
