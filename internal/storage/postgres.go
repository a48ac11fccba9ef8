package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/academy-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	poolConfig.MaxConns = 25
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	}
	poolConfig.MinConns = 2
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	}
	poolConfig.MaxConnLifetime = 30 * time.Minute
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the underlying pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Pages ---

const pageColumns = `id::text, slug, title, body, sections, published, updated_at, published_at`

// GetPage retrieves a page by slug regardless of publish state
func (r *PostgresRepository) GetPage(ctx context.Context, slug string) (*models.Page, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE slug = $1`, slug)

	p, err := scanPage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return p, nil
}

// ListPublishedPages returns all published pages ordered by slug
func (r *PostgresRepository) ListPublishedPages(ctx context.Context) ([]*models.Page, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+pageColumns+` FROM pages WHERE published ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []*models.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, p)
	}

	return pages, rows.Err()
}

// UpsertPage inserts or replaces a page keyed by slug
func (r *PostgresRepository) UpsertPage(ctx context.Context, p *models.Page) error {
	sections := p.Sections
	if sections == nil {
		sections = []models.Section{}
	}
	sectionsJSON, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("failed to marshal sections: %w", err)
	}

	query := `
		INSERT INTO pages (id, slug, title, body, sections, published, updated_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), $7)
		ON CONFLICT (slug) DO UPDATE
		SET title = EXCLUDED.title, body = EXCLUDED.body, sections = EXCLUDED.sections,
		    published = EXCLUDED.published, updated_at = NOW(), published_at = EXCLUDED.published_at
	`

	_, err = r.pool.Exec(ctx, query,
		p.ID,
		p.Slug,
		p.Title,
		nullJSON(p.Body),
		sectionsJSON,
		p.Published,
		nullTime(p.PublishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}

	return nil
}

func scanPage(row pgx.Row) (*models.Page, error) {
	var p models.Page
	var body, sectionsJSON []byte
	var publishedAt sql.NullTime

	err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.Title,
		&body,
		&sectionsJSON,
		&p.Published,
		&p.UpdatedAt,
		&publishedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(body) > 0 {
		p.Body = json.RawMessage(body)
	}
	if publishedAt.Valid {
		p.PublishedAt = &publishedAt.Time
	}
	if sectionsJSON != nil {
		if err := json.Unmarshal(sectionsJSON, &p.Sections); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sections: %w", err)
		}
	}

	return &p, nil
}

// --- Enrollments ---

const uniqueViolation = "23505"

const enrollmentColumns = `id::text, token, course_slug, email, name, status, created_at`

// CreateEnrollment creates a new enrollment record
func (r *PostgresRepository) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	query := `
		INSERT INTO enrollments (id, token, course_slug, email, name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.Token,
		e.CourseSlug,
		e.Email,
		nullString(e.Name),
		string(e.Status),
		e.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "enrollments_course_slug_email_key" {
			return ErrDuplicateEnrollment
		}
		return fmt.Errorf("failed to create enrollment: %w", err)
	}

	return nil
}

// GetEnrollmentByToken retrieves an enrollment by its access token
func (r *PostgresRepository) GetEnrollmentByToken(ctx context.Context, token string) (*models.Enrollment, error) {
	return r.getEnrollment(ctx, `token = $1`, token)
}

// GetEnrollmentByEmail retrieves the enrollment of an email in a course
func (r *PostgresRepository) GetEnrollmentByEmail(ctx context.Context, courseSlug, email string) (*models.Enrollment, error) {
	return r.getEnrollment(ctx, `course_slug = $1 AND lower(email) = lower($2)`, courseSlug, email)
}

func (r *PostgresRepository) getEnrollment(ctx context.Context, where string, args ...interface{}) (*models.Enrollment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE `+where, args...)

	e, err := scanEnrollment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return e, nil
}

// ListEnrollments returns enrollments of a course, newest first
func (r *PostgresRepository) ListEnrollments(ctx context.Context, courseSlug string, limit, offset int) ([]*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE course_slug = $1 ORDER BY created_at DESC`
	args := []interface{}{courseSlug}
	argNum := 2

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, limit)
		argNum++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []*models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}

	return enrollments, rows.Err()
}

func scanEnrollment(row pgx.Row) (*models.Enrollment, error) {
	var e models.Enrollment
	var name sql.NullString
	var status string

	if err := row.Scan(&e.ID, &e.Token, &e.CourseSlug, &e.Email, &name, &status, &e.CreatedAt); err != nil {
		return nil, err
	}

	e.Name = name.String
	e.Status = models.EnrollmentStatus(status)
	return &e, nil
}

// --- Lesson progress ---

const progressColumns = `enrollment_id::text, lesson_id, completed, watch_time, updated_at, completed_at`

// ListProgress returns all progress rows of an enrollment
func (r *PostgresRepository) ListProgress(ctx context.Context, enrollmentID string) ([]*models.ProgressRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+progressColumns+` FROM lesson_progress WHERE enrollment_id = $1`, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	var records []*models.ProgressRecord
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// RecordWatchTime stores elapsed watch time. Stored time never decreases.
func (r *PostgresRepository) RecordWatchTime(ctx context.Context, enrollmentID, lessonID string, seconds float64) (*models.ProgressRecord, error) {
	query := `
		INSERT INTO lesson_progress (enrollment_id, lesson_id, watch_time, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (enrollment_id, lesson_id) DO UPDATE
		SET watch_time = GREATEST(lesson_progress.watch_time, EXCLUDED.watch_time), updated_at = NOW()
		RETURNING ` + progressColumns

	rec, err := scanProgress(r.pool.QueryRow(ctx, query, enrollmentID, lessonID, seconds))
	if err != nil {
		return nil, fmt.Errorf("failed to record watch time: %w", err)
	}
	return rec, nil
}

// MarkLessonCompleted marks a lesson completed, keeping the first completion time
func (r *PostgresRepository) MarkLessonCompleted(ctx context.Context, enrollmentID, lessonID string) (*models.ProgressRecord, error) {
	query := `
		INSERT INTO lesson_progress (enrollment_id, lesson_id, completed, updated_at, completed_at)
		VALUES ($1, $2, TRUE, NOW(), NOW())
		ON CONFLICT (enrollment_id, lesson_id) DO UPDATE
		SET completed = TRUE, updated_at = NOW(),
		    completed_at = COALESCE(lesson_progress.completed_at, NOW())
		RETURNING ` + progressColumns

	rec, err := scanProgress(r.pool.QueryRow(ctx, query, enrollmentID, lessonID))
	if err != nil {
		return nil, fmt.Errorf("failed to mark lesson completed: %w", err)
	}
	return rec, nil
}

func scanProgress(row pgx.Row) (*models.ProgressRecord, error) {
	var rec models.ProgressRecord
	var completedAt sql.NullTime

	if err := row.Scan(&rec.EnrollmentID, &rec.LessonID, &rec.Completed, &rec.WatchTime, &rec.UpdatedAt, &completedAt); err != nil {
		return nil, err
	}

	if completedAt.Valid {
		rec.CompletedAt = &completedAt.Time
	}
	return &rec, nil
}

// --- Leads ---

// CreateLead stores a new lead
func (r *PostgresRepository) CreateLead(ctx context.Context, l *models.Lead) error {
	fields := l.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	query := `
		INSERT INTO leads (id, form, email, name, phone, course_slug, message, fields, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.pool.Exec(ctx, query,
		l.ID,
		l.Form,
		l.Email,
		nullString(l.Name),
		nullString(l.Phone),
		nullString(l.CourseSlug),
		nullString(l.Message),
		fieldsJSON,
		string(l.Status),
		l.Attempts,
		l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}

	return nil
}

const leadColumns = `id::text, form, email, name, phone, course_slug, message, fields, status, attempts, last_error, created_at, forwarded_at`

// ClaimLead leases one pending lead to the caller. Returns nil, nil when it is not pending or already claimed.
func (r *PostgresRepository) ClaimLead(ctx context.Context, id string, lease time.Duration) (*models.Lead, error) {
	query := `
		UPDATE leads SET claimed_until = NOW() + make_interval(secs => $2)
		WHERE id = $1
		  AND status = 'pending'
		  AND (claimed_until IS NULL OR claimed_until < NOW())
		RETURNING ` + leadColumns

	lead, err := scanLead(r.pool.QueryRow(ctx, query, id, lease.Seconds()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim lead: %w", err)
	}
	return lead, nil
}

// ClaimPendingLeads leases the oldest unclaimed pending leads. Concurrent callers get disjoint sets.
func (r *PostgresRepository) ClaimPendingLeads(ctx context.Context, limit int, lease time.Duration) ([]*models.Lead, error) {
	query := `
		UPDATE leads SET claimed_until = NOW() + make_interval(secs => $2)
		WHERE id IN (
			SELECT id FROM leads
			WHERE status = 'pending'
			  AND (claimed_until IS NULL OR claimed_until < NOW())
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + leadColumns

	rows, err := r.pool.Query(ctx, query, limit, lease.Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending leads: %w", err)
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(leads, func(i, j int) bool { return leads[i].CreatedAt.Before(leads[j].CreatedAt) })
	return leads, nil
}

func scanLead(row pgx.Row) (*models.Lead, error) {
	var l models.Lead
	var name, phone, courseSlug, message, lastError sql.NullString
	var status string
	var fieldsJSON []byte
	var forwardedAt sql.NullTime

	err := row.Scan(
		&l.ID,
		&l.Form,
		&l.Email,
		&name,
		&phone,
		&courseSlug,
		&message,
		&fieldsJSON,
		&status,
		&l.Attempts,
		&lastError,
		&l.CreatedAt,
		&forwardedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Name = name.String
	l.Phone = phone.String
	l.CourseSlug = courseSlug.String
	l.Message = message.String
	l.LastError = lastError.String
	l.Status = models.LeadStatus(status)
	if forwardedAt.Valid {
		l.ForwardedAt = &forwardedAt.Time
	}
	if fieldsJSON != nil {
		if err := json.Unmarshal(fieldsJSON, &l.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal lead fields: %w", err)
		}
	}
	return &l, nil
}

// MarkLeadForwarded marks a lead as delivered to the webhook
func (r *PostgresRepository) MarkLeadForwarded(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = 'forwarded', attempts = attempts + 1, last_error = NULL, forwarded_at = NOW(), claimed_until = NULL
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark lead forwarded: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("lead not found: %s", id)
	}
	return nil
}

// MarkLeadAttemptFailed records a failed delivery. The lead becomes failed after maxAttempts.
func (r *PostgresRepository) MarkLeadAttemptFailed(ctx context.Context, id, lastError string, maxAttempts int) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET attempts = attempts + 1,
		    last_error = $2,
		    status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE 'pending' END,
		    claimed_until = NULL
		WHERE id = $1
	`, id, lastError, maxAttempts)
	if err != nil {
		return fmt.Errorf("failed to record lead attempt: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("lead not found: %s", id)
	}
	return nil
}

// --- API clients ---

// GetClientByApiKey retrieves an API client by its key
func (r *PostgresRepository) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	query := `
		SELECT id, name, api_key, is_active, created_at, last_used_at, permissions
		FROM api_clients
		WHERE api_key = $1
	`

	var client models.ApiClient
	var lastUsedAt sql.NullTime
	var permissionsJSON []byte

	err := r.pool.QueryRow(ctx, query, apiKey).Scan(
		&client.ID,
		&client.Name,
		&client.ApiKey,
		&client.IsActive,
		&client.CreatedAt,
		&lastUsedAt,
		&permissionsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}

	if lastUsedAt.Valid {
		client.LastUsedAt = &lastUsedAt.Time
	}
	if permissionsJSON != nil {
		if err := json.Unmarshal(permissionsJSON, &client.Permissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
		}
	}

	return &client, nil
}

// UpdateClientLastUsed updates the last_used_at timestamp for a client
func (r *PostgresRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_clients SET last_used_at = NOW() WHERE api_key = $1`, apiKey)
	if err != nil {
		return fmt.Errorf("failed to update client last_used_at: %w", err)
	}
	return nil
}

// Helper functions for nullable values

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
