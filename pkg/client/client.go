// Package client is a Go SDK for the academy-engine API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/terra-clan/academy-engine/internal/models"
	"github.com/terra-clan/academy-engine/internal/progress"
)

// Client is a Go SDK for academy-engine API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithAPIKey sets the back-office API key sent on admin calls
func WithAPIKey(apiKey string) Option {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// NewClient creates a new academy-engine client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is an error envelope returned by the server
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s - %s", e.Code, e.Message)
}

// IsCode reports whether err is an APIError with the given code
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// CourseDetail is a course with its instructors and total duration
type CourseDetail struct {
	models.Course
	Instructors     []*models.Instructor `json:"instructors"`
	DurationMinutes float64              `json:"duration_minutes"`
}

// CourseProgress is the progress of one enrollment
type CourseProgress struct {
	EnrollmentID string `json:"enrollment_id"`
	CourseSlug   string `json:"course_slug"`
	CourseTitle  string `json:"course_title"`
	progress.Summary
}

// LeadReceipt acknowledges a captured lead
type LeadReceipt struct {
	ID     string            `json:"id"`
	Status models.LeadStatus `json:"status"`
}

// SearchResult is one search hit
type SearchResult struct {
	Kind  string  `json:"kind"`
	Slug  string  `json:"slug"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// ListCourses retrieves the published catalog
func (c *Client) ListCourses(ctx context.Context) ([]*models.Course, error) {
	var data struct {
		Courses []*models.Course `json:"courses"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/courses", nil, &data); err != nil {
		return nil, err
	}
	return data.Courses, nil
}

// GetCourse retrieves a course by slug
func (c *Client) GetCourse(ctx context.Context, slug string) (*CourseDetail, error) {
	var data CourseDetail
	if err := c.call(ctx, http.MethodGet, "/api/v1/courses/"+url.PathEscape(slug), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPage retrieves a rendered CMS page
func (c *Client) GetPage(ctx context.Context, slug string) (*models.RenderedPage, error) {
	var data models.RenderedPage
	if err := c.call(ctx, http.MethodGet, "/api/v1/pages/"+url.PathEscape(slug), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Search queries courses and pages
func (c *Client) Search(ctx context.Context, query string, limit int) ([]*SearchResult, error) {
	params := url.Values{"q": {query}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var data struct {
		Results []*SearchResult `json:"results"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/search?"+params.Encode(), nil, &data); err != nil {
		return nil, err
	}
	return data.Results, nil
}

// Enroll registers an email for a course. The returned token is only issued once.
func (c *Client) Enroll(ctx context.Context, courseSlug string, req models.EnrollRequest) (*models.EnrollResponse, error) {
	var data models.EnrollResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/courses/"+url.PathEscape(courseSlug)+"/enroll", req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetProgress retrieves the course progress of an enrollment
func (c *Client) GetProgress(ctx context.Context, token string) (*CourseProgress, error) {
	var data CourseProgress
	if err := c.call(ctx, http.MethodGet, enrollmentPath(token, "/progress"), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// RecordWatchTime reports elapsed watch time of a lesson in seconds
func (c *Client) RecordWatchTime(ctx context.Context, token, lessonID string, seconds float64) (*progress.LessonProgress, error) {
	var data progress.LessonProgress
	path := enrollmentPath(token, "/lessons/"+url.PathEscape(lessonID)+"/watch")
	if err := c.call(ctx, http.MethodPost, path, models.WatchRequest{Seconds: seconds}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CompleteLesson marks a lesson completed
func (c *Client) CompleteLesson(ctx context.Context, token, lessonID string) (*progress.LessonProgress, error) {
	var data progress.LessonProgress
	path := enrollmentPath(token, "/lessons/"+url.PathEscape(lessonID)+"/complete")
	if err := c.call(ctx, http.MethodPost, path, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SubmitLead submits a lead-capture form
func (c *Client) SubmitLead(ctx context.Context, req models.LeadRequest) (*LeadReceipt, error) {
	var data LeadReceipt
	if err := c.call(ctx, http.MethodPost, "/api/v1/leads", req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// PurgeCache drops every rendered page. Requires an API key with content:write.
func (c *Client) PurgeCache(ctx context.Context) (int, error) {
	var data struct {
		Deleted int `json:"deleted"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/admin/cache/purge", nil, &data); err != nil {
		return 0, err
	}
	return data.Deleted, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}

func enrollmentPath(token, suffix string) string {
	return "/api/v1/enrollments/" + url.PathEscape(token) + suffix
}

// call performs a request and decodes the response envelope into out
func (c *Client) call(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, status, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		if status >= 400 {
			return fmt.Errorf("HTTP %d: %s", status, string(resp))
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		if result.Error == nil {
			return fmt.Errorf("HTTP %d: %s", status, string(resp))
		}
		result.Error.StatusCode = status
		return result.Error
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}
