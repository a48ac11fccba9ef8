package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/academy-engine/internal/models"
)

// Common errors
var (
	ErrCourseNotFound = errors.New("course not found")
	ErrLessonNotFound = errors.New("lesson not found")
)

const (
	coursesDir       = "courses"
	instructorsFile  = "instructors.yaml"
	testimonialsFile = "testimonials.yaml"
)

// Loader manages loading and caching of the course catalog.
//
// Directory layout:
//
//	<dir>/courses/*.yaml      one course with its lessons per file
//	<dir>/instructors.yaml    list of instructors
//	<dir>/testimonials.yaml   list of testimonials
type Loader struct {
	mu           sync.RWMutex
	courses      map[string]*models.Course
	instructors  map[string]*models.Instructor
	testimonials []*models.Testimonial
}

// NewLoader creates an empty catalog
func NewLoader() *Loader {
	return &Loader{
		courses:     make(map[string]*models.Course),
		instructors: make(map[string]*models.Instructor),
	}
}

// LoadFromDir loads courses, instructors and testimonials from a directory.
// Invalid course files are skipped with a warning.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading catalog from directory", "dir", dir)

	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("catalog directory unavailable: %w", err)
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, coursesDir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}

	loaded := 0
	for _, file := range files {
		if err := l.LoadCourseFile(file); err != nil {
			slog.Warn("failed to load course", "file", file, "error", err)
			continue
		}
		loaded++
	}
	slog.Info("courses loaded", "count", loaded, "total_files", len(files))

	if err := l.loadInstructors(filepath.Join(dir, instructorsFile)); err != nil {
		slog.Warn("failed to load instructors", "error", err)
	}
	if err := l.loadTestimonials(filepath.Join(dir, testimonialsFile)); err != nil {
		slog.Warn("failed to load testimonials", "error", err)
	}

	return nil
}

// LoadCourseFile loads a single course from a YAML file
func (l *Loader) LoadCourseFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	course, err := ParseCourse(data)
	if err != nil {
		return err
	}

	l.Add(course)
	slog.Info("course loaded", "slug", course.Slug, "lessons", len(course.Lessons))
	return nil
}

// ParseCourse decodes and validates a course YAML document
func ParseCourse(data []byte) (*models.Course, error) {
	var cf courseFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cf.Slug == "" {
		return nil, fmt.Errorf("course slug is required")
	}
	if cf.Title == "" {
		return nil, fmt.Errorf("course title is required")
	}

	published := true
	if cf.Published != nil {
		published = *cf.Published
	}

	course := &models.Course{
		Slug:          cf.Slug,
		Title:         cf.Title,
		Summary:       strings.TrimSpace(cf.Summary),
		Level:         cf.Level,
		Order:         cf.Order,
		PriceCents:    cf.PriceCents,
		Currency:      cf.Currency,
		InstructorIDs: cf.Instructors,
		Tags:          cf.Tags,
		Lessons:       make([]models.Lesson, 0, len(cf.Lessons)),
		Published:     published,
	}

	seen := make(map[string]bool, len(cf.Lessons))
	for i, lf := range cf.Lessons {
		if lf.ID == "" {
			return nil, fmt.Errorf("lesson %d: id is required", i+1)
		}
		if seen[lf.ID] {
			return nil, fmt.Errorf("lesson %d: duplicate id %q", i+1, lf.ID)
		}
		seen[lf.ID] = true

		lesson := models.Lesson{ID: lf.ID, Title: lf.Title, Slug: lf.Slug}
		if lf.Video != nil {
			lesson.Video = &models.Video{URL: lf.Video.URL, DurationMinutes: lf.Video.Duration}
		}
		course.Lessons = append(course.Lessons, lesson)
	}

	// Apply defaults
	if course.Currency == "" {
		course.Currency = "USD"
	}

	return course, nil
}

// Add programmatically adds or replaces a course
func (l *Loader) Add(course *models.Course) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.courses[course.Slug] = course
}

// AddInstructor programmatically adds or replaces an instructor
func (l *Loader) AddInstructor(in *models.Instructor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.instructors[in.ID] = in
}

// ListCourses returns published courses sorted by order, then slug
func (l *Loader) ListCourses() []*models.Course {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.Course, 0, len(l.courses))
	for _, c := range l.courses {
		if c.Published {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Slug < result[j].Slug
	})
	return result
}

// GetCourse returns a published course by slug
func (l *Loader) GetCourse(slug string) (*models.Course, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.courses[slug]
	if !ok || !c.Published {
		return nil, ErrCourseNotFound
	}
	return c, nil
}

// GetLesson returns a lesson of a published course
func (l *Loader) GetLesson(courseSlug, lessonID string) (*models.Lesson, error) {
	course, err := l.GetCourse(courseSlug)
	if err != nil {
		return nil, err
	}
	lesson := course.FindLesson(lessonID)
	if lesson == nil {
		return nil, ErrLessonNotFound
	}
	return lesson, nil
}

// ListInstructors returns all instructors sorted by name
func (l *Loader) ListInstructors() []*models.Instructor {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.Instructor, 0, len(l.instructors))
	for _, in := range l.instructors {
		result = append(result, in)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// GetInstructor returns an instructor by ID, or nil
func (l *Loader) GetInstructor(id string) *models.Instructor {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.instructors[id]
}

// CourseInstructors resolves the instructors of a course, skipping unknown IDs
func (l *Loader) CourseInstructors(course *models.Course) []*models.Instructor {
	var result []*models.Instructor
	for _, id := range course.InstructorIDs {
		if in := l.GetInstructor(id); in != nil {
			result = append(result, in)
		}
	}
	return result
}

// ListTestimonials returns testimonials in file order
func (l *Loader) ListTestimonials(featuredOnly bool) []*models.Testimonial {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.Testimonial, 0, len(l.testimonials))
	for _, t := range l.testimonials {
		if featuredOnly && !t.Featured {
			continue
		}
		result = append(result, t)
	}
	return result
}

// --- Catalog loading ---

func (l *Loader) loadInstructors(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", instructorsFile, err)
	}

	var instructors []*models.Instructor
	if err := yaml.Unmarshal(data, &instructors); err != nil {
		return fmt.Errorf("failed to parse %s: %w", instructorsFile, err)
	}

	for _, in := range instructors {
		if in.ID == "" || in.Name == "" {
			slog.Warn("skipping instructor without id or name", "id", in.ID)
			continue
		}
		l.AddInstructor(in)
	}

	slog.Info("instructors loaded", "count", len(instructors))
	return nil
}

func (l *Loader) loadTestimonials(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", testimonialsFile, err)
	}

	var testimonials []*models.Testimonial
	if err := yaml.Unmarshal(data, &testimonials); err != nil {
		return fmt.Errorf("failed to parse %s: %w", testimonialsFile, err)
	}

	l.mu.Lock()
	l.testimonials = testimonials
	l.mu.Unlock()

	slog.Info("testimonials loaded", "count", len(testimonials))
	return nil
}

// --- YAML file structs ---

// courseFile represents the YAML structure of a course file
type courseFile struct {
	Slug        string       `yaml:"slug"`
	Title       string       `yaml:"title"`
	Summary     string       `yaml:"summary"`
	Level       string       `yaml:"level"`
	Order       int          `yaml:"order"`
	PriceCents  int          `yaml:"price_cents"`
	Currency    string       `yaml:"currency"`
	Instructors []string     `yaml:"instructors"`
	Tags        []string     `yaml:"tags"`
	Published   *bool        `yaml:"published"`
	Lessons     []lessonFile `yaml:"lessons"`
}

type lessonFile struct {
	ID    string     `yaml:"id"`
	Title string     `yaml:"title"`
	Slug  string     `yaml:"slug"`
	Video *videoFile `yaml:"video"`
}

type videoFile struct {
	URL      string  `yaml:"url"`
	Duration float64 `yaml:"duration"` // minutes
}
