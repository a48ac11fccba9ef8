package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "courses", "go-basics.yaml"), `
slug: go-basics
title: Go Basics
order: 2
instructors: [ana, ghost]
lessons:
  - id: "1"
    title: Hello
    video:
      url: https://video.example.com/1
      duration: 10
  - id: "2"
    title: Types
    video:
      duration: 20
  - id: "3"
    title: Reading
`)
	writeFile(t, filepath.Join(dir, "courses", "intro.yml"), `
slug: intro
title: Intro
order: 1
`)
	writeFile(t, filepath.Join(dir, "courses", "draft.yaml"), `
slug: draft
title: Draft
published: false
`)
	writeFile(t, filepath.Join(dir, "courses", "broken.yaml"), `
title: Missing slug
`)
	writeFile(t, filepath.Join(dir, "instructors.yaml"), `
- id: ana
  name: Ana Lima
  role: Lead instructor
- id: ""
  name: Nobody
`)
	writeFile(t, filepath.Join(dir, "testimonials.yaml"), `
- author: Sam
  quote: Great course
  featured: true
- author: Kim
  quote: Solid
`)

	loader := NewLoader()
	if err := loader.LoadFromDir(dir); err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}

	courses := loader.ListCourses()
	if len(courses) != 2 {
		t.Fatalf("expected 2 published courses, got %d", len(courses))
	}
	if courses[0].Slug != "intro" || courses[1].Slug != "go-basics" {
		t.Errorf("unexpected course order: %s, %s", courses[0].Slug, courses[1].Slug)
	}

	course, err := loader.GetCourse("go-basics")
	if err != nil {
		t.Fatalf("GetCourse failed: %v", err)
	}
	if len(course.Lessons) != 3 {
		t.Fatalf("expected 3 lessons, got %d", len(course.Lessons))
	}
	if course.Lessons[1].Duration() != 20 {
		t.Errorf("expected lesson 2 duration 20, got %v", course.Lessons[1].Duration())
	}
	if course.Lessons[2].Video != nil {
		t.Error("expected lesson 3 to have no video")
	}
	if course.Currency != "USD" {
		t.Errorf("expected default currency USD, got %s", course.Currency)
	}

	if _, err := loader.GetCourse("draft"); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("expected unpublished course to be hidden, got %v", err)
	}
	if _, err := loader.GetCourse("broken"); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("expected invalid course to be skipped, got %v", err)
	}

	if _, err := loader.GetLesson("go-basics", "2"); err != nil {
		t.Errorf("GetLesson failed: %v", err)
	}
	if _, err := loader.GetLesson("go-basics", "9"); !errors.Is(err, ErrLessonNotFound) {
		t.Errorf("expected ErrLessonNotFound, got %v", err)
	}

	instructors := loader.CourseInstructors(course)
	if len(instructors) != 1 || instructors[0].Name != "Ana Lima" {
		t.Errorf("unexpected course instructors: %+v", instructors)
	}
	if len(loader.ListInstructors()) != 1 {
		t.Errorf("expected instructor without id to be skipped")
	}

	if got := loader.ListTestimonials(false); len(got) != 2 {
		t.Errorf("expected 2 testimonials, got %d", len(got))
	}
	if got := loader.ListTestimonials(true); len(got) != 1 || got[0].Author != "Sam" {
		t.Errorf("unexpected featured testimonials: %+v", got)
	}
}

func TestParseCourseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing title", "slug: a\n"},
		{"lesson without id", "slug: a\ntitle: A\nlessons:\n  - title: x\n"},
		{"duplicate lesson id", "slug: a\ntitle: A\nlessons:\n  - id: x\n  - id: x\n"},
		{"invalid yaml", "slug: [a\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCourse([]byte(tt.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadShippedCatalog(t *testing.T) {
	catalogDir := filepath.Join("..", "..", "catalog")
	if _, err := os.Stat(catalogDir); os.IsNotExist(err) {
		t.Skip("catalog directory not found, skipping")
	}

	loader := NewLoader()
	if err := loader.LoadFromDir(catalogDir); err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}

	courses := loader.ListCourses()
	if len(courses) == 0 {
		t.Fatal("expected at least one course in shipped catalog")
	}
	for _, c := range courses {
		if len(c.Lessons) == 0 {
			t.Errorf("course %s has no lessons", c.Slug)
		}
		t.Logf("  %s: %d lessons, %d instructors", c.Slug, len(c.Lessons), len(loader.CourseInstructors(c)))
	}
}

func TestLoadFromMissingDir(t *testing.T) {
	if err := NewLoader().LoadFromDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}
