package models

// Course represents a course offered by the academy
type Course struct {
	Slug          string   `yaml:"slug" json:"slug"`
	Title         string   `yaml:"title" json:"title"`
	Summary       string   `yaml:"summary" json:"summary"`
	Level         string   `yaml:"level" json:"level,omitempty"` // beginner | intermediate | advanced
	Order         int      `yaml:"order" json:"order"`
	PriceCents    int      `yaml:"price_cents" json:"price_cents"`
	Currency      string   `yaml:"currency" json:"currency,omitempty"`
	InstructorIDs []string `yaml:"instructors" json:"instructor_ids,omitempty"`
	Tags          []string `yaml:"tags" json:"tags,omitempty"`
	Lessons       []Lesson `yaml:"lessons" json:"lessons"`
	Published     bool     `yaml:"published" json:"published"`
}

// Lesson is a single lesson of a course
type Lesson struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Slug  string `yaml:"slug" json:"slug,omitempty"`
	Video *Video `yaml:"video" json:"video,omitempty"`
}

// Video describes the lesson video. Duration is in minutes as reported by the content store.
type Video struct {
	URL             string  `yaml:"url" json:"url,omitempty"`
	DurationMinutes float64 `yaml:"duration" json:"duration"`
}

// Duration returns the lesson video duration in minutes, 0 when unknown
func (l Lesson) Duration() float64 {
	if l.Video == nil {
		return 0
	}
	return l.Video.DurationMinutes
}

// FindLesson returns the lesson with the given ID, or nil
func (c *Course) FindLesson(id string) *Lesson {
	for i := range c.Lessons {
		if c.Lessons[i].ID == id {
			return &c.Lessons[i]
		}
	}
	return nil
}

// Instructor represents a course instructor
type Instructor struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Role     string `yaml:"role" json:"role,omitempty"`
	Bio      string `yaml:"bio" json:"bio,omitempty"`
	PhotoURL string `yaml:"photo_url" json:"photo_url,omitempty"`
}

// Testimonial is a student quote shown on marketing pages
type Testimonial struct {
	Author   string `yaml:"author" json:"author"`
	Role     string `yaml:"role" json:"role,omitempty"`
	Quote    string `yaml:"quote" json:"quote"`
	Course   string `yaml:"course" json:"course,omitempty"`
	Featured bool   `yaml:"featured" json:"featured"`
}
