package models

import (
	"encoding/json"
	"time"
)

// Page is a CMS page. Body and section content are rich-text documents stored as raw JSON.
type Page struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Body        json.RawMessage `json:"body,omitempty"`
	Sections    []Section       `json:"sections,omitempty"`
	Published   bool            `json:"published"`
	UpdatedAt   time.Time       `json:"updated_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

// Section is a homepage or landing-page block
type Section struct {
	Key     string          `json:"key"`
	Heading string          `json:"heading,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
	Order   int             `json:"order"`
}

// RenderedPage is a page ready for display
type RenderedPage struct {
	Slug     string            `json:"slug"`
	Title    string            `json:"title"`
	HTML     string            `json:"html"`
	Sections []RenderedSection `json:"sections,omitempty"`
	Cached   bool              `json:"cached"`
}

// RenderedSection is a section with rendered content
type RenderedSection struct {
	Key     string `json:"key"`
	Heading string `json:"heading,omitempty"`
	HTML    string `json:"html"`
}
