// Package search indexes courses and pages for full-text search.
package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/terra-clan/academy-engine/internal/models"
)

// Document kinds
const (
	KindCourse = "course"
	KindPage   = "page"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Index wraps a Bleve search index over courses and pages
type Index struct {
	index bleve.Index
}

// IndexedDocument represents a document in the search index
type IndexedDocument struct {
	Kind    string
	Slug    string
	Title   string
	Summary string
	Content string
	Tags    []string
}

// Result is one search hit
type Result struct {
	Kind      string              `json:"kind"`
	Slug      string              `json:"slug"`
	Title     string              `json:"title"`
	Score     float64             `json:"score"`
	Fragments map[string][]string `json:"fragments,omitempty"`
}

// Open opens or creates a Bleve index at path. An empty path creates an in-memory index.
func Open(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		return &Index{index: idx}, nil
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()

	englishFieldMapping := bleve.NewTextFieldMapping()
	englishFieldMapping.Analyzer = "en"

	// Identifiers are stored for results but kept out of free-text matching
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	keywordFieldMapping.IncludeInAll = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("Kind", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("Slug", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("Title", englishFieldMapping)
	docMapping.AddFieldMappingsAt("Summary", englishFieldMapping)
	docMapping.AddFieldMappingsAt("Content", englishFieldMapping)
	docMapping.AddFieldMappingsAt("Tags", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "en"
	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

// Close closes the index
func (i *Index) Close() error {
	return i.index.Close()
}

func docID(kind, slug string) string {
	return kind + ":" + slug
}

// PageText is the searchable content of one published page
type PageText struct {
	Slug  string
	Title string
	Text  string
}

func courseDocument(c *models.Course) *IndexedDocument {
	lessonTitles := make([]string, 0, len(c.Lessons))
	for _, l := range c.Lessons {
		lessonTitles = append(lessonTitles, l.Title)
	}
	return &IndexedDocument{
		Kind:    KindCourse,
		Slug:    c.Slug,
		Title:   c.Title,
		Summary: c.Summary,
		Content: strings.Join(lessonTitles, "\n"),
		Tags:    c.Tags,
	}
}

func pageDocument(p PageText) *IndexedDocument {
	return &IndexedDocument{
		Kind:    KindPage,
		Slug:    p.Slug,
		Title:   p.Title,
		Content: p.Text,
	}
}

// IndexCourses adds or updates course documents in one batch
func (i *Index) IndexCourses(courses []*models.Course) error {
	batch := i.index.NewBatch()
	for _, c := range courses {
		if err := batch.Index(docID(KindCourse, c.Slug), courseDocument(c)); err != nil {
			return fmt.Errorf("batch index %s: %w", c.Slug, err)
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Replace makes the index hold exactly the given courses and pages.
// Every other document is deleted in the same batch.
func (i *Index) Replace(courses []*models.Course, pages []PageText) error {
	existing, err := i.documentIDs()
	if err != nil {
		return err
	}

	batch := i.index.NewBatch()
	keep := make(map[string]bool, len(courses)+len(pages))
	for _, c := range courses {
		id := docID(KindCourse, c.Slug)
		if err := batch.Index(id, courseDocument(c)); err != nil {
			return fmt.Errorf("batch index %s: %w", id, err)
		}
		keep[id] = true
	}
	for _, p := range pages {
		id := docID(KindPage, p.Slug)
		if err := batch.Index(id, pageDocument(p)); err != nil {
			return fmt.Errorf("batch index %s: %w", id, err)
		}
		keep[id] = true
	}
	for _, id := range existing {
		if !keep[id] {
			batch.Delete(id)
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// documentIDs lists the IDs of every indexed document
func (i *Index) documentIDs() ([]string, error) {
	count, err := i.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	ids := make([]string, 0, len(results.Hits))
	for _, hit := range results.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// IndexPage adds or updates a page with its plain text content
func (i *Index) IndexPage(slug, title, text string) error {
	return i.index.Index(docID(KindPage, slug), pageDocument(PageText{Slug: slug, Title: title, Text: text}))
}

// DeletePage removes a page from the index
func (i *Index) DeletePage(slug string) error {
	return i.index.Delete(docID(KindPage, slug))
}

// Search runs a query string query. Limit is capped at MaxLimit.
func (i *Index) Search(queryStr string, limit int) ([]*Result, error) {
	queryStr = strings.TrimSpace(queryStr)
	if queryStr == "" {
		return []*Result{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	query := bleve.NewQueryStringQuery(queryStr)

	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Highlight.AddField("Content")
	req.Highlight.AddField("Summary")
	req.Fields = []string{"Kind", "Slug", "Title"}

	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out := make([]*Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		r := &Result{
			Score:     hit.Score,
			Fragments: hit.Fragments,
		}
		if kind, ok := hit.Fields["Kind"].(string); ok {
			r.Kind = kind
		}
		if slug, ok := hit.Fields["Slug"].(string); ok {
			r.Slug = slug
		}
		if title, ok := hit.Fields["Title"].(string); ok {
			r.Title = title
		}
		out = append(out, r)
	}

	return out, nil
}

// Count returns the number of documents in the index
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
