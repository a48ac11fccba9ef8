package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terra-clan/academy-engine/internal/content"
	"github.com/terra-clan/academy-engine/internal/models"
)

// CourseLister lists the published catalog
type CourseLister interface {
	ListCourses() []*models.Course
}

// Indexer keeps the index in sync with the catalog and CMS pages
type Indexer struct {
	index   *Index
	courses CourseLister
	pages   content.PageStore
}

// NewIndexer creates an indexer
func NewIndexer(index *Index, courses CourseLister, pages content.PageStore) *Indexer {
	return &Indexer{index: index, courses: courses, pages: pages}
}

// Index returns the underlying index
func (x *Indexer) Index() *Index {
	return x.index
}

// Rebuild makes the index match the catalog and the published pages, dropping
// anything removed since the last sync, and returns the document count
func (x *Indexer) Rebuild(ctx context.Context) (uint64, error) {
	courses := x.courses.ListCourses()

	pages, err := x.pages.ListPublishedPages(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pages: %w", err)
	}
	texts := make([]PageText, 0, len(pages))
	for _, p := range pages {
		texts = append(texts, PageText{Slug: p.Slug, Title: p.Title, Text: content.PlainText(p)})
	}

	if err := x.index.Replace(courses, texts); err != nil {
		return 0, fmt.Errorf("failed to replace index documents: %w", err)
	}

	count, err := x.index.Count()
	if err != nil {
		return 0, err
	}

	slog.Info("search index rebuilt", "courses", len(courses), "pages", len(pages), "documents", count)
	return count, nil
}

// RefreshPage reindexes one page, removing it when unpublished. An empty slug rebuilds everything.
func (x *Indexer) RefreshPage(ctx context.Context, slug string) error {
	if slug == "" {
		_, err := x.Rebuild(ctx)
		return err
	}

	page, err := x.pages.GetPage(ctx, slug)
	if err != nil {
		return fmt.Errorf("failed to load page: %w", err)
	}
	if page == nil || !page.Published {
		return x.index.DeletePage(slug)
	}
	return x.index.IndexPage(page.Slug, page.Title, content.PlainText(page))
}
