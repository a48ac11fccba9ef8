package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/terra-clan/academy-engine/internal/cache"
	"github.com/terra-clan/academy-engine/internal/models"
	"github.com/terra-clan/academy-engine/internal/richtext"
)

// ErrPageNotFound is returned for missing or unpublished pages
var ErrPageNotFound = errors.New("page not found")

// PageStore is the subset of storage.Repository the content service reads
type PageStore interface {
	GetPage(ctx context.Context, slug string) (*models.Page, error)
	ListPublishedPages(ctx context.Context) ([]*models.Page, error)
}

// Service renders CMS pages to HTML and caches the result
type Service struct {
	pages PageStore
	cache cache.PageCache
}

// NewService creates a content service. A nil cache disables caching.
func NewService(pages PageStore, pc cache.PageCache) *Service {
	if pc == nil {
		pc = cache.Noop{}
	}
	return &Service{pages: pages, cache: pc}
}

// Cache returns the page cache used by the service
func (s *Service) Cache() cache.PageCache {
	return s.cache
}

// RenderPage returns the rendered page, from cache when possible
func (s *Service) RenderPage(ctx context.Context, slug string) (*models.RenderedPage, error) {
	cached, err := s.cache.Get(ctx, slug)
	if err != nil {
		slog.Warn("page cache unavailable", "slug", slug, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	page, err := s.pages.GetPage(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}
	if page == nil || !page.Published {
		return nil, ErrPageNotFound
	}

	rendered := Render(page)

	if err := s.cache.Set(ctx, rendered); err != nil {
		slog.Warn("failed to cache page", "slug", slug, "error", err)
	}

	return rendered, nil
}

// Render converts a page and its sections to HTML. A document that fails to parse renders empty.
func Render(page *models.Page) *models.RenderedPage {
	out := &models.RenderedPage{
		Slug:  page.Slug,
		Title: page.Title,
		HTML:  renderDocument(page.Slug, "body", page.Body),
	}

	sections := make([]models.Section, len(page.Sections))
	copy(sections, page.Sections)
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Order < sections[j].Order
	})

	for _, sec := range sections {
		out.Sections = append(out.Sections, models.RenderedSection{
			Key:     sec.Key,
			Heading: sec.Heading,
			HTML:    renderDocument(page.Slug, sec.Key, sec.Content),
		})
	}

	return out
}

// PlainText returns the searchable text of a page body and its sections
func PlainText(page *models.Page) string {
	var buf bytes.Buffer
	appendText := func(raw []byte) {
		doc, err := parse(raw)
		if err != nil {
			return
		}
		if text := richtext.PlainText(doc); text != "" {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(text)
		}
	}

	appendText(page.Body)
	for _, sec := range page.Sections {
		if sec.Heading != "" {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(sec.Heading)
		}
		appendText(sec.Content)
	}
	return buf.String()
}

// ListPublished returns the published pages
func (s *Service) ListPublished(ctx context.Context) ([]*models.Page, error) {
	pages, err := s.pages.ListPublishedPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}

func renderDocument(slug, part string, raw []byte) string {
	doc, err := parse(raw)
	if err != nil {
		slog.Warn("invalid rich-text document", "slug", slug, "part", part, "error", err)
		return ""
	}

	out, err := richtext.RenderHTML(doc)
	if err != nil {
		slog.Warn("failed to serialize rich-text document", "slug", slug, "part", part, "error", err)
		return ""
	}
	return out
}

func parse(raw []byte) (*richtext.Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return &richtext.Document{}, nil
	}
	return richtext.Parse(raw)
}
