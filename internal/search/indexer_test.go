package search

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/terra-clan/academy-engine/internal/catalog"
	"github.com/terra-clan/academy-engine/internal/models"
	"github.com/terra-clan/academy-engine/internal/storage"
)

func TestIndexerRebuildAndRefresh(t *testing.T) {
	ctx := context.Background()

	courses := catalog.NewLoader()
	for _, c := range testCourses() {
		c.Published = true
		courses.Add(c)
	}

	repo := storage.NewMemoryRepository()
	require.NoError(t, repo.UpsertPage(ctx, &models.Page{
		Slug:      "pricing",
		Title:     "Pricing",
		Published: true,
		Body:      json.RawMessage(`{"root":{"children":[{"type":"paragraph","children":[{"type":"text","text":"Scholarships available"}]}]}}`),
	}))
	require.NoError(t, repo.UpsertPage(ctx, &models.Page{Slug: "draft", Title: "Draft"}))

	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()

	indexer := NewIndexer(idx, courses, repo)
	count, err := indexer.Rebuild(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), count)

	results, err := idx.Search("scholarships", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "pricing", results[0].Slug)

	// Unpublishing removes the page
	require.NoError(t, repo.UpsertPage(ctx, &models.Page{Slug: "pricing", Title: "Pricing"}))
	require.NoError(t, indexer.RefreshPage(ctx, "pricing"))

	results, err = idx.Search("scholarships", 5)
	require.NoError(t, err)
	require.Empty(t, results)
}

type courseList []*models.Course

func (l courseList) ListCourses() []*models.Course { return l }

func TestRebuildDropsRemovedDocuments(t *testing.T) {
	ctx := context.Background()

	repo := storage.NewMemoryRepository()
	require.NoError(t, repo.UpsertPage(ctx, &models.Page{
		Slug:      "pricing",
		Title:     "Pricing",
		Published: true,
		Body:      json.RawMessage(`{"root":{"children":[{"type":"paragraph","children":[{"type":"text","text":"Scholarships available"}]}]}}`),
	}))

	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()

	courses := courseList(testCourses())
	count, err := NewIndexer(idx, courses, repo).Rebuild(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(len(courses)+1), count)

	// Changes made while no notification arrived
	require.NoError(t, repo.UpsertPage(ctx, &models.Page{Slug: "pricing", Title: "Pricing"}))
	remaining := courses[1:]

	count, err = NewIndexer(idx, remaining, repo).Rebuild(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(len(remaining)), count)

	results, err := idx.Search("scholarships", 5)
	require.NoError(t, err)
	require.Empty(t, results)

	results, err = idx.Search(courses[0].Title, 5)
	require.NoError(t, err)
	for _, r := range results {
		require.NotEqual(t, courses[0].Slug, r.Slug)
	}
}
