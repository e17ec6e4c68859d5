package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/cms-migrator/internal/entities"
	"github.com/mrlokans/cms-migrator/internal/webflow"
)

type fakeLister struct {
	collections []entities.SourceCollection
	items       map[string][]entities.SourceItem
	itemErr     error
	listErr     error
	fetched     []string
}

func (f *fakeLister) ListCollections(ctx context.Context) ([]entities.SourceCollection, error) {
	return f.collections, f.listErr
}

func (f *fakeLister) FetchAllItems(ctx context.Context, collectionID string) ([]entities.SourceItem, error) {
	f.fetched = append(f.fetched, collectionID)
	if f.itemErr != nil {
		return nil, f.itemErr
	}
	return f.items[collectionID], nil
}

func newFakeLister() *fakeLister {
	return &fakeLister{
		collections: []entities.SourceCollection{
			{ID: "col-team", DisplayName: "Team", Slug: "team"},
			{ID: "col-posts", DisplayName: "Blog Posts", Slug: "blog-posts"},
		},
		items: map[string][]entities.SourceItem{
			"col-team": {
				{ID: "1", IsArchived: true, FieldData: map[string]any{
					"name":  "Jo Lee",
					"score": float64(3),
					"bio":   `<p>See <a href="https://example.com">my site</a></p>`,
				}},
				{ID: "2", IsDraft: true, FieldData: map[string]any{
					"name":  "Sam Park",
					"score": "three",
				}},
			},
		},
	}
}

func TestCollectionsCommand_List(t *testing.T) {
	lister := newFakeLister()
	var out bytes.Buffer

	require.NoError(t, (&CollectionsCommand{}).Run(context.Background(), lister, &out, nil))

	assert.Contains(t, out.String(), "=== Collections (2) ===")
	assert.Contains(t, out.String(), "team  Team  (id col-team)")
	assert.Contains(t, out.String(), "blog-posts  Blog Posts  (id col-posts)")
	assert.Empty(t, lister.fetched)
}

func TestCollectionsCommand_Items(t *testing.T) {
	lister := newFakeLister()
	var out bytes.Buffer

	err := (&CollectionsCommand{Items: true}).Run(context.Background(), lister, &out, []string{"Team"})
	require.NoError(t, err)

	report := out.String()
	assert.Equal(t, []string{"col-team"}, lister.fetched)
	assert.Contains(t, report, "=== Collections (1) ===")
	assert.Contains(t, report, "items: 2 (1 archived, 1 drafts)")
	assert.Contains(t, report, "(mixed: number 1, text 1)")
	assert.Contains(t, report, "[in 1 of 2 items]")
	assert.Contains(t, report, "rich text that plain-text extraction will lose:")
	assert.Contains(t, report, "bio: 1 item(s), 1 link(s), 0 image(s)")
}

func TestCollectionsCommand_EmptyCollection(t *testing.T) {
	lister := newFakeLister()
	var out bytes.Buffer

	require.NoError(t, (&CollectionsCommand{Items: true}).Run(context.Background(), lister, &out, []string{"blog-posts"}))

	assert.Contains(t, out.String(), "items: 0 (0 archived, 0 drafts)")
	assert.NotContains(t, out.String(), "fields:")
}

func TestCollectionsCommand_ItemErrorContinues(t *testing.T) {
	lister := newFakeLister()
	lister.itemErr = errors.New("rate limited")
	var out bytes.Buffer

	require.NoError(t, (&CollectionsCommand{Items: true}).Run(context.Background(), lister, &out, nil))

	assert.Equal(t, []string{"col-team", "col-posts"}, lister.fetched)
	assert.Contains(t, out.String(), "[ERROR] failed to read items: rate limited")
}

func TestCollectionsCommand_Errors(t *testing.T) {
	t.Run("unknown collection", func(t *testing.T) {
		err := (&CollectionsCommand{}).Run(context.Background(), newFakeLister(), &bytes.Buffer{}, []string{"jobs"})
		assert.True(t, errors.Is(err, webflow.ErrNotFound))
	})

	t.Run("listing fails", func(t *testing.T) {
		lister := newFakeLister()
		lister.listErr = errors.New("unauthorized")
		err := (&CollectionsCommand{}).Run(context.Background(), lister, &bytes.Buffer{}, nil)
		assert.EqualError(t, err, "unauthorized")
	})
}

func TestFormatCounts(t *testing.T) {
	assert.Equal(t, "date 2, text 1", formatCounts(map[string]int{"text": 1, "date": 2}))
	assert.Equal(t, "", formatCounts(nil))
}
