package workspace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legisdraft/api/internal/legislation"
)

var items = []legislation.CatalogItem{
	{Title: "The Bees Regulations 2026", Href: "https://example.test/ukdsi/2026/1/contents", Type: "ukdsi", Year: 2026},
	{Title: "The Water Order 2026", Href: "https://example.test/sdsi/2026/2/contents", Type: "sdsi", Year: 2026},
}

func TestReduceCatalogAndFilters(t *testing.T) {
	s, effects := Reduce(State{}, CatalogRequested{})
	require.Equal(t, []Effect{LoadCatalog{}}, effects)
	assert.True(t, s.CatalogLoading)

	// a second request while loading is ignored
	_, effects = Reduce(s, CatalogRequested{})
	assert.Empty(t, effects)

	s, _ = Reduce(s, SearchChanged{Term: "bees"})
	s, effects = Reduce(s, CatalogLoaded{Items: items})
	assert.Empty(t, effects)
	assert.False(t, s.CatalogLoading)
	require.Len(t, s.Filtered, 1)
	assert.Equal(t, items[0].Href, s.Filtered[0].Href)

	s, _ = Reduce(s, SearchChanged{Term: ""})
	assert.Len(t, s.Filtered, 2)
	s, _ = Reduce(s, TypeFilterChanged{Type: "sdsi"})
	require.Len(t, s.Filtered, 1)
	assert.Equal(t, "sdsi", s.Filtered[0].Type)

	failed, _ := Reduce(State{CatalogLoading: true}, CatalogFailed{Err: errors.New("boom")})
	assert.False(t, failed.CatalogLoading)
	assert.Equal(t, "boom", failed.Err)
}

func TestReduceIgnoresStaleDocuments(t *testing.T) {
	s, _ := Reduce(State{}, CatalogLoaded{Items: items})

	s, effects := Reduce(s, ItemSelected{Href: items[0].Href})
	require.Len(t, effects, 1)
	first := effects[0].(LoadDocument)
	assert.Equal(t, items[0].Href, first.URL)
	assert.True(t, s.DocumentLoading)

	s, effects = Reduce(s, ItemSelected{Href: items[1].Href})
	second := effects[0].(LoadDocument)
	assert.NotEqual(t, first.Selection, second.Selection)

	s, _ = Reduce(s, DocumentLoaded{Selection: first.Selection, Document: &legislation.Document{Title: "stale"}})
	assert.Nil(t, s.Document)
	assert.True(t, s.DocumentLoading)

	s, _ = Reduce(s, DocumentFailed{Selection: first.Selection, Err: errors.New("stale failure")})
	assert.Empty(t, s.Err)

	s, _ = Reduce(s, DocumentLoaded{Selection: second.Selection, Document: &legislation.Document{Title: "fresh"}})
	require.NotNil(t, s.Document)
	assert.Equal(t, "fresh", s.Document.Title)
	assert.False(t, s.DocumentLoading)
	assert.Equal(t, items[1].Href, s.Selected.Href)
}

func TestReduceUnknownSelection(t *testing.T) {
	s, effects := Reduce(State{}, ItemSelected{Href: "nope"})
	assert.Empty(t, effects)
	assert.Contains(t, s.Err, "unknown catalog item")
}

type fakeLoader struct {
	catalog []legislation.CatalogItem
	docs    map[string]chan *legislation.Document
}

func (f fakeLoader) LoadCatalog(context.Context) ([]legislation.CatalogItem, error) {
	return f.catalog, nil
}

func (f fakeLoader) LoadDocument(ctx context.Context, url string) (*legislation.Document, error) {
	select {
	case doc := <-f.docs[url]:
		return doc, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func waitFor(t *testing.T, ch <-chan State, cond func(State) bool) State {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if cond(s) {
				return s
			}
		case <-timeout:
			t.Fatal("timed out waiting for state")
			return State{}
		}
	}
}

func TestCoordinatorRunsEffectsAndDropsStaleLoads(t *testing.T) {
	loader := fakeLoader{
		catalog: items,
		docs: map[string]chan *legislation.Document{
			items[0].Href: make(chan *legislation.Document, 1),
			items[1].Href: make(chan *legislation.Document, 1),
		},
	}
	c := NewCoordinator(loader)
	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()

	require.NoError(t, c.Dispatch(ctx, CatalogRequested{}))
	waitFor(t, updates, func(s State) bool { return len(s.Catalog) == 2 })

	require.NoError(t, c.Dispatch(ctx, ItemSelected{Href: items[0].Href}))
	require.NoError(t, c.Dispatch(ctx, ItemSelected{Href: items[1].Href}))
	waitFor(t, updates, func(s State) bool { return s.Selected != nil && s.Selected.Href == items[1].Href })

	loader.docs[items[0].Href] <- &legislation.Document{Title: "first"}
	loader.docs[items[1].Href] <- &legislation.Document{Title: "second"}

	s := waitFor(t, updates, func(s State) bool { return s.Document != nil })
	assert.Equal(t, "second", s.Document.Title)
	assert.Equal(t, "second", c.State().Document.Title)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.ErrorIs(t, c.Dispatch(context.Background(), CatalogRequested{}), ErrStopped)
}
