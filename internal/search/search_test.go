package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legisdraft/api/internal/legislation"
)

var catalog = []legislation.CatalogItem{
	{Title: "The Bees Regulations 2026", Href: "https://example.test/ukdsi/2026/9780000000001/contents", Identifier: "9780000000001", Type: "ukdsi", Year: 2026},
	{Title: "The Water (Scotland) Order 2026", Href: "https://example.test/sdsi/2026/9780000000002/contents", Identifier: "9780000000002", Type: "sdsi", Year: 2026},
	{Title: "The Beekeeping Order 2025", Href: "https://example.test/ukdsi/2025/9780000000003/contents", Identifier: "9780000000003", Type: "ukdsi", Year: 2025},
}

func TestFilterByTitleAndType(t *testing.T) {
	got := Filter(catalog, Query{Text: "  BEE "})
	require.Len(t, got, 2)
	assert.Equal(t, catalog[0].Href, got[0].Href)
	assert.Equal(t, catalog[2].Href, got[1].Href)

	got = Filter(catalog, Query{Type: "sdsi"})
	require.Len(t, got, 1)
	assert.Equal(t, "sdsi", got[0].Type)

	got = Filter(catalog, Query{Text: "bee", Type: "sdsi"})
	assert.Empty(t, got)

	assert.Len(t, Filter(catalog, Query{}), 3)
	assert.Len(t, Filter(catalog, Query{Limit: 1}), 1)
}

func TestServiceWithoutMeiliFiltersInMemory(t *testing.T) {
	s := NewService(nil)
	got := s.Search(catalog, Query{Text: "water"})
	require.Len(t, got, 1)
	assert.Equal(t, "9780000000002", got[0].Identifier)

	// indexing without a backend is a no-op
	s.Index(catalog)
}

func TestRestrictKeepsCatalogOrder(t *testing.T) {
	hits := []legislation.CatalogItem{
		{Href: catalog[2].Href},
		{Href: "https://example.test/gone/contents"},
		{Href: catalog[0].Href},
	}
	got := restrict(catalog, hits, 0)
	require.Len(t, got, 2)
	assert.Equal(t, catalog[0], got[0])
	assert.Equal(t, catalog[2], got[1])
}

func TestHitToItem(t *testing.T) {
	hit := map[string]json.RawMessage{
		"title":      json.RawMessage(`"The Bees Regulations 2026"`),
		"href":       json.RawMessage(`"https://example.test/x/contents"`),
		"identifier": json.RawMessage(`"9780000000001"`),
		"type":       json.RawMessage(`"ukdsi"`),
		"year":       json.RawMessage(`2026`),
		"_formatted": json.RawMessage(`{}`),
	}
	item := hitToItem(hit)
	assert.Equal(t, "The Bees Regulations 2026", item.Title)
	assert.Equal(t, 2026, item.Year)
	assert.Equal(t, "ukdsi", item.Type)

	assert.Equal(t, 0, decodeInt(map[string]json.RawMessage{"year": json.RawMessage(`"x"`)}, "year"))
}

func TestRecordIDIsStableAndSafe(t *testing.T) {
	id := recordID(catalog[0].Href)
	assert.Equal(t, id, recordID(catalog[0].Href))
	assert.NotEqual(t, id, recordID(catalog[1].Href))
	assert.Regexp(t, `^c[0-9a-f]{16}$`, id)
}
