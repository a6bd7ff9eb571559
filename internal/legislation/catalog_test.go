package legislation

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogPage(rows ...[2]string) string {
	page := `<div id="content"><table><thead><tr><th>Title</th></tr></thead><tbody>`
	for _, row := range rows {
		page += `<tr><td><a href="` + row[0] + `">` + row[1] + `</a></td><td>Other</td></tr>`
	}
	return page + `</tbody></table></div>`
}

func TestCatalogListAggregatesAndSorts(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		"https://leg.test/ukdsi/2026": catalogPage(
			[2]string{"/ukdsi/2026/9780348270001/contents", "The Zebra Regulations 2026"},
			[2]string{"/ukdsi/2026/9780348270002/contents", "the apple Order 2026"},
		),
		"https://leg.test/sdsi/2026": catalogPage(
			[2]string{"/sdsi/2026/9780111000001/contents", "Mango (Scotland) Regulations 2026"},
			// listed twice upstream
			[2]string{"/ukdsi/2026/9780348270001/contents", "The Zebra Regulations 2026"},
		),
		"https://leg.test/ukdsi/2025": catalogPage(
			[2]string{"/ukdsi/2025/9780348260001/contents", "Aardvark Order 2025"},
		),
		// nidsr pages are missing and must be dropped silently
	})

	catalog := NewCatalog(fetcher, "https://leg.test/", []string{"ukdsi", "sdsi", "nidsr"}, 2, 4)
	catalog.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	items := catalog.List(context.Background())
	require.Len(t, items, 4)

	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = item.Title
	}
	assert.Equal(t, []string{
		"Mango (Scotland) Regulations 2026",
		"the apple Order 2026",
		"The Zebra Regulations 2026",
		"Aardvark Order 2025",
	}, titles)

	assert.Equal(t, CatalogItem{
		Title:      "Aardvark Order 2025",
		Href:       "https://leg.test/ukdsi/2025/9780348260001/contents",
		Identifier: "9780348260001",
		DocumentID: "ukdsi/2025/9780348260001",
		Type:       "ukdsi",
		Year:       2025,
	}, items[3])
	assert.Equal(t, 1, fetcher.callCount("https://leg.test/nidsr/2025"))
}

func TestCatalogListAllFailuresIsEmpty(t *testing.T) {
	catalog := NewCatalog(newFakeFetcher(nil), "https://leg.test", []string{"ukdsi"}, 1, 2)
	assert.Empty(t, catalog.List(context.Background()))
}

func TestCatalogIdentifier(t *testing.T) {
	assert.Equal(t, "9780111234567", catalogIdentifierOf("/ukdsi/2026/9780111234567/contents"))
	assert.Equal(t, "12", catalogIdentifierOf("/nidsr/2026/12/contents"))
	assert.Equal(t, "made", catalogIdentifierOf("/uksi/2026/12/made"))
}

func TestCatalogDocumentIDMatchesAssembledIdentifier(t *testing.T) {
	// short identifiers collide across types, the chain key does not
	a := parseCatalogPage(catalogPage([2]string{"/ukdsi/2026/12/contents", "A"}), "https://leg.test/ukdsi/2026", "ukdsi", 2026)
	b := parseCatalogPage(catalogPage([2]string{"/nidsr/2026/12/contents", "B"}), "https://leg.test/nidsr/2026", "nidsr", 2026)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].Identifier, b[0].Identifier)
	assert.NotEqual(t, a[0].DocumentID, b[0].DocumentID)

	u, err := url.Parse(a[0].Href)
	require.NoError(t, err)
	assert.Equal(t, identifierFromURL(u), a[0].DocumentID)
	assert.Equal(t, "ukdsi/2026/12", a[0].DocumentID)
}

func TestSortCatalogStable(t *testing.T) {
	items := []CatalogItem{
		{Title: "B", Year: 2024, Href: "1"},
		{Title: "b", Year: 2024, Href: "2"},
		{Title: "A", Year: 2023},
		{Title: "C", Year: 2025},
	}
	SortCatalog(items)
	assert.Equal(t, "C", items[0].Title)
	assert.Equal(t, "1", items[1].Href)
	assert.Equal(t, "2", items[2].Href)
	assert.Equal(t, "A", items[3].Title)
}
