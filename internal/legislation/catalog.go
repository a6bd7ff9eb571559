package legislation

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"legisdraft/api/internal/markup"
)

// CatalogItem is one draft instrument listed on an upstream type/year page.
// Identifier is the short upstream number and is only unique within a
// type and year. DocumentID is the full path that Document.Identifier
// carries and that change chains are keyed on.
type CatalogItem struct {
	Title      string `json:"title"`
	Href       string `json:"href"`
	Identifier string `json:"identifier"`
	DocumentID string `json:"documentId"`
	Type       string `json:"type"`
	Year       int    `json:"year"`
}

type Catalog struct {
	fetcher Fetcher
	baseURL string
	types   []string
	years   int
	workers int
	now     func() time.Time
}

func NewCatalog(fetcher Fetcher, baseURL string, types []string, years, workers int) *Catalog {
	if years <= 0 {
		years = 1
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Catalog{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		types:   types,
		years:   years,
		workers: workers,
		now:     time.Now,
	}
}

var (
	catalogRows       = markup.MustCompile("#content tbody tr")
	catalogIdentifier = regexp.MustCompile(`/(\d+|[a-zA-Z0-9]+)/contents$`)
)

// List aggregates every configured type over the recent years. A group
// whose page cannot be fetched contributes nothing.
func (c *Catalog) List(ctx context.Context) []CatalogItem {
	type group struct {
		kind string
		year int
	}
	var groups []group
	current := c.now().Year()
	for _, kind := range c.types {
		for offset := 0; offset < c.years; offset++ {
			groups = append(groups, group{kind: kind, year: current - offset})
		}
	}

	results := make([][]CatalogItem, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, grp := range groups {
		i, grp := i, grp
		g.Go(func() error {
			pageURL := fmt.Sprintf("%s/%s/%d", c.baseURL, grp.kind, grp.year)
			page, ok := c.fetcher.Fetch(gctx, pageURL)
			if !ok {
				return nil
			}
			results[i] = parseCatalogPage(page, pageURL, grp.kind, grp.year)
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	var items []CatalogItem
	for _, batch := range results {
		for _, item := range batch {
			if seen[item.Href] {
				continue
			}
			seen[item.Href] = true
			items = append(items, item)
		}
	}
	SortCatalog(items)
	return items
}

func parseCatalogPage(page, pageURL, kind string, year int) []CatalogItem {
	doc, err := markup.Parse(page)
	if err != nil {
		return nil
	}
	base, _ := url.Parse(pageURL)

	var items []CatalogItem
	for _, row := range markup.All(doc, catalogRows) {
		cells := markup.Children(row, "td")
		if len(cells) == 0 {
			continue
		}
		link := markup.First(cells[0], anyLink)
		href := strings.TrimSpace(markup.Attr(link, "href"))
		title := markup.Text(link)
		if href == "" || title == "" {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		items = append(items, CatalogItem{
			Title:      title,
			Href:       ref.String(),
			Identifier: catalogIdentifierOf(ref.Path),
			DocumentID: documentIDOf(ref.Path),
			Type:       kind,
			Year:       year,
		})
	}
	return items
}

func catalogIdentifierOf(path string) string {
	if match := catalogIdentifier.FindStringSubmatch(path); match != nil {
		return match[1]
	}
	trimmed := strings.Trim(path, "/")
	return trimmed[strings.LastIndexByte(trimmed, '/')+1:]
}

// SortCatalog orders by year descending, then title in English collation.
func SortCatalog(items []CatalogItem) {
	collator := collate.New(language.English, collate.IgnoreCase)
	slices.SortStableFunc(items, func(a, b CatalogItem) int {
		if a.Year != b.Year {
			return b.Year - a.Year
		}
		return collator.CompareString(a.Title, b.Title)
	})
}
