// Package search narrows the legislation catalog by title text and type.
package search

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"

	"legisdraft/api/internal/legislation"
)

// Query describes a catalog search.
type Query struct {
	Text  string
	Type  string // empty = all types
	Limit int    // 0 = no limit
}

// Searcher can execute a catalog search.
type Searcher interface {
	Search(q Query) ([]legislation.CatalogItem, error)
	Healthy() bool
}

// Indexer can push catalog entries into a search index.
type Indexer interface {
	IndexCatalog(items []legislation.CatalogItem) error
}

// CatalogRecord is the data we index for a catalog entry.
type CatalogRecord struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Href       string `json:"href"`
	Identifier string `json:"identifier"`
	DocumentID string `json:"documentId"`
	Type       string `json:"type"`
	Year       int    `json:"year"`
}

func recordOf(item legislation.CatalogItem) CatalogRecord {
	return CatalogRecord{
		ID:         recordID(item.Href),
		Title:      item.Title,
		Href:       item.Href,
		Identifier: item.Identifier,
		DocumentID: item.DocumentID,
		Type:       item.Type,
		Year:       item.Year,
	}
}

// recordID maps an href onto the id alphabet Meilisearch accepts.
func recordID(href string) string {
	return fmt.Sprintf("c%016x", xxh3.HashString(href))
}

// Filter returns the items whose title contains q.Text (case-insensitive)
// and whose type equals q.Type, in catalog order.
func Filter(items []legislation.CatalogItem, q Query) []legislation.CatalogItem {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	kind := strings.TrimSpace(q.Type)

	out := make([]legislation.CatalogItem, 0, len(items))
	for _, item := range items {
		if kind != "" && item.Type != kind {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(item.Title), needle) {
			continue
		}
		out = append(out, item)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out
}
