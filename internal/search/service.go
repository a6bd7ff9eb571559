package search

import (
	"log"

	"legisdraft/api/internal/legislation"
)

// Service is the facade that tries Meilisearch first and falls back to
// filtering the catalog in memory.
type Service struct {
	meili *Meili
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili) *Service {
	return &Service{meili: meili}
}

// Search narrows catalog to the entries matching q, keeping catalog order.
// Index hits that are not part of catalog are dropped so the result never
// names an instrument the upstream listing no longer carries.
func (s *Service) Search(catalog []legislation.CatalogItem, q Query) []legislation.CatalogItem {
	if s.meili != nil && s.meili.Healthy() {
		hits, err := s.meili.Search(Query{Text: q.Text, Type: q.Type})
		if err == nil {
			return restrict(catalog, hits, q.Limit)
		}
		log.Printf("search: meilisearch error, falling back to memory: %v", err)
	}
	return Filter(catalog, q)
}

// Index pushes catalog entries to Meilisearch without blocking the caller.
func (s *Service) Index(items []legislation.CatalogItem) {
	if s.meili == nil || !s.meili.Healthy() || len(items) == 0 {
		return
	}
	go func() {
		if err := s.meili.IndexCatalog(items); err != nil {
			log.Printf("search: index catalog: %v", err)
		}
	}()
}

func restrict(catalog, hits []legislation.CatalogItem, limit int) []legislation.CatalogItem {
	matched := make(map[string]struct{}, len(hits))
	for _, hit := range hits {
		matched[hit.Href] = struct{}{}
	}
	out := make([]legislation.CatalogItem, 0, len(hits))
	for _, item := range catalog {
		if _, ok := matched[item.Href]; !ok {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
