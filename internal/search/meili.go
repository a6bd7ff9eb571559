package search

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"legisdraft/api/internal/legislation"
)

const idxCatalog = "legis_catalog"

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the catalog index.
// An unreachable server is not an error; Healthy reports false until the
// background monitor sees it recover.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxCatalog,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxCatalog, err)
	}

	index := m.client.Index(idxCatalog)
	filterable := []interface{}{"type", "year"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxCatalog, err)
	}
	searchable := []string{"title", "identifier"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxCatalog, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(q Query) ([]legislation.CatalogItem, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 1000
	}
	sr := &meili.SearchRequest{
		IndexUID: idxCatalog,
		Query:    strings.TrimSpace(q.Text),
		Limit:    limit,
	}
	if kind := strings.TrimSpace(q.Type); kind != "" {
		sr.Filter = []string{fmt.Sprintf("type = %q", kind)}
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{sr},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	items := make([]legislation.CatalogItem, 0)
	for _, result := range resp.Results {
		for _, hit := range result.Hits {
			items = append(items, hitToItem(hit))
		}
	}
	return items, nil
}

// IndexCatalog adds or updates catalog entries.
func (m *Meili) IndexCatalog(items []legislation.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}
	records := make([]CatalogRecord, 0, len(items))
	for _, item := range items {
		records = append(records, recordOf(item))
	}
	_, err := m.client.Index(idxCatalog).AddDocuments(records, nil)
	return err
}

func hitToItem(hit map[string]json.RawMessage) legislation.CatalogItem {
	return legislation.CatalogItem{
		Title:      decodeString(hit, "title"),
		Href:       decodeString(hit, "href"),
		Identifier: decodeString(hit, "identifier"),
		DocumentID: decodeString(hit, "documentId"),
		Type:       decodeString(hit, "type"),
		Year:       decodeInt(hit, "year"),
	}
}

func decodeString(hit map[string]json.RawMessage, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeInt(hit map[string]json.RawMessage, key string) int {
	raw, ok := hit[key]
	if !ok {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	return 0
}
