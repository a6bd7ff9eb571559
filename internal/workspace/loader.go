package workspace

import (
	"context"
	"errors"

	"legisdraft/api/internal/legislation"
)

// UpstreamLoader loads straight from the upstream site.
type UpstreamLoader struct {
	Catalog   *legislation.Catalog
	Assembler *legislation.Assembler
}

func (l UpstreamLoader) LoadCatalog(ctx context.Context) ([]legislation.CatalogItem, error) {
	items := l.Catalog.List(ctx)
	if len(items) == 0 {
		return nil, errors.New("no legislation listed upstream")
	}
	return items, nil
}

func (l UpstreamLoader) LoadDocument(ctx context.Context, url string) (*legislation.Document, error) {
	return l.Assembler.Assemble(ctx, url)
}
