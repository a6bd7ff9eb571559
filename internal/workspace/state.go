// Package workspace holds the browsing state of a catalog client: the
// listed instruments, the active search, the selected item and its loaded
// document. State changes only through Reduce; I/O happens only by running
// the effects Reduce returns.
package workspace

import (
	"legisdraft/api/internal/legislation"
	"legisdraft/api/internal/search"
)

type State struct {
	Catalog        []legislation.CatalogItem
	CatalogLoading bool

	Search     string
	TypeFilter string
	Filtered   []legislation.CatalogItem

	Selected        *legislation.CatalogItem
	Document        *legislation.Document
	DocumentLoading bool

	Err string

	// selection counts ItemSelected actions; document results carry the
	// value they were requested under.
	selection int
}

// Action is the closed set of events Reduce accepts.
type Action interface{ isAction() }

type (
	CatalogRequested struct{}
	CatalogLoaded    struct{ Items []legislation.CatalogItem }
	CatalogFailed    struct{ Err error }

	SearchChanged     struct{ Term string }
	TypeFilterChanged struct{ Type string }

	// ItemSelected picks a catalog entry by href.
	ItemSelected   struct{ Href string }
	DocumentLoaded struct {
		Selection int
		Document  *legislation.Document
	}
	DocumentFailed struct {
		Selection int
		Err       error
	}
)

func (CatalogRequested) isAction()  {}
func (CatalogLoaded) isAction()     {}
func (CatalogFailed) isAction()     {}
func (SearchChanged) isAction()     {}
func (TypeFilterChanged) isAction() {}
func (ItemSelected) isAction()      {}
func (DocumentLoaded) isAction()    {}
func (DocumentFailed) isAction()    {}

// Effect is a request for I/O produced by Reduce.
type Effect interface{ isEffect() }

type (
	LoadCatalog  struct{}
	LoadDocument struct {
		Selection int
		URL       string
	}
)

func (LoadCatalog) isEffect()  {}
func (LoadDocument) isEffect() {}

// Reduce returns the state after a together with the effects to run. It
// never mutates s or the slices it shares.
func Reduce(s State, a Action) (State, []Effect) {
	switch a := a.(type) {
	case CatalogRequested:
		if s.CatalogLoading {
			return s, nil
		}
		s.CatalogLoading = true
		s.Err = ""
		return s, []Effect{LoadCatalog{}}

	case CatalogLoaded:
		s.CatalogLoading = false
		s.Catalog = a.Items
		s.Filtered = refilter(s)
		return s, nil

	case CatalogFailed:
		s.CatalogLoading = false
		s.Err = errText(a.Err)
		return s, nil

	case SearchChanged:
		s.Search = a.Term
		s.Filtered = refilter(s)
		return s, nil

	case TypeFilterChanged:
		s.TypeFilter = a.Type
		s.Filtered = refilter(s)
		return s, nil

	case ItemSelected:
		item, ok := findItem(s.Catalog, a.Href)
		if !ok {
			s.Err = "unknown catalog item: " + a.Href
			return s, nil
		}
		s.selection++
		s.Selected = &item
		s.Document = nil
		s.DocumentLoading = true
		s.Err = ""
		return s, []Effect{LoadDocument{Selection: s.selection, URL: item.Href}}

	case DocumentLoaded:
		if a.Selection != s.selection {
			return s, nil
		}
		s.Document = a.Document
		s.DocumentLoading = false
		return s, nil

	case DocumentFailed:
		if a.Selection != s.selection {
			return s, nil
		}
		s.DocumentLoading = false
		s.Err = errText(a.Err)
		return s, nil
	}
	return s, nil
}

func refilter(s State) []legislation.CatalogItem {
	return search.Filter(s.Catalog, search.Query{Text: s.Search, Type: s.TypeFilter})
}

func findItem(items []legislation.CatalogItem, href string) (legislation.CatalogItem, bool) {
	for _, item := range items {
		if item.Href == href {
			return item, true
		}
	}
	return legislation.CatalogItem{}, false
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
