package export

import (
	"context"
	"fmt"
	"html/template"

	"legisdraft/api/internal/htmldiff"
	"legisdraft/api/internal/store"
)

type DataStore interface {
	GetChange(ctx context.Context, id string) (store.ProposedChange, error)
}

type renderer func(ctx context.Context, html, title string) (*Result, error)

type Service struct {
	store DataStore
	pdf   renderer
	docx  renderer
}

func NewService(store DataStore) *Service {
	return &Service{store: store, pdf: exportPDF, docx: exportDOCX}
}

// Export renders the change's review page and converts it to req.Format.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	convert, err := s.converter(req.Format)
	if err != nil {
		return nil, err
	}

	change, err := s.store.GetChange(ctx, req.ChangeID)
	if err != nil {
		return nil, fmt.Errorf("get change: %w", err)
	}

	html, err := RenderChangeHTML(TemplateData{
		Title:         change.Title,
		LegislationID: change.LegislationID,
		Author:        change.UserID,
		Status:        change.Status,
		Seq:           change.Seq,
		CreatedAt:     change.CreatedAt,
		ReviewedBy:    change.ReviewedBy,
		DiffHTML:      template.HTML(htmldiff.Diff(change.OriginalHTML, change.ProposedHTML)),
		ProposedHTML:  template.HTML(change.ProposedHTML),
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	return convert(ctx, html, change.Title)
}

func (s *Service) converter(format Format) (renderer, error) {
	switch format {
	case FormatPDF:
		return s.pdf, nil
	case FormatDOCX:
		return s.docx, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}
