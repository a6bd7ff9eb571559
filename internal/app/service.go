package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"legisdraft/api/internal/auth"
	"legisdraft/api/internal/changes"
	"legisdraft/api/internal/config"
	"legisdraft/api/internal/export"
	"legisdraft/api/internal/htmldiff"
	"legisdraft/api/internal/legislation"
	"legisdraft/api/internal/rbac"
	"legisdraft/api/internal/search"
	"legisdraft/api/internal/store"
	"legisdraft/api/internal/util"
)

type Session struct {
	Token     string
	UserID    string
	UserName  string
	Role      string
	JTI       string
	ExpiresAt time.Time
}

type SubmitChangeInput struct {
	Identifier   string `json:"identifier"`
	ProposedHTML string `json:"proposedHtml"`
	InitialHTML  string `json:"initialHtml"`
	Title        string `json:"title"`
}

type CreateCommentInput struct {
	CommentText   string `json:"commentText"`
	LegislationID string `json:"legislationId"`
	SectionKey    string `json:"sectionKey"`
	MarkID        string `json:"markId"`
}

type ChangeView struct {
	ID            string     `json:"id"`
	LegislationID string     `json:"legislationId"`
	Seq           int64      `json:"seq"`
	UserID        string     `json:"userId"`
	Title         string     `json:"title"`
	OriginalHTML  string     `json:"originalHtml"`
	ProposedHTML  string     `json:"proposedHtml"`
	Status        string     `json:"status"`
	ParentID      string     `json:"parentId,omitempty"`
	ReviewedBy    string     `json:"reviewedBy,omitempty"`
	ReviewedAt    *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	DiffHTML      string     `json:"diffHtml,omitempty"`
}

type CommentView struct {
	ID            string    `json:"id"`
	LegislationID string    `json:"legislationId"`
	SectionKey    string    `json:"sectionKey"`
	MarkID        string    `json:"markId"`
	UserID        string    `json:"userId"`
	UserName      string    `json:"userName"`
	CommentText   string    `json:"commentText"`
	CreatedAt     time.Time `json:"createdAt"`
}

type dataStore interface {
	Ping(context.Context) error
	GetChange(context.Context, string) (store.ProposedChange, error)
	ListChangesByUser(context.Context, string) ([]store.ProposedChange, error)
	InsertComment(context.Context, store.Comment) error
	ListComments(context.Context, string) ([]store.Comment, error)
}

type documentAssembler interface {
	Assemble(ctx context.Context, contentsURL string) (*legislation.Document, error)
}

type catalogLister interface {
	List(ctx context.Context) []legislation.CatalogItem
}

type catalogSearch interface {
	Search(catalog []legislation.CatalogItem, q search.Query) []legislation.CatalogItem
	Index(items []legislation.CatalogItem)
}

type changeResolver interface {
	Submit(ctx context.Context, sub changes.Submission) (changes.Result, error)
	Chain(ctx context.Context, legislationID string) ([]store.ProposedChange, error)
	History(ctx context.Context, legislationID string) ([]store.ProposedChange, error)
	Root(ctx context.Context, changeID string) (store.ProposedChange, error)
	Moderate(ctx context.Context, changeID, status, reviewer string) (store.ProposedChange, error)
}

type changeExporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

type Service struct {
	cfg       config.Config
	store     dataStore
	assembler documentAssembler
	catalog   catalogLister
	search    catalogSearch
	changes   changeResolver
	exporter  changeExporter
}

// New wires the service over a store and an upstream page fetcher.
func New(cfg config.Config, dataStore *store.Store, fetcher legislation.Fetcher, searchService *search.Service) *Service {
	return &Service{
		cfg:       cfg,
		store:     dataStore,
		assembler: legislation.NewAssembler(fetcher, cfg.Fetch.Workers),
		catalog:   legislation.NewCatalog(fetcher, cfg.UpstreamBaseURL, cfg.CatalogTypes, cfg.CatalogYears, cfg.Fetch.Workers),
		search:    searchService,
		changes:   changes.NewResolver(dataStore),
		exporter:  export.NewService(dataStore),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SessionFromToken(_ context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.DisplayName(),
		Role:      string(rbac.Normalize(claims.Role)),
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// Contents assembles the document behind a contents-page URL.
func (s *Service) Contents(ctx context.Context, rawURL string) (*legislation.Document, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, domainError(http.StatusBadRequest, "MISSING_URL", "url parameter is required", nil)
	}
	ctx, cancel := s.upstreamContext(ctx)
	defer cancel()
	return s.assembler.Assemble(ctx, rawURL)
}

// ListLegislation returns the upstream catalog narrowed by title text and
// type.
func (s *Service) ListLegislation(ctx context.Context, q search.Query) []legislation.CatalogItem {
	ctx, cancel := s.upstreamContext(ctx)
	defer cancel()
	items := s.catalog.List(ctx)
	s.search.Index(items)
	return s.search.Search(items, q)
}

// upstreamContext bounds a request that fans out to the upstream site.
func (s *Service) upstreamContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Fetch.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Fetch.RequestTimeout)
}

func (s *Service) SubmitChange(ctx context.Context, session Session, input SubmitChangeInput) (changes.Result, error) {
	if !s.Can(session.Role, rbac.ActionPropose) {
		return changes.Result{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	return s.changes.Submit(ctx, changes.Submission{
		LegislationID: input.Identifier,
		ProposedHTML:  input.ProposedHTML,
		InitialHTML:   input.InitialHTML,
		Title:         input.Title,
		UserID:        session.UserID,
	})
}

// MyChanges lists the caller's changes, newest first.
func (s *Service) MyChanges(ctx context.Context, session Session, withDiff bool) ([]ChangeView, error) {
	items, err := s.store.ListChangesByUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return changeViews(items, withDiff), nil
}

func (s *Service) GetChange(ctx context.Context, id string) (ChangeView, error) {
	item, err := s.store.GetChange(ctx, id)
	if err != nil {
		return ChangeView{}, err
	}
	return changeView(item, false), nil
}

// ChangeRoot returns the first link of the chain changeID belongs to.
func (s *Service) ChangeRoot(ctx context.Context, id string) (ChangeView, error) {
	item, err := s.changes.Root(ctx, id)
	if err != nil {
		return ChangeView{}, err
	}
	return changeView(item, false), nil
}

func (s *Service) ChangeDiff(ctx context.Context, id string) (map[string]any, error) {
	item, err := s.store.GetChange(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"changeId": item.ID,
		"diffHtml": htmldiff.Diff(item.OriginalHTML, item.ProposedHTML),
	}, nil
}

func (s *Service) ExportChange(ctx context.Context, id, rawFormat string) (*export.Result, error) {
	format, err := export.ParseFormat(strings.TrimSpace(rawFormat))
	if err != nil {
		return nil, domainError(http.StatusBadRequest, "INVALID_FORMAT", "format must be pdf or docx", nil)
	}
	return s.exporter.Export(ctx, export.Request{ChangeID: id, Format: format})
}

func (s *Service) ModerateChange(ctx context.Context, session Session, id, status string) (ChangeView, error) {
	if !s.Can(session.Role, rbac.ActionModerate) {
		return ChangeView{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	item, err := s.changes.Moderate(ctx, id, strings.TrimSpace(status), session.UserID)
	if err != nil {
		return ChangeView{}, err
	}
	return changeView(item, false), nil
}

// LegislationChanges returns the pending chain, or every change when all
// is set.
func (s *Service) LegislationChanges(ctx context.Context, legislationID string, all bool) ([]ChangeView, error) {
	var (
		items []store.ProposedChange
		err   error
	)
	if all {
		items, err = s.changes.History(ctx, legislationID)
	} else {
		items, err = s.changes.Chain(ctx, legislationID)
	}
	if err != nil {
		return nil, err
	}
	return changeViews(items, false), nil
}

func (s *Service) Diff(oldHTML, newHTML string) string {
	return htmldiff.Diff(oldHTML, newHTML)
}

func (s *Service) AddComment(ctx context.Context, session Session, input CreateCommentInput) (CommentView, error) {
	if !s.Can(session.Role, rbac.ActionComment) {
		return CommentView{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	input.LegislationID = strings.TrimSpace(input.LegislationID)
	input.SectionKey = strings.TrimSpace(input.SectionKey)
	input.MarkID = strings.TrimSpace(input.MarkID)
	if input.LegislationID == "" || input.SectionKey == "" || input.MarkID == "" {
		return CommentView{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "legislationId, sectionKey and markId are required", nil)
	}
	if strings.TrimSpace(input.CommentText) == "" {
		return CommentView{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Comment text cannot be empty", nil)
	}

	comment := store.Comment{
		ID:            util.NewID("cmt"),
		LegislationID: input.LegislationID,
		SectionKey:    input.SectionKey,
		MarkID:        input.MarkID,
		UserID:        session.UserID,
		UserName:      session.UserName,
		Text:          input.CommentText,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return CommentView{}, domainError(http.StatusConflict, "DUPLICATE_MARK", "A comment with this mark ID already exists", nil)
		}
		return CommentView{}, err
	}
	return commentView(comment), nil
}

func (s *Service) ListComments(ctx context.Context, legislationID string) ([]CommentView, error) {
	legislationID = strings.TrimSpace(legislationID)
	if legislationID == "" {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "legislation_id parameter is required", nil)
	}
	items, err := s.store.ListComments(ctx, legislationID)
	if err != nil {
		return nil, err
	}
	views := make([]CommentView, 0, len(items))
	for _, item := range items {
		views = append(views, commentView(item))
	}
	return views, nil
}

func changeViews(items []store.ProposedChange, withDiff bool) []ChangeView {
	views := make([]ChangeView, 0, len(items))
	for _, item := range items {
		views = append(views, changeView(item, withDiff))
	}
	return views
}

func changeView(item store.ProposedChange, withDiff bool) ChangeView {
	view := ChangeView{
		ID:            item.ID,
		LegislationID: item.LegislationID,
		Seq:           item.Seq,
		UserID:        item.UserID,
		Title:         item.Title,
		OriginalHTML:  item.OriginalHTML,
		ProposedHTML:  item.ProposedHTML,
		Status:        item.Status,
		ParentID:      item.ParentID,
		ReviewedBy:    item.ReviewedBy,
		ReviewedAt:    item.ReviewedAt,
		CreatedAt:     item.CreatedAt,
	}
	if withDiff {
		view.DiffHTML = htmldiff.Diff(item.OriginalHTML, item.ProposedHTML)
	}
	return view
}

func commentView(item store.Comment) CommentView {
	return CommentView{
		ID:            item.ID,
		LegislationID: item.LegislationID,
		SectionKey:    item.SectionKey,
		MarkID:        item.MarkID,
		UserID:        item.UserID,
		UserName:      item.UserName,
		CommentText:   item.Text,
		CreatedAt:     item.CreatedAt,
	}
}
