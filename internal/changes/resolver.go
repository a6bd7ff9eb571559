// Package changes keeps each document's proposed edits as one linear chain
// of pending changes, each diffed against the previous link.
package changes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"legisdraft/api/internal/store"
	"legisdraft/api/internal/telemetry"
	"legisdraft/api/internal/util"
)

var tracer = otel.Tracer("changes")

var (
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrChainConflict means another link was committed for the same
	// parent; the submission was not stored.
	ErrChainConflict   = errors.New("change chain conflict")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrAlreadyReviewed = errors.New("change already reviewed")
)

// maxChainDepth bounds Root walks against a corrupt parent cycle.
const maxChainDepth = 100000

type chainStore interface {
	WithChainLock(ctx context.Context, legislationID string, fn func(store.ChainTx) error) error
	GetChange(ctx context.Context, id string) (store.ProposedChange, error)
	ListChanges(ctx context.Context, legislationID, status string) ([]store.ProposedChange, error)
	UpdateChangeStatus(ctx context.Context, id, status, reviewedBy string) (bool, error)
}

type Submission struct {
	LegislationID string
	ProposedHTML  string
	// InitialHTML is the snapshot the submitter loaded; it is used only
	// when the document has no pending chain.
	InitialHTML string
	Title       string
	UserID      string
}

type Result struct {
	Created  bool
	ChangeID string
	Noop     bool
}

type Resolver struct {
	store  chainStore
	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func NewResolver(s chainStore) *Resolver {
	return &Resolver{
		store: s,
		locks: make(map[string]*sync.Mutex),
	}
}

// Submit appends sub to the document's pending chain. The original side of
// the new link is the latest pending proposal, or sub.InitialHTML when the
// chain is empty. A proposal identical to that original stores nothing.
func (r *Resolver) Submit(ctx context.Context, sub Submission) (Result, error) {
	ctx, span := tracer.Start(ctx, "Resolver.Submit", trace.WithAttributes(attribute.String("legislation_id", sub.LegislationID)))
	defer span.End()

	sub.LegislationID = strings.TrimSpace(sub.LegislationID)
	if err := validate(sub); err != nil {
		telemetry.ChangeSubmissions.WithLabelValues("invalid").Inc()
		return Result{}, err
	}
	if strings.TrimSpace(sub.Title) == "" {
		sub.Title = "Title for " + sub.LegislationID
	}

	lock := r.documentLock(sub.LegislationID)
	lock.Lock()
	defer lock.Unlock()

	var result Result
	err := r.store.WithChainLock(ctx, sub.LegislationID, func(tx store.ChainTx) error {
		latest, err := tx.LatestPending(ctx, sub.LegislationID)
		if err != nil {
			return err
		}

		original, parentID := sub.InitialHTML, ""
		if latest != nil {
			original, parentID = latest.ProposedHTML, latest.ID
		}
		if sub.ProposedHTML == original {
			result = Result{Noop: true}
			return nil
		}

		change := &store.ProposedChange{
			ID:            util.NewID("chg"),
			LegislationID: sub.LegislationID,
			UserID:        sub.UserID,
			Title:         sub.Title,
			OriginalHTML:  original,
			ProposedHTML:  sub.ProposedHTML,
			ParentID:      parentID,
		}
		if err := tx.InsertChange(ctx, change); err != nil {
			return err
		}
		result = Result{Created: true, ChangeID: change.ID}
		return nil
	})
	switch {
	case errors.Is(err, store.ErrConflict):
		telemetry.ChangeSubmissions.WithLabelValues("conflict").Inc()
		return Result{}, fmt.Errorf("%w: %v", ErrChainConflict, err)
	case err != nil:
		telemetry.ChangeSubmissions.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("submit change: %w", err)
	case result.Noop:
		telemetry.ChangeSubmissions.WithLabelValues("noop").Inc()
	default:
		telemetry.ChangeSubmissions.WithLabelValues("created").Inc()
	}
	return result, nil
}

func validate(sub Submission) error {
	switch {
	case sub.LegislationID == "":
		return fmt.Errorf("%w: legislation id is required", ErrInvalidSubmission)
	case strings.TrimSpace(sub.UserID) == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidSubmission)
	case strings.TrimSpace(sub.ProposedHTML) == "":
		return fmt.Errorf("%w: proposed html is required", ErrInvalidSubmission)
	}
	return nil
}

// Chain returns the pending links for a document, oldest first.
func (r *Resolver) Chain(ctx context.Context, legislationID string) ([]store.ProposedChange, error) {
	return r.store.ListChanges(ctx, legislationID, store.StatusPending)
}

// History returns every change for a document regardless of status.
func (r *Resolver) History(ctx context.Context, legislationID string) ([]store.ProposedChange, error) {
	return r.store.ListChanges(ctx, legislationID, "")
}

// Root follows parent links from changeID back to the first link of its
// chain.
func (r *Resolver) Root(ctx context.Context, changeID string) (store.ProposedChange, error) {
	current, err := r.store.GetChange(ctx, changeID)
	if err != nil {
		return store.ProposedChange{}, err
	}
	for depth := 0; current.ParentID != ""; depth++ {
		if depth >= maxChainDepth {
			return store.ProposedChange{}, fmt.Errorf("walk chain from %s: depth limit exceeded", changeID)
		}
		current, err = r.store.GetChange(ctx, current.ParentID)
		if err != nil {
			return store.ProposedChange{}, fmt.Errorf("walk chain from %s: %w", changeID, err)
		}
	}
	return current, nil
}

// Moderate records a review decision. Only pending changes can move, and
// only to approved or rejected.
func (r *Resolver) Moderate(ctx context.Context, changeID, status, reviewer string) (store.ProposedChange, error) {
	if status != store.StatusApproved && status != store.StatusRejected {
		return store.ProposedChange{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	current, err := r.store.GetChange(ctx, changeID)
	if err != nil {
		return store.ProposedChange{}, err
	}

	lock := r.documentLock(current.LegislationID)
	lock.Lock()
	defer lock.Unlock()

	updated, err := r.store.UpdateChangeStatus(ctx, changeID, status, reviewer)
	if err != nil {
		return store.ProposedChange{}, err
	}
	if !updated {
		return store.ProposedChange{}, ErrAlreadyReviewed
	}
	return r.store.GetChange(ctx, changeID)
}

func (r *Resolver) documentLock(legislationID string) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	lock, ok := r.locks[legislationID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	r.locks[legislationID] = lock
	return lock
}
