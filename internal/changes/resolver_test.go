package changes

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legisdraft/api/internal/store"
)

func newResolver(t *testing.T) (*Resolver, *store.Store) {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, store.DialectSQLite, filepath.Join(t.TempDir(), "changes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, store.ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")))
	s := store.NewSQLiteStore(db)
	return NewResolver(s), s
}

func TestSubmitBuildsLinearChain(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	first, err := r.Submit(ctx, Submission{LegislationID: "ukdsi/2024/1", InitialHTML: "B", ProposedHTML: "A", UserID: "alice"})
	require.NoError(t, err)
	require.True(t, first.Created)

	// the second submitter loaded B too, but is diffed against A
	second, err := r.Submit(ctx, Submission{LegislationID: "ukdsi/2024/1", InitialHTML: "B", ProposedHTML: "C", UserID: "bob", Title: "Bob's edit"})
	require.NoError(t, err)
	require.True(t, second.Created)

	chain, err := r.Chain(ctx, "ukdsi/2024/1")
	require.NoError(t, err)
	require.Len(t, chain, 2)

	assert.Equal(t, first.ChangeID, chain[0].ID)
	assert.Equal(t, "B", chain[0].OriginalHTML)
	assert.Equal(t, "A", chain[0].ProposedHTML)
	assert.Empty(t, chain[0].ParentID)
	assert.Equal(t, "Title for ukdsi/2024/1", chain[0].Title)

	assert.Equal(t, second.ChangeID, chain[1].ID)
	assert.Equal(t, "A", chain[1].OriginalHTML)
	assert.Equal(t, "C", chain[1].ProposedHTML)
	assert.Equal(t, first.ChangeID, chain[1].ParentID)
	assert.Equal(t, "Bob's edit", chain[1].Title)

	root, err := r.Root(ctx, second.ChangeID)
	require.NoError(t, err)
	assert.Equal(t, first.ChangeID, root.ID)
}

func TestSubmitNoopWhenUnchanged(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	res, err := r.Submit(ctx, Submission{LegislationID: "doc", InitialHTML: "<p>x</p>", ProposedHTML: "<p>x</p>", UserID: "u"})
	require.NoError(t, err)
	assert.True(t, res.Noop)
	assert.False(t, res.Created)

	_, err = r.Submit(ctx, Submission{LegislationID: "doc", InitialHTML: "<p>x</p>", ProposedHTML: "<p>y</p>", UserID: "u"})
	require.NoError(t, err)

	// equal to the latest link, not to the initial snapshot
	res, err = r.Submit(ctx, Submission{LegislationID: "doc", InitialHTML: "<p>x</p>", ProposedHTML: "<p>y</p>", UserID: "v"})
	require.NoError(t, err)
	assert.True(t, res.Noop)

	chain, err := r.Chain(ctx, "doc")
	require.NoError(t, err)
	assert.Len(t, chain, 1)
}

func TestSubmitValidation(t *testing.T) {
	r, _ := newResolver(t)
	cases := []Submission{
		{LegislationID: "  ", ProposedHTML: "x", UserID: "u"},
		{LegislationID: "doc", ProposedHTML: "x"},
		{LegislationID: "doc", ProposedHTML: "   ", UserID: "u"},
	}
	for i, sub := range cases {
		_, err := r.Submit(context.Background(), sub)
		assert.ErrorIs(t, err, ErrInvalidSubmission, "case %d", i)
	}
}

func TestConcurrentSubmitsNeverFork(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Submit(ctx, Submission{
				LegislationID: "doc",
				InitialHTML:   "base",
				ProposedHTML:  fmt.Sprintf("edit-%d", i),
				UserID:        fmt.Sprintf("user-%d", i),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	chain, err := r.Chain(ctx, "doc")
	require.NoError(t, err)
	require.Len(t, chain, n)
	assert.Equal(t, "base", chain[0].OriginalHTML)
	assert.Empty(t, chain[0].ParentID)
	for i := 1; i < len(chain); i++ {
		assert.Equal(t, chain[i-1].ID, chain[i].ParentID)
		assert.Equal(t, chain[i-1].ProposedHTML, chain[i].OriginalHTML)
		assert.Equal(t, chain[i-1].Seq+1, chain[i].Seq)
	}
}

func TestModerate(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	res, err := r.Submit(ctx, Submission{LegislationID: "doc", InitialHTML: "a", ProposedHTML: "b", UserID: "u"})
	require.NoError(t, err)

	_, err = r.Moderate(ctx, res.ChangeID, "merged", "mod")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	got, err := r.Moderate(ctx, res.ChangeID, store.StatusApproved, "mod")
	require.NoError(t, err)
	assert.Equal(t, store.StatusApproved, got.Status)
	assert.Equal(t, "mod", got.ReviewedBy)

	_, err = r.Moderate(ctx, res.ChangeID, store.StatusRejected, "mod")
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	_, err = r.Moderate(ctx, "missing", store.StatusApproved, "mod")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	// an approved link leaves the pending chain, so the next submit starts fresh
	next, err := r.Submit(ctx, Submission{LegislationID: "doc", InitialHTML: "b", ProposedHTML: "c", UserID: "u"})
	require.NoError(t, err)
	chain, err := r.Chain(ctx, "doc")
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, next.ChangeID, chain[0].ID)
	assert.Empty(t, chain[0].ParentID)

	history, err := r.History(ctx, "doc")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
