package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const changeColumns = `id, legislation_id, seq, user_id, title, original_html, proposed_html, status, parent_id, reviewed_by, reviewed_at, created_at`

// ChainTx is the view of the store available while a document's chain is
// locked.
type ChainTx interface {
	LatestPending(ctx context.Context, legislationID string) (*ProposedChange, error)
	InsertChange(ctx context.Context, change *ProposedChange) error
}

// WithChainLock runs fn in a transaction that holds the chain lock for
// legislationID. On Postgres this is a transaction-scoped advisory lock;
// SQLite serializes all transactions on its single connection.
func (s *Store) WithChainLock(ctx context.Context, legislationID string, fn func(ChainTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chain tx: %w", err)
	}

	if s.dialect == DialectPostgres {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, legislationID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("lock chain: %w", err)
		}
	}

	if err := fn(&chainTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapWrite("commit chain tx", err)
	}
	return nil
}

type chainTx struct {
	tx *sql.Tx
}

func (c *chainTx) LatestPending(ctx context.Context, legislationID string) (*ProposedChange, error) {
	item, err := scanChange(c.tx.QueryRowContext(ctx, `
		SELECT `+changeColumns+`
		FROM proposed_changes
		WHERE legislation_id=$1 AND status='pending'
		ORDER BY seq DESC
		LIMIT 1
	`, legislationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest pending change: %w", err)
	}
	return &item, nil
}

// InsertChange stores a new pending change and assigns its Seq as the next
// position in the document's history.
func (c *chainTx) InsertChange(ctx context.Context, change *ProposedChange) error {
	if change.CreatedAt.IsZero() {
		change.CreatedAt = time.Now().UTC()
	}
	change.Status = StatusPending

	err := c.tx.QueryRowContext(ctx, `
		INSERT INTO proposed_changes (id, legislation_id, seq, user_id, title, original_html, proposed_html, status, parent_id, created_at)
		VALUES ($1, $2, (SELECT COALESCE(MAX(seq), 0) + 1 FROM proposed_changes WHERE legislation_id=$2), $3, $4, $5, $6, 'pending', $7, $8)
		RETURNING seq
	`,
		change.ID,
		change.LegislationID,
		change.UserID,
		change.Title,
		change.OriginalHTML,
		change.ProposedHTML,
		nullString(change.ParentID),
		change.CreatedAt,
	).Scan(&change.Seq)
	if err != nil {
		return wrapWrite("insert proposed change", err)
	}
	return nil
}

func (s *Store) GetChange(ctx context.Context, id string) (ProposedChange, error) {
	item, err := scanChange(s.db.QueryRowContext(ctx, `SELECT `+changeColumns+` FROM proposed_changes WHERE id=$1`, id))
	if err != nil {
		return ProposedChange{}, fmt.Errorf("get proposed change: %w", err)
	}
	return item, nil
}

// ListChangesByUser returns a user's changes, newest first.
func (s *Store) ListChangesByUser(ctx context.Context, userID string) ([]ProposedChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+changeColumns+`
		FROM proposed_changes
		WHERE user_id=$1
		ORDER BY created_at DESC, seq DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list changes by user: %w", err)
	}
	return collectChanges(rows)
}

// ListChanges returns a document's changes in chain order. An empty
// status returns every status.
func (s *Store) ListChanges(ctx context.Context, legislationID, status string) ([]ProposedChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+changeColumns+`
		FROM proposed_changes
		WHERE legislation_id=$1 AND (CAST($2 AS TEXT)='' OR status=$2)
		ORDER BY seq ASC
	`, legislationID, status)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	return collectChanges(rows)
}

// UpdateChangeStatus moves a pending change to status. It reports false
// when the change does not exist or was already reviewed.
func (s *Store) UpdateChangeStatus(ctx context.Context, id, status, reviewedBy string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE proposed_changes
		SET status=$2, reviewed_by=$3, reviewed_at=$4
		WHERE id=$1 AND status='pending'
	`, id, status, reviewedBy, time.Now().UTC())
	if err != nil {
		return false, wrapWrite("update change status", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update change status: %w", err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChange(row rowScanner) (ProposedChange, error) {
	var (
		item       ProposedChange
		parentID   sql.NullString
		reviewedBy sql.NullString
		reviewedAt sql.NullTime
	)
	err := row.Scan(
		&item.ID,
		&item.LegislationID,
		&item.Seq,
		&item.UserID,
		&item.Title,
		&item.OriginalHTML,
		&item.ProposedHTML,
		&item.Status,
		&parentID,
		&reviewedBy,
		&reviewedAt,
		&item.CreatedAt,
	)
	if err != nil {
		return ProposedChange{}, err
	}
	item.ParentID = parentID.String
	item.ReviewedBy = reviewedBy.String
	if reviewedAt.Valid {
		at := reviewedAt.Time
		item.ReviewedAt = &at
	}
	return item, nil
}

func collectChanges(rows *sql.Rows) ([]ProposedChange, error) {
	defer rows.Close()
	items := make([]ProposedChange, 0)
	for rows.Next() {
		item, err := scanChange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proposed change: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proposed changes: %w", err)
	}
	return items, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
