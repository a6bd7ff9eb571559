package store

import (
	"context"
	"fmt"
	"time"
)

// InsertComment returns ErrConflict when the mark id is already used for
// the document.
func (s *Store) InsertComment(ctx context.Context, comment Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, legislation_id, section_key, mark_id, user_id, user_name, comment_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		comment.ID,
		comment.LegislationID,
		comment.SectionKey,
		comment.MarkID,
		comment.UserID,
		comment.UserName,
		comment.Text,
		comment.CreatedAt,
	)
	if err != nil {
		return wrapWrite("insert comment", err)
	}
	return nil
}

func (s *Store) ListComments(ctx context.Context, legislationID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, legislation_id, section_key, mark_id, user_id, user_name, comment_text, created_at
		FROM comments
		WHERE legislation_id=$1
		ORDER BY created_at ASC, id ASC
	`, legislationID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]Comment, 0)
	for rows.Next() {
		var item Comment
		if err := rows.Scan(
			&item.ID,
			&item.LegislationID,
			&item.SectionKey,
			&item.MarkID,
			&item.UserID,
			&item.UserName,
			&item.Text,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}
