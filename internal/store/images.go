package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"musicscan/internal/scan"
)

// AddImages appends images to a session. Positions continue after the
// highest existing one so reprocessing keeps earlier photos. With nil kinds,
// each kind follows from the stored position (0 front, 1 back cover, 2 disc
// hub, then other).
func (s *Store) AddImages(ctx context.Context, sessionID string, urls []string, kinds []scan.ImageKind) ([]scan.Image, error) {
	if kinds != nil && len(urls) != len(kinds) {
		return nil, fmt.Errorf("add images: %d urls but %d kinds", len(urls), len(kinds))
	}
	ctx = ensureContext(ctx)
	created := s.now().UTC()

	var images []scan.Image
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM scan_sessions WHERE id = ?", sessionID).Scan(&exists); err != nil {
			return fmt.Errorf("check session: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}

		var next int
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(position) + 1, 0) FROM scan_images WHERE session_id = ?", sessionID,
		).Scan(&next); err != nil {
			return fmt.Errorf("next image position: %w", err)
		}

		images = make([]scan.Image, 0, len(urls))
		if len(urls) == 0 {
			return nil
		}
		insert := builder.Insert("scan_images").Columns("session_id", "position", "url", "kind", "created_at")
		for i, url := range urls {
			image := scan.Image{
				SessionID: sessionID,
				Position:  next + i,
				URL:       url,
				Kind:      scan.KindForPosition(next + i),
				CreatedAt: created,
			}
			if kinds != nil && kinds[i] != "" {
				image.Kind = kinds[i]
			}
			insert = insert.Values(image.SessionID, image.Position, image.URL, string(image.Kind), formatTime(created))
			images = append(images, image)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build image insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert images: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}

// ListImages returns a session's images in position order.
func (s *Store) ListImages(ctx context.Context, sessionID string) ([]scan.Image, error) {
	query, args, err := builder.Select("session_id", "position", "url", "kind", "created_at").
		From("scan_images").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build image query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	images := []scan.Image{}
	for rows.Next() {
		var (
			image     scan.Image
			kind      string
			createdAt sql.NullString
		)
		if err := rows.Scan(&image.SessionID, &image.Position, &image.URL, &kind, &createdAt); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		image.Kind = scan.ImageKind(kind)
		image.CreatedAt = parseTimeOrZero(createdAt)
		images = append(images, image)
	}
	return images, rows.Err()
}
