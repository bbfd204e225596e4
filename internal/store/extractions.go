package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"musicscan/internal/scan"
)

// ReplaceExtractions swaps a session's extractions for the latest run's.
func (s *Store) ReplaceExtractions(ctx context.Context, sessionID string, extractions []scan.Extraction) error {
	ctx = ensureContext(ctx)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM scan_extractions WHERE session_id = ?", sessionID); err != nil {
			return fmt.Errorf("clear extractions: %w", err)
		}
		if len(extractions) == 0 {
			return nil
		}
		insert := builder.Insert("scan_extractions").
			Columns("session_id", "field", "raw_value", "normalized_value", "confidence", "source")
		for _, extraction := range extractions {
			insert = insert.Values(
				sessionID,
				string(extraction.Field),
				extraction.RawValue,
				nullableStringPtr(extraction.NormalizedValue),
				extraction.Confidence,
				nullableString(string(extraction.Source)),
			)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build extraction insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert extractions: %w", err)
		}
		return nil
	})
}

// ListExtractions returns a session's extractions in field order.
func (s *Store) ListExtractions(ctx context.Context, sessionID string) (scan.Extractions, error) {
	query, args, err := builder.Select("field", "raw_value", "normalized_value", "confidence", "source").
		From("scan_extractions").
		Where(sq.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build extraction query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	defer rows.Close()

	byField := make(map[scan.Field]scan.Extraction)
	for rows.Next() {
		var (
			extraction scan.Extraction
			field      string
			normalized sql.NullString
			source     sql.NullString
		)
		if err := rows.Scan(&field, &extraction.RawValue, &normalized, &extraction.Confidence, &source); err != nil {
			return nil, fmt.Errorf("scan extraction: %w", err)
		}
		extraction.Field = scan.Field(field)
		extraction.NormalizedValue = stringPtr(normalized)
		extraction.Source = scan.ImageKind(source.String)
		byField[extraction.Field] = extraction
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extractions: %w", err)
	}

	ordered := make(scan.Extractions, 0, len(byField))
	for _, field := range scan.Fields() {
		if extraction, ok := byField[field]; ok {
			ordered = append(ordered, extraction)
		}
	}
	return ordered, nil
}
