package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"musicscan/internal/scan"
)

var sessionColumns = []string{"id", "user_id", "media_type", "status", "created_at", "updated_at"}

// CreateSession inserts a new session.
func (s *Store) CreateSession(ctx context.Context, session scan.Session) error {
	if session.ID == "" {
		return errors.New("create session: id required")
	}
	if session.MediaType == "" {
		session.MediaType = scan.MediaCD
	}
	if session.Status == "" {
		session.Status = scan.SessionProcessing
	}
	stmt := builder.Insert("scan_sessions").
		Columns(sessionColumns...).
		Values(
			session.ID,
			nullableString(session.UserID),
			session.MediaType,
			string(session.Status),
			formatTime(session.CreatedAt),
			formatTime(session.UpdatedAt),
		)
	if _, err := s.exec(ctx, stmt); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession loads a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (scan.Session, error) {
	query, args, err := builder.Select(sessionColumns...).
		From("scan_sessions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return scan.Session{}, fmt.Errorf("build session query: %w", err)
	}
	session, err := scanSession(s.db.QueryRowContext(ensureContext(ctx), query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return scan.Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return scan.Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// UpdateSessionStatus moves a session to status.
func (s *Store) UpdateSessionStatus(ctx context.Context, id string, status scan.SessionStatus) error {
	if _, err := scan.ParseSessionStatus(string(status)); err != nil {
		return err
	}
	stmt := builder.Update("scan_sessions").
		Set("status", string(status)).
		Set("updated_at", s.timestamp()).
		Where(sq.Eq{"id": id})
	res, err := s.exec(ctx, stmt)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListFilter narrows ListSessions. Zero values match everything.
type ListFilter struct {
	Status      scan.SessionStatus
	MatchStatus scan.MatchStatus
	UserID      string
	Limit       int
}

// ListSessions returns sessions newest first with their result headline.
func (s *Store) ListSessions(ctx context.Context, filter ListFilter) ([]scan.SessionSummary, error) {
	query := builder.Select(
		"s.id", "s.user_id", "s.media_type", "s.status", "s.created_at", "s.updated_at",
		"(SELECT COUNT(1) FROM scan_images i WHERE i.session_id = s.id)",
		"r.status", "r.release_id", "r.confidence", "r.artist", "r.title",
	).
		From("scan_sessions s").
		LeftJoin("scan_results r ON r.session_id = s.id").
		OrderBy("s.created_at DESC", "s.id")

	if filter.Status != "" {
		query = query.Where(sq.Eq{"s.status": string(filter.Status)})
	}
	if filter.MatchStatus != "" {
		query = query.Where(sq.Eq{"r.status": string(filter.MatchStatus)})
	}
	if filter.UserID != "" {
		query = query.Where(sq.Eq{"s.user_id": filter.UserID})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	sqlText, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var summaries []scan.SessionSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return summaries, nil
}

func scanSession(row rowScanner) (scan.Session, error) {
	var (
		session   scan.Session
		userID    sql.NullString
		status    string
		createdAt sql.NullString
		updatedAt sql.NullString
	)
	if err := row.Scan(&session.ID, &userID, &session.MediaType, &status, &createdAt, &updatedAt); err != nil {
		return scan.Session{}, err
	}
	session.UserID = userID.String
	session.Status = scan.SessionStatus(status)
	session.CreatedAt = parseTimeOrZero(createdAt)
	session.UpdatedAt = parseTimeOrZero(updatedAt)
	return session, nil
}

func scanSummary(row rowScanner) (scan.SessionSummary, error) {
	var (
		summary     scan.SessionSummary
		userID      sql.NullString
		status      string
		createdAt   sql.NullString
		updatedAt   sql.NullString
		matchStatus sql.NullString
		releaseID   sql.NullInt64
		confidence  sql.NullFloat64
		artist      sql.NullString
		title       sql.NullString
	)
	if err := row.Scan(
		&summary.ID, &userID, &summary.MediaType, &status, &createdAt, &updatedAt,
		&summary.ImageCount,
		&matchStatus, &releaseID, &confidence, &artist, &title,
	); err != nil {
		return scan.SessionSummary{}, err
	}
	summary.UserID = userID.String
	summary.Status = scan.SessionStatus(status)
	summary.CreatedAt = parseTimeOrZero(createdAt)
	summary.UpdatedAt = parseTimeOrZero(updatedAt)
	summary.MatchStatus = scan.MatchStatus(matchStatus.String)
	summary.ReleaseID = int64Ptr(releaseID)
	summary.Confidence = confidence.Float64
	summary.Artist = artist.String
	summary.Title = title.String
	return summary, nil
}
