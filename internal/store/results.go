package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"musicscan/internal/scan"
)

var resultColumns = []string{
	"session_id", "artist", "title", "label", "catno", "barcode", "country", "year",
	"matrix", "ifpi_master", "ifpi_mould", "status", "release_id", "confidence",
	"candidates_json", "audit_log_json", "updated_at",
}

// upsertClause overwrites every column but the key on conflict.
var upsertClause = func() string {
	assignments := make([]string, 0, len(resultColumns)-1)
	for _, column := range resultColumns[1:] {
		assignments = append(assignments, column+" = excluded."+column)
	}
	return "ON CONFLICT(session_id) DO UPDATE SET " + strings.Join(assignments, ", ")
}()

// UpsertResult writes the whole result for its session, replacing any
// previous one.
func (s *Store) UpsertResult(ctx context.Context, result scan.Result) error {
	if result.SessionID == "" {
		return errors.New("upsert result: session id required")
	}
	if _, err := scan.ParseMatchStatus(string(result.Status)); err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	candidates := result.Candidates
	if candidates == nil {
		candidates = []scan.Candidate{}
	}
	candidatesJSON, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("marshal candidates: %w", err)
	}
	audit := result.AuditLog
	if audit == nil {
		audit = []scan.AuditEntry{}
	}
	auditJSON, err := json.Marshal(audit)
	if err != nil {
		return fmt.Errorf("marshal audit log: %w", err)
	}

	updatedAt := s.timestamp()
	if !result.UpdatedAt.IsZero() {
		updatedAt = formatTime(result.UpdatedAt)
	}

	stmt := builder.Insert("scan_results").
		Columns(resultColumns...).
		Values(
			result.SessionID,
			nullableString(result.Artist),
			nullableString(result.Title),
			nullableString(result.Label),
			nullableString(result.CatNo),
			nullableString(result.Barcode),
			nullableString(result.Country),
			nullableInt(result.Year),
			nullableString(result.Matrix),
			nullableString(result.IFPIMaster),
			nullableString(result.IFPIMould),
			string(result.Status),
			nullableInt64Ptr(result.ReleaseID),
			result.Confidence,
			string(candidatesJSON),
			string(auditJSON),
			updatedAt,
		).
		Suffix(upsertClause)
	if _, err := s.exec(ctx, stmt); err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

// GetResult loads the result of a session. It returns nil when the session
// has not produced a result yet.
func (s *Store) GetResult(ctx context.Context, sessionID string) (*scan.Result, error) {
	query, args, err := builder.Select(resultColumns...).
		From("scan_results").
		Where(sq.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build result query: %w", err)
	}
	result, err := scanResult(s.db.QueryRowContext(ensureContext(ctx), query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return result, nil
}

func scanResult(row rowScanner) (*scan.Result, error) {
	var (
		result         scan.Result
		artist         sql.NullString
		title          sql.NullString
		label          sql.NullString
		catno          sql.NullString
		barcode        sql.NullString
		country        sql.NullString
		year           sql.NullInt64
		matrix         sql.NullString
		ifpiMaster     sql.NullString
		ifpiMould      sql.NullString
		status         string
		releaseID      sql.NullInt64
		confidence     sql.NullFloat64
		candidatesJSON sql.NullString
		auditJSON      sql.NullString
		updatedAt      sql.NullString
	)
	if err := row.Scan(
		&result.SessionID, &artist, &title, &label, &catno, &barcode, &country, &year,
		&matrix, &ifpiMaster, &ifpiMould, &status, &releaseID, &confidence,
		&candidatesJSON, &auditJSON, &updatedAt,
	); err != nil {
		return nil, err
	}

	result.Artist = artist.String
	result.Title = title.String
	result.Label = label.String
	result.CatNo = catno.String
	result.Barcode = barcode.String
	result.Country = country.String
	result.Year = int(year.Int64)
	result.Matrix = matrix.String
	result.IFPIMaster = ifpiMaster.String
	result.IFPIMould = ifpiMould.String
	result.Status = scan.MatchStatus(status)
	result.ReleaseID = int64Ptr(releaseID)
	result.Confidence = confidence.Float64
	result.UpdatedAt = parseTimeOrZero(updatedAt)

	result.Candidates = []scan.Candidate{}
	if candidatesJSON.String != "" {
		if err := json.Unmarshal([]byte(candidatesJSON.String), &result.Candidates); err != nil {
			return nil, fmt.Errorf("decode candidates: %w", err)
		}
	}
	result.AuditLog = []scan.AuditEntry{}
	if auditJSON.String != "" {
		if err := json.Unmarshal([]byte(auditJSON.String), &result.AuditLog); err != nil {
			return nil, fmt.Errorf("decode audit log: %w", err)
		}
	}
	return &result, nil
}
