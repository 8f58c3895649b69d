package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

func (s *Store) CreateImportLog(ctx context.Context, l ImportLog) (string, error) {
	id := NewID()
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO import_logs (id, source_label, period_start, period_end, status, entities_created, sessions_imported, error)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, id, l.SourceLabel, dateParam(l.PeriodStart), dateParam(l.PeriodEnd), string(l.Status),
		l.EntitiesCreated, l.SessionsImported, textParam(l.Error))
	return id, err
}

func (s *Store) ListImportLogs(ctx context.Context, limit, offset int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, source_label, period_start, period_end, status, entities_created, sessions_imported, error, created_at
		FROM import_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ImportLog{}
	for rows.Next() {
		var (
			l          ImportLog
			start, end pgtype.Date
			status     string
			errText    pgtype.Text
			createdAt  pgtype.Timestamptz
		)
		if err := rows.Scan(&l.ID, &l.SourceLabel, &start, &end, &status, &l.EntitiesCreated, &l.SessionsImported, &errText, &createdAt); err != nil {
			return nil, err
		}
		l.PeriodStart = dateVal(start)
		l.PeriodEnd = dateVal(end)
		l.Status = ImportStatus(status)
		l.Error = textVal(errText)
		l.CreatedAt = createdAt.Time
		out = append(out, l)
	}
	return out, rows.Err()
}
