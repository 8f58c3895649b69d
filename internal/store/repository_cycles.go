package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// FindOpenCycle returns the newest OPEN cycle or ErrNotFound.
func (s *Store) FindOpenCycle(ctx context.Context) (*Cycle, error) {
	var (
		c       Cycle
		status  string
		endDate pgtype.Timestamptz
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT id, start_date, end_date, status FROM cycles
		WHERE status = 'OPEN'
		ORDER BY start_date DESC
		LIMIT 1
	`).Scan(&c.ID, &c.StartDate, &endDate, &status)
	if err != nil {
		return nil, mapNotFound(err)
	}
	c.EndDate = timePtrVal(endDate)
	c.Status = CycleStatus(status)
	return &c, nil
}

// CreateOpenCycle opens a cycle starting at start. When another writer opened
// one first, that cycle is returned instead.
func (s *Store) CreateOpenCycle(ctx context.Context, start time.Time) (*Cycle, error) {
	if _, err := s.Pool.Exec(ctx, `
		INSERT INTO cycles (id, start_date, status) VALUES ($1, $2, 'OPEN')
		ON CONFLICT DO NOTHING
	`, NewID(), start); err != nil {
		return nil, err
	}
	return s.FindOpenCycle(ctx)
}
