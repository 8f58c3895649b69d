package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// LedgerTx is the set of writes a period reconciliation performs atomically.
// Implementations must be safe for concurrent use.
type LedgerTx interface {
	// LockPeriod blocks until no other transaction holds the period.
	LockPeriod(ctx context.Context, period time.Time) error
	SumPnLByEntity(ctx context.Context, period time.Time) ([]EntityPnL, error)
	AdjustBalance(ctx context.Context, entityID string, delta decimal.Decimal) error
	DeleteSessionsByPeriod(ctx context.Context, period time.Time) (int64, error)
	InsertSessions(ctx context.Context, sessions []SessionRecord) (int64, error)
}

// InLedgerTx runs fn in a single database transaction, committing only when
// fn returns nil.
func (s *Store) InLedgerTx(ctx context.Context, fn func(context.Context, LedgerTx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgLedgerTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit tx: %w", err)
	}
	return nil
}

// pgLedgerTx serializes statements on the single connection a pgx.Tx owns.
type pgLedgerTx struct {
	mu sync.Mutex
	tx pgx.Tx
}

func (t *pgLedgerTx) LockPeriod(ctx context.Context, period time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('ledger_period:' || $1::text))`, period.Format("2006-01-02"))
	return err
}

func (t *pgLedgerTx) SumPnLByEntity(ctx context.Context, period time.Time) ([]EntityPnL, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rows, err := t.tx.Query(ctx, `
		SELECT entity_id, COALESCE(SUM(pnl), 0)
		FROM sessions
		WHERE period_date = $1
		GROUP BY entity_id
		ORDER BY entity_id
	`, dateParam(period))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []EntityPnL{}
	for rows.Next() {
		var (
			p   EntityPnL
			sum pgtype.Numeric
		)
		if err := rows.Scan(&p.EntityID, &sum); err != nil {
			return nil, err
		}
		p.PnL = decimalVal(sum)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *pgLedgerTx) AdjustBalance(ctx context.Context, entityID string, delta decimal.Decimal) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	tag, err := t.tx.Exec(ctx, `UPDATE entities SET balance = balance + $2, updated_at = now() WHERE id = $1`, entityID, numericParam(delta))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgLedgerTx) DeleteSessionsByPeriod(ctx context.Context, period time.Time) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tag, err := t.tx.Exec(ctx, `DELETE FROM sessions WHERE period_date = $1`, dateParam(period))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var sessionCopyColumns = []string{"id", "entity_id", "period_date", "venue_label", "buy_in", "cash_out", "pnl", "rake", "hands", "cycle_id", "created_at"}

func (t *pgLedgerTx) InsertSessions(ctx context.Context, sessions []SessionRecord) (int64, error) {
	if len(sessions) == 0 {
		return 0, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	return t.tx.CopyFrom(ctx, pgx.Identifier{"sessions"}, sessionCopyColumns, pgx.CopyFromSlice(len(sessions), func(i int) ([]any, error) {
		r := sessions[i]
		id := r.ID
		if id == "" {
			id = NewID()
		}
		return []any{
			id,
			r.EntityID,
			dateParam(r.PeriodDate),
			r.VenueLabel,
			numericParam(r.BuyIn),
			numericParam(r.CashOut),
			numericParam(r.PnL),
			numericParam(r.Rake),
			int32(r.Hands),
			textParam(r.CycleID),
			now,
		}, nil
	}))
}

// ListSessionsByEntity returns the latest sessions of one entity.
func (s *Store) ListSessionsByEntity(ctx context.Context, entityID string, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, entity_id, period_date, venue_label, buy_in, cash_out, pnl, rake, hands, cycle_id, created_at
		FROM sessions
		WHERE entity_id = $1
		ORDER BY period_date DESC, created_at DESC
		LIMIT $2
	`, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []SessionRecord{}
	for rows.Next() {
		var (
			r                         SessionRecord
			period                    pgtype.Date
			buyIn, cashOut, pnl, rake pgtype.Numeric
			hands                     int32
			cycleID                   pgtype.Text
			createdAt                 pgtype.Timestamptz
		)
		if err := rows.Scan(&r.ID, &r.EntityID, &period, &r.VenueLabel, &buyIn, &cashOut, &pnl, &rake, &hands, &cycleID, &createdAt); err != nil {
			return nil, err
		}
		r.PeriodDate = dateVal(period)
		r.BuyIn = decimalVal(buyIn)
		r.CashOut = decimalVal(cashOut)
		r.PnL = decimalVal(pnl)
		r.Rake = decimalVal(rake)
		r.Hands = int(hands)
		r.CycleID = textVal(cycleID)
		r.CreatedAt = createdAt.Time
		out = append(out, r)
	}
	return out, rows.Err()
}
