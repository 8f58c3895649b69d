// Package ledger applies one period's session lines to entity balances.
package ledger

import (
	"context"
	"fmt"
	"time"

	"union-ledger/internal/store"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Repository runs a period reconciliation as one transaction.
type Repository interface {
	InLedgerTx(ctx context.Context, fn func(context.Context, store.LedgerTx) error) error
}

// Line is a session line already resolved to an entity id.
type Line struct {
	EntityID   string
	VenueLabel string
	BuyIn      decimal.Decimal
	CashOut    decimal.Decimal
	PnL        decimal.Decimal
	Rake       decimal.Decimal
	Hands      int
}

// Batch is the complete session set of one period.
type Batch struct {
	PeriodDate time.Time
	CycleID    string
	Lines      []Line
}

type Outcome struct {
	Reversed         int
	Purged           int64
	SessionsImported int
	Reapplied        int
}

type Reconciler struct {
	Repo      Repository
	ChunkSize int
}

func New(repo Repository, chunkSize int) *Reconciler {
	if chunkSize < 1 {
		chunkSize = 1
	}
	return &Reconciler{Repo: repo, ChunkSize: chunkSize}
}

// Reconcile replaces the sessions of b.PeriodDate with b.Lines and keeps every
// balance equal to the sum of its current sessions. Previous sessions of the
// period are reversed out of balances before the new ones are applied.
func (r *Reconciler) Reconcile(ctx context.Context, b Batch) (Outcome, error) {
	var out Outcome
	period := store.PeriodDay(b.PeriodDate)
	err := r.Repo.InLedgerTx(ctx, func(ctx context.Context, tx store.LedgerTx) error {
		out = Outcome{}
		if err := tx.LockPeriod(ctx, period); err != nil {
			return fmt.Errorf("lock period: %w", err)
		}

		prior, err := tx.SumPnLByEntity(ctx, period)
		if err != nil {
			return fmt.Errorf("sum prior sessions: %w", err)
		}
		reverse := make([]store.EntityPnL, 0, len(prior))
		for _, p := range prior {
			reverse = append(reverse, store.EntityPnL{EntityID: p.EntityID, PnL: p.PnL.Neg()})
		}
		out.Reversed, err = r.adjust(ctx, tx, reverse)
		if err != nil {
			return fmt.Errorf("reverse balances: %w", err)
		}

		out.Purged, err = tx.DeleteSessionsByPeriod(ctx, period)
		if err != nil {
			return fmt.Errorf("purge sessions: %w", err)
		}

		records, net := build(b, period)
		n, err := tx.InsertSessions(ctx, records)
		if err != nil {
			return fmt.Errorf("insert sessions: %w", err)
		}
		out.SessionsImported = int(n)

		out.Reapplied, err = r.adjust(ctx, tx, net)
		if err != nil {
			return fmt.Errorf("reapply balances: %w", err)
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	log.Info().
		Str("period", period.Format("2006-01-02")).
		Int("reversed", out.Reversed).
		Int64("purged", out.Purged).
		Int("sessions", out.SessionsImported).
		Int("reapplied", out.Reapplied).
		Msg("period reconciled")
	return out, nil
}

// build turns lines into session records and sums net pnl per entity, in
// first-seen order. Amounts are rounded to the stored scale before summing so
// a balance always equals the sum of its stored sessions.
func build(b Batch, period time.Time) ([]store.SessionRecord, []store.EntityPnL) {
	records := make([]store.SessionRecord, 0, len(b.Lines))
	index := map[string]int{}
	var net []store.EntityPnL
	for _, l := range b.Lines {
		pnl := store.RoundMoney(l.PnL)
		records = append(records, store.SessionRecord{
			ID:         store.NewID(),
			EntityID:   l.EntityID,
			PeriodDate: period,
			VenueLabel: l.VenueLabel,
			BuyIn:      store.RoundMoney(l.BuyIn),
			CashOut:    store.RoundMoney(l.CashOut),
			PnL:        pnl,
			Rake:       store.RoundMoney(l.Rake),
			Hands:      l.Hands,
			CycleID:    b.CycleID,
		})
		i, ok := index[l.EntityID]
		if !ok {
			i = len(net)
			index[l.EntityID] = i
			net = append(net, store.EntityPnL{EntityID: l.EntityID})
		}
		net[i].PnL = net[i].PnL.Add(pnl)
	}
	return records, net
}

// adjust applies every non-zero delta with at most ChunkSize writes in flight
// and returns once all of them finished.
func (r *Reconciler) adjust(ctx context.Context, tx store.LedgerTx, deltas []store.EntityPnL) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.ChunkSize)
	applied := 0
	for _, d := range deltas {
		if d.PnL.IsZero() {
			continue
		}
		applied++
		g.Go(func() error {
			if err := tx.AdjustBalance(gctx, d.EntityID, d.PnL); err != nil {
				return fmt.Errorf("entity %s: %w", d.EntityID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return applied, nil
}
