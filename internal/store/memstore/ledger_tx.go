package memstore

import (
	"context"
	"time"

	"union-ledger/internal/store"

	"github.com/shopspring/decimal"
)

// InLedgerTx serializes ledger transactions and undoes every write made by fn
// when it returns an error.
func (m *Memory) InLedgerTx(ctx context.Context, fn func(context.Context, store.LedgerTx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memTx{m: m}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// memTx rounds money to store.MoneyScale on write, as the NUMERIC(18,4)
// columns do.
type memTx struct {
	m    *Memory
	undo []func()
}

func periodKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func (t *memTx) rollback() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) LockPeriod(context.Context, time.Time) error {
	return nil
}

func (t *memTx) SumPnLByEntity(_ context.Context, period time.Time) ([]store.EntityPnL, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	key := periodKey(period)
	sums := map[string]decimal.Decimal{}
	for _, s := range t.m.sessions {
		if periodKey(s.PeriodDate) == key {
			sums[s.EntityID] = sums[s.EntityID].Add(s.PnL)
		}
	}
	out := make([]store.EntityPnL, 0, len(sums))
	for id, sum := range sums {
		out = append(out, store.EntityPnL{EntityID: id, PnL: sum})
	}
	return out, nil
}

func (t *memTx) AdjustBalance(_ context.Context, entityID string, delta decimal.Decimal) error {
	if h := t.m.Hooks.AdjustBalance; h != nil {
		if err := h(entityID, delta); err != nil {
			return err
		}
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	e, ok := t.m.entities[entityID]
	if !ok {
		return store.ErrNotFound
	}
	prev := e.Balance
	e.Balance = store.RoundMoney(e.Balance.Add(delta))
	t.undo = append(t.undo, func() { e.Balance = prev })
	return nil
}

func (t *memTx) DeleteSessionsByPeriod(_ context.Context, period time.Time) (int64, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	key := periodKey(period)
	var n int64
	for id, s := range t.m.sessions {
		if periodKey(s.PeriodDate) != key {
			continue
		}
		delete(t.m.sessions, id)
		removed := s
		t.undo = append(t.undo, func() { t.m.sessions[removed.ID] = removed })
		n++
	}
	return n, nil
}

func (t *memTx) InsertSessions(_ context.Context, sessions []store.SessionRecord) (int64, error) {
	if h := t.m.Hooks.InsertSessions; h != nil {
		if err := h(sessions); err != nil {
			return 0, err
		}
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	now := t.m.now()
	for _, s := range sessions {
		if _, ok := t.m.entities[s.EntityID]; !ok {
			return 0, store.ErrNotFound
		}
	}
	for _, s := range sessions {
		if s.ID == "" {
			s.ID = store.NewID()
		}
		s.CreatedAt = now
		s.BuyIn, s.CashOut = store.RoundMoney(s.BuyIn), store.RoundMoney(s.CashOut)
		s.PnL, s.Rake = store.RoundMoney(s.PnL), store.RoundMoney(s.Rake)
		t.m.sessions[s.ID] = s
		id := s.ID
		t.undo = append(t.undo, func() { delete(t.m.sessions, id) })
	}
	return int64(len(sessions)), nil
}
