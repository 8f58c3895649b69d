// Package cycle keeps exactly one accounting cycle open.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"union-ledger/internal/store"

	"github.com/rs/zerolog/log"
)

type Repository interface {
	FindOpenCycle(ctx context.Context) (*store.Cycle, error)
	CreateOpenCycle(ctx context.Context, start time.Time) (*store.Cycle, error)
}

type Manager struct {
	repo Repository
	now  func() time.Time
}

func NewManager(repo Repository) *Manager {
	return &Manager{repo: repo, now: time.Now}
}

// EnsureOpen returns the newest OPEN cycle, opening one when none exists.
// Concurrent callers converge on the same cycle.
func (m *Manager) EnsureOpen(ctx context.Context) (store.Cycle, error) {
	c, err := m.repo.FindOpenCycle(ctx)
	if err == nil {
		return *c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.Cycle{}, fmt.Errorf("find open cycle: %w", err)
	}
	c, err = m.repo.CreateOpenCycle(ctx, m.now())
	if err != nil {
		return store.Cycle{}, fmt.Errorf("open cycle: %w", err)
	}
	log.Info().Str("cycle_id", c.ID).Msg("cycle opened")
	return *c, nil
}
