// Package memstore is an in-memory implementation of the ledger repository,
// used by tests and dry-run imports.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"union-ledger/internal/store"

	"github.com/shopspring/decimal"
)

// Hooks inject failures. A nil hook never fails.
type Hooks struct {
	CreateEntities func([]store.NewEntity) error
	UpdateEntity   func(id string, u store.EntityUpdate) error
	AdjustBalance  func(entityID string, delta decimal.Decimal) error
	InsertSessions func([]store.SessionRecord) error
}

type Memory struct {
	Hooks Hooks

	txMu sync.Mutex

	mu       sync.Mutex
	now      func() time.Time
	entities map[string]*store.Entity
	byCode   map[string]string
	sessions map[string]store.SessionRecord
	cycles   []store.Cycle
	logs     []store.ImportLog
}

func New() *Memory {
	return &Memory{
		now:      time.Now,
		entities: make(map[string]*store.Entity),
		byCode:   make(map[string]string),
		sessions: make(map[string]store.SessionRecord),
	}
}

// Seed stores an entity as-is, for tests that start from existing directory state.
func (m *Memory) Seed(e store.Entity) store.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = store.NewID()
	}
	cp := e
	m.entities[e.ID] = &cp
	m.byCode[e.Code] = e.ID
	return cp
}

func (m *Memory) FindEntitiesByCodes(_ context.Context, codes []string) ([]store.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Entity{}
	for _, code := range codes {
		if id, ok := m.byCode[code]; ok {
			out = append(out, *m.entities[id])
		}
	}
	return out, nil
}

func (m *Memory) CreateEntities(_ context.Context, entities []store.NewEntity) (int, error) {
	if h := m.Hooks.CreateEntities; h != nil {
		if err := h(entities); err != nil {
			return 0, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	created := 0
	now := m.now()
	for _, ne := range entities {
		if _, ok := m.byCode[ne.Code]; ok {
			continue
		}
		e := &store.Entity{
			ID:        store.NewID(),
			Code:      ne.Code,
			Name:      ne.Name,
			Role:      ne.Role,
			ClubID:    ne.ClubID,
			ClubName:  ne.ClubName,
			Balance:   decimal.Zero,
			CreatedAt: now,
			UpdatedAt: now,
		}
		m.entities[e.ID] = e
		m.byCode[e.Code] = e.ID
		created++
	}
	return created, nil
}

func (m *Memory) UpdateEntity(_ context.Context, id string, u store.EntityUpdate) error {
	if h := m.Hooks.UpdateEntity; h != nil {
		if err := h(id, u); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[id]
	if !ok {
		return store.ErrNotFound
	}
	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.Role != nil {
		e.Role = *u.Role
	}
	if u.ClubID != nil {
		e.ClubID = *u.ClubID
	}
	if u.ClubName != nil {
		e.ClubName = *u.ClubName
	}
	if u.AgentParentID != nil {
		e.AgentParentID = *u.AgentParentID
	}
	if u.SuperAgentParentID != nil {
		e.SuperAgentParentID = *u.SuperAgentParentID
	}
	if u.ClearAgentParent {
		e.AgentParentID = ""
	}
	if u.ClearSuperAgentParent {
		e.SuperAgentParentID = ""
	}
	e.UpdatedAt = m.now()
	return nil
}

func (m *Memory) GetEntityByCode(_ context.Context, code string) (*store.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byCode[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	e := *m.entities[id]
	return &e, nil
}

func (m *Memory) ListDownstream(_ context.Context, id string) ([]store.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Entity{}
	for _, e := range m.entities {
		if e.AgentParentID == id || e.SuperAgentParentID == id {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Memory) ListEntities(_ context.Context, limit, offset int) ([]store.Entity, error) {
	if limit <= 0 {
		limit = 50
	}
	all := m.Entities()
	if offset >= len(all) {
		return []store.Entity{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Entities returns every stored entity ordered by code.
func (m *Memory) Entities() []store.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Entity, 0, len(m.entities))
	for _, e := range m.entities {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Sessions returns every stored session ordered by entity then venue.
func (m *Memory) Sessions() []store.SessionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.SessionRecord, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sortSessions(out)
	return out
}

func (m *Memory) ListSessionsByEntity(_ context.Context, entityID string, limit int) ([]store.SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.SessionRecord{}
	for _, s := range m.sessions {
		if s.EntityID == entityID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PeriodDate.Equal(out[j].PeriodDate) {
			return out[i].PeriodDate.After(out[j].PeriodDate)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) FindOpenCycle(_ context.Context) (*store.Cycle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findOpenCycleLocked()
}

func (m *Memory) findOpenCycleLocked() (*store.Cycle, error) {
	var found *store.Cycle
	for i := range m.cycles {
		c := m.cycles[i]
		if c.Status != store.CycleOpen {
			continue
		}
		if found == nil || c.StartDate.After(found.StartDate) {
			found = &c
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return found, nil
}

func (m *Memory) CreateOpenCycle(_ context.Context, start time.Time) (*store.Cycle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, err := m.findOpenCycleLocked(); err == nil {
		return c, nil
	}
	c := store.Cycle{ID: store.NewID(), StartDate: start, Status: store.CycleOpen}
	m.cycles = append(m.cycles, c)
	return &c, nil
}

// CloseCycle marks a cycle closed. The importer never calls it; tests use it
// to simulate the operator rotating cycles.
func (m *Memory) CloseCycle(id string, end time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.cycles {
		if m.cycles[i].ID == id {
			m.cycles[i].Status = store.CycleClosed
			m.cycles[i].EndDate = &end
		}
	}
}

func (m *Memory) Cycles() []store.Cycle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Cycle(nil), m.cycles...)
}

// Logs returns import log entries in write order.
func (m *Memory) Logs() []store.ImportLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.ImportLog(nil), m.logs...)
}

func (m *Memory) CreateImportLog(_ context.Context, l store.ImportLog) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = store.NewID()
	l.CreatedAt = m.now()
	m.logs = append(m.logs, l)
	return l.ID, nil
}

func (m *Memory) ListImportLogs(_ context.Context, limit, offset int) ([]store.ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.ImportLog, 0, len(m.logs))
	for i := len(m.logs) - 1; i >= 0; i-- {
		out = append(out, m.logs[i])
	}
	if offset >= len(out) {
		return []store.ImportLog{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error {
	return nil
}

func sortSessions(s []store.SessionRecord) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].EntityID != s[j].EntityID {
			return s[i].EntityID < s[j].EntityID
		}
		if s[i].VenueLabel != s[j].VenueLabel {
			return s[i].VenueLabel < s[j].VenueLabel
		}
		return s[i].ID < s[j].ID
	})
}
