package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const entityColumns = `id, code, name, role, agent_parent_id, super_agent_parent_id, club_id, club_name, balance, rakeback_percent, created_at, updated_at`

func scanEntity(row pgx.Row) (Entity, error) {
	var (
		e                      Entity
		role                   string
		name, agentID, superID pgtype.Text
		clubID, clubName       pgtype.Text
		balance, rakeback      pgtype.Numeric
		createdAt, updatedAt   pgtype.Timestamptz
	)
	if err := row.Scan(&e.ID, &e.Code, &name, &role, &agentID, &superID, &clubID, &clubName, &balance, &rakeback, &createdAt, &updatedAt); err != nil {
		return Entity{}, err
	}
	e.Name = textVal(name)
	e.Role = Role(role)
	e.AgentParentID = textVal(agentID)
	e.SuperAgentParentID = textVal(superID)
	e.ClubID = textVal(clubID)
	e.ClubName = textVal(clubName)
	e.Balance = decimalVal(balance)
	e.RakebackPercent = decimalVal(rakeback)
	e.CreatedAt = createdAt.Time
	e.UpdatedAt = updatedAt.Time
	return e, nil
}

func collectEntities(rows pgx.Rows) ([]Entity, error) {
	defer rows.Close()
	out := []Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindEntitiesByCodes returns the stored entities among codes in one query.
func (s *Store) FindEntitiesByCodes(ctx context.Context, codes []string) ([]Entity, error) {
	if len(codes) == 0 {
		return []Entity{}, nil
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+entityColumns+` FROM entities WHERE code = ANY($1)`, codes)
	if err != nil {
		return nil, err
	}
	return collectEntities(rows)
}

// CreateEntities inserts all entities in one transaction. Codes that already
// exist are skipped; the count of rows actually inserted is returned.
func (s *Store) CreateEntities(ctx context.Context, entities []NewEntity) (int, error) {
	if len(entities) == 0 {
		return 0, nil
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range entities {
		batch.Queue(`
			INSERT INTO entities (id, code, name, role, club_id, club_name)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (code) DO NOTHING
		`, NewID(), e.Code, textParam(e.Name), string(e.Role), textParam(e.ClubID), textParam(e.ClubName))
	}
	br := tx.SendBatch(ctx, batch)
	created := 0
	for i := range entities {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("insert entity %q: %w", entities[i].Code, err)
		}
		created += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return created, nil
}

// UpdateEntity applies the non-nil fields of u.
func (s *Store) UpdateEntity(ctx context.Context, id string, u EntityUpdate) error {
	if u.Empty() {
		return nil
	}
	var role pgtype.Text
	if u.Role != nil {
		role = pgtype.Text{String: string(*u.Role), Valid: true}
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE entities SET
			name = COALESCE($2, name),
			role = COALESCE($3, role),
			club_id = COALESCE($4, club_id),
			club_name = COALESCE($5, club_name),
			agent_parent_id = CASE WHEN $8 THEN NULL ELSE COALESCE($6, agent_parent_id) END,
			super_agent_parent_id = CASE WHEN $9 THEN NULL ELSE COALESCE($7, super_agent_parent_id) END,
			updated_at = now()
		WHERE id = $1
	`, id, textPtrParam(u.Name), role, textPtrParam(u.ClubID), textPtrParam(u.ClubName),
		textPtrParam(u.AgentParentID), textPtrParam(u.SuperAgentParentID),
		u.ClearAgentParent, u.ClearSuperAgentParent)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetEntityByCode(ctx context.Context, code string) (*Entity, error) {
	e, err := scanEntity(s.Pool.QueryRow(ctx, `SELECT `+entityColumns+` FROM entities WHERE code = $1`, code))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &e, nil
}

// ListDownstream returns entities linked to id as their agent or super-agent.
func (s *Store) ListDownstream(ctx context.Context, id string) ([]Entity, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+entityColumns+` FROM entities
		WHERE agent_parent_id = $1 OR super_agent_parent_id = $1
		ORDER BY code ASC
	`, id)
	if err != nil {
		return nil, err
	}
	return collectEntities(rows)
}

func (s *Store) ListEntities(ctx context.Context, limit, offset int) ([]Entity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+entityColumns+` FROM entities ORDER BY code ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectEntities(rows)
}
