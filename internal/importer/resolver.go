package importer

import (
	"context"
	"sync/atomic"

	"union-ledger/internal/config"
	"union-ledger/internal/store"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DirectoryRepository is the entity directory the resolver reads and writes.
type DirectoryRepository interface {
	FindEntitiesByCodes(ctx context.Context, codes []string) ([]store.Entity, error)
	CreateEntities(ctx context.Context, entities []store.NewEntity) (int, error)
	UpdateEntity(ctx context.Context, id string, u store.EntityUpdate) error
}

// Resolution maps every extracted code to its storage id.
type Resolution struct {
	IDs             map[string]string
	Created         int
	SkippedEntities int
}

type Resolver struct {
	Repo       DirectoryRepository
	ChunkSize  int
	RolePolicy string
}

func NewResolver(repo DirectoryRepository, cfg config.ImportConfig) *Resolver {
	return &Resolver{Repo: repo, ChunkSize: cfg.ChunkSize, RolePolicy: cfg.RolePolicy}
}

// Resolve creates the codes the directory has not seen, then refreshes names,
// clubs, roles and parent links of every extracted entity. A failed update of
// one entity is logged and counted; a failed lookup or create aborts.
func (r *Resolver) Resolve(ctx context.Context, entities []ExtractedEntity) (Resolution, error) {
	res := Resolution{IDs: make(map[string]string, len(entities))}
	if len(entities) == 0 {
		return res, nil
	}
	codes := make([]string, 0, len(entities))
	for _, e := range entities {
		codes = append(codes, e.Code)
	}

	existing, err := r.Repo.FindEntitiesByCodes(ctx, codes)
	if err != nil {
		return res, &BulkError{Op: "lookup_entities", Err: err}
	}
	known := make(map[string]bool, len(existing))
	for _, e := range existing {
		known[e.Code] = true
	}
	var missing []store.NewEntity
	for _, e := range entities {
		if known[e.Code] {
			continue
		}
		missing = append(missing, store.NewEntity{
			Code:     e.Code,
			Name:     e.Name,
			Role:     e.Role,
			ClubID:   e.ClubID,
			ClubName: e.ClubName,
		})
	}
	if len(missing) > 0 {
		created, err := r.Repo.CreateEntities(ctx, missing)
		if err != nil {
			return res, &BulkError{Op: "create_entities", Err: err}
		}
		res.Created = created
	}

	stored, err := r.Repo.FindEntitiesByCodes(ctx, codes)
	if err != nil {
		return res, &BulkError{Op: "lookup_entities", Err: err}
	}
	byCode := make(map[string]store.Entity, len(stored))
	for _, e := range stored {
		byCode[e.Code] = e
		res.IDs[e.Code] = e.ID
	}

	roles := make(map[string]store.Role, len(entities))
	for _, e := range entities {
		if cur, ok := byCode[e.Code]; ok {
			roles[cur.ID] = r.finalRole(cur.Role, e.Role)
		}
	}

	var skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.chunk())
	for _, e := range entities {
		cur, ok := byCode[e.Code]
		if !ok {
			log.Warn().Str("code", e.Code).Msg("entity missing after create")
			skipped.Add(1)
			continue
		}
		u := r.plan(e, cur, res.IDs, roles)
		if u.Empty() {
			continue
		}
		g.Go(func() error {
			if err := r.Repo.UpdateEntity(gctx, cur.ID, u); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn().Err(err).Str("code", cur.Code).Msg("entity update failed")
				skipped.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	res.SkippedEntities = int(skipped.Load())
	return res, err
}

func (r *Resolver) chunk() int {
	if r.ChunkSize < 1 {
		return 1
	}
	return r.ChunkSize
}

// plan computes the changes for one entity. Fields the document does not
// supply stay as stored. roles holds the final role of every entity in this
// import; a parent link is only kept or written when its target ranks above
// the entity's final role, so role changes can never close a cycle.
func (r *Resolver) plan(e ExtractedEntity, cur store.Entity, ids map[string]string, roles map[string]store.Role) store.EntityUpdate {
	var u store.EntityUpdate
	if e.Name != "" && e.Name != cur.Name {
		u.Name = &e.Name
	}
	if e.ClubID != "" && (e.ClubID != cur.ClubID || e.ClubName != cur.ClubName) {
		u.ClubID, u.ClubName = &e.ClubID, &e.ClubName
	}

	role := roles[cur.ID]
	if role != cur.Role {
		u.Role = &role
	}

	// Targets outside this import keep their stored role.
	above := func(id string) bool {
		tr, ok := roles[id]
		return !ok || tr.Rank() > role.Rank()
	}
	link := func(allowed bool, code, stored string) (set *string, unset bool) {
		if !allowed {
			return nil, stored != ""
		}
		if id, ok := ids[code]; code != "" && ok && id != cur.ID && above(id) {
			if id == stored {
				return nil, false
			}
			return &id, false
		}
		return nil, stored != "" && !above(stored)
	}
	u.AgentParentID, u.ClearAgentParent = link(role == store.RolePlayer, e.AgentParentCode, cur.AgentParentID)
	u.SuperAgentParentID, u.ClearSuperAgentParent = link(role == store.RolePlayer || role == store.RoleAgent, e.SuperAgentParentCode, cur.SuperAgentParentID)
	return u
}

// finalRole applies the role policy. Under preserve a stored role is only
// ever upgraded.
func (r *Resolver) finalRole(stored, observed store.Role) store.Role {
	if !observed.Valid() {
		return stored
	}
	if r.RolePolicy == config.RolePolicyObserved || observed.Rank() > stored.Rank() {
		return observed
	}
	return stored
}

// LookupAdditional adds ids for codes that appear only on detail sheets but
// already exist in the directory.
func (r *Resolver) LookupAdditional(ctx context.Context, codes []string, ids map[string]string) error {
	var want []string
	seen := map[string]bool{}
	for _, c := range codes {
		if _, ok := ids[c]; ok || seen[c] {
			continue
		}
		seen[c] = true
		want = append(want, c)
	}
	if len(want) == 0 {
		return nil
	}
	found, err := r.Repo.FindEntitiesByCodes(ctx, want)
	if err != nil {
		return &BulkError{Op: "lookup_entities", Err: err}
	}
	for _, e := range found {
		ids[e.Code] = e.ID
	}
	return nil
}
