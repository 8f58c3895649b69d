package importer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"union-ledger/internal/config"
	"union-ledger/internal/store"
	"union-ledger/internal/store/memstore"
)

func testImportConfig() config.ImportConfig {
	return config.ImportConfig{
		ChunkSize:   50,
		Timeout:     30 * time.Second,
		RolePolicy:  config.RolePolicyPreserve,
		Timezone:    "UTC",
		SourceLabel: "Test",
	}
}

func entityMap(mem *memstore.Memory) map[string]store.Entity {
	out := map[string]store.Entity{}
	for _, e := range mem.Entities() {
		out[e.Code] = e
	}
	return out
}

func TestResolveCreatesAndLinks(t *testing.T) {
	mem := memstore.New()
	r := NewResolver(mem, testImportConfig())
	g := memberGrid(
		member{ag: "AG1", agName: "Bob", sa: "SA1", pl: "P1", plName: "Carl"},
		member{sa: "SA1", saName: "Alice"},
	)
	res, err := r.Resolve(context.Background(), ExtractHierarchy(g))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Created != 3 || res.SkippedEntities != 0 || len(res.IDs) != 3 {
		t.Fatalf("unexpected resolution %+v", res)
	}
	got := entityMap(mem)
	sa, ag, pl := got["SA1"], got["AG1"], got["P1"]
	if ag.SuperAgentParentID != sa.ID || ag.AgentParentID != "" {
		t.Fatalf("agent links wrong: %+v", ag)
	}
	if pl.AgentParentID != ag.ID || pl.SuperAgentParentID != sa.ID {
		t.Fatalf("player links wrong: %+v", pl)
	}
	if sa.AgentParentID != "" || sa.SuperAgentParentID != "" {
		t.Fatalf("super agent should have no parents: %+v", sa)
	}
	if sa.Name != "Alice" || !pl.Balance.IsZero() {
		t.Fatalf("unexpected %+v %+v", sa, pl)
	}
}

func TestResolveForwardReference(t *testing.T) {
	mem := memstore.New()
	r := NewResolver(mem, testImportConfig())
	g := memberGrid(
		member{sa: "SA9", ag: "AG9", agName: "Early"},
		member{sa: "SA9", saName: "Late"},
	)
	if _, err := r.Resolve(context.Background(), ExtractHierarchy(g)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got := entityMap(mem)
	if got["AG9"].SuperAgentParentID == "" || got["AG9"].SuperAgentParentID != got["SA9"].ID {
		t.Fatalf("forward reference unresolved: %+v", got["AG9"])
	}
}

func TestResolveNeverClearsParent(t *testing.T) {
	mem := memstore.New()
	r := NewResolver(mem, testImportConfig())
	ctx := context.Background()
	if _, err := r.Resolve(ctx, ExtractHierarchy(memberGrid(member{sa: "SA1", ag: "AG1", pl: "P1"}))); err != nil {
		t.Fatalf("first: %v", err)
	}
	before := entityMap(mem)["P1"]
	if _, err := r.Resolve(ctx, ExtractHierarchy(memberGrid(member{pl: "P1", plName: "Renamed"}))); err != nil {
		t.Fatalf("second: %v", err)
	}
	after := entityMap(mem)["P1"]
	if after.AgentParentID != before.AgentParentID || after.SuperAgentParentID != before.SuperAgentParentID {
		t.Fatalf("parent link cleared: before %+v after %+v", before, after)
	}
	if after.Name != "Renamed" {
		t.Fatalf("name not refreshed: %q", after.Name)
	}
}

func TestResolveRolePolicyPreserve(t *testing.T) {
	mem := memstore.New()
	mem.Seed(store.Entity{Code: "X1", Role: store.RoleAgent})
	mem.Seed(store.Entity{Code: "Y1", Role: store.RolePlayer})
	r := NewResolver(mem, testImportConfig())
	g := memberGrid(member{sa: "Y1", ag: "AG2", pl: "X1"})
	if _, err := r.Resolve(context.Background(), ExtractHierarchy(g)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got := entityMap(mem)
	if got["X1"].Role != store.RoleAgent {
		t.Fatalf("agent downgraded to %s", got["X1"].Role)
	}
	if got["Y1"].Role != store.RoleSuperAgent {
		t.Fatalf("player not upgraded, got %s", got["Y1"].Role)
	}
	// X1 stays an agent, so only its super agent link is written.
	if got["X1"].AgentParentID != "" || got["X1"].SuperAgentParentID != got["Y1"].ID {
		t.Fatalf("links by final role wrong: %+v", got["X1"])
	}
}

func TestResolveRolePolicyObserved(t *testing.T) {
	mem := memstore.New()
	mem.Seed(store.Entity{Code: "X1", Role: store.RoleSuperAgent})
	cfg := testImportConfig()
	cfg.RolePolicy = config.RolePolicyObserved
	r := NewResolver(mem, cfg)
	if _, err := r.Resolve(context.Background(), ExtractHierarchy(memberGrid(member{ag: "AG1", pl: "X1"}))); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	x := entityMap(mem)["X1"]
	if x.Role != store.RolePlayer {
		t.Fatalf("expected observed PLAYER, got %s", x.Role)
	}
	if x.AgentParentID == "" {
		t.Fatal("player link missing after role change")
	}
}

func TestResolveObservedDowngradeKeepsHierarchyAcyclic(t *testing.T) {
	mem := memstore.New()
	b := mem.Seed(store.Entity{Code: "200", Role: store.RoleSuperAgent})
	a := mem.Seed(store.Entity{Code: "100", Role: store.RoleAgent, SuperAgentParentID: b.ID})
	cfg := testImportConfig()
	cfg.RolePolicy = config.RolePolicyObserved
	r := NewResolver(mem, cfg)
	if _, err := r.Resolve(context.Background(), ExtractHierarchy(memberGrid(member{ag: "100", pl: "200"}))); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got := entityMap(mem)
	gotA, gotB := got["100"], got["200"]
	if gotB.Role != store.RolePlayer || gotB.AgentParentID != a.ID {
		t.Fatalf("expected 200 to become a player under 100: %+v", gotB)
	}
	if gotA.SuperAgentParentID != "" {
		t.Fatalf("100 still points at its new child: %+v", gotA)
	}
	assertAcyclic(t, got)
}

func TestResolveUpgradeDropsIneligibleLinks(t *testing.T) {
	mem := memstore.New()
	sa := mem.Seed(store.Entity{Code: "SA1", Role: store.RoleSuperAgent})
	ag := mem.Seed(store.Entity{Code: "AG1", Role: store.RoleAgent, SuperAgentParentID: sa.ID})
	mem.Seed(store.Entity{Code: "P1", Role: store.RolePlayer, AgentParentID: ag.ID, SuperAgentParentID: sa.ID})
	r := NewResolver(mem, testImportConfig())
	g := memberGrid(member{sa: "AG1", saName: "Promoted"}, member{sa: "SA2", ag: "P1"})
	if _, err := r.Resolve(context.Background(), ExtractHierarchy(g)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got := entityMap(mem)
	if got["AG1"].Role != store.RoleSuperAgent || got["AG1"].SuperAgentParentID != "" {
		t.Fatalf("super agent kept a parent: %+v", got["AG1"])
	}
	p := got["P1"]
	if p.Role != store.RoleAgent || p.AgentParentID != "" || p.SuperAgentParentID != got["SA2"].ID {
		t.Fatalf("promoted player links wrong: %+v", p)
	}
	assertAcyclic(t, got)
}

func TestResolveSkipsLinkToLowerRank(t *testing.T) {
	mem := memstore.New()
	mem.Seed(store.Entity{Code: "X1", Role: store.RoleSuperAgent})
	r := NewResolver(mem, testImportConfig())
	// Under preserve X1 stays a super agent, so it cannot hang under AG1.
	if _, err := r.Resolve(context.Background(), ExtractHierarchy(memberGrid(member{ag: "AG1", pl: "X1"}))); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if x := entityMap(mem)["X1"]; x.AgentParentID != "" || x.SuperAgentParentID != "" {
		t.Fatalf("super agent linked under an agent: %+v", x)
	}
}

func assertAcyclic(t *testing.T, byCode map[string]store.Entity) {
	t.Helper()
	byID := map[string]store.Entity{}
	for _, e := range byCode {
		byID[e.ID] = e
	}
	for _, e := range byCode {
		for _, pid := range []string{e.AgentParentID, e.SuperAgentParentID} {
			if pid == "" {
				continue
			}
			parent, ok := byID[pid]
			if !ok {
				t.Fatalf("%s links to unknown %s", e.Code, pid)
			}
			if parent.Role.Rank() <= e.Role.Rank() {
				t.Fatalf("%s (%s) links to %s (%s)", e.Code, e.Role, parent.Code, parent.Role)
			}
		}
	}
}

func TestResolveCreateFailureIsFatal(t *testing.T) {
	mem := memstore.New()
	mem.Hooks.CreateEntities = func([]store.NewEntity) error { return errors.New("disk full") }
	r := NewResolver(mem, testImportConfig())
	_, err := r.Resolve(context.Background(), ExtractHierarchy(memberGrid(member{pl: "P1"})))
	if !errors.Is(err, ErrBulkOperation) {
		t.Fatalf("expected bulk failure, got %v", err)
	}
	var be *BulkError
	if !errors.As(err, &be) || be.Op != "create_entities" {
		t.Fatalf("expected create_entities BulkError, got %v", err)
	}
}

func TestResolveIsolatesUpdateFailures(t *testing.T) {
	mem := memstore.New()
	r := NewResolver(mem, testImportConfig())
	g := memberGrid(
		member{sa: "SA1", ag: "AG1", pl: "P1"},
		member{sa: "SA1", ag: "AG1", pl: "P2"},
	)
	var failing string
	mem.Hooks.UpdateEntity = func(id string, _ store.EntityUpdate) error {
		if id == failing {
			return errors.New("row locked")
		}
		return nil
	}
	entities := ExtractHierarchy(g)
	// create first so the failing id is known
	if _, err := mem.CreateEntities(context.Background(), []store.NewEntity{{Code: "P1", Role: store.RolePlayer}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	failing = entityMap(mem)["P1"].ID

	res, err := r.Resolve(context.Background(), entities)
	if err != nil {
		t.Fatalf("resolve should not fail: %v", err)
	}
	if res.SkippedEntities != 1 {
		t.Fatalf("expected 1 skipped entity, got %d", res.SkippedEntities)
	}
	got := entityMap(mem)
	if got["P2"].AgentParentID != got["AG1"].ID {
		t.Fatal("other entities should still be linked")
	}
	if got["P1"].AgentParentID != "" {
		t.Fatal("failed update should not be applied")
	}
}

func TestResolveBoundsConcurrentUpdates(t *testing.T) {
	mem := memstore.New()
	cfg := testImportConfig()
	cfg.ChunkSize = 7
	r := NewResolver(mem, cfg)
	var inFlight, peak atomic.Int64
	mem.Hooks.UpdateEntity = func(string, store.EntityUpdate) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(200 * time.Microsecond)
		return nil
	}
	members := make([]member, 0, 200)
	for i := 0; i < 200; i++ {
		members = append(members, member{sa: "SA1", ag: "AG1", pl: "P" + string(rune('A'+i%26)) + string(rune('a'+i/26))})
	}
	if _, err := r.Resolve(context.Background(), ExtractHierarchy(memberGrid(members...))); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p := peak.Load(); p > 7 {
		t.Fatalf("peak in-flight updates %d exceeds 7", p)
	}
}

func TestLookupAdditional(t *testing.T) {
	mem := memstore.New()
	old := mem.Seed(store.Entity{Code: "OLD", Role: store.RolePlayer})
	r := NewResolver(mem, testImportConfig())
	ids := map[string]string{"P1": "id-p1"}
	if err := r.LookupAdditional(context.Background(), []string{"P1", "OLD", "NEW", "OLD"}, ids); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if ids["OLD"] != old.ID {
		t.Fatalf("expected OLD resolved to %s, got %q", old.ID, ids["OLD"])
	}
	if _, ok := ids["NEW"]; ok {
		t.Fatal("unknown code should stay unresolved")
	}
	if len(mem.Entities()) != 1 {
		t.Fatal("lookup must not create entities")
	}
}
