package importer

import (
	"testing"

	"union-ledger/internal/sheet"
	"union-ledger/internal/store"
)

func byCode(entities []ExtractedEntity) map[string]ExtractedEntity {
	out := make(map[string]ExtractedEntity, len(entities))
	for _, e := range entities {
		out[e.Code] = e
	}
	return out
}

func TestExtractHierarchyScenario(t *testing.T) {
	g := memberGrid(member{club: "Royal Club (ID:77)", sa: "SA1", saName: "Alice", ag: "AG1", agName: "Bob", pl: "P1", plName: "Carl"})
	got := byCode(ExtractHierarchy(g))
	if len(got) != 3 {
		t.Fatalf("expected 3 entities, got %d: %+v", len(got), got)
	}
	sa, ag, pl := got["SA1"], got["AG1"], got["P1"]
	if sa.Role != store.RoleSuperAgent || sa.Name != "Alice" || sa.SuperAgentParentCode != "" {
		t.Fatalf("unexpected super agent %+v", sa)
	}
	if ag.Role != store.RoleAgent || ag.SuperAgentParentCode != "SA1" {
		t.Fatalf("unexpected agent %+v", ag)
	}
	if pl.Role != store.RolePlayer || pl.AgentParentCode != "AG1" || pl.SuperAgentParentCode != "SA1" {
		t.Fatalf("unexpected player %+v", pl)
	}
	if pl.ClubID != "77" || pl.ClubName != "Royal Club" {
		t.Fatalf("unexpected club %q %q", pl.ClubID, pl.ClubName)
	}
}

func TestExtractHierarchySentinels(t *testing.T) {
	g := memberGrid(
		member{sa: "-", ag: "0", pl: "P1", plName: "Carl"},
		member{sa: "TOTAL", saName: "x", ag: "", pl: "P2"},
		member{sa: "SA1", ag: "total", pl: "0"},
	)
	got := byCode(ExtractHierarchy(g))
	for _, bad := range []string{"", "-", "0", "total", "TOTAL", "Total"} {
		if _, ok := got[bad]; ok {
			t.Fatalf("sentinel %q extracted as entity", bad)
		}
	}
	for code, e := range got {
		if IsSentinel(e.AgentParentCode) && e.AgentParentCode != "" {
			t.Fatalf("%s has sentinel agent parent %q", code, e.AgentParentCode)
		}
		if IsSentinel(e.SuperAgentParentCode) && e.SuperAgentParentCode != "" {
			t.Fatalf("%s has sentinel super agent parent %q", code, e.SuperAgentParentCode)
		}
	}
	if p := got["P1"]; p.AgentParentCode != "" || p.SuperAgentParentCode != "" {
		t.Fatalf("P1 should have no parents: %+v", p)
	}
	if _, ok := got["SA1"]; !ok {
		t.Fatal("SA1 on a row with sentinel agent and player should still be extracted")
	}
}

func TestExtractHierarchySkipsTotalRows(t *testing.T) {
	g := memberGrid(
		member{sa: "SA1", saName: "Alice", ag: "AG1", agName: "Total", pl: "P9", plName: "Zed"},
		member{sa: "SA2", saName: "total", pl: "P8"},
		member{sa: "SA3", ag: "AG3", pl: "P7", plName: "TOTAL"},
	)
	if got := ExtractHierarchy(g); len(got) != 0 {
		t.Fatalf("summary rows should contribute nothing, got %+v", got)
	}
}

func TestExtractHierarchyMerge(t *testing.T) {
	g := memberGrid(
		member{club: "North (ID:1)", sa: "SA1", ag: "AG1", agName: "Bo", pl: "P1", plName: "C"},
		member{sa: "SA2", ag: "AG1", agName: "Bobby", pl: "P2", plName: "Dan"},
		member{club: "South (ID:2)", ag: "AG1", agName: "B", pl: "P1", plName: "Carl"},
	)
	got := byCode(ExtractHierarchy(g))
	ag := got["AG1"]
	if ag.Name != "Bobby" {
		t.Fatalf("expected richest name Bobby, got %q", ag.Name)
	}
	if ag.SuperAgentParentCode != "SA2" {
		t.Fatalf("expected last non-empty super agent SA2, got %q", ag.SuperAgentParentCode)
	}
	if ag.ClubID != "2" || ag.ClubName != "South" {
		t.Fatalf("expected club South/2, got %q/%q", ag.ClubName, ag.ClubID)
	}
	p1 := got["P1"]
	if p1.Name != "Carl" || p1.SuperAgentParentCode != "SA1" || p1.AgentParentCode != "AG1" {
		t.Fatalf("unexpected P1 %+v", p1)
	}
	if p2 := got["P2"]; p2.ClubID != "1" {
		t.Fatalf("club context should carry over rows, got %q", p2.ClubID)
	}
}

func TestExtractHierarchyClubInSecondColumn(t *testing.T) {
	rows := memberRows("2025-01-01", member{pl: "P1"})
	rows[memberLayout.FirstRow-1][1] = "Blue Club (ID:42)"
	got := byCode(ExtractHierarchy(sheet.NewGrid(MemberSheet, rows)))
	if p := got["P1"]; p.ClubID != "42" || p.ClubName != "Blue Club" {
		t.Fatalf("unexpected club %+v", p)
	}
}

func TestExtractHierarchyRoleIsHighestSeen(t *testing.T) {
	g := memberGrid(
		member{sa: "SA1", pl: "X1"},
		member{sa: "SA1", ag: "X1"},
		member{sa: "X1", pl: "P2"},
		member{pl: "X1"},
	)
	if r := byCode(ExtractHierarchy(g))["X1"].Role; r != store.RoleSuperAgent {
		t.Fatalf("expected SUPER_AGENT, got %s", r)
	}
}

func TestExtractHierarchyNeverSelfParent(t *testing.T) {
	g := memberGrid(member{sa: "A1", ag: "A1", pl: "A1"})
	e := byCode(ExtractHierarchy(g))["A1"]
	if e.AgentParentCode == "A1" || e.SuperAgentParentCode == "A1" {
		t.Fatalf("self reference kept: %+v", e)
	}
}

func TestExtractHierarchyIgnoresHeaderRows(t *testing.T) {
	rows := memberRows("2025-01-01", member{pl: "P1"})
	rows[3] = cells{memberLayout.PlayerCode: "H1", memberLayout.PlayerName: "Header"}.row()
	got := byCode(ExtractHierarchy(sheet.NewGrid(MemberSheet, rows)))
	if _, ok := got["H1"]; ok {
		t.Fatal("row above the data offset was extracted")
	}
}
