package importer

import (
	"regexp"
	"sort"
	"strings"

	"union-ledger/internal/sheet"
	"union-ledger/internal/store"
)

var clubLabel = regexp.MustCompile(`(.*?)\s*\(ID:(\d+)\)`)

// ExtractedEntity is one participant read from the membership sheet. Parent
// references are natural codes; empty means none.
type ExtractedEntity struct {
	Code                 string
	Name                 string
	Role                 store.Role
	AgentParentCode      string
	SuperAgentParentCode string
	ClubID               string
	ClubName             string
}

// IsSentinel reports whether a cell value is a placeholder rather than a code.
func IsSentinel(code string) bool {
	switch strings.TrimSpace(code) {
	case "", "-", "0":
		return true
	}
	return isTotal(code)
}

func isTotal(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "total")
}

type club struct {
	id, name string
}

// ExtractHierarchy scans the membership sheet and returns every distinct
// participant, sorted by code.
func ExtractHierarchy(g *sheet.Grid) []ExtractedEntity {
	l := memberLayout
	seen := map[string]*ExtractedEntity{}
	var current club

	for row := l.FirstRow; row <= g.Rows(); row++ {
		for _, col := range l.ClubCols {
			if m := clubLabel.FindStringSubmatch(g.Text(row, col)); m != nil {
				current = club{id: m[2], name: strings.TrimSpace(m[1])}
				break
			}
		}

		saCode, saName := g.Text(row, l.SuperCode), g.Text(row, l.SuperName)
		agCode, agName := g.Text(row, l.AgentCode), g.Text(row, l.AgentName)
		plCode, plName := g.Text(row, l.PlayerCode), g.Text(row, l.PlayerName)
		if isTotal(saName) || isTotal(agName) || isTotal(plName) {
			continue
		}

		sa := codeOrEmpty(saCode)
		ag := codeOrEmpty(agCode)
		merge(seen, current, ExtractedEntity{Code: sa, Name: saName, Role: store.RoleSuperAgent})
		merge(seen, current, ExtractedEntity{Code: ag, Name: agName, Role: store.RoleAgent, SuperAgentParentCode: sa})
		merge(seen, current, ExtractedEntity{Code: codeOrEmpty(plCode), Name: plName, Role: store.RolePlayer, AgentParentCode: ag, SuperAgentParentCode: sa})
	}

	out := make([]ExtractedEntity, 0, len(seen))
	for _, e := range seen {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func codeOrEmpty(code string) string {
	if IsSentinel(code) {
		return ""
	}
	return code
}

// merge folds one observation of a code into the accumulated entity: the
// longest name, the highest role, the latest club context and the latest
// non-empty parent codes win.
func merge(seen map[string]*ExtractedEntity, c club, obs ExtractedEntity) {
	if obs.Code == "" {
		return
	}
	if obs.AgentParentCode == obs.Code {
		obs.AgentParentCode = ""
	}
	if obs.SuperAgentParentCode == obs.Code {
		obs.SuperAgentParentCode = ""
	}

	e, ok := seen[obs.Code]
	if !ok {
		obs.ClubID, obs.ClubName = c.id, c.name
		seen[obs.Code] = &obs
		return
	}
	if len(obs.Name) > len(e.Name) {
		e.Name = obs.Name
	}
	if obs.Role.Rank() > e.Role.Rank() {
		e.Role = obs.Role
	}
	if c.id != "" {
		e.ClubID, e.ClubName = c.id, c.name
	}
	if obs.AgentParentCode != "" {
		e.AgentParentCode = obs.AgentParentCode
	}
	if obs.SuperAgentParentCode != "" {
		e.SuperAgentParentCode = obs.SuperAgentParentCode
	}
}
