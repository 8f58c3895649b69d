package importer

import (
	"strconv"
	"testing"

	"union-ledger/internal/sheet"

	"github.com/xuri/excelize/v2"
)

// cells maps 1-based column numbers to cell text.
type cells map[int]string

func (c cells) row() []string {
	width := 0
	for col := range c {
		if col > width {
			width = col
		}
	}
	r := make([]string, width)
	for col, v := range c {
		r[col-1] = v
	}
	return r
}

// rowsFrom places rows starting at row first, with header rows empty except
// for header, which lands on row 1.
func rowsFrom(first int, header cells, rows ...cells) [][]string {
	out := make([][]string, 0, first-1+len(rows))
	for i := 1; i < first; i++ {
		if i == 1 && header != nil {
			out = append(out, header.row())
			continue
		}
		out = append(out, nil)
	}
	for _, r := range rows {
		out = append(out, r.row())
	}
	return out
}

type member struct {
	club           string
	sa, saName     string
	ag, agName     string
	pl, plName     string
	pnl, subPnl    string
	rake, subRake  string
	hands, subHand string
}

func (m member) cells() cells {
	l := memberLayout
	c := cells{
		l.SuperCode: m.sa, l.SuperName: m.saName,
		l.AgentCode: m.ag, l.AgentName: m.agName,
		l.PlayerCode: m.pl, l.PlayerName: m.plName,
		l.TotalPnL: m.pnl, l.SubPnL: m.subPnl,
		l.TotalRake: m.rake, l.SubRake: m.subRake,
		l.TotalHands: m.hands, l.SubHands: m.subHand,
	}
	if m.club != "" {
		c[1] = m.club
	}
	return c
}

func memberRows(date string, members ...member) [][]string {
	rows := make([]cells, 0, len(members))
	for _, m := range members {
		rows = append(rows, m.cells())
	}
	var header cells
	if date != "" {
		header = cells{1: date}
	}
	return rowsFrom(memberLayout.FirstRow, header, rows...)
}

func memberGrid(members ...member) *sheet.Grid {
	return sheet.NewGrid(MemberSheet, memberRows("2025-01-01", members...))
}

func marker(label string) cells {
	return cells{1: "Table Name : " + label + ", Blinds 1/2"}
}

// buildDoc writes sheets into an xlsx document. Numeric text is stored as a
// number cell, everything else as a string cell.
func buildDoc(t *testing.T, sheets map[string][][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for name, rows := range sheets {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet %s: %v", name, err)
		}
		for r, row := range rows {
			for c, v := range row {
				if v == "" {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					t.Fatalf("cell name: %v", err)
				}
				var value any = v
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					value = n
				}
				if err := f.SetCellValue(name, cell, value); err != nil {
					t.Fatalf("set %s!%s: %v", name, cell, err)
				}
			}
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		t.Fatalf("delete default sheet: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}
