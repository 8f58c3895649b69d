package sheet

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func buildXLSX(t *testing.T, sheets map[string]map[string]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for name, cells := range sheets {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for ref, v := range cells {
			if err := f.SetCellValue(name, ref, v); err != nil {
				t.Fatalf("set %s!%s: %v", name, ref, err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestOpenReadsNamedSheets(t *testing.T) {
	data := buildXLSX(t, map[string]map[string]any{
		"Union Member Statistics": {
			"A1": "2025-01-01 ~ 2025-01-01",
			"C7": "1001",
			"D7": " Alice ",
			"AL7": 12.5,
		},
	})
	wb, err := Open(data)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	g, ok := wb.Sheet("Union Member Statistics")
	if !ok {
		t.Fatalf("sheet missing, have %v", wb.Names())
	}
	if got := g.Text(7, 3); got != "1001" {
		t.Fatalf("C7 = %q, want 1001", got)
	}
	if got := g.Text(7, 4); got != "Alice" {
		t.Fatalf("D7 = %q, want trimmed Alice", got)
	}
	pnl, err := g.Decimal(7, 38)
	if err != nil {
		t.Fatalf("AL7: %v", err)
	}
	if !pnl.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("AL7 = %s, want 12.5", pnl)
	}
	if _, ok := wb.Sheet("Missing"); ok {
		t.Fatal("unexpected sheet")
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	if _, err := Open([]byte("not a workbook")); !errors.Is(err, ErrUnreadable) {
		t.Fatal("expected error for non-xlsx bytes")
	}
}

func TestGridOutOfRangeIsEmpty(t *testing.T) {
	g := NewGrid("s", [][]string{{"a"}})
	if g.Text(0, 1) != "" || g.Text(5, 1) != "" || g.Text(1, 9) != "" {
		t.Fatal("out of range cells should be empty")
	}
	d, err := g.Decimal(3, 3)
	if err != nil || !d.IsZero() {
		t.Fatalf("empty decimal = %s, %v; want 0, nil", d, err)
	}
}

func TestGridDecimalParseErrors(t *testing.T) {
	g := NewGrid("s", [][]string{{"1,234.50", "abc", "-", "7.9"}})
	d, err := g.Decimal(1, 1)
	if err != nil || !d.Equal(decimal.RequireFromString("1234.5")) {
		t.Fatalf("thousands separator: %s, %v", d, err)
	}
	_, err = g.Decimal(1, 2)
	var cellErr *CellError
	if !errors.As(err, &cellErr) || cellErr.Col != 2 {
		t.Fatalf("expected CellError for col 2, got %v", err)
	}
	if d, err := g.Decimal(1, 3); err != nil || !d.IsZero() {
		t.Fatalf("dash should read as zero: %s, %v", d, err)
	}
	if n, err := g.Int(1, 4); err != nil || n != 7 {
		t.Fatalf("Int = %d, %v; want 7", n, err)
	}
}

func TestGridDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2025-01-01 ~ 2025-01-01", "2025-01-01"},
		{"2025/03/09 00:00", "2025-03-09"},
		{"45658", "2025-01-01"},
	}
	for _, tt := range tests {
		g := NewGrid("s", [][]string{{tt.raw}})
		got, err := g.Date(1, 1, time.UTC)
		if err != nil {
			t.Fatalf("Date(%q) error = %v", tt.raw, err)
		}
		if got.Format("2006-01-02") != tt.want {
			t.Fatalf("Date(%q) = %s, want %s", tt.raw, got.Format("2006-01-02"), tt.want)
		}
	}
	for _, raw := range []string{"", "yesterday", "Report"} {
		g := NewGrid("s", [][]string{{raw}})
		if _, err := g.Date(1, 1, time.UTC); err == nil {
			t.Fatalf("Date(%q) expected error", raw)
		}
	}
}
