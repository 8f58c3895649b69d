// Package sheet exposes an uploaded workbook as named grids of cell text,
// addressed with 1-based row and column numbers.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnreadable    = errors.New("unreadable_workbook")
	ErrEmptyWorkbook = errors.New("empty_workbook")
)

// Workbook is a read-only snapshot of every sheet in a document.
type Workbook struct {
	order  []string
	sheets map[string]*Grid
}

// Open reads an xlsx document. Cells are read raw so numbers and dates keep
// their stored value instead of the display format.
func Open(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer f.Close()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, ErrEmptyWorkbook
	}
	wb := &Workbook{sheets: make(map[string]*Grid, len(names))}
	for _, name := range names {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		wb.order = append(wb.order, name)
		wb.sheets[name] = NewGrid(name, rows)
	}
	return wb, nil
}

// NewWorkbook assembles a workbook from grids already in memory.
func NewWorkbook(grids ...*Grid) *Workbook {
	wb := &Workbook{sheets: make(map[string]*Grid, len(grids))}
	for _, g := range grids {
		wb.order = append(wb.order, g.Name)
		wb.sheets[g.Name] = g
	}
	return wb
}

func (w *Workbook) Sheet(name string) (*Grid, bool) {
	g, ok := w.sheets[name]
	return g, ok
}

func (w *Workbook) Names() []string {
	return append([]string(nil), w.order...)
}

// Grid is one sheet. Missing rows and cells read as empty text.
type Grid struct {
	Name string
	rows [][]string
}

func NewGrid(name string, rows [][]string) *Grid {
	return &Grid{Name: name, rows: rows}
}

// Rows is the number of the last populated row.
func (g *Grid) Rows() int {
	return len(g.rows)
}

// Text returns the trimmed cell text at (row, col).
func (g *Grid) Text(row, col int) string {
	if row < 1 || row > len(g.rows) {
		return ""
	}
	cells := g.rows[row-1]
	if col < 1 || col > len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[col-1])
}

// Decimal parses the cell as a number. An empty cell is zero.
func (g *Grid) Decimal(row, col int) (decimal.Decimal, error) {
	raw := strings.ReplaceAll(g.Text(row, col), ",", "")
	if raw == "" || raw == "-" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &CellError{Sheet: g.Name, Row: row, Col: col, Value: raw, Err: err}
	}
	return d, nil
}

// Int parses the cell as a whole number, truncating any fraction.
func (g *Grid) Int(row, col int) (int, error) {
	d, err := g.Decimal(row, col)
	if err != nil {
		return 0, err
	}
	return int(d.IntPart()), nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
}

// Date parses the leading token of a cell (text before the first space) as a
// calendar date in loc. Excel serial numbers are accepted too.
func (g *Grid) Date(row, col int, loc *time.Location) (time.Time, error) {
	raw := g.Text(row, col)
	token, _, _ := strings.Cut(raw, " ")
	if token == "" {
		return time.Time{}, &CellError{Sheet: g.Name, Row: row, Col: col, Value: raw, Err: errors.New("empty date cell")}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, token, loc); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(token, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
		}
	}
	return time.Time{}, &CellError{Sheet: g.Name, Row: row, Col: col, Value: raw, Err: errors.New("unrecognised date")}
}

// CellError reports a cell whose contents could not be read as the expected type.
type CellError struct {
	Sheet string
	Row   int
	Col   int
	Value string
	Err   error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("sheet %q row %d col %d: %q: %v", e.Sheet, e.Row, e.Col, e.Value, e.Err)
}

func (e *CellError) Unwrap() error {
	return e.Err
}
