// Package upload decodes uploaded CSV and spreadsheet files into a column-oriented table.
package upload

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// CellKind tells whether a cell holds a number, text, or nothing
type CellKind int

const (
	CellBlank CellKind = iota
	CellNumber
	CellText
)

// Cell is a single typed value of a column
type Cell struct {
	Kind   CellKind
	Number float64
	Text   string
}

// Column is a named, row-aligned sequence of cells
type Column struct {
	Name  string
	Cells []Cell
}

// IsNumeric reports whether every non-blank cell is a number and at least one exists.
func (c Column) IsNumeric() bool {
	seen := false
	for _, cell := range c.Cells {
		switch cell.Kind {
		case CellText:
			return false
		case CellNumber:
			seen = true
		}
	}
	return seen
}

// Values returns the numeric cells, skipping blanks
func (c Column) Values() []float64 {
	out := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if cell.Kind == CellNumber {
			out = append(out, cell.Number)
		}
	}
	return out
}

// Table is an ordered set of columns sharing the same row count
type Table struct {
	Columns []Column
	Rows    int
}

// Empty reports whether the table has no rows or no columns
func (t *Table) Empty() bool {
	return t == nil || t.Rows == 0 || len(t.Columns) == 0
}

// NumericColumns returns the numeric columns in their original order
func (t *Table) NumericColumns() []Column {
	if t == nil {
		return nil
	}
	var out []Column
	for _, col := range t.Columns {
		if col.IsNumeric() {
			out = append(out, col)
		}
	}
	return out
}

// Column looks a column up by header name
func (t *Table) Column(name string) (Column, bool) {
	if t != nil {
		for _, col := range t.Columns {
			if col.Name == name {
				return col, true
			}
		}
	}
	return Column{}, false
}

// newTable builds a table from a header and string records.
// Records shorter than the header are padded with blanks.
func newTable(header []string, records [][]string) *Table {
	t := &Table{
		Columns: make([]Column, len(header)),
		Rows:    len(records),
	}
	for j, name := range header {
		t.Columns[j] = Column{
			Name:  strings.TrimSpace(name),
			Cells: make([]Cell, len(records)),
		}
	}
	for i, record := range records {
		for j := range header {
			if j < len(record) {
				t.Columns[j].Cells[i] = parseCell(record[j])
			}
		}
	}
	return t
}

var (
	decimalPattern  = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	infinityPattern = regexp.MustCompile(`(?i)^([+-]?)(inf|infinity)$`)
)

// parseCell types a raw string the way a dataframe reader would: decimal and exponent
// forms and inf/infinity are numbers, anything else non-blank is text.
func parseCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") || strings.EqualFold(s, "na") {
		return Cell{Kind: CellBlank}
	}
	if m := infinityPattern.FindStringSubmatch(s); m != nil {
		sign := 1
		if m[1] == "-" {
			sign = -1
		}
		return Cell{Kind: CellNumber, Number: math.Inf(sign), Text: s}
	}
	if decimalPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil || errors.Is(err, strconv.ErrRange) {
			return Cell{Kind: CellNumber, Number: f, Text: s}
		}
	}
	return Cell{Kind: CellText, Text: s}
}
