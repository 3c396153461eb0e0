// Package legacysheet backs internal/sheet.Workbook with github.com/extrame/xls
// for the legacy binary .xls format (spec.md §6: "Workbook extension
// determines backend variant"). It is not grounded on a pack example — none
// of the retrieved repos read the legacy binary format — and is named
// directly per the out-of-pack dependency rule in SPEC_FULL.md.
package legacysheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"

	"xlstool/internal/sheet"
)

type workbook struct {
	wb *xls.WorkBook
}

// Open opens a legacy .xls workbook.
func Open(path string) (sheet.Workbook, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("legacysheet: open %s: %w", path, err)
	}
	return &workbook{wb: wb}, nil
}

func (w *workbook) Close() error { return nil }

func (w *workbook) SheetByName(name string) (sheet.Sheet, error) {
	for i := 0; i < w.wb.NumSheets(); i++ {
		ws := w.wb.GetSheet(i)
		if ws != nil && ws.Name == name {
			return &legacySheet{ws: ws}, nil
		}
	}
	return nil, fmt.Errorf("legacysheet: sheet %q not found", name)
}

type legacySheet struct {
	ws *xls.WorkSheet
}

func (s *legacySheet) Name() string  { return s.ws.Name }
func (s *legacySheet) FirstRow() int { return 1 }
func (s *legacySheet) LastRow() int  { return int(s.ws.MaxRow) + 1 }
func (s *legacySheet) FirstCol() int { return 1 }

// LastCol scans the header row for the last populated column, stopping
// after a run of empty cells — extrame/xls does not expose a row width.
func (s *legacySheet) LastCol() int {
	const scanCap = 512
	const emptyRun = 8
	row := s.ws.Row(0)
	if row == nil {
		return 0
	}
	max, empties := 0, 0
	for i := 0; i < scanCap; i++ {
		if strings.TrimSpace(row.Col(i)) != "" {
			max = i + 1
			empties = 0
		} else {
			empties++
			if empties > emptyRun {
				break
			}
		}
	}
	return max
}

func (s *legacySheet) cell(row, col int) string {
	r := s.ws.Row(row - 1)
	if r == nil {
		return ""
	}
	return r.Col(col - 1)
}

func (s *legacySheet) CellType(row, col int) sheet.CellType {
	raw := s.cell(row, col)
	if strings.TrimSpace(raw) == "" {
		return sheet.CellEmpty
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return sheet.CellNumber
	}
	switch strings.ToUpper(raw) {
	case "TRUE", "FALSE":
		return sheet.CellBool
	}
	return sheet.CellString
}

func (s *legacySheet) ReadNumber(row, col int) (float64, error) {
	v, err := strconv.ParseFloat(s.cell(row, col), 64)
	if err != nil {
		return 0, fmt.Errorf("legacysheet: cell (%d,%d) is not numeric: %w", row, col, err)
	}
	return v, nil
}

func (s *legacySheet) ReadBool(row, col int) (bool, error) {
	switch strings.ToUpper(s.cell(row, col)) {
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	default:
		return false, fmt.Errorf("legacysheet: cell (%d,%d) is not boolean", row, col)
	}
}

func (s *legacySheet) ReadString(row, col int) (string, error) {
	return s.cell(row, col), nil
}

// IsDate always reports false: extrame/xls surfaces cell content as plain
// text and does not expose the underlying number-format distinction between
// a date and a plain numeric serial.
func (s *legacySheet) IsDate(row, col int) bool { return false }

func (s *legacySheet) DateUnpack(row, col int) (time.Time, error) {
	return time.Time{}, fmt.Errorf("legacysheet: date cells are not supported for legacy .xls input")
}

func (s *legacySheet) WriteNumber(row, col int, value float64) error {
	return fmt.Errorf("legacysheet: in-place cell rewrite is not supported for legacy .xls workbooks")
}
