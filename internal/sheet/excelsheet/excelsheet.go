// Package excelsheet backs internal/sheet.Workbook with github.com/xuri/excelize/v2
// for .xlsx/.xlsm workbooks, grounded on the teacher's own excel_loader.go.
package excelsheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"xlstool/internal/sheet"
)

type workbook struct {
	f *excelize.File
}

// Open opens an .xlsx/.xlsm workbook.
func Open(path string) (sheet.Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("excelsheet: open %s: %w", path, err)
	}
	return &workbook{f: f}, nil
}

func (w *workbook) Close() error { return w.f.Close() }

func (w *workbook) SheetByName(name string) (sheet.Sheet, error) {
	if idx, err := w.f.GetSheetIndex(name); err != nil || idx == -1 {
		return nil, fmt.Errorf("excelsheet: sheet %q not found", name)
	}
	rows, err := w.f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("excelsheet: read sheet %q: %w", name, err)
	}
	return &excelSheet{f: w.f, name: name, rows: rows}, nil
}

type excelSheet struct {
	f    *excelize.File
	name string
	rows [][]string
}

func (s *excelSheet) Name() string  { return s.name }
func (s *excelSheet) FirstRow() int { return 1 }
func (s *excelSheet) LastRow() int  { return len(s.rows) }
func (s *excelSheet) FirstCol() int { return 1 }

func (s *excelSheet) LastCol() int {
	max := 0
	for _, r := range s.rows {
		if len(r) > max {
			max = len(r)
		}
	}
	return max
}

func (s *excelSheet) cellRef(row, col int) string {
	ref, _ := excelize.CoordinatesToCellName(col, row)
	return ref
}

func (s *excelSheet) rawValue(row, col int) string {
	r := row - 1
	c := col - 1
	if r < 0 || r >= len(s.rows) {
		return ""
	}
	if c < 0 || c >= len(s.rows[r]) {
		return ""
	}
	return s.rows[r][c]
}

var reDateFormatted = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([ T]\d{2}:\d{2}(:\d{2})?)?$`)

func (s *excelSheet) CellType(row, col int) sheet.CellType {
	raw := s.rawValue(row, col)
	if strings.TrimSpace(raw) == "" {
		return sheet.CellEmpty
	}
	if s.IsDate(row, col) {
		return sheet.CellDate
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

func (s *excelSheet) ReadNumber(row, col int) (float64, error) {
	raw := s.rawValue(row, col)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("excelsheet: cell %s is not numeric: %w", s.cellRef(row, col), err)
	}
	return v, nil
}

func (s *excelSheet) ReadBool(row, col int) (bool, error) {
	switch strings.ToUpper(s.rawValue(row, col)) {
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	default:
		return false, fmt.Errorf("excelsheet: cell %s is not boolean", s.cellRef(row, col))
	}
}

func (s *excelSheet) ReadString(row, col int) (string, error) {
	return s.rawValue(row, col), nil
}

// IsDate detects a date cell by comparing excelize's formatted display value
// against its raw numeric serial: a styled date cell formats to a calendar
// string while its raw value stays the Excel epoch-day number.
func (s *excelSheet) IsDate(row, col int) bool {
	ref := s.cellRef(row, col)
	raw, err := s.f.GetCellValue(s.name, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		return false
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return false
	}
	formatted, err := s.f.GetCellValue(s.name, ref)
	if err != nil {
		return false
	}
	return formatted != raw && reDateFormatted.MatchString(formatted)
}

func (s *excelSheet) DateUnpack(row, col int) (time.Time, error) {
	ref := s.cellRef(row, col)
	raw, err := s.f.GetCellValue(s.name, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		return time.Time{}, fmt.Errorf("excelsheet: date cell %s: %w", ref, err)
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("excelsheet: date cell %s is not a numeric serial: %w", ref, err)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("excelsheet: unpack date cell %s: %w", ref, err)
	}
	return t, nil
}

// WriteNumber rewrites a cell in place and keeps the row cache consistent so
// a subsequent read of the same cell sees the epoch number (spec.md §4.3).
func (s *excelSheet) WriteNumber(row, col int, value float64) error {
	ref := s.cellRef(row, col)
	if err := s.f.SetCellValue(s.name, ref, value); err != nil {
		return fmt.Errorf("excelsheet: write cell %s: %w", ref, err)
	}
	for len(s.rows) < row {
		s.rows = append(s.rows, nil)
	}
	r := s.rows[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = strconv.FormatFloat(value, 'f', -1, 64)
	s.rows[row-1] = r
	return nil
}
