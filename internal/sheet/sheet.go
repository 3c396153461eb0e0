// Package sheet declares the Spreadsheet Backend collaborator of spec.md §6.
// Concrete backends (excelsheet for .xlsx/.xlsm, legacysheet for .xls) live
// in their own subpackages so the workbook-extension dispatch can sit above
// both without an import cycle (see internal/driver.OpenWorkbook).
package sheet

import "time"

// CellType tags the shape of a cell's content, mirroring the source's
// CellType enum.
type CellType int

const (
	CellEmpty CellType = iota
	CellBlank
	CellNumber
	CellBool
	CellString
	CellDate
)

func (c CellType) String() string {
	switch c {
	case CellEmpty:
		return "empty"
	case CellBlank:
		return "blank"
	case CellNumber:
		return "number"
	case CellBool:
		return "bool"
	case CellString:
		return "string"
	case CellDate:
		return "date"
	default:
		return "unknown"
	}
}

// Workbook is an open spreadsheet file, exclusively owned by one Row Parser
// instance for the sheet's lifetime (spec.md §5).
type Workbook interface {
	SheetByName(name string) (Sheet, error)
	Close() error
}

// Sheet is one worksheet's cell grid, addressed by 1-based (row, col).
type Sheet interface {
	Name() string
	FirstRow() int
	LastRow() int
	FirstCol() int
	LastCol() int

	CellType(row, col int) CellType
	ReadNumber(row, col int) (float64, error)
	ReadBool(row, col int) (bool, error)
	ReadString(row, col int) (string, error)

	IsDate(row, col int) bool
	DateUnpack(row, col int) (time.Time, error)

	// WriteNumber rewrites a cell in place, used only for the date -> epoch
	// conversion of spec.md §4.3.
	WriteNumber(row, col int, value float64) error
}
