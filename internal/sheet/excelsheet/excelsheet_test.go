package excelsheet

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"xlstool/internal/sheet"
)

func buildFixture(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]interface{}{
		{"id", "name", "active", "hired"},
		{1, "Archer", true, nil},
		{2, "Mage", false, nil},
	}
	for r, row := range rows {
		for c, v := range row {
			ref, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if v == nil {
				continue
			}
			if err := f.SetCellValue("Sheet1", ref, v); err != nil {
				t.Fatalf("SetCellValue: %v", err)
			}
		}
	}

	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr("yyyy-mm-dd")})
	if err != nil {
		t.Fatalf("NewStyle: %v", err)
	}
	serial := excelize.TimeToExcelTime(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false)
	if err := f.SetCellValue("Sheet1", "D2", serial); err != nil {
		t.Fatalf("SetCellValue(date): %v", err)
	}
	if err := f.SetCellStyle("Sheet1", "D2", "D2", style); err != nil {
		t.Fatalf("SetCellStyle: %v", err)
	}

	path := filepath.Join(t.TempDir(), "fixture.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func strPtr(s string) *string { return &s }

func TestOpenAndReadCells(t *testing.T) {
	path := buildFixture(t)
	wb, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer wb.Close()

	sh, err := wb.SheetByName("Sheet1")
	if err != nil {
		t.Fatalf("SheetByName: %v", err)
	}

	if sh.FirstRow() != 1 || sh.FirstCol() != 1 {
		t.Fatalf("FirstRow/FirstCol = %d/%d, want 1/1", sh.FirstRow(), sh.FirstCol())
	}
	if sh.LastRow() != 3 {
		t.Fatalf("LastRow = %d, want 3", sh.LastRow())
	}

	if ct := sh.CellType(2, 1); ct != sheet.CellNumber {
		t.Errorf("CellType(id) = %v, want number", ct)
	}
	n, err := sh.ReadNumber(2, 1)
	if err != nil || n != 1 {
		t.Errorf("ReadNumber(id) = %v, %v; want 1, nil", n, err)
	}

	if ct := sh.CellType(2, 2); ct != sheet.CellString {
		t.Errorf("CellType(name) = %v, want string", ct)
	}
	s, err := sh.ReadString(2, 2)
	if err != nil || s != "Archer" {
		t.Errorf("ReadString(name) = %q, %v; want Archer, nil", s, err)
	}

	if ct := sh.CellType(2, 3); ct != sheet.CellBool {
		t.Errorf("CellType(active) = %v, want bool", ct)
	}
	b, err := sh.ReadBool(2, 3)
	if err != nil || !b {
		t.Errorf("ReadBool(active) = %v, %v; want true, nil", b, err)
	}

	if ct := sh.CellType(3, 6); ct != sheet.CellEmpty {
		t.Errorf("CellType(out of range) = %v, want empty", ct)
	}
}

func TestDateDetectionAndUnpack(t *testing.T) {
	path := buildFixture(t)
	wb, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer wb.Close()
	sh, err := wb.SheetByName("Sheet1")
	if err != nil {
		t.Fatalf("SheetByName: %v", err)
	}

	if !sh.IsDate(2, 4) {
		t.Fatal("expected D2 to be detected as a date cell")
	}
	if ct := sh.CellType(2, 4); ct != sheet.CellDate {
		t.Errorf("CellType(hired) = %v, want date", ct)
	}
	unpacked, err := sh.DateUnpack(2, 4)
	if err != nil {
		t.Fatalf("DateUnpack: %v", err)
	}
	if unpacked.Year() != 2024 || unpacked.Month() != time.January || unpacked.Day() != 15 {
		t.Errorf("DateUnpack = %v, want 2024-01-15", unpacked)
	}
}

func TestWriteNumberOverwritesCellInPlace(t *testing.T) {
	path := buildFixture(t)
	wb, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer wb.Close()
	sh, err := wb.SheetByName("Sheet1")
	if err != nil {
		t.Fatalf("SheetByName: %v", err)
	}

	if err := sh.WriteNumber(2, 4, 1705276800); err != nil {
		t.Fatalf("WriteNumber: %v", err)
	}
	if ct := sh.CellType(2, 4); ct != sheet.CellNumber {
		t.Errorf("CellType after WriteNumber = %v, want number", ct)
	}
	n, err := sh.ReadNumber(2, 4)
	if err != nil || n != 1705276800 {
		t.Errorf("ReadNumber after WriteNumber = %v, %v; want 1705276800, nil", n, err)
	}
}
