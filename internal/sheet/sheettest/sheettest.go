// Package sheettest builds exhibitor workbooks for tests.
package sheettest

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/FranksOps/sitehunt/internal/sheet"
)

// Entry is a company/website pair written starting at the layout's first row.
type Entry struct {
	Company string
	Website string
}

// Write creates an xlsx file in a fresh temp dir with the default layout and
// returns its path.
func Write(t testing.TB, entries ...Entry) string {
	t.Helper()
	return WriteLayout(t, sheet.DefaultLayout(), entries...)
}

// WriteLayout creates an xlsx file using layout. A header line is written on
// the row above the first entry so that the template's preamble is mimicked.
func WriteLayout(t testing.TB, layout sheet.Layout, entries ...Entry) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", layout.Sheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}

	header := layout.FirstRow - 1
	if header >= 1 {
		set(t, f, layout.Sheet, layout.NameColumn, header, "Company")
		set(t, f, layout.Sheet, layout.WebsiteColumn, header, "Website")
	}

	for i, e := range entries {
		row := layout.FirstRow + i
		if e.Company != "" {
			set(t, f, layout.Sheet, layout.NameColumn, row, e.Company)
		}
		if e.Website != "" {
			set(t, f, layout.Sheet, layout.WebsiteColumn, row, e.Website)
		}
	}

	path := filepath.Join(t.TempDir(), "exhibitors.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

// Websites reads back the website column for the rows written by Write.
func Websites(t testing.TB, path string, n int) []string {
	t.Helper()

	layout := sheet.DefaultLayout()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	out := make([]string, n)
	for i := 0; i < n; i++ {
		cell, _ := excelize.CoordinatesToCellName(layout.WebsiteColumn, layout.FirstRow+i)
		v, err := f.GetCellValue(layout.Sheet, cell)
		if err != nil {
			t.Fatalf("read %s: %v", cell, err)
		}
		out[i] = v
	}
	return out
}

func set(t testing.TB, f *excelize.File, sheetName string, col, row int, v string) {
	t.Helper()
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		t.Fatalf("cell name: %v", err)
	}
	if err := f.SetCellValue(sheetName, cell, v); err != nil {
		t.Fatalf("set %s: %v", cell, err)
	}
}
