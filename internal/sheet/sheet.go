// Package sheet reads company names from an exhibitor workbook and writes the
// discovered websites back next to them.
package sheet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the worksheet holding the exhibitor list.
const DefaultSheet = "1. Exhibitor List (Input)"

var (
	// ErrFileNotFound indicates the workbook path does not exist.
	ErrFileNotFound = errors.New("workbook not found")
	// ErrSheetNotFound indicates the configured worksheet is missing.
	ErrSheetNotFound = errors.New("worksheet not found")
	// ErrInvalidWorkbook indicates the file could not be parsed as xlsx.
	ErrInvalidWorkbook = errors.New("invalid workbook")
	// ErrPermission indicates the workbook could not be written, usually
	// because it is open in another program.
	ErrPermission = errors.New("workbook is not writable")
)

// SheetError reports a missing worksheet together with the ones present.
type SheetError struct {
	Sheet     string
	Available []string
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %q not found (available: %s)", e.Sheet, strings.Join(e.Available, ", "))
}

func (e *SheetError) Unwrap() error { return ErrSheetNotFound }

// Layout locates the company and website columns inside a worksheet.
// Columns and rows are 1-based.
type Layout struct {
	Sheet         string
	NameColumn    int
	WebsiteColumn int
	FirstRow      int
}

// DefaultLayout matches the exhibitor list template.
func DefaultLayout() Layout {
	return Layout{
		Sheet:         DefaultSheet,
		NameColumn:    2,
		WebsiteColumn: 3,
		FirstRow:      9,
	}
}

func (l Layout) withDefaults() Layout {
	d := DefaultLayout()
	if l.Sheet == "" {
		l.Sheet = d.Sheet
	}
	if l.NameColumn <= 0 {
		l.NameColumn = d.NameColumn
	}
	if l.WebsiteColumn <= 0 {
		l.WebsiteColumn = d.WebsiteColumn
	}
	if l.FirstRow <= 0 {
		l.FirstRow = d.FirstRow
	}
	return l
}

// Row is one exhibitor entry. Index is the spreadsheet row number.
type Row struct {
	Index   int
	Company string
	Website string
}

// Workbook is an open exhibitor workbook.
type Workbook struct {
	path   string
	layout Layout
	f      *excelize.File
}

// Open loads the workbook at path and checks that the layout's sheet exists.
func Open(path string, layout Layout) (*Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrPermission, path)
		}
		return nil, fmt.Errorf("stat workbook: %w", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}

	layout = layout.withDefaults()
	if idx, err := f.GetSheetIndex(layout.Sheet); err != nil || idx < 0 {
		available := f.GetSheetList()
		_ = f.Close()
		return nil, &SheetError{Sheet: layout.Sheet, Available: available}
	}

	return &Workbook{path: path, layout: layout, f: f}, nil
}

// Path returns the file the workbook was loaded from and saves to.
func (w *Workbook) Path() string { return w.path }

// Layout returns the effective layout.
func (w *Workbook) Layout() Layout { return w.layout }

// Rows returns every row from the layout's first row to the last used row.
func (w *Workbook) Rows() ([]Row, error) {
	raw, err := w.f.GetRows(w.layout.Sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	var rows []Row
	for idx := w.layout.FirstRow; idx <= len(raw); idx++ {
		cells := raw[idx-1]
		rows = append(rows, Row{
			Index:   idx,
			Company: strings.TrimSpace(cellAt(cells, w.layout.NameColumn)),
			Website: strings.TrimSpace(cellAt(cells, w.layout.WebsiteColumn)),
		})
	}
	return rows, nil
}

func cellAt(cells []string, col int) string {
	if col-1 < len(cells) {
		return cells[col-1]
	}
	return ""
}

// CountCompanies returns the number of rows with a non-blank company name.
func (w *Workbook) CountCompanies() (int, error) {
	rows, err := w.Rows()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range rows {
		if r.Company != "" {
			n++
		}
	}
	return n, nil
}

// Pending returns rows whose website cell is empty or rejected by valid.
// Rows without a company name are included; callers decide what to do
// with them.
func (w *Workbook) Pending(valid func(string) bool) ([]Row, error) {
	rows, err := w.Rows()
	if err != nil {
		return nil, err
	}
	var pending []Row
	for _, r := range rows {
		if r.Website == "" || !valid(r.Website) {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

// SetWebsite writes value into the website cell of the given row.
func (w *Workbook) SetWebsite(row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(w.layout.WebsiteColumn, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := w.f.SetCellValue(w.layout.Sheet, cell, value); err != nil {
		return fmt.Errorf("set %s: %w", cell, err)
	}
	return nil
}

// Save overwrites the workbook file.
func (w *Workbook) Save() error {
	if err := w.f.SaveAs(w.path); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrPermission, w.path)
		}
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// Close releases the workbook's temporary files.
func (w *Workbook) Close() error {
	return w.f.Close()
}
