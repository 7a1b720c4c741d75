// Package xlsx reads and writes domain tables as Excel workbooks.
package xlsx

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/gridcap-etl/internal/domain"
)

const maxSheetName = 31

// ErrEmptySheet is returned when the first sheet has no header row.
var ErrEmptySheet = errors.New("sheet has no header row")

// Store reads the first sheet of a workbook into a table and writes tables
// back as single-sheet workbooks.
type Store struct {
	logger *slog.Logger
}

// NewStore creates a workbook store.
func NewStore(logger *slog.Logger) *Store {
	return &Store{logger: logger}
}

// Read loads the first sheet. Row 1 is the header; blank headers become
// "Unnamed: <n>" and repeated headers get a ".<k>" suffix. Numeric cells are
// returned as float64, text cells as string, empty cells as nil.
func (s *Store) Read(path string) (*domain.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, ErrEmptySheet)
	}

	header := headerNames(rows[0])
	t := domain.NewTable(sheet, header...)
	for r, row := range rows[1:] {
		rec := make(domain.Record, len(header))
		empty := true
		for c, col := range header {
			if c >= len(row) || strings.TrimSpace(row[c]) == "" {
				rec[col] = nil
				continue
			}
			empty = false
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			rec[col] = cellValue(f, sheet, cell, row[c])
		}
		if !empty {
			t.Append(rec)
		}
	}

	s.logger.Debug("workbook read", "path", path, "sheet", sheet, "rows", t.Len(), "columns", len(header))
	return t, nil
}

// Write saves t as a new workbook at path, replacing any existing file.
func (s *Store) Write(path string, t *domain.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Name)
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("name sheet: %w", err)
		}
	}

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for r, rec := range t.Rows {
		row := make([]any, len(t.Columns))
		for c, col := range t.Columns {
			row[c] = writableValue(rec[col])
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", r+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	s.logger.Debug("workbook written", "path", path, "sheet", sheet, "rows", t.Len())
	return nil
}

// Backup copies the workbook to "<stem>.backup.xlsx" next to it and returns
// the backup path.
func (s *Store) Backup(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	dst := BackupPath(path)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	return dst, nil
}

// BackupPath returns where Backup writes the copy of path.
func BackupPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".backup.xlsx"
}

func headerNames(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[h]; dup {
			seen[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n+1)
		} else {
			seen[h] = 0
		}
		out[i] = h
	}
	return out
}

// cellValue converts a raw cell string using the stored cell type, so text
// cells that look numeric (postal codes, "0012") stay text.
func cellValue(f *excelize.File, sheet, cell, raw string) any {
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return raw
	}
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeDate:
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return v
		}
	}
	return raw
}

func writableValue(v any) any {
	if domain.IsNull(v) {
		return nil
	}
	return v
}

func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return "Sheet1"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}
