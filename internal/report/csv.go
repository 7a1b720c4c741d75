// Package report writes audit tables as CSV files.
package report

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/couchcryptid/gridcap-etl/internal/domain"
)

// WriteCSV writes t to path with a header row. Values are rendered with
// domain.FormatValue; nulls become empty fields.
func WriteCSV(path string, t *domain.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close report: %w", cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}
	row := make([]string, len(t.Columns))
	for _, rec := range t.Rows {
		for i, col := range t.Columns {
			row[i] = domain.FormatValue(rec[col])
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}
