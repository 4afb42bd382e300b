// Package export writes query results to files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"querydesk/internal/coerce"
)

// WriteCSV writes a header row followed by one record per result row.
// Null cells are written as empty fields.
func WriteCSV(w io.Writer, columns []string, rows [][]coerce.Value) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i+1, len(row), len(columns))
		}
		for j, v := range row {
			if v.IsNull() {
				record[j] = ""
			} else {
				record[j] = v.String()
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
