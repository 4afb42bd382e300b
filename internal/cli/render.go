package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"querydesk/internal/coerce"
	"querydesk/internal/export"
	"querydesk/internal/sqlx"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
)

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderRows prints a result. types holds each column's family and may be
// shorter than columns when the driver reported none.
func renderRows(w io.Writer, format string, columns, types []string, rows [][]coerce.Value) error {
	switch format {
	case formatCSV:
		return export.WriteCSV(w, columns, rows)
	case formatTable:
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	if len(columns) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	t := newTable(w, header...)
	t.SetColumnConfigs(numericColumns(types))
	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = v.String()
		}
		t.AppendRow(r)
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

// numericColumns right-aligns every column whose family holds numbers.
func numericColumns(types []string) []table.ColumnConfig {
	var cfgs []table.ColumnConfig
	for i, family := range types {
		if sqlx.IsNumeric(family) {
			cfgs = append(cfgs, table.ColumnConfig{Number: i + 1, Align: text.AlignRight})
		}
	}
	return cfgs
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(time.DateTime)
}

func stampOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatStamp(*t)
}

func deref[T any](p *T) any {
	if p == nil {
		return ""
	}
	return *p
}
