package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"querydesk/internal/journal"
)

func newExecCmd(opts *rootOptions) *cobra.Command {
	var (
		file   string
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "exec <connection-id> [statement]",
		Short: "Run a statement against a stored connection",
		Example: `  querydesk exec 3 "SELECT * FROM orders LIMIT 10"
  querydesk exec 3 --file report.sql --format csv
  querydesk exec 3 "SELECT 1" --out result.csv`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			stmt, err := statementFrom(args[1:], file)
			if err != nil {
				return err
			}

			svc, cleanup, err := opts.service(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			o, err := svc.ExecuteQuery(ctx(cmd), id, stmt)
			if err != nil {
				return errors.New(journal.Describe(err))
			}
			if out != "" {
				if err := svc.ExportCSV(out, o); err != nil {
					return err
				}
			}
			return renderOutcome(cmd, format, o)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the statement from a file")
	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "output format (table|json|csv)")
	cmd.Flags().StringVar(&out, "out", "", "also write the result rows to this CSV file")
	return cmd
}

func renderOutcome(cmd *cobra.Command, format string, o journal.Outcome) error {
	w := cmd.OutOrStdout()
	if format == formatJSON {
		if err := renderJSON(w, o); err != nil {
			return err
		}
		return o.Err()
	}
	if err := o.Err(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "execution %s failed after %dms\n", o.ExecutionID, o.ExecutionTimeMs)
		return err
	}
	if err := renderRows(w, format, o.Columns, o.ColumnTypes, o.Rows); err != nil {
		return err
	}
	if format == formatTable {
		_, _ = fmt.Fprintf(w, "execution %s in %dms\n", o.ExecutionID, o.ExecutionTimeMs)
	}
	return nil
}

func statementFrom(args []string, file string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", fmt.Errorf("pass a statement or --file, not both")
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case len(args) == 0:
		return "", fmt.Errorf("no statement given")
	}
	return args[0], nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
