package cli

import (
	"github.com/spf13/cobra"

	"querydesk/internal/app"
	"querydesk/internal/journal"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		q      app.HistoryQuery
		asc    bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the query history",
		Example: `  querydesk history --status error
  querydesk history --from 2024-03-01 --to 2024-03-31 --search orders`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			desc := !asc
			q.SortDesc = &desc
			svc, cleanup, err := opts.service(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := svc.ListQueryHistory(ctx(cmd), q)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return renderJSON(cmd.OutOrStdout(), entries)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "When", "Connection", "Status", "ms", "Query", "Error")
			for _, h := range entries {
				t.AppendRow([]any{h.ID, formatStamp(h.ExecutedAt), h.ConnectionID, h.Status,
					h.ExecutionTimeMs, journal.Preview(h.QueryText), deref(h.ErrorMessage)})
			}
			t.Render()
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&q.Search, "search", "s", "", "rank statements containing this text first")
	f.StringVar(&q.Status, "status", "", "success|error|all")
	f.StringVar(&q.StartDate, "from", "", "start date (YYYY-MM-DD or RFC 3339)")
	f.StringVar(&q.EndDate, "to", "", "end date, inclusive (YYYY-MM-DD or RFC 3339)")
	f.BoolVar(&asc, "asc", false, "oldest first")
	f.IntVar(&q.Limit, "limit", 20, "page size")
	f.IntVar(&q.Offset, "offset", 0, "rows to skip")
	f.StringVarP(&format, "format", "o", formatTable, "output format (table|json)")
	return cmd
}
