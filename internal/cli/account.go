package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"querydesk/internal/store"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage statistics for the acting user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := opts.service(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := svc.UserStatistics(ctx(cmd))
			if err != nil {
				return err
			}
			if format == formatJSON {
				return renderJSON(cmd.OutOrStdout(), st)
			}
			t := newTable(cmd.OutOrStdout(), "Metric", "Value")
			t.AppendRows([]table.Row{
				{"user", svc.User().Username},
				{"connections", st.TotalConnections},
				{"queries", st.TotalQueries},
				{"succeeded", st.SuccessQueries},
				{"failed", st.ErrorQueries},
				{"pinned", st.PinnedQueries},
				{"last login", stampOrEmpty(st.LastLogin)},
				{"member since", stampOrEmpty(st.UserCreatedAt)},
			})
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "output format (table|json)")
	return cmd
}

func newLogsCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the latest 100 audit entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := opts.service(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			logs, err := svc.ListActionLogs(ctx(cmd))
			if err != nil {
				return err
			}
			if format == formatJSON {
				return renderJSON(cmd.OutOrStdout(), logs)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "When", "Action", "Details")
			for _, l := range logs {
				t.AppendRow([]any{l.ID, formatStamp(l.Timestamp), l.ActionType, l.Details})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "output format (table|json)")
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the metadata database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := store.OpenDB(cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := store.Migrate(db, log); err != nil {
				return err
			}
			v, err := store.MigrationVersion(db, log)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", cfg.DatabasePath(), v)
			return nil
		},
	}
}
