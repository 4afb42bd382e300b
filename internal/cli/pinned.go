package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"querydesk/internal/app"
	"querydesk/internal/journal"
)

func newPinnedCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pinned",
		Short: "Manage pinned queries",
	}
	cmd.AddCommand(newPinnedListCmd(opts), newPinnedAddCmd(opts))
	return cmd
}

func newPinnedListCmd(opts *rootOptions) *cobra.Command {
	var (
		q      app.PinnedQuery
		desc   bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pinned queries across your connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("desc") {
				q.SortDesc = &desc
			}
			svc, cleanup, err := opts.service(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			pinned, err := svc.ListPinnedQueries(ctx(cmd), q)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return renderJSON(cmd.OutOrStdout(), pinned)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "Connection", "Name", "Query", "Created")
			for _, p := range pinned {
				t.AppendRow([]any{p.ID, p.ConnectionID, p.Name, journal.Preview(p.Text), formatStamp(p.CreatedAt)})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "rank names containing this text first")
	cmd.Flags().BoolVar(&desc, "desc", false, "newest first")
	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "output format (table|json)")
	return cmd
}

func newPinnedAddCmd(opts *rootOptions) *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "add <connection-id> <statement>",
		Short: "Pin a statement to a connection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, cleanup, err := opts.service(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			pid, err := svc.PinQuery(ctx(cmd), id, name, args[1], description)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pinned query %d created\n", pid)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "query name")
	cmd.Flags().StringVar(&description, "description", "", "optional description")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
