package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"querydesk/internal/app"
	"querydesk/internal/dbconn"
)

func newConnectionsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"conn"},
		Short:   "Manage stored connection profiles",
	}
	cmd.AddCommand(newConnectionsListCmd(opts), newConnectionsAddCmd(opts), newConnectionsTestCmd(opts))
	return cmd
}

func newConnectionsListCmd(opts *rootOptions) *cobra.Command {
	var (
		q      app.ConnectionQuery
		desc   bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List connections, optionally filtered by tag",
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

			conns, err := svc.ListConnections(ctx(cmd), q)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return renderJSON(cmd.OutOrStdout(), conns)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "Name", "Driver", "Host", "Port", "Database", "User")
			for _, c := range conns {
				t.AppendRow([]any{c.ID, c.Name, c.Driver, c.Host, deref(c.Port), c.Database, c.Username})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "rank names containing this text first")
	cmd.Flags().Int64SliceVar(&q.TagIDs, "tag", nil, "only connections carrying one of these tag IDs")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort names descending")
	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "output format (table|json)")
	return cmd
}

func newConnectionsAddCmd(opts *rootOptions) *cobra.Command {
	var (
		nc      app.NewConnection
		port    int
		sslMode string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store a new connection profile",
		Example: `  querydesk connections add --name prod --driver postgres --host db.internal \
    --database shop --db-user report --password s3cret --ssl-mode require
  querydesk connections add --name local --driver sqlite --database ./local.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				nc.Port = &port
			}
			if sslMode != "" {
				nc.SSLMode = &sslMode
			}
			svc, cleanup, err := opts.service(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := svc.CreateConnection(ctx(cmd), nc)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "connection %d created\n", id)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&nc.Name, "name", "", "connection name")
	f.StringVar(&nc.Driver, "driver", dbconn.DriverPostgres, "postgres|mysql|mssql|bigquery|sqlite")
	f.StringVar(&nc.Host, "host", "", "host name (project ID for bigquery)")
	f.IntVar(&port, "port", 0, "port (driver default when unset)")
	f.StringVar(&nc.Database, "database", "", "database name (dataset for bigquery, file for sqlite)")
	f.StringVar(&nc.Username, "db-user", "", "database user")
	f.StringVar(&nc.Password, "password", "", "password (service account JSON for bigquery)")
	f.StringVar(&sslMode, "ssl-mode", "", "TLS mode (disable|prefer|require|...)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newConnectionsTestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test <connection-id>",
		Short: "Check that a stored connection can be reached",
		Args:  cobra.ExactArgs(1),
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

			if err := svc.TestConnection(ctx(cmd), id); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "connection %d ok\n", id)
			return nil
		},
	}
}
