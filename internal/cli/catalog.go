package cli

import (
	"github.com/spf13/cobra"

	"querydesk/internal/app"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	var schema, format string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the schemas, tables and columns of a connection",
	}
	cmd.PersistentFlags().StringVar(&schema, "schema", "", "schema (dataset for bigquery)")
	cmd.PersistentFlags().StringVarP(&format, "format", "o", formatTable, "output format (table|json)")

	names := func(use, short, header string, list func(*app.Service, *cobra.Command, int64) ([]string, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <connection-id>",
			Short: short,
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

				out, err := list(svc, cmd, id)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return renderJSON(cmd.OutOrStdout(), out)
				}
				t := newTable(cmd.OutOrStdout(), header)
				for _, n := range out {
					t.AppendRow([]any{n})
				}
				t.Render()
				return nil
			},
		}
	}

	cmd.AddCommand(
		names("schemas", "List schemas", "Schema", func(s *app.Service, cmd *cobra.Command, id int64) ([]string, error) {
			return s.ListSchemas(ctx(cmd), id)
		}),
		names("tables", "List tables in a schema", "Table", func(s *app.Service, cmd *cobra.Command, id int64) ([]string, error) {
			return s.ListTables(ctx(cmd), id, schema)
		}),
		names("views", "List views in a schema", "View", func(s *app.Service, cmd *cobra.Command, id int64) ([]string, error) {
			return s.ListViews(ctx(cmd), id, schema)
		}),
		&cobra.Command{
			Use:   "fks <connection-id>",
			Short: "List foreign keys in a schema",
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

				fks, err := svc.ListForeignKeys(ctx(cmd), id, schema)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return renderJSON(cmd.OutOrStdout(), fks)
				}
				t := newTable(cmd.OutOrStdout(), "Table", "Column", "References")
				for _, fk := range fks {
					t.AppendRow([]any{fk.Table, fk.Column, fk.RefTable + "." + fk.RefColumn})
				}
				t.Render()
				return nil
			},
		},
		&cobra.Command{
			Use:   "columns <connection-id> <table>",
			Short: "Describe the columns of a table",
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

				cols, err := svc.ListColumns(ctx(cmd), id, schema, args[1])
				if err != nil {
					return err
				}
				if format == formatJSON {
					return renderJSON(cmd.OutOrStdout(), cols)
				}
				t := newTable(cmd.OutOrStdout(), "#", "Column", "Type", "Family", "Nullable", "PK")
				for _, c := range cols {
					t.AppendRow([]any{c.Position, c.Name, c.DataType, c.Family, c.Nullable, c.PrimaryKey})
				}
				t.Render()
				return nil
			},
		},
	)
	return cmd
}
