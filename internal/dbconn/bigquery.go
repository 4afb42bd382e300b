package dbconn

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"querydesk/internal/sqlx"
)

// BigQuerySession is a Session over the BigQuery client. The descriptor's
// Host is the GCP project, Database the default dataset and Secret a
// service-account JSON key; an empty secret falls back to Application
// Default Credentials.
type BigQuerySession struct {
	client  *bigquery.Client
	project string
	dataset string
}

func openBigQuery(ctx context.Context, d Descriptor) (*BigQuerySession, error) {
	if d.Host == "" {
		return nil, fmt.Errorf("bigquery: project is required")
	}
	var opts []option.ClientOption
	if d.Secret != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(d.Secret)))
	}
	client, err := bigquery.NewClient(ctx, d.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery connect: %w", err)
	}

	// The client is lazy; listing one dataset proves the credentials work.
	if _, err := client.Datasets(ctx).Next(); err != nil && !errors.Is(err, iterator.Done) {
		client.Close()
		return nil, fmt.Errorf("bigquery ping: %w", err)
	}
	return &BigQuerySession{client: client, project: d.Host, dataset: d.Database}, nil
}

func (b *BigQuerySession) Close() error { return b.client.Close() }

func (b *BigQuerySession) Query(ctx context.Context, stmt string) (*ResultSet, error) {
	q := b.client.Query(stmt)
	if b.dataset != "" {
		q.DefaultProjectID = b.project
		q.DefaultDatasetID = b.dataset
	}
	it, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{Rows: [][]any{}}
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		rs.Rows = append(rs.Rows, cells)
	}
	for _, f := range it.Schema {
		rs.Columns = append(rs.Columns, f.Name)
		rs.Types = append(rs.Types, sqlx.TypeFamily(string(f.Type)))
	}
	return rs, nil
}

// ListSchemas returns the project's dataset IDs.
func (b *BigQuerySession) ListSchemas(ctx context.Context) ([]string, error) {
	datasets := []string{}
	it := b.client.Datasets(ctx)
	for {
		ds, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing bigquery datasets: %w", err)
		}
		datasets = append(datasets, ds.DatasetID)
	}
	sort.Strings(datasets)
	return datasets, nil
}

func (b *BigQuerySession) ListTables(ctx context.Context, dataset string) ([]string, error) {
	return b.listRelations(ctx, dataset, "BASE TABLE")
}

func (b *BigQuerySession) ListViews(ctx context.Context, dataset string) ([]string, error) {
	return b.listRelations(ctx, dataset, "VIEW")
}

func (b *BigQuerySession) listRelations(ctx context.Context, dataset, tableType string) ([]string, error) {
	q := b.client.Query(fmt.Sprintf(
		"SELECT table_name FROM `%s.%s`.INFORMATION_SCHEMA.TABLES WHERE table_type = @table_type ORDER BY table_name",
		stripBackticks(b.project), stripBackticks(dataset)))
	q.Parameters = []bigquery.QueryParameter{{Name: "table_type", Value: tableType}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing bigquery tables: %w", err)
	}
	names := []string{}
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing bigquery tables: %w", err)
		}
		if len(row) > 0 {
			names = append(names, fmt.Sprint(row[0]))
		}
	}
	return names, nil
}

// ListForeignKeys returns nothing: BigQuery does not enforce foreign keys.
func (b *BigQuerySession) ListForeignKeys(context.Context, string) ([]ForeignKey, error) {
	return []ForeignKey{}, nil
}

func (b *BigQuerySession) ListColumns(ctx context.Context, dataset, table string) ([]Column, error) {
	md, err := b.client.Dataset(dataset).Table(table).Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspecting bigquery table %s: %w", table, err)
	}
	cols := make([]Column, 0, len(md.Schema))
	for i, fs := range md.Schema {
		dataType := string(fs.Type)
		if fs.Repeated {
			dataType = "ARRAY<" + dataType + ">"
		}
		cols = append(cols, Column{
			Table:    table,
			Name:     fs.Name,
			DataType: dataType,
			Family:   sqlx.TypeFamily(string(fs.Type)),
			Nullable: !fs.Required,
			Position: i + 1,
		})
	}
	return cols, nil
}

func stripBackticks(s string) string {
	return strings.ReplaceAll(s, "`", "")
}
