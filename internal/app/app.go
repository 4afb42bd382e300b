package app

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"querydesk/internal/dbconn"
	"querydesk/internal/journal"
	"querydesk/internal/store"
)

// App is the Wails-bound front of the Service.
type App struct {
	ctx     context.Context
	version string
	svc     *Service
}

// NewApp returns a new App. version is the application version (e.g. "0.1.0").
// Call Startup with the Wails context before using dialogs.
func NewApp(version string, svc *Service) *App {
	return &App{version: version, svc: svc}
}

// Version returns the application version.
func (a *App) Version() string {
	return a.version
}

// Startup is called by Wails when the app starts; store context for dialogs.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
}

// Shutdown closes the metadata store.
func (a *App) Shutdown(context.Context) {
	if err := a.svc.Close(); err != nil {
		a.svc.log.Warnw("close metadata store", "error", err)
	}
}

func (a *App) context() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

// CurrentUser returns the signed-in user.
func (a *App) CurrentUser() store.User {
	return a.svc.User()
}

// ListConnections returns the user's connection profiles, optionally filtered by tag.
func (a *App) ListConnections(q ConnectionQuery) ([]store.ConnectionProfile, error) {
	return a.svc.ListConnections(a.context(), q)
}

// ListPinnedQueries returns pinned queries across the user's connections.
func (a *App) ListPinnedQueries(q PinnedQuery) ([]store.PinnedQuery, error) {
	return a.svc.ListPinnedQueries(a.context(), q)
}

// ListQueryHistory returns one page of the user's query history.
func (a *App) ListQueryHistory(q HistoryQuery) ([]store.HistoryEntry, error) {
	return a.svc.ListQueryHistory(a.context(), q)
}

// ExecuteQuery runs statement against the connection. A failed statement is
// reported in the outcome; only lookup and connect failures return an error.
func (a *App) ExecuteQuery(connectionID int64, statement string) (journal.Outcome, error) {
	o, err := a.svc.ExecuteQuery(a.context(), connectionID, statement)
	if err != nil {
		return o, describe(err)
	}
	return o, nil
}

// TestConnection reports whether the stored connection can be reached.
func (a *App) TestConnection(connectionID int64) error {
	return describe(a.svc.TestConnection(a.context(), connectionID))
}

// ListSchemas returns the schemas (datasets on BigQuery) of a connection.
func (a *App) ListSchemas(connectionID int64) ([]string, error) {
	out, err := a.svc.ListSchemas(a.context(), connectionID)
	return out, describe(err)
}

// ListTables returns the base tables in schema.
func (a *App) ListTables(connectionID int64, schema string) ([]string, error) {
	out, err := a.svc.ListTables(a.context(), connectionID, schema)
	return out, describe(err)
}

// ListViews returns the views in schema.
func (a *App) ListViews(connectionID int64, schema string) ([]string, error) {
	out, err := a.svc.ListViews(a.context(), connectionID, schema)
	return out, describe(err)
}

// ListForeignKeys returns the foreign key columns in schema.
func (a *App) ListForeignKeys(connectionID int64, schema string) ([]dbconn.ForeignKey, error) {
	out, err := a.svc.ListForeignKeys(a.context(), connectionID, schema)
	return out, describe(err)
}

// ListColumns describes the columns of table.
func (a *App) ListColumns(connectionID int64, schema, table string) ([]dbconn.Column, error) {
	out, err := a.svc.ListColumns(a.context(), connectionID, schema, table)
	return out, describe(err)
}

// GetUserStatistics returns connection and query counts for the user.
func (a *App) GetUserStatistics() (store.UserStatistics, error) {
	return a.svc.UserStatistics(a.context())
}

// ListActionLogs returns the latest 100 audit entries, newest first.
func (a *App) ListActionLogs() ([]store.ActionLog, error) {
	return a.svc.ListActionLogs(a.context())
}

// ExportResultCSV writes the outcome to path.
func (a *App) ExportResultCSV(path string, o journal.Outcome) error {
	return a.svc.ExportCSV(path, o)
}

// SaveFileDialog opens a save file dialog and returns the chosen path, or empty string if cancelled.
func (a *App) SaveFileDialog(title string, defaultFilename string, filterName string, filterPattern string) (string, error) {
	opts := runtime.SaveDialogOptions{
		Title:            title,
		DefaultFilename:  defaultFilename,
		DefaultDirectory: "",
		Filters: []runtime.FileFilter{
			{DisplayName: filterName, Pattern: filterPattern},
		},
	}
	return runtime.SaveFileDialog(a.ctx, opts)
}

// describeError carries a user-facing message for the frontend while keeping
// the underlying error for errors.Is/As.
type describeError struct {
	msg string
	err error
}

func (e *describeError) Error() string { return e.msg }
func (e *describeError) Unwrap() error { return e.err }

func describe(err error) error {
	if err == nil {
		return nil
	}
	return &describeError{msg: journal.Describe(err), err: err}
}
