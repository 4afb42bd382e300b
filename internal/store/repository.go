package store

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"time"

	"querydesk/internal/sqlx"
)

// Repo reads and writes the metadata store.
type Repo struct {
	db *sql.DB
}

// NewRepo wraps an open, migrated database.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// DB exposes the underlying handle.
func (r *Repo) DB() *sql.DB { return r.db }

// Close closes the underlying database connection.
func (r *Repo) Close() error { return r.db.Close() }

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// EnsureUser returns the user with the given name, creating it if needed.
func (r *Repo) EnsureUser(ctx context.Context, username string) (User, error) {
	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO app_users (username) VALUES (?) ON CONFLICT(username) DO NOTHING", username); err != nil {
		return User{}, fail("ensure user", err)
	}

	var u User
	var created string
	err := r.db.QueryRowContext(ctx,
		"SELECT user_id, username, created_at FROM app_users WHERE username = ?", username,
	).Scan(&u.ID, &u.Username, &created)
	if err != nil {
		return User{}, fail("ensure user", err)
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return User{}, fail("ensure user", err)
	}
	return u, nil
}

// ---------------------------------------------------------------------------
// Connections
// ---------------------------------------------------------------------------

const connectionColumns = `connection_id, user_id, folder_id, connection_name, driver, host, port,
	db_name, db_user, db_password_encrypted, ssl_mode`

// GetConnection returns a single profile, or ErrNotFound.
func (r *Repo) GetConnection(ctx context.Context, id int64) (ConnectionProfile, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+connectionColumns+" FROM connections WHERE connection_id = ?", id)
	p, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ConnectionProfile{}, ErrNotFound
	}
	if err != nil {
		return ConnectionProfile{}, fail("get connection", err)
	}
	return p, nil
}

// ListConnections returns a user's profiles, optionally restricted to those
// carrying any of TagIDs. A Search token ranks matching names first.
// Default order is by name ascending.
func (r *Repo) ListConnections(ctx context.Context, f ConnectionFilter) ([]ConnectionProfile, error) {
	q, args := connectionsQuery(f)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fail("list connections", err)
	}
	defer rows.Close()

	profiles := []ConnectionProfile{}
	for rows.Next() {
		p, err := scanConnection(rows)
		if err != nil {
			return nil, fail("list connections", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fail("list connections", err)
	}
	return profiles, nil
}

func connectionsQuery(f ConnectionFilter) (string, []any) {
	return sqlx.New("SELECT "+connectionColumns+" FROM connections").
		Where("user_id = ?", f.UserID).
		WhereList("connection_id IN (SELECT connection_id FROM connection_tags WHERE tag_id IN (%s))", sqlx.Args(f.TagIDs)).
		OrderByMatch("connection_name", f.Search).
		OrderBy("connection_name", boolOr(f.SortDesc, false)).
		Build()
}

// CreateConnection inserts a profile and returns its ID. The secret must
// already be encrypted.
func (r *Repo) CreateConnection(ctx context.Context, p ConnectionProfile) (int64, error) {
	if p.Driver == "" {
		p.Driver = "postgres"
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO connections (user_id, folder_id, connection_name, driver, host, port,
		   db_name, db_user, db_password_encrypted, ssl_mode)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.FolderID, p.Name, p.Driver, p.Host, p.Port,
		p.Database, p.Username, p.SecretEncrypted, p.SSLMode,
	)
	if err != nil {
		return 0, fail("create connection", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fail("create connection", err)
	}
	return id, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConnection(s scanner) (ConnectionProfile, error) {
	var p ConnectionProfile
	var folderID, port sql.NullInt64
	var sslMode sql.NullString
	if err := s.Scan(
		&p.ID, &p.UserID, &folderID, &p.Name, &p.Driver, &p.Host, &port,
		&p.Database, &p.Username, &p.SecretEncrypted, &sslMode,
	); err != nil {
		return ConnectionProfile{}, err
	}
	if folderID.Valid {
		p.FolderID = &folderID.Int64
	}
	if port.Valid {
		n := int(port.Int64)
		p.Port = &n
	}
	if sslMode.Valid {
		p.SSLMode = &sslMode.String
	}
	return p, nil
}

// ---------------------------------------------------------------------------
// Tags
// ---------------------------------------------------------------------------

// CreateTag inserts a tag for a user and returns its ID.
func (r *Repo) CreateTag(ctx context.Context, userID int64, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "INSERT INTO tags (user_id, tag_name) VALUES (?, ?)", userID, name)
	if err != nil {
		return 0, fail("create tag", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fail("create tag", err)
	}
	return id, nil
}

// TagConnection attaches a tag to a connection. Re-tagging is a no-op.
func (r *Repo) TagConnection(ctx context.Context, connectionID, tagID int64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO connection_tags (connection_id, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		connectionID, tagID)
	if err != nil {
		return fail("tag connection", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Pinned queries
// ---------------------------------------------------------------------------

// ListPinnedQueries returns the pinned queries on a user's connections. A
// Search token ranks matching names first; default order is oldest first.
func (r *Repo) ListPinnedQueries(ctx context.Context, f PinnedFilter) ([]PinnedQuery, error) {
	q, args := pinnedQuery(f)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fail("list pinned queries", err)
	}
	defer rows.Close()

	out := []PinnedQuery{}
	for rows.Next() {
		var p PinnedQuery
		var desc sql.NullString
		var created string
		if err := rows.Scan(&p.ID, &p.ConnectionID, &p.Name, &p.Text, &desc, &created); err != nil {
			return nil, fail("list pinned queries", err)
		}
		p.Description = desc.String
		if p.CreatedAt, err = parseTime(created); err != nil {
			return nil, fail("list pinned queries", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fail("list pinned queries", err)
	}
	return out, nil
}

const pinnedSelect = `SELECT pq.pinned_query_id, pq.connection_id, pq.query_name, pq.query_text,
		pq.description, pq.created_at
		FROM pinned_queries pq
		JOIN connections c ON pq.connection_id = c.connection_id`

func pinnedQuery(f PinnedFilter) (string, []any) {
	return sqlx.New(pinnedSelect).
		Where("c.user_id = ?", f.UserID).
		OrderByMatch("pq.query_name", f.Search).
		OrderBy("pq.created_at", boolOr(f.SortDesc, false)).
		Build()
}

// CreatePinnedQuery pins a statement to a connection and returns its ID.
func (r *Repo) CreatePinnedQuery(ctx context.Context, p PinnedQuery) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO pinned_queries (connection_id, query_name, query_text, description) VALUES (?, ?, ?, ?)",
		p.ConnectionID, p.Name, p.Text, nullIfEmpty(p.Description))
	if err != nil {
		return 0, fail("create pinned query", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fail("create pinned query", err)
	}
	return id, nil
}

// ---------------------------------------------------------------------------
// Query history
// ---------------------------------------------------------------------------

// ListQueryHistory returns one page of history across a user's connections.
// Default order is newest first.
func (r *Repo) ListQueryHistory(ctx context.Context, f HistoryFilter) ([]HistoryEntry, error) {
	q, args := historyQuery(f)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fail("list query history", err)
	}
	defer rows.Close()

	out := []HistoryEntry{}
	for rows.Next() {
		var h HistoryEntry
		var msg sql.NullString
		var executed string
		if err := rows.Scan(&h.ID, &h.ConnectionID, &h.QueryText, &h.Status,
			&h.ExecutionTimeMs, &msg, &h.ExecutionID, &executed); err != nil {
			return nil, fail("list query history", err)
		}
		if msg.Valid {
			h.ErrorMessage = &msg.String
		}
		if h.ExecutedAt, err = parseTime(executed); err != nil {
			return nil, fail("list query history", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fail("list query history", err)
	}
	return out, nil
}

const historySelect = `SELECT qh.history_id, qh.connection_id, qh.query_text, qh.status,
		qh.execution_time_ms, qh.error_message, qh.execution_id, qh.executed_at
		FROM query_history qh
		JOIN connections c ON qh.connection_id = c.connection_id`

func historyQuery(f HistoryFilter) (string, []any) {
	b := sqlx.New(historySelect).
		Where("c.user_id = ?", f.UserID).
		WhereIn("qh.status", sqlx.Args(statusConstraint(f.Statuses)))
	if f.From != nil {
		b.Where("qh.executed_at >= ?", formatTime(*f.From))
	}
	if f.To != nil {
		b.Where("qh.executed_at <= ?", formatTime(*f.To))
	}
	return b.
		OrderByMatch("qh.query_text", f.Search).
		OrderBy("qh.executed_at", boolOr(f.SortDesc, true)).
		Paginate(f.Limit, f.Offset).
		Build()
}

// InsertHistory records one attempted statement and returns the row ID. A
// zero ExecutedAt is stamped by the database.
func (r *Repo) InsertHistory(ctx context.Context, h HistoryEntry) (int64, error) {
	var executedAt any
	if !h.ExecutedAt.IsZero() {
		executedAt = formatTime(h.ExecutedAt)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO query_history (connection_id, query_text, status, execution_time_ms,
		   error_message, execution_id, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, COALESCE(?, strftime('%Y-%m-%d %H:%M:%f', 'now')))`,
		h.ConnectionID, h.QueryText, h.Status, h.ExecutionTimeMs,
		h.ErrorMessage, h.ExecutionID, executedAt,
	)
	if err != nil {
		return 0, fail("insert history", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fail("insert history", err)
	}
	return id, nil
}

// statusConstraint drops empty entries and returns nil when the filter
// should not constrain status at all.
func statusConstraint(statuses []string) []string {
	var out []string
	for _, s := range statuses {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.EqualFold(s, "all") {
			return nil
		}
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Action log
// ---------------------------------------------------------------------------

// LogAction appends an entry to the user action log.
func (r *Repo) LogAction(ctx context.Context, userID int64, actionType, details string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO app_user_logs (user_id, action_type, details) VALUES (?, ?, ?)",
		userID, actionType, nullIfEmpty(details))
	if err != nil {
		return fail("log action", err)
	}
	return nil
}

// ListActionLogs returns a user's latest 100 log entries, newest first.
func (r *Repo) ListActionLogs(ctx context.Context, userID int64) ([]ActionLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT log_id, user_id, action_type, details, timestamp
		 FROM app_user_logs WHERE user_id = ? ORDER BY timestamp DESC, log_id DESC LIMIT 100`, userID)
	if err != nil {
		return nil, fail("list action logs", err)
	}
	defer rows.Close()

	out := []ActionLog{}
	for rows.Next() {
		var l ActionLog
		var details sql.NullString
		var ts string
		if err := rows.Scan(&l.ID, &l.UserID, &l.ActionType, &details, &ts); err != nil {
			return nil, fail("list action logs", err)
		}
		l.Details = details.String
		if l.Timestamp, err = parseTime(ts); err != nil {
			return nil, fail("list action logs", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fail("list action logs", err)
	}
	return out, nil
}

// UserStatistics summarises a user's connections, history and pins. Last
// login is the login before the current session.
func (r *Repo) UserStatistics(ctx context.Context, userID int64) (UserStatistics, error) {
	var s UserStatistics
	err := r.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM connections WHERE user_id = ?),
		(SELECT COUNT(*) FROM query_history qh JOIN connections c ON qh.connection_id = c.connection_id
		  WHERE c.user_id = ?),
		(SELECT COUNT(*) FROM query_history qh JOIN connections c ON qh.connection_id = c.connection_id
		  WHERE c.user_id = ? AND qh.status = 'success'),
		(SELECT COUNT(*) FROM pinned_queries pq JOIN connections c ON pq.connection_id = c.connection_id
		  WHERE c.user_id = ?)`,
		userID, userID, userID, userID,
	).Scan(&s.TotalConnections, &s.TotalQueries, &s.SuccessQueries, &s.PinnedQueries)
	if err != nil {
		return UserStatistics{}, fail("user statistics", err)
	}
	s.ErrorQueries = s.TotalQueries - s.SuccessQueries

	if s.LastLogin, err = r.optionalTime(ctx,
		`SELECT timestamp FROM app_user_logs WHERE user_id = ? AND action_type = ?
		 ORDER BY timestamp DESC, log_id DESC LIMIT 1 OFFSET 1`, userID, ActionLogin); err != nil {
		return UserStatistics{}, fail("user statistics", err)
	}
	if s.UserCreatedAt, err = r.optionalTime(ctx,
		"SELECT created_at FROM app_users WHERE user_id = ?", userID); err != nil {
		return UserStatistics{}, fail("user statistics", err)
	}
	return s, nil
}

func (r *Repo) optionalTime(ctx context.Context, query string, args ...any) (*time.Time, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t, err := parseTime(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
