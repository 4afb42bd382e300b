package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"querydesk/internal/config"
	"querydesk/internal/dbconn"
	"querydesk/internal/export"
	"querydesk/internal/journal"
	"querydesk/internal/store"
	"querydesk/internal/vault"
)

// Service holds the wired backend shared by the desktop shell and the CLI.
// All list and execute operations act on behalf of a single signed-in user.
type Service struct {
	db       *sql.DB
	repo     *store.Repo
	vault    vault.Vault
	resolver *dbconn.Resolver
	dialer   *dbconn.Dialer
	executor *journal.Executor
	log      *zap.SugaredLogger
	user     store.User
}

// Open opens and migrates the metadata store, builds the vault from the
// configured key source and signs in cfg.User, recording a LOGIN action.
func Open(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*Service, error) {
	src, err := keySource(cfg.Vault)
	if err != nil {
		return nil, err
	}
	v, err := vault.New(src)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}

	db, err := store.OpenDB(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db, log); err != nil {
		db.Close()
		return nil, err
	}

	svc := New(db, v, cfg.ConnectTimeout, log)
	if err := svc.SignIn(ctx, cfg.User); err != nil {
		db.Close()
		return nil, err
	}
	log.Infow("metadata store ready", "path", cfg.DatabasePath(), "user", cfg.User)
	return svc, nil
}

// New wires a Service over an already migrated database.
func New(db *sql.DB, v vault.Vault, connectTimeout time.Duration, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	repo := store.NewRepo(db)
	resolver := dbconn.NewResolver(repo, v)
	dialer := dbconn.NewDialer(connectTimeout, log.Named("dbconn"))
	return &Service{
		db:       db,
		repo:     repo,
		vault:    v,
		resolver: resolver,
		dialer:   dialer,
		executor: journal.NewExecutor(resolver, dialer, repo, log.Named("journal")),
		log:      log,
	}
}

func keySource(vc config.VaultConfig) (vault.KeySource, error) {
	switch vc.Source {
	case config.VaultSourceKeyring:
		return vault.KeyringKey{Service: vc.KeyringService}, nil
	case config.VaultSourcePassphrase:
		return vault.PassphraseKey{Passphrase: vc.Passphrase}, nil
	}
	return nil, fmt.Errorf("unsupported vault source %q", vc.Source)
}

// SignIn makes username the acting user, creating it if needed.
func (s *Service) SignIn(ctx context.Context, username string) error {
	u, err := s.repo.EnsureUser(ctx, username)
	if err != nil {
		return err
	}
	s.user = u
	if err := s.repo.LogAction(ctx, u.ID, store.ActionLogin, ""); err != nil {
		s.log.Debugw("record login", "error", err)
	}
	return nil
}

// User returns the acting user.
func (s *Service) User() store.User { return s.user }

// Close closes the metadata store.
func (s *Service) Close() error { return s.db.Close() }

// ---- Requests ----

// ConnectionQuery filters ListConnections.
type ConnectionQuery struct {
	TagIDs   []int64 `json:"tagIds"`
	Search   string  `json:"search"`
	SortDesc *bool   `json:"sortDesc"`
}

// PinnedQuery filters ListPinnedQueries.
type PinnedQuery struct {
	Search   string `json:"searchQuery"`
	SortDesc *bool  `json:"sortDesc"`
}

// HistoryQuery filters ListQueryHistory. Status is "success", "error",
// "all" or empty; dates are YYYY-MM-DD or RFC 3339. A date-only EndDate
// covers that whole day.
type HistoryQuery struct {
	Search    string `json:"searchQuery"`
	Status    string `json:"statusFilter"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	SortDesc  *bool  `json:"sortDesc"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}

// NewConnection is a profile to create. Password is encrypted before storage.
type NewConnection struct {
	Name     string  `json:"connectionName"`
	Driver   string  `json:"driver"`
	Host     string  `json:"host"`
	Port     *int    `json:"port"`
	Database string  `json:"dbName"`
	Username string  `json:"dbUser"`
	Password string  `json:"dbPassword"`
	SSLMode  *string `json:"sslMode"`
	FolderID *int64  `json:"folderId"`
}

// ---- List endpoints ----

func (s *Service) ListConnections(ctx context.Context, q ConnectionQuery) ([]store.ConnectionProfile, error) {
	return s.repo.ListConnections(ctx, store.ConnectionFilter{
		UserID:   s.user.ID,
		TagIDs:   q.TagIDs,
		Search:   strings.TrimSpace(q.Search),
		SortDesc: q.SortDesc,
	})
}

func (s *Service) ListPinnedQueries(ctx context.Context, q PinnedQuery) ([]store.PinnedQuery, error) {
	return s.repo.ListPinnedQueries(ctx, store.PinnedFilter{
		UserID:   s.user.ID,
		Search:   strings.TrimSpace(q.Search),
		SortDesc: q.SortDesc,
	})
}

func (s *Service) ListQueryHistory(ctx context.Context, q HistoryQuery) ([]store.HistoryEntry, error) {
	f := store.HistoryFilter{
		UserID:   s.user.ID,
		Search:   strings.TrimSpace(q.Search),
		SortDesc: q.SortDesc,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.Status != "" {
		f.Statuses = []string{q.Status}
	}
	var err error
	if f.From, err = parseDate(q.StartDate, false); err != nil {
		return nil, fmt.Errorf("start date: %w", err)
	}
	if f.To, err = parseDate(q.EndDate, true); err != nil {
		return nil, fmt.Errorf("end date: %w", err)
	}
	return s.repo.ListQueryHistory(ctx, f)
}

// parseDate accepts YYYY-MM-DD or RFC 3339. With endOfDay set, a bare date
// is moved to its last millisecond.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Millisecond)
		}
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", s)
	}
	return &t, nil
}

// ---- Execution ----

// ExecuteQuery runs statement on a stored connection and journals it. The
// text is sent as given, blank or not; the target decides whether it is valid.
func (s *Service) ExecuteQuery(ctx context.Context, connectionID int64, statement string) (journal.Outcome, error) {
	return s.executor.Execute(ctx, connectionID, statement)
}

// TestConnection resolves and dials a stored connection without running
// anything on it.
func (s *Service) TestConnection(ctx context.Context, connectionID int64) error {
	d, err := s.resolver.Resolve(ctx, connectionID)
	if err != nil {
		return err
	}
	return s.dialer.Test(ctx, d)
}

// ---- Catalog ----

func (s *Service) withCatalog(ctx context.Context, connectionID int64, fn func(dbconn.Introspector) error) error {
	d, err := s.resolver.Resolve(ctx, connectionID)
	if err != nil {
		return err
	}
	sess, err := s.dialer.Open(ctx, d)
	if err != nil {
		return err
	}
	defer sess.Close()

	in, err := dbconn.Inspect(sess)
	if err != nil {
		return err
	}
	return fn(in)
}

func (s *Service) ListSchemas(ctx context.Context, connectionID int64) (out []string, err error) {
	err = s.withCatalog(ctx, connectionID, func(in dbconn.Introspector) error {
		out, err = in.ListSchemas(ctx)
		return err
	})
	return out, err
}

func (s *Service) ListTables(ctx context.Context, connectionID int64, schema string) (out []string, err error) {
	err = s.withCatalog(ctx, connectionID, func(in dbconn.Introspector) error {
		out, err = in.ListTables(ctx, schema)
		return err
	})
	return out, err
}

func (s *Service) ListViews(ctx context.Context, connectionID int64, schema string) (out []string, err error) {
	err = s.withCatalog(ctx, connectionID, func(in dbconn.Introspector) error {
		out, err = in.ListViews(ctx, schema)
		return err
	})
	return out, err
}

func (s *Service) ListForeignKeys(ctx context.Context, connectionID int64, schema string) (out []dbconn.ForeignKey, err error) {
	err = s.withCatalog(ctx, connectionID, func(in dbconn.Introspector) error {
		out, err = in.ListForeignKeys(ctx, schema)
		return err
	})
	return out, err
}

func (s *Service) ListColumns(ctx context.Context, connectionID int64, schema, table string) (out []dbconn.Column, err error) {
	err = s.withCatalog(ctx, connectionID, func(in dbconn.Introspector) error {
		out, err = in.ListColumns(ctx, schema, table)
		return err
	})
	return out, err
}

// ---- Account ----

func (s *Service) UserStatistics(ctx context.Context) (store.UserStatistics, error) {
	return s.repo.UserStatistics(ctx, s.user.ID)
}

func (s *Service) ListActionLogs(ctx context.Context) ([]store.ActionLog, error) {
	return s.repo.ListActionLogs(ctx, s.user.ID)
}

// ---- Seeding ----

// CreateConnection encrypts the password and stores a new profile.
func (s *Service) CreateConnection(ctx context.Context, c NewConnection) (int64, error) {
	if strings.TrimSpace(c.Name) == "" {
		return 0, fmt.Errorf("connection name is required")
	}
	var secret string
	if c.Password != "" {
		var err error
		if secret, err = s.vault.Conceal(c.Password); err != nil {
			return 0, err
		}
	}
	return s.repo.CreateConnection(ctx, store.ConnectionProfile{
		UserID:          s.user.ID,
		FolderID:        c.FolderID,
		Name:            c.Name,
		Driver:          c.Driver,
		Host:            c.Host,
		Port:            c.Port,
		Database:        c.Database,
		Username:        c.Username,
		SecretEncrypted: secret,
		SSLMode:         c.SSLMode,
	})
}

// PinQuery pins a statement to one of the user's connections.
func (s *Service) PinQuery(ctx context.Context, connectionID int64, name, text, description string) (int64, error) {
	if _, err := s.ownedConnection(ctx, connectionID); err != nil {
		return 0, err
	}
	return s.repo.CreatePinnedQuery(ctx, store.PinnedQuery{
		ConnectionID: connectionID, Name: name, Text: text, Description: description,
	})
}

// CreateTag adds a tag for the user.
func (s *Service) CreateTag(ctx context.Context, name string) (int64, error) {
	return s.repo.CreateTag(ctx, s.user.ID, name)
}

// TagConnection attaches a tag to one of the user's connections.
func (s *Service) TagConnection(ctx context.Context, connectionID, tagID int64) error {
	if _, err := s.ownedConnection(ctx, connectionID); err != nil {
		return err
	}
	return s.repo.TagConnection(ctx, connectionID, tagID)
}

func (s *Service) ownedConnection(ctx context.Context, id int64) (store.ConnectionProfile, error) {
	p, err := s.repo.GetConnection(ctx, id)
	if err != nil {
		return p, err
	}
	if p.UserID != s.user.ID {
		return store.ConnectionProfile{}, store.ErrNotFound
	}
	return p, nil
}

// ExportCSV writes an outcome's columns and rows to path as CSV.
func (s *Service) ExportCSV(path string, o journal.Outcome) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.WriteCSV(f, o.Columns, o.Rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
