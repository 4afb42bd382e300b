package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DefaultConnectTimeout bounds the connect-and-ping phase when none is set.
const DefaultConnectTimeout = 30 * time.Second

// ConnectError reports that a remote target could not be reached or
// rejected the credentials.
type ConnectError struct {
	Target string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Target, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Dialer opens short-lived sessions to remote targets.
type Dialer struct {
	ConnectTimeout time.Duration
	log            *zap.SugaredLogger
}

func NewDialer(connectTimeout time.Duration, log *zap.SugaredLogger) *Dialer {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Dialer{ConnectTimeout: connectTimeout, log: log}
}

// Open connects to d and verifies the connection within ConnectTimeout. The
// caller owns the session and must Close it.
func (dl *Dialer) Open(ctx context.Context, d Descriptor) (Session, error) {
	pingCtx, cancel := context.WithTimeout(ctx, dl.ConnectTimeout)
	defer cancel()

	if d.Driver == DriverBigQuery {
		s, err := openBigQuery(pingCtx, d)
		if err != nil {
			return nil, &ConnectError{Target: d.String(), Err: err}
		}
		return s, nil
	}

	dsn, err := d.DSN()
	if err != nil {
		return nil, &ConnectError{Target: d.String(), Err: err}
	}
	db, err := sql.Open(sqlDriverName(d.Driver), dsn)
	if err != nil {
		return nil, &ConnectError{Target: d.String(), Err: err}
	}
	// One connection per session: the statement and its result share it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, &ConnectError{Target: d.String(), Err: err}
	}
	dl.log.Debugw("session opened", "connection_id", d.ProfileID, "driver", d.Driver)
	return NewSQLSession(db, d.Driver), nil
}

// Test opens and immediately closes a session to d.
func (dl *Dialer) Test(ctx context.Context, d Descriptor) error {
	s, err := dl.Open(ctx, d)
	if err != nil {
		return err
	}
	return s.Close()
}
