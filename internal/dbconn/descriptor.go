// Package dbconn resolves stored connection profiles into live sessions
// against remote databases and runs statements and catalog queries on them.
package dbconn

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMSSQL    = "mssql"
	DriverSQLite   = "sqlite"
	DriverBigQuery = "bigquery"
)

// DefaultSSLMode applies when a profile leaves the TLS mode unset.
const DefaultSSLMode = "prefer"

// Descriptor is a fully resolved connection target with the plaintext
// secret. It is built per call and must not be cached or logged; String and
// JSON encoding omit the secret.
type Descriptor struct {
	ProfileID int64  `json:"profileId"`
	OwnerID   int64  `json:"ownerId"`
	Driver    string `json:"driver"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Database  string `json:"database"`
	Username  string `json:"username"`
	Secret    string `json:"-"`
	SSLMode   string `json:"sslMode"`
}

func (d Descriptor) String() string {
	switch d.Driver {
	case DriverSQLite:
		return fmt.Sprintf("sqlite:%s", d.Database)
	case DriverBigQuery:
		return fmt.Sprintf("bigquery:%s/%s", d.Host, d.Database)
	}
	return fmt.Sprintf("%s://%s:***@%s/%s?sslmode=%s",
		d.Driver, d.Username, net.JoinHostPort(d.Host, strconv.Itoa(d.Port)), d.Database, d.SSLMode)
}

// DefaultPort returns the conventional port for driver, or 0 when the
// driver has none.
func DefaultPort(driver string) int {
	switch driver {
	case DriverPostgres:
		return 5432
	case DriverMySQL:
		return 3306
	case DriverMSSQL:
		return 1433
	}
	return 0
}

// DSN renders the database/sql data source name for the descriptor's driver.
// BigQuery is client based and has no DSN.
func (d Descriptor) DSN() (string, error) {
	addr := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	switch d.Driver {
	case DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.Username, d.Secret),
			Host:     addr,
			Path:     "/" + d.Database,
			RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
		}
		return u.String(), nil

	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = d.Username
		cfg.Passwd = d.Secret
		cfg.Net = "tcp"
		cfg.Addr = addr
		cfg.DBName = d.Database
		cfg.TLSConfig = mysqlTLS(d.SSLMode)
		return cfg.FormatDSN(), nil

	case DriverMSSQL:
		encrypt := "true"
		if d.SSLMode == "disable" || d.SSLMode == "none" {
			encrypt = "disable"
		}
		q := url.Values{}
		q.Set("database", d.Database)
		q.Set("encrypt", encrypt)
		q.Set("TrustServerCertificate", "true")
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(d.Username, d.Secret),
			Host:     addr,
			RawQuery: q.Encode(),
		}
		return u.String(), nil

	case DriverSQLite:
		if d.Database == "" {
			return "", fmt.Errorf("sqlite: database path is required")
		}
		return d.Database, nil
	}
	return "", fmt.Errorf("unsupported database driver: %s", d.Driver)
}

// sqlDriverName is the database/sql driver registered for d.Driver.
func sqlDriverName(driver string) string {
	switch driver {
	case DriverPostgres:
		return "pgx"
	case DriverMSSQL:
		return "sqlserver"
	}
	return driver
}

func mysqlTLS(sslMode string) string {
	switch sslMode {
	case "disable", "none":
		return "false"
	case "require":
		return "true"
	}
	return "preferred"
}
