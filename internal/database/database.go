// Package database provides connection management and SQL plumbing for the
// databases goseed writes to: MySQL, PostgreSQL (pgx or lib/pq), SQLite and
// SQL Server.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"   // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib"   // PostgreSQL driver registered as "pgx"
	_ "github.com/lib/pq"                // PostgreSQL driver registered as "postgres"
	_ "github.com/mattn/go-sqlite3"      // SQLite driver
	_ "github.com/microsoft/go-mssqldb" // SQL Server driver

	"github.com/dbsmedya/goseed/internal/config"
)

// Manager owns the connection pool to the target database.
type Manager struct {
	DB      *sql.DB
	Dialect Dialect
	config  *config.DatabaseConfig
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.DatabaseConfig) (*Manager, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return &Manager{
		Dialect: dialect,
		config:  cfg,
	}, nil
}

// NewManagerWithDB wraps an already open handle, e.g. one from sqlmock.
func NewManagerWithDB(db *sql.DB, dialect Dialect) *Manager {
	return &Manager{DB: db, Dialect: dialect}
}

// Connect opens and verifies the connection pool.
func (m *Manager) Connect(ctx context.Context) error {
	db, err := m.connectWithRetry(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", m.config.Driver, err)
	}
	m.DB = db
	return nil
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 3
	backoff := time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = m.connect()
		if err == nil {
			if pingErr := db.PingContext(ctx); pingErr == nil {
				return db, nil
			} else {
				db.Close()
				err = pingErr
			}
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, err)
}

// connect creates a database handle.
func (m *Manager) connect() (*sql.DB, error) {
	dsn, err := BuildDSN(m.config)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(m.Dialect.DriverName, dsn)
	if err != nil {
		return nil, err
	}

	if m.config.MaxConnections > 0 {
		db.SetMaxOpenConns(m.config.MaxConnections)
	}
	if m.config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(m.config.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// DefaultPort returns the usual port of a network driver, 0 for sqlite.
func DefaultPort(driver string) int {
	switch driver {
	case config.DriverMySQL:
		return 3306
	case config.DriverPostgres, config.DriverPostgresPQ:
		return 5432
	case config.DriverSQLServer:
		return 1433
	}
	return 0
}

// BuildDSN constructs the driver-specific connection string. An explicit DSN
// in the configuration is returned untouched.
func BuildDSN(cfg *config.DatabaseConfig) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	port := cfg.Port
	if port == 0 {
		port = DefaultPort(cfg.Driver)
	}
	hostPort := net.JoinHostPort(cfg.Host, strconv.Itoa(port))

	switch cfg.Driver {
	case config.DriverMySQL:
		// Format: user:password@tcp(host:port)/database?params
		dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s", cfg.User, cfg.Password, hostPort, cfg.Database)
		params := "?parseTime=true"
		switch cfg.TLS {
		case "disable":
			params += "&tls=false"
		case "required":
			params += "&tls=true"
		case "preferred", "":
			params += "&tls=preferred"
		}
		return dsn + params, nil

	case config.DriverPostgres, config.DriverPostgresPQ:
		sslmode := map[string]string{"disable": "disable", "required": "require"}[cfg.TLS]
		if sslmode == "" {
			sslmode = "prefer"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     hostPort,
			Path:     "/" + cfg.Database,
			RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
		}
		return u.String(), nil

	case config.DriverSQLite:
		return fmt.Sprintf("file:%s?_foreign_keys=on", cfg.Database), nil

	case config.DriverSQLServer:
		encrypt := map[string]string{"disable": "disable", "required": "true"}[cfg.TLS]
		if encrypt == "" {
			encrypt = "false"
		}
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     hostPort,
			RawQuery: url.Values{"database": {cfg.Database}, "encrypt": {encrypt}}.Encode(),
		}
		return u.String(), nil
	}

	return "", fmt.Errorf("unsupported driver %q", cfg.Driver)
}

// Close closes the connection pool.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	if err := m.DB.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Ping verifies the connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.DB == nil {
		return fmt.Errorf("not connected")
	}
	if err := m.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}
