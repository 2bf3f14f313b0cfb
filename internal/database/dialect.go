package database

import (
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/dbsmedya/goseed/internal/config"
	"github.com/dbsmedya/goseed/internal/sqlutil"
)

// KeyRecovery is how a dialect hands back the primary keys of inserted rows.
type KeyRecovery int

const (
	// KeysReturning appends RETURNING pk (PostgreSQL, SQLite).
	KeysReturning KeyRecovery = iota
	// KeysOutputInserted adds OUTPUT INSERTED.pk before VALUES (SQL Server).
	KeysOutputInserted
	// KeysLastInsertID derives keys from LastInsertId (MySQL).
	KeysLastInsertID
)

// Dialect collects what differs between the supported databases.
type Dialect struct {
	Name        string
	DriverName  string
	Placeholder squirrel.PlaceholderFormat
	Quote       sqlutil.QuoteStyle
	Keys        KeyRecovery
}

// DialectFor returns the dialect of a configured driver.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverMySQL:
		return Dialect{Name: driver, DriverName: "mysql", Placeholder: squirrel.Question, Quote: sqlutil.Backtick, Keys: KeysLastInsertID}, nil
	case config.DriverPostgres:
		return Dialect{Name: driver, DriverName: "pgx", Placeholder: squirrel.Dollar, Quote: sqlutil.DoubleQuote, Keys: KeysReturning}, nil
	case config.DriverPostgresPQ:
		return Dialect{Name: driver, DriverName: "postgres", Placeholder: squirrel.Dollar, Quote: sqlutil.DoubleQuote, Keys: KeysReturning}, nil
	case config.DriverSQLite:
		return Dialect{Name: driver, DriverName: "sqlite3", Placeholder: squirrel.Question, Quote: sqlutil.DoubleQuote, Keys: KeysReturning}, nil
	case config.DriverSQLServer:
		return Dialect{Name: driver, DriverName: "sqlserver", Placeholder: squirrel.AtP, Quote: sqlutil.Bracket, Keys: KeysOutputInserted}, nil
	}
	return Dialect{}, fmt.Errorf("unsupported driver %q", driver)
}

// Builder returns a squirrel statement builder with the dialect's placeholders.
func (d Dialect) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(d.Placeholder)
}

// QuoteTable validates and quotes a possibly schema-qualified table name.
func (d Dialect) QuoteTable(name string) (string, error) {
	return sqlutil.QuoteIdentifierSafe(d.Quote, name)
}

// QuoteColumn validates and quotes a column name.
func (d Dialect) QuoteColumn(name string) (string, error) {
	if !sqlutil.IsValidIdentifier(name) {
		return "", &sqlutil.InvalidIdentifierError{Name: name}
	}
	return d.Quote.Quote(name), nil
}

// SavepointSQL starts a savepoint.
func (d Dialect) SavepointSQL(name string) string {
	if d.Name == config.DriverSQLServer {
		return "SAVE TRANSACTION " + name
	}
	return "SAVEPOINT " + name
}

// RollbackToSQL undoes everything since the savepoint.
func (d Dialect) RollbackToSQL(name string) string {
	if d.Name == config.DriverSQLServer {
		return "ROLLBACK TRANSACTION " + name
	}
	return "ROLLBACK TO SAVEPOINT " + name
}

// ReleaseSQL discards a savepoint. SQL Server has no release; it returns "".
func (d Dialect) ReleaseSQL(name string) string {
	if d.Name == config.DriverSQLServer {
		return ""
	}
	return "RELEASE SAVEPOINT " + name
}
