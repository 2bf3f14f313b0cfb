// Package sqlutil provides SQL identifier helpers shared by every dialect goseed writes to.
package sqlutil

import (
	"regexp"
	"strings"
)

// QuoteStyle selects how identifiers are delimited for a database dialect.
type QuoteStyle int

const (
	// Backtick quotes identifiers MySQL style: `name`.
	Backtick QuoteStyle = iota
	// DoubleQuote quotes identifiers the ANSI way used by PostgreSQL and SQLite: "name".
	DoubleQuote
	// Bracket quotes identifiers SQL Server style: [name].
	Bracket
)

// Quote delimits a single identifier, escaping embedded delimiters by doubling them.
// Example (Backtick): "my`table" -> "`my``table`"
// Example (Bracket): "my]table" -> "[my]]table]"
func (s QuoteStyle) Quote(name string) string {
	switch s {
	case DoubleQuote:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	case Bracket:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
}

// QuoteQualified quotes a possibly schema-qualified name part by part.
// Example (Bracket): "dbo.Customers" -> "[dbo].[Customers]"
func (s QuoteStyle) QuoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = s.Quote(p)
	}
	return strings.Join(parts, ".")
}

// QuoteIdentifier quotes a MySQL identifier (table name, column name) with backticks.
func QuoteIdentifier(name string) string {
	return Backtick.Quote(name)
}

// validIdentifierRegex restricts identifiers to alphanumerics and underscore, optionally
// schema-qualified with a single dot.
var validIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// IsValidIdentifier checks that a table or column name from a schema descriptor
// is a plain identifier before it is spliced into generated SQL.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe validates and then quotes an identifier in the given style.
func QuoteIdentifierSafe(style QuoteStyle, name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return style.QuoteQualified(name), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}
