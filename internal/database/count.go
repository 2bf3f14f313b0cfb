package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CountRows returns the number of rows currently in a table.
func CountRows(ctx context.Context, q Querier, d Dialect, table string) (int64, error) {
	quoted, err := d.QuoteTable(table)
	if err != nil {
		return 0, err
	}
	query, _, err := d.Builder().Select("COUNT(*)").From(quoted).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count for %s: %w", table, err)
	}

	var n int64
	if err := q.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return n, nil
}

// DeleteAll empties tables in the given order, which must list referencing
// tables before the tables they reference. Returns rows deleted per table.
func DeleteAll(ctx context.Context, tx Execer, d Dialect, tables []string) (map[string]int64, error) {
	deleted := make(map[string]int64, len(tables))
	for _, table := range tables {
		quoted, err := d.QuoteTable(table)
		if err != nil {
			return deleted, err
		}
		query, args, err := d.Builder().Delete(quoted).ToSql()
		if err != nil {
			return deleted, fmt.Errorf("failed to build delete for %s: %w", table, err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return deleted, fmt.Errorf("failed to delete rows from %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return deleted, fmt.Errorf("failed to read rows affected for %s: %w", table, err)
		}
		deleted[table] = n
	}
	return deleted, nil
}
