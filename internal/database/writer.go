package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/dbsmedya/goseed/internal/inserter"
	"github.com/dbsmedya/goseed/internal/types"
)

// Execer is the part of *sql.Tx the writer needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLWriter inserts batches inside one shared transaction. A transaction is
// bound to a single connection, so statements are serialized; each batch runs
// inside its own savepoint so a unique violation undoes only that batch.
type SQLWriter struct {
	mu      sync.Mutex
	tx      Execer
	dialect Dialect
	seq     int
}

// NewSQLWriter creates a writer on tx.
func NewSQLWriter(tx Execer, dialect Dialect) *SQLWriter {
	return &SQLWriter{tx: tx, dialect: dialect}
}

// InsertBatch writes rows in one multi-row INSERT and returns the primary keys
// in row order. Unique violations are returned wrapping inserter.ErrUniqueViolation.
func (w *SQLWriter) InsertBatch(ctx context.Context, table, primaryKey string, rows []types.Row) ([]any, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	query, args, err := w.buildInsert(table, primaryKey, rows)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	savepoint := fmt.Sprintf("goseed_sp_%d", w.seq)
	if _, err := w.tx.ExecContext(ctx, w.dialect.SavepointSQL(savepoint)); err != nil {
		return nil, fmt.Errorf("failed to create savepoint: %w", err)
	}

	keys, err := w.execInsert(ctx, query, args, primaryKey, rows)
	if err != nil {
		if _, rbErr := w.tx.ExecContext(ctx, w.dialect.RollbackToSQL(savepoint)); rbErr != nil {
			return nil, fmt.Errorf("failed to roll back to savepoint after %v: %w", err, rbErr)
		}
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %w", inserter.ErrUniqueViolation, err)
		}
		return nil, err
	}

	if release := w.dialect.ReleaseSQL(savepoint); release != "" {
		if _, err := w.tx.ExecContext(ctx, release); err != nil {
			return nil, fmt.Errorf("failed to release savepoint: %w", err)
		}
	}
	return keys, nil
}

// buildInsert renders the multi-row INSERT with squirrel. Columns are the
// sorted union over all rows; a row missing a column writes NULL.
func (w *SQLWriter) buildInsert(table, primaryKey string, rows []types.Row) (string, []any, error) {
	quotedTable, err := w.dialect.QuoteTable(table)
	if err != nil {
		return "", nil, err
	}
	quotedPK, err := w.dialect.QuoteColumn(primaryKey)
	if err != nil {
		return "", nil, err
	}

	columns := types.ColumnUnion(rows)
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("table %s: generated rows have no columns", table)
	}
	quotedCols := make([]string, len(columns))
	for i, c := range columns {
		if quotedCols[i], err = w.dialect.QuoteColumn(c); err != nil {
			return "", nil, err
		}
	}

	insert := w.dialect.Builder().Insert(quotedTable).Columns(quotedCols...)
	for _, r := range rows {
		values := make([]any, len(columns))
		for i, c := range columns {
			values[i] = r[c]
		}
		insert = insert.Values(values...)
	}
	if w.dialect.Keys == KeysReturning {
		insert = insert.Suffix("RETURNING " + quotedPK)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build insert for %s: %w", table, err)
	}
	if w.dialect.Keys == KeysOutputInserted {
		query = strings.Replace(query, " VALUES ", " OUTPUT INSERTED."+quotedPK+" VALUES ", 1)
	}
	return query, args, nil
}

func (w *SQLWriter) execInsert(ctx context.Context, query string, args []any, primaryKey string, rows []types.Row) ([]any, error) {
	if w.dialect.Keys == KeysLastInsertID {
		return w.execLastInsertID(ctx, query, args, primaryKey, rows)
	}

	result, err := w.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	keys := make([]any, 0, len(rows))
	for result.Next() {
		var key any
		if err := result.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan returned key: %w", err)
		}
		keys = append(keys, types.NormalizeScalar(key))
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// execLastInsertID handles MySQL, which has no RETURNING. Keys the rows carry
// themselves are used as is; otherwise a multi-row insert reports its first
// AUTO_INCREMENT value and the rest follow consecutively.
func (w *SQLWriter) execLastInsertID(ctx context.Context, query string, args []any, primaryKey string, rows []types.Row) ([]any, error) {
	res, err := w.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	if supplied := suppliedKeys(rows, primaryKey); supplied != nil {
		return supplied, nil
	}

	first, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read last insert id: %w", err)
	}
	keys := make([]any, len(rows))
	for i := range rows {
		keys[i] = first + int64(i)
	}
	return keys, nil
}

// suppliedKeys returns the rows' own primary-key values when every row has one.
func suppliedKeys(rows []types.Row, primaryKey string) []any {
	keys := make([]any, len(rows))
	for i, r := range rows {
		v, ok := r[primaryKey]
		if !ok || v == nil {
			return nil
		}
		keys[i] = types.NormalizeScalar(v)
	}
	return keys
}
