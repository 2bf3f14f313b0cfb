package generator

import (
	"fmt"

	"github.com/dbsmedya/goseed/internal/types"
)

// DefaultUniqueAttempts bounds how many candidates a generator tries for one row.
const DefaultUniqueAttempts = 10

// UniqueTracker remembers, per unique column of one table, every value produced
// in this run. It is not safe for concurrent use; the engine generates rows on
// a single goroutine.
type UniqueTracker struct {
	table   string
	columns []string
	seen    map[string]map[any]struct{}
}

// NewUniqueTracker tracks the given columns of a table. Identity columns should
// not be passed; the database assigns them.
func NewUniqueTracker(table string, columns []string) *UniqueTracker {
	seen := make(map[string]map[any]struct{}, len(columns))
	for _, c := range columns {
		seen[c] = make(map[any]struct{})
	}
	return &UniqueTracker{table: table, columns: columns, seen: seen}
}

// Columns returns the tracked column names.
func (t *UniqueTracker) Columns() []string {
	return t.columns
}

// Collides returns the first tracked column whose value in row was already produced.
// NULL never collides.
func (t *UniqueTracker) Collides(row types.Row) (column string, value any, collides bool) {
	for _, c := range t.columns {
		v, ok := row[c]
		if !ok || v == nil {
			continue
		}
		key := types.NormalizeScalar(v)
		if _, dup := t.seen[c][key]; dup {
			return c, v, true
		}
	}
	return "", nil, false
}

// Record adds the row's unique values to their sets.
func (t *UniqueTracker) Record(row types.Row) {
	for _, c := range t.columns {
		if v, ok := row[c]; ok && v != nil {
			t.seen[c][types.NormalizeScalar(v)] = struct{}{}
		}
	}
}

// Size returns how many distinct values a column has seen.
func (t *UniqueTracker) Size(column string) int {
	return len(t.seen[column])
}

// UniqueExhaustedError is returned when a generator cannot produce a row whose
// unique columns are all new within the attempt bound.
type UniqueExhaustedError struct {
	Table    string
	Column   string
	Value    any
	Attempts int
}

func (e *UniqueExhaustedError) Error() string {
	return fmt.Sprintf("table %s: no unique value for column %s after %d attempts (last duplicate: %v)",
		e.Table, e.Column, e.Attempts, e.Value)
}
