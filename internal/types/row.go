// Package types contains shared types used across multiple packages to avoid import cycles.
package types

import "sort"

// Row is one generated record: column name -> scalar value.
// The shape is only known at run time from the schema descriptor.
type Row map[string]any

// Columns returns the row's column names in sorted order so that generated
// statements list columns deterministically.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ColumnUnion returns the sorted union of column names over a set of rows.
// Rows produced by user code are not required to carry identical keys; a
// column missing from one row is written as NULL.
func ColumnUnion(rows []Row) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		for c := range r {
			seen[c] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for c := range seen {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
