// Package schema describes the tables, columns and foreign-key constraints goseed
// generates data for. The descriptor is produced by an external introspection step
// and loaded from YAML.
package schema

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/goseed/internal/sqlutil"
)

// DefaultPrimaryKey is used when a table does not name its primary key column.
const DefaultPrimaryKey = "id"

// Schema is the full descriptor: tables plus the foreign-key constraints between them.
type Schema struct {
	Tables      []Table      `yaml:"tables"`
	Constraints []Constraint `yaml:"constraints"`
}

// Table describes one table.
type Table struct {
	Name       string   `yaml:"name"`
	PrimaryKey string   `yaml:"primary_key"`
	Columns    []Column `yaml:"columns"`
}

// Column describes one column of a table.
type Column struct {
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	IsNullable bool           `yaml:"nullable"`
	IsIdentity bool           `yaml:"identity"`
	IsUnique   bool           `yaml:"unique"`
	MaxLength  int            `yaml:"max_length"` // 0 or -1 means unbounded
	ForeignKey *ForeignKeyRef `yaml:"foreign_key,omitempty"`
}

// ForeignKeyRef is the inline form of a constraint declared on a column.
type ForeignKeyRef struct {
	Table    string `yaml:"table"`
	Column   string `yaml:"column"`
	OnDelete string `yaml:"on_delete"`
}

// Constraint is a foreign key: ParentTable.ParentColumn references
// ReferencedTable.ReferencedColumn.
type Constraint struct {
	ParentTable      string `yaml:"parent_table"`
	ParentColumn     string `yaml:"parent_column"`
	ReferencedTable  string `yaml:"referenced_table"`
	ReferencedColumn string `yaml:"referenced_column"`
	OnDeleteAction   string `yaml:"on_delete"`
}

// IsSelfReference reports whether the constraint points back at its own table.
func (c Constraint) IsSelfReference() bool {
	return c.ParentTable == c.ReferencedTable
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", c.ParentTable, c.ParentColumn, c.ReferencedTable, c.ReferencedColumn)
}

// Table returns the named table.
func (s *Schema) Table(name string) (*Table, bool) {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// PrimaryKey returns the primary key column of a table, falling back to "id".
func (s *Schema) PrimaryKey(table string) string {
	if t, ok := s.Table(table); ok && t.PrimaryKey != "" {
		return t.PrimaryKey
	}
	return DefaultPrimaryKey
}

// ConstraintsFor returns the constraints whose parent is the given table.
func (s *Schema) ConstraintsFor(table string) []Constraint {
	var out []Constraint
	for _, c := range s.Constraints {
		if c.ParentTable == table {
			out = append(out, c)
		}
	}
	return out
}

// normalize folds inline column foreign keys into Constraints, skipping duplicates.
func (s *Schema) normalize() {
	type edge struct{ pt, pc, rt, rc string }
	seen := make(map[edge]bool, len(s.Constraints))
	for _, c := range s.Constraints {
		seen[edge{c.ParentTable, c.ParentColumn, c.ReferencedTable, c.ReferencedColumn}] = true
	}
	for _, t := range s.Tables {
		for _, col := range t.Columns {
			if col.ForeignKey == nil {
				continue
			}
			c := Constraint{
				ParentTable:      t.Name,
				ParentColumn:     col.Name,
				ReferencedTable:  col.ForeignKey.Table,
				ReferencedColumn: col.ForeignKey.Column,
				OnDeleteAction:   col.ForeignKey.OnDelete,
			}
			if c.ReferencedColumn == "" {
				c.ReferencedColumn = s.PrimaryKey(c.ReferencedTable)
			}
			key := edge{c.ParentTable, c.ParentColumn, c.ReferencedTable, c.ReferencedColumn}
			if !seen[key] {
				seen[key] = true
				s.Constraints = append(s.Constraints, c)
			}
		}
	}
}

// Validate checks that names are plain identifiers and that every constraint
// points at tables and columns present in the descriptor.
func (s *Schema) Validate() error {
	tables := make(map[string]*Table, len(s.Tables))
	for i := range s.Tables {
		t := &s.Tables[i]
		if !sqlutil.IsValidIdentifier(t.Name) {
			return fmt.Errorf("table %q: %w", t.Name, &sqlutil.InvalidIdentifierError{Name: t.Name})
		}
		if _, dup := tables[t.Name]; dup {
			return fmt.Errorf("table %q is declared more than once", t.Name)
		}
		tables[t.Name] = t

		if len(t.Columns) == 0 {
			return fmt.Errorf("table %q has no columns", t.Name)
		}
		for _, col := range t.Columns {
			if !sqlutil.IsValidIdentifier(col.Name) || strings.Contains(col.Name, ".") {
				return fmt.Errorf("table %q: invalid column name %q", t.Name, col.Name)
			}
		}
		if t.PrimaryKey != "" && !t.HasColumn(t.PrimaryKey) {
			return fmt.Errorf("table %q: primary key %q is not a column", t.Name, t.PrimaryKey)
		}
	}

	for _, c := range s.Constraints {
		parent, ok := tables[c.ParentTable]
		if !ok {
			return fmt.Errorf("constraint %s: unknown table %q", c, c.ParentTable)
		}
		if !parent.HasColumn(c.ParentColumn) {
			return fmt.Errorf("constraint %s: unknown column %q", c, c.ParentColumn)
		}
		referenced, ok := tables[c.ReferencedTable]
		if !ok {
			return fmt.Errorf("constraint %s: unknown table %q", c, c.ReferencedTable)
		}
		if !referenced.HasColumn(c.ReferencedColumn) {
			return fmt.Errorf("constraint %s: unknown column %q", c, c.ReferencedColumn)
		}
	}
	return nil
}

// HasColumn reports whether the table declares the column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// InsertableColumns returns the columns a generated row should carry: everything
// except identity columns, which the database assigns.
func (t *Table) InsertableColumns() []Column {
	out := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !c.IsIdentity {
			out = append(out, c)
		}
	}
	return out
}

// UniqueColumns returns the names of unique, non-identity columns.
func (t *Table) UniqueColumns() []string {
	var out []string
	for _, c := range t.Columns {
		if c.IsUnique && !c.IsIdentity {
			out = append(out, c.Name)
		}
	}
	return out
}
