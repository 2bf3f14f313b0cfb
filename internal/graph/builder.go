package graph

import (
	"github.com/dbsmedya/goseed/internal/schema"
)

// Builder constructs the dependency graph for a set of selected tables.
type Builder struct {
	tables      []string
	constraints []schema.Constraint
}

// NewBuilder creates a builder for the selected tables and the full constraint list.
func NewBuilder(tables []string, constraints []schema.Constraint) *Builder {
	return &Builder{tables: tables, constraints: constraints}
}

// Build adds every selected table as a node and every constraint whose both
// endpoints are selected as an edge. Self-references do not affect ordering
// and are left out.
func (b *Builder) Build() *Graph {
	g := NewGraph()
	for _, name := range b.tables {
		g.AddNode(name)
	}

	for _, c := range b.constraints {
		if c.IsSelfReference() {
			continue
		}
		if !g.HasNode(c.ParentTable) || !g.HasNode(c.ReferencedTable) {
			continue
		}
		g.AddEdgeWithMeta(c.ReferencedTable, c.ParentTable, c.ParentColumn, c.ReferencedColumn)
	}
	return g
}

// BuildFromSchema is a convenience function that builds a graph in one call.
func BuildFromSchema(tables []string, constraints []schema.Constraint) *Graph {
	return NewBuilder(tables, constraints).Build()
}
