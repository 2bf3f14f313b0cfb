// Package graph orders tables for insertion so that every table is populated
// after the tables it references through foreign keys.
package graph

import (
	"github.com/elliotchance/orderedmap/v2"
)

// Node represents a table in the dependency graph.
type Node struct {
	Name string
}

// Edge represents a dependency: From is the referenced table, To the referencing one.
type Edge struct {
	From string
	To   string
}

// EdgeMeta lists the foreign-key columns behind an edge.
type EdgeMeta struct {
	ForeignKeys []ForeignKey
}

// ForeignKey is one column pair contributing to an edge.
type ForeignKey struct {
	Column          string // column in the referencing table
	ReferenceColumn string // column in the referenced table
}

// Graph is the constraint subgraph induced by the selected tables.
// Nodes iterate in first-seen order so every algorithm here is deterministic.
type Graph struct {
	nodes        *orderedmap.OrderedMap[string, *Node]
	Children     map[string][]string // referenced table -> referencing tables
	Parents      map[string][]string // referencing table -> referenced tables
	edgeMetadata map[Edge]*EdgeMeta
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:        orderedmap.NewOrderedMap[string, *Node](),
		Children:     make(map[string][]string),
		Parents:      make(map[string][]string),
		edgeMetadata: make(map[Edge]*EdgeMeta),
	}
}

// AddNode adds a table. Adding a name twice keeps the first occurrence.
func (g *Graph) AddNode(name string) bool {
	if _, exists := g.nodes.Get(name); exists {
		return false
	}
	g.nodes.Set(name, &Node{Name: name})
	return true
}

// AddEdge records that child references parent. Repeated edges are collapsed so
// in-degrees count tables, not constraints.
func (g *Graph) AddEdge(parent, child string) {
	edge := Edge{From: parent, To: child}
	if _, exists := g.edgeMetadata[edge]; exists {
		return
	}
	g.edgeMetadata[edge] = &EdgeMeta{}
	g.Children[parent] = append(g.Children[parent], child)
	g.Parents[child] = append(g.Parents[child], parent)
}

// AddEdgeWithMeta adds an edge and remembers the column pair that created it.
func (g *Graph) AddEdgeWithMeta(parent, child, foreignKey, referenceKey string) {
	g.AddEdge(parent, child)
	meta := g.edgeMetadata[Edge{From: parent, To: child}]
	meta.ForeignKeys = append(meta.ForeignKeys, ForeignKey{Column: foreignKey, ReferenceColumn: referenceKey})
}

// GetChildren returns the tables that reference parent.
func (g *Graph) GetChildren(parent string) []string {
	return g.Children[parent]
}

// GetParents returns the tables child references.
func (g *Graph) GetParents(child string) []string {
	return g.Parents[child]
}

// GetEdgeMeta returns metadata for an edge, or nil if not found.
func (g *Graph) GetEdgeMeta(parent, child string) *EdgeMeta {
	return g.edgeMetadata[Edge{From: parent, To: child}]
}

// HasNode returns true if the graph contains a node with the given name.
func (g *Graph) HasNode(name string) bool {
	_, exists := g.nodes.Get(name)
	return exists
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return g.nodes.Len()
}

// AllNodes returns table names in first-seen order.
func (g *Graph) AllNodes() []string {
	return g.nodes.Keys()
}

