package graph

import (
	"reflect"
	"testing"
)

func TestAddNode_FirstSeenWins(t *testing.T) {
	g := NewGraph()
	if !g.AddNode("customers") {
		t.Fatal("first AddNode should report true")
	}
	g.AddNode("orders")
	if g.AddNode("customers") {
		t.Error("duplicate AddNode should report false")
	}

	if g.NodeCount() != 2 {
		t.Errorf("Expected 2 nodes, got %d", g.NodeCount())
	}
	if got := g.AllNodes(); !reflect.DeepEqual(got, []string{"customers", "orders"}) {
		t.Errorf("AllNodes = %v, expected first-seen order", got)
	}
	if g.HasNode("missing") {
		t.Error("HasNode for unknown table should be false")
	}
}

func TestAddEdge_CollapsesDuplicates(t *testing.T) {
	g := NewGraph()
	g.AddNode("users")
	g.AddNode("messages")
	g.AddEdgeWithMeta("users", "messages", "sender_id", "id")
	g.AddEdgeWithMeta("users", "messages", "recipient_id", "id")

	if got := g.GetChildren("users"); !reflect.DeepEqual(got, []string{"messages"}) {
		t.Errorf("GetChildren = %v, expected a single edge", got)
	}
	if in := g.CalculateInDegrees()["messages"]; in != 1 {
		t.Errorf("in-degree of messages = %d, expected 1", in)
	}

	meta := g.GetEdgeMeta("users", "messages")
	if meta == nil || len(meta.ForeignKeys) != 2 {
		t.Fatalf("Expected two foreign keys on the edge, got %+v", meta)
	}
	if meta.ForeignKeys[1].Column != "recipient_id" {
		t.Errorf("second FK column = %q, expected recipient_id", meta.ForeignKeys[1].Column)
	}
	if g.GetEdgeMeta("messages", "users") != nil {
		t.Error("reverse edge should not exist")
	}
}

func TestParentsAndChildren(t *testing.T) {
	g := NewGraph()
	for _, n := range []string{"customers", "orders", "order_items", "products"} {
		g.AddNode(n)
	}
	g.AddEdge("customers", "orders")
	g.AddEdge("orders", "order_items")
	g.AddEdge("products", "order_items")

	if got := g.GetChildren("order_items"); len(got) != 0 {
		t.Errorf("order_items should have no children, got %v", got)
	}
	if got := g.GetParents("order_items"); !reflect.DeepEqual(got, []string{"orders", "products"}) {
		t.Errorf("GetParents = %v", got)
	}
	if got := g.GetChildren("customers"); !reflect.DeepEqual(got, []string{"orders"}) {
		t.Errorf("GetChildren = %v", got)
	}
}
