package graph

import (
	"testing"

	"github.com/ritzau/gene2go-expander/pkg/ontology"
)

func TestNewTermGraph(t *testing.T) {
	tg := NewTermGraph()
	if tg == nil {
		t.Fatal("NewTermGraph() returned nil")
	}

	if tg.Len() != 0 {
		t.Errorf("New graph should have 0 terms, got %d", tg.Len())
	}
}

func TestAddTerm(t *testing.T) {
	tg := NewTermGraph()

	first := tg.AddTerm("GO:0008150")
	again := tg.AddTerm("GO:0008150")

	if first != again {
		t.Errorf("AddTerm should be idempotent, got ids %d and %d", first, again)
	}
	if tg.Len() != 1 {
		t.Errorf("Expected 1 term, got %d", tg.Len())
	}
	if tg.TermOf(first) != "GO:0008150" {
		t.Errorf("TermOf(%d) = %q", first, tg.TermOf(first))
	}
	if tg.TermOf(99) != "" {
		t.Error("TermOf unknown id should be empty")
	}
}

func TestAddIsA(t *testing.T) {
	tg := NewTermGraph()

	tg.AddIsA("GO:B", "GO:A")
	tg.AddIsA("GO:B", "GO:A")
	tg.AddIsA("GO:C", "GO:C")

	edges := tg.Edges()
	if len(edges) != 1 {
		t.Fatalf("Expected 1 edge, got %d: %v", len(edges), edges)
	}
	if edges[0] != [2]string{"GO:A", "GO:B"} {
		t.Errorf("Expected edge GO:A->GO:B, got %v", edges[0])
	}
	if tg.Len() != 3 {
		t.Errorf("Self edge should still add the term, got %d terms", tg.Len())
	}
}

func TestChildrenAndParents(t *testing.T) {
	tg := NewTermGraph()

	tg.AddIsA("GO:C", "GO:A")
	tg.AddIsA("GO:B", "GO:A")
	tg.AddIsA("GO:C", "GO:B")

	children := tg.Children("GO:A")
	if len(children) != 2 || children[0] != "GO:B" || children[1] != "GO:C" {
		t.Errorf("Children(GO:A) = %v", children)
	}

	parents := tg.Parents("GO:C")
	if len(parents) != 2 || parents[0] != "GO:A" || parents[1] != "GO:B" {
		t.Errorf("Parents(GO:C) = %v", parents)
	}

	if tg.Children("GO:missing") != nil {
		t.Error("Children of unknown term should be nil")
	}
}

func TestBuildTermGraph(t *testing.T) {
	ont, err := ontology.Load([]ontology.TermDef{
		{ID: "GO:A", Name: "root"},
		{ID: "GO:B", Name: "mid", IsA: []string{"GO:A"}},
		{ID: "GO:C", Name: "leaf", IsA: []string{"GO:B", "GO:X"}},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tg := BuildTermGraph(ont)

	if tg.Len() != 4 {
		t.Errorf("Expected 4 terms (incl. implicit GO:X), got %d", tg.Len())
	}
	if id, _ := tg.ID("GO:A"); id != 0 {
		t.Errorf("Terms should be added in ontology order, GO:A has id %d", id)
	}
	if len(tg.Edges()) != 3 {
		t.Errorf("Expected 3 edges, got %v", tg.Edges())
	}
}
