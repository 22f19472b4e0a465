package graph

import (
	"sort"

	"github.com/ritzau/gene2go-expander/pkg/ontology"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// TermGraph is the is_a hierarchy as a directed graph with edges pointing
// from a parent term to its direct children.
type TermGraph struct {
	graph *simple.DirectedGraph
	ids   map[string]int64 // term id -> graph node id
	terms []string         // graph node id -> term id
}

// NewTermGraph creates an empty term graph
func NewTermGraph() *TermGraph {
	return &TermGraph{
		graph: simple.NewDirectedGraph(),
		ids:   make(map[string]int64),
	}
}

// AddTerm adds a term node if it is not already present
func (tg *TermGraph) AddTerm(id string) int64 {
	if nid, exists := tg.ids[id]; exists {
		return nid
	}

	nid := int64(len(tg.terms))
	tg.ids[id] = nid
	tg.terms = append(tg.terms, id)
	tg.graph.AddNode(simple.Node(nid))

	return nid
}

// AddIsA records that child is_a parent. Self edges are ignored.
func (tg *TermGraph) AddIsA(child, parent string) {
	if child == parent {
		tg.AddTerm(child)
		return
	}

	from := tg.AddTerm(parent)
	to := tg.AddTerm(child)
	if !tg.graph.HasEdgeFromTo(from, to) {
		tg.graph.SetEdge(tg.graph.NewEdge(simple.Node(from), simple.Node(to)))
	}
}

// ID returns the graph node id of a term
func (tg *TermGraph) ID(term string) (int64, bool) {
	nid, ok := tg.ids[term]
	return nid, ok
}

// TermOf returns the term id of a graph node
func (tg *TermGraph) TermOf(nid int64) string {
	if nid < 0 || nid >= int64(len(tg.terms)) {
		return ""
	}
	return tg.terms[nid]
}

// Graph returns the underlying directed graph
func (tg *TermGraph) Graph() graph.Directed {
	return tg.graph
}

// Len returns the number of terms
func (tg *TermGraph) Len() int {
	return len(tg.terms)
}

// Terms returns all term ids in insertion order
func (tg *TermGraph) Terms() []string {
	out := make([]string, len(tg.terms))
	copy(out, tg.terms)
	return out
}

// Children returns the direct children of a term, sorted
func (tg *TermGraph) Children(term string) []string {
	nid, ok := tg.ids[term]
	if !ok {
		return nil
	}
	return tg.sortedTerms(tg.graph.From(nid))
}

// Parents returns the direct parents of a term, sorted
func (tg *TermGraph) Parents(term string) []string {
	nid, ok := tg.ids[term]
	if !ok {
		return nil
	}
	return tg.sortedTerms(tg.graph.To(nid))
}

// Edges returns all is_a edges as [parent, child] pairs
func (tg *TermGraph) Edges() [][2]string {
	var edges [][2]string

	iter := tg.graph.Edges()
	for iter.Next() {
		e := iter.Edge()
		edges = append(edges, [2]string{tg.terms[e.From().ID()], tg.terms[e.To().ID()]})
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

func (tg *TermGraph) sortedTerms(nodes graph.Nodes) []string {
	var out []string
	for nodes.Next() {
		out = append(out, tg.terms[nodes.Node().ID()])
	}
	sort.Strings(out)
	return out
}

// BuildTermGraph builds the is_a graph for a loaded ontology. Terms are added
// in ontology order so node ids are stable across runs.
func BuildTermGraph(ont *ontology.Ontology) *TermGraph {
	tg := NewTermGraph()

	for _, id := range ont.Order {
		tg.AddTerm(id)
	}
	for _, id := range ont.Order {
		for _, parent := range ont.Terms[id].Parents {
			tg.AddIsA(id, parent)
		}
	}

	return tg
}
