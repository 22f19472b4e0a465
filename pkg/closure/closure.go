// Package closure computes, for every ontology term, the set of terms that
// descend from it through is_a edges, the term itself included.
package closure

import (
	"sort"

	"github.com/ritzau/gene2go-expander/pkg/cycles"
	"github.com/ritzau/gene2go-expander/pkg/graph"
	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// Closure maps a term id to its sorted descendant ids, the term included.
type Closure map[string][]string

// Size returns the number of terms in the closure of term, 0 if unknown.
func (c Closure) Size(term string) int {
	return len(c[term])
}

// Contains reports whether descendant is in the closure of term.
func (c Closure) Contains(term, descendant string) bool {
	members := c[term]
	i := sort.SearchStrings(members, descendant)
	return i < len(members) && members[i] == descendant
}

// Compute returns the descendant closure of every term in one pass.
//
// The graph is condensed into strongly connected components. Tarjan emits
// components children-first, so each component's closure is its own members
// plus the already computed closures of the components it points to. Members
// of a cycle all share the same closure.
func Compute(tg *graph.TermGraph) Closure {
	g := tg.Graph()
	sccs := cycles.NewTarjanSCC(g).FindSCCs()

	component := make(map[int64]int, tg.Len())
	for i, scc := range sccs {
		for _, nid := range scc {
			component[nid] = i
		}
	}

	sets := make([]map[int64]struct{}, len(sccs))
	for i, scc := range sccs {
		set := make(map[int64]struct{}, len(scc))
		for _, nid := range scc {
			set[nid] = struct{}{}
		}

		merged := make(map[int]bool)
		for _, nid := range scc {
			children := g.From(nid)
			for children.Next() {
				ci := component[children.Node().ID()]
				if ci == i || merged[ci] {
					continue
				}
				merged[ci] = true
				for d := range sets[ci] {
					set[d] = struct{}{}
				}
			}
		}
		sets[i] = set
	}

	out := make(Closure, tg.Len())
	for i, scc := range sccs {
		members := make([]string, 0, len(sets[i]))
		for nid := range sets[i] {
			members = append(members, tg.TermOf(nid))
		}
		sort.Strings(members)

		for _, nid := range scc {
			out[tg.TermOf(nid)] = members
		}
	}
	return out
}

// Descendants returns the sorted closure of a single term by walking child
// edges depth first. The walk keeps its own visited set, so cycles terminate.
// Unknown terms yield nil.
func Descendants(tg *graph.TermGraph, term string) []string {
	nid, ok := tg.ID(term)
	if !ok {
		return nil
	}

	var members []string
	df := traverse.DepthFirst{
		Visit: func(n gonum.Node) {
			members = append(members, tg.TermOf(n.ID()))
		},
	}
	df.Walk(tg.Graph(), simple.Node(nid), nil)

	sort.Strings(members)
	return members
}
