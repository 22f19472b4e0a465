package cycles

import (
	"slices"

	"gonum.org/v1/gonum/graph"
)

// TarjanSCC finds all strongly connected components using Tarjan's algorithm.
// The walk is iterative so deep hierarchies cannot exhaust the call stack.
type TarjanSCC struct {
	graph   graph.Directed
	index   int
	stack   []int64
	onStack map[int64]bool
	indices map[int64]int
	lowLink map[int64]int
	sccs    [][]int64
}

// frame is one suspended visit of the explicit call stack.
type frame struct {
	node int64
	succ []int64
	next int
}

// NewTarjanSCC creates a new Tarjan SCC finder
func NewTarjanSCC(g graph.Directed) *TarjanSCC {
	return &TarjanSCC{
		graph:   g,
		stack:   make([]int64, 0),
		onStack: make(map[int64]bool),
		indices: make(map[int64]int),
		lowLink: make(map[int64]int),
		sccs:    make([][]int64, 0),
	}
}

// FindSCCs returns every strongly connected component, singletons included.
// Components come out in reverse topological order of the condensation: a
// component is emitted only after every component reachable from it.
func (t *TarjanSCC) FindSCCs() [][]int64 {
	for _, id := range sortedIDs(t.graph.Nodes()) {
		if _, visited := t.indices[id]; !visited {
			t.strongConnect(id)
		}
	}
	return t.sccs
}

func (t *TarjanSCC) visit(nodeID int64) frame {
	t.indices[nodeID] = t.index
	t.lowLink[nodeID] = t.index
	t.index++

	t.stack = append(t.stack, nodeID)
	t.onStack[nodeID] = true

	return frame{node: nodeID, succ: sortedIDs(t.graph.From(nodeID))}
}

func (t *TarjanSCC) strongConnect(root int64) {
	calls := []frame{t.visit(root)}

	for len(calls) > 0 {
		f := &calls[len(calls)-1]

		if f.next < len(f.succ) {
			w := f.succ[f.next]
			f.next++

			if _, visited := t.indices[w]; !visited {
				calls = append(calls, t.visit(w))
			} else if t.onStack[w] {
				t.lowLink[f.node] = min(t.lowLink[f.node], t.indices[w])
			}
			continue
		}

		// All successors done: f.node may be the root of a component
		v := f.node
		if t.lowLink[v] == t.indices[v] {
			scc := make([]int64, 0, 1)
			for {
				w := t.stack[len(t.stack)-1]
				t.stack = t.stack[:len(t.stack)-1]
				t.onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			t.sccs = append(t.sccs, scc)
		}

		calls = calls[:len(calls)-1]
		if len(calls) > 0 {
			parent := calls[len(calls)-1].node
			t.lowLink[parent] = min(t.lowLink[parent], t.lowLink[v])
		}
	}
}

func sortedIDs(nodes graph.Nodes) []int64 {
	ids := make([]int64, 0, max(nodes.Len(), 0))
	for nodes.Next() {
		ids = append(ids, nodes.Node().ID())
	}
	slices.Sort(ids)
	return ids
}
