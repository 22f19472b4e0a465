package cycles

import (
	"sort"

	"github.com/ritzau/gene2go-expander/pkg/graph"
)

// TermCycle is a set of terms that are each other's ancestors, which only
// happens with malformed is_a data.
type TermCycle struct {
	Terms []string // sorted
}

// FindTermCycles finds all is_a cycles in the term graph
func FindTermCycles(tg *graph.TermGraph) []TermCycle {
	tarjan := NewTarjanSCC(tg.Graph())
	sccs := tarjan.FindSCCs()

	cycles := make([]TermCycle, 0)
	for _, scc := range sccs {
		if len(scc) < 2 {
			continue
		}

		terms := make([]string, 0, len(scc))
		for _, nodeID := range scc {
			terms = append(terms, tg.TermOf(nodeID))
		}
		sort.Strings(terms)

		cycles = append(cycles, TermCycle{Terms: terms})
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Terms[0] < cycles[j].Terms[0]
	})
	return cycles
}
