// Package expand propagates gene annotations from descendant terms up to
// their ancestors.
package expand

import (
	"github.com/ritzau/gene2go-expander/pkg/annotation"
	"github.com/ritzau/gene2go-expander/pkg/closure"
)

// Options controls an expansion pass.
type Options struct {
	// MaxTerms caps how many closures with at least one descendant are
	// expanded. Zero expands all of them.
	MaxTerms int
}

// Stats summarizes an expansion pass.
type Stats struct {
	Expanded int // closures propagated
	Leaves   int // closures with no descendant besides the term
	Capped   int // closures left out because of MaxTerms
	Appended int // rows added
}

// Expand copies the rows of each entry's descendants up to the entry's term,
// once per gene, for genes not already annotated with that term. The result
// holds every row of tbl followed by the new rows. names resolves the display
// name written into the GO_term column of new rows.
func Expand(tbl annotation.Table, entries []closure.Entry, names func(string) string, opts Options) (annotation.Table, Stats) {
	var stats Stats

	byTerm := tbl.TermIndex()
	var added []annotation.Record

	for _, e := range entries {
		descendants := e.Without()
		if len(descendants) == 0 {
			stats.Leaves++
			continue
		}
		if opts.MaxTerms > 0 && stats.Expanded >= opts.MaxTerms {
			stats.Capped++
			continue
		}
		stats.Expanded++

		existing := make(map[string]struct{}, len(byTerm[e.Term]))
		for _, i := range byTerm[e.Term] {
			existing[tbl.Records[i].GeneID] = struct{}{}
		}

		name := names(e.Term)
		for _, d := range descendants {
			for _, i := range byTerm[d] {
				r := tbl.Records[i]
				if _, ok := existing[r.GeneID]; ok {
					continue
				}
				r.GOID = e.Term
				r.GOTerm = name
				added = append(added, r)
				existing[r.GeneID] = struct{}{}
			}
		}
	}

	stats.Appended = len(added)

	b := annotation.NewBuilder(tbl.Len() + len(added))
	b.AppendTable(tbl)
	for _, r := range added {
		b.Append(r)
	}
	return b.Build(), stats
}
