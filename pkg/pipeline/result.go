package pipeline

import (
	"io"
	"time"

	"github.com/ritzau/gene2go-expander/pkg/annotation"
	"github.com/ritzau/gene2go-expander/pkg/closure"
	"github.com/ritzau/gene2go-expander/pkg/cycles"
	"github.com/ritzau/gene2go-expander/pkg/expand"
	"github.com/ritzau/gene2go-expander/pkg/graph"
	"github.com/ritzau/gene2go-expander/pkg/ontology"
	"github.com/ritzau/gene2go-expander/pkg/output"
	"github.com/ritzau/gene2go-expander/pkg/summary"
)

// Stats counts what each stage produced.
type Stats struct {
	Terms           int          `json:"terms"`
	Edges           int          `json:"edges"`
	Cycles          int          `json:"cycles"`
	Closures        int          `json:"closures"`
	Kept            int          `json:"kept"`
	InputRows       int          `json:"input_rows"`
	PrefilteredRows int          `json:"prefiltered_rows"`
	ExpandedRows    int          `json:"expanded_rows"`
	Expansion       expand.Stats `json:"expansion"`
	Genes           int          `json:"genes"`
}

// Result is a completed run. It is not modified after Run returns.
type Result struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	// OntologyCached is set when the ontology was reused from the previous run.
	OntologyCached bool

	Ontology *ontology.Ontology
	Graph    *graph.TermGraph
	Closure  closure.Closure
	Cycles   []cycles.TermCycle
	Entries  []closure.Entry

	Prefiltered annotation.Table
	Expanded    annotation.Table
	Summaries   []summary.GeneSummary

	Stats     Stats
	Artifacts []string
}

// Appended returns the rows added by expansion.
func (r *Result) Appended() []annotation.Record {
	return r.Expanded.Records[r.Expanded.Len()-r.Stats.Expansion.Appended:]
}

// Report converts the result for console output.
func (r *Result) Report(obo, annotations string, maxChildNum int) output.Report {
	cyc := make([][]string, 0, len(r.Cycles))
	for _, c := range r.Cycles {
		cyc = append(cyc, c.Terms)
	}
	return output.Report{
		RunID:       r.RunID,
		OBO:         obo,
		Annotations: annotations,
		Terms:       r.Stats.Terms,
		Edges:       r.Stats.Edges,
		Cycles:      cyc,
		MaxChildNum: maxChildNum,
		Closures:    r.Stats.Closures,
		Kept:        r.Stats.Kept,
		Expanded:    r.Stats.Expansion.Expanded,
		Capped:      r.Stats.Expansion.Capped,
		InputRows:   r.Stats.InputRows,
		Prefiltered: r.Stats.PrefilteredRows,
		Appended:    r.Stats.Expansion.Appended,
		Genes:       r.Stats.Genes,
		Artifacts:   r.Artifacts,
		Duration:    r.Duration,
	}
}

// artifacts lists the output tables of res in the order they are written.
func artifacts(res *Result) []output.Artifact {
	return []output.Artifact{
		{Name: output.ClosureFile, Write: func(w io.Writer) error { return output.WriteClosureTable(w, res.Entries) }},
		{Name: output.ExpandedFile, Write: func(w io.Writer) error { return annotation.Write(w, res.Expanded) }},
		{Name: output.SummaryFile, Write: func(w io.Writer) error { return output.WriteSummaryTable(w, res.Summaries) }},
	}
}
