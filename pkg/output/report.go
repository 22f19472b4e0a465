package output

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// Report is what a finished run prints to the console.
type Report struct {
	RunID       string
	OBO         string
	Annotations string
	Terms       int
	Edges       int
	Cycles      [][]string
	MaxChildNum int
	Closures    int
	Kept        int
	Expanded    int
	Capped      int
	InputRows   int
	Prefiltered int
	Appended    int
	Genes       int
	Artifacts   []string
	Duration    time.Duration
}

// PrintRunReport prints a colored summary of a run
func PrintRunReport(w io.Writer, r Report) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, "Gene2GO Expander - Run Report")
	bold.Fprintln(w, "=============================")
	if r.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", r.RunID)
	}
	fmt.Fprintf(w, "Ontology: %s (%d terms, %d is_a edges)\n", r.OBO, r.Terms, r.Edges)
	fmt.Fprintf(w, "Annotations: %s\n", r.Annotations)
	fmt.Fprintln(w)

	if len(r.Cycles) > 0 {
		red.Fprintf(w, "CYCLES: %d is_a cycle(s) in the ontology\n", len(r.Cycles))
		for _, c := range r.Cycles {
			yellow.Fprintf(w, "  %v\n", c)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Closures: %d computed, %d below max-child-num %d\n", r.Closures, r.Kept, r.MaxChildNum)
	if r.Capped > 0 {
		yellow.Fprintf(w, "Expanded: %d closures (%d left out by max-expand-terms)\n", r.Expanded, r.Capped)
	} else {
		fmt.Fprintf(w, "Expanded: %d closures\n", r.Expanded)
	}

	rows := green
	if r.Prefiltered == 0 {
		rows = yellow
	}
	rows.Fprintf(w, "Rows: %d read, %d after prefilter, %d propagated\n", r.InputRows, r.Prefiltered, r.Appended)
	fmt.Fprintf(w, "Genes: %d\n", r.Genes)
	fmt.Fprintln(w)

	for _, a := range r.Artifacts {
		cyan.Fprintf(w, "  wrote %s\n", a)
	}
	green.Fprintf(w, "✓ Done in %s\n", r.Duration.Round(time.Millisecond))
}
