// Package metrics exposes pipeline run metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage names used as the "stage" label.
const (
	StageParse     = "parse"
	StageGraph     = "graph"
	StageClosure   = "closure"
	StageFilter    = "filter"
	StageRead      = "read"
	StagePrefilter = "prefilter"
	StageExpand    = "expand"
	StageAggregate = "aggregate"
	StageWrite     = "write"
	StageExport    = "export"
)

// Table names used as the "table" label.
const (
	TableInput       = "input"
	TablePrefiltered = "prefiltered"
	TableExpanded    = "expanded"
	TableAppended    = "appended"
	TableSummary     = "summary"
)

var (
	// runsTotal counts finished runs by result
	// Labels: "success", "error"
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gene2go_runs_total",
		Help: "Total pipeline runs by result",
	}, []string{"result"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gene2go_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60},
	}, []string{"stage"})

	tableRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gene2go_table_rows",
		Help: "Row count of each table in the last run",
	}, []string{"table"})

	ontologyTerms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gene2go_ontology_terms",
		Help: "Terms in the loaded ontology",
	})

	ontologyCycles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gene2go_ontology_cycles",
		Help: "is_a cycles found in the loaded ontology",
	})

	closuresKept = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gene2go_closures_kept",
		Help: "Closures below max-child-num in the last run",
	})
)

// ObserveStage records how long a stage took.
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RunFinished counts a run as a success or an error.
func RunFinished(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	runsTotal.WithLabelValues(result).Inc()
}

// SetRows records the size of a table.
func SetRows(table string, n int) {
	tableRows.WithLabelValues(table).Set(float64(n))
}

// SetOntology records the size of the loaded ontology.
func SetOntology(terms, cycles int) {
	ontologyTerms.Set(float64(terms))
	ontologyCycles.Set(float64(cycles))
}

// SetClosuresKept records how many closures passed the filter.
func SetClosuresKept(n int) {
	closuresKept.Set(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
