// Package pipeline runs the expansion from input files to output tables.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ritzau/gene2go-expander/pkg/annotation"
	"github.com/ritzau/gene2go-expander/pkg/closure"
	"github.com/ritzau/gene2go-expander/pkg/config"
	"github.com/ritzau/gene2go-expander/pkg/cycles"
	"github.com/ritzau/gene2go-expander/pkg/expand"
	"github.com/ritzau/gene2go-expander/pkg/graph"
	"github.com/ritzau/gene2go-expander/pkg/logging"
	"github.com/ritzau/gene2go-expander/pkg/metrics"
	"github.com/ritzau/gene2go-expander/pkg/ontology"
	"github.com/ritzau/gene2go-expander/pkg/output"
	"github.com/ritzau/gene2go-expander/pkg/pubsub"
	"github.com/ritzau/gene2go-expander/pkg/store/sqlite"
	"github.com/ritzau/gene2go-expander/pkg/summary"
)

const totalSteps = 5

// Notifier receives run status updates.
type Notifier interface {
	PublishRunStatus(status pubsub.RunStatus) error
}

// Options configures a single run.
type Options struct {
	Reason string // e.g., "initial run", "gene2go changed"

	// ReloadOntology forces the ontology to be parsed again even when the
	// cached copy looks current.
	ReloadOntology bool
}

// Runner orchestrates the pipeline
type Runner struct {
	cfg      *config.Config
	criteria annotation.Criteria
	comma    rune
	notifier Notifier
	store    *sqlite.Store

	mu    sync.Mutex // Prevent concurrent runs
	cache *ontologyCache
}

// ontologyCache keeps the parsed ontology and its closure between runs.
type ontologyCache struct {
	path    string
	modTime time.Time
	size    int64

	ont     *ontology.Ontology
	graph   *graph.TermGraph
	closure closure.Closure
	cycles  []cycles.TermCycle
}

// NewRunner creates a runner for cfg. The config must already be valid.
// notifier and store may be nil.
func NewRunner(cfg *config.Config, notifier Notifier, store *sqlite.Store) (*Runner, error) {
	criteria, err := cfg.Criteria()
	if err != nil {
		return nil, err
	}
	comma, err := cfg.Comma()
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:      cfg,
		criteria: criteria,
		comma:    comma,
		notifier: notifier,
		store:    store,
	}, nil
}

// Run executes every stage and writes the output tables.
func (r *Runner) Run(ctx context.Context, opts Options) (_ *Result, err error) {
	// Lock to prevent concurrent runs
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &Result{RunID: uuid.NewString(), StartedAt: time.Now()}
	ctx = logging.WithRunID(ctx, res.RunID)

	reason := opts.Reason
	if reason == "" {
		reason = "run"
	}
	logging.InfoContext(ctx, "starting run", "reason", reason)

	defer func() {
		metrics.RunFinished(err)
		if err != nil {
			logging.ErrorContext(ctx, "run failed", "error", err)
			r.publish(ctx, pubsub.RunStatus{
				RunID:   res.RunID,
				State:   pubsub.StateFailed,
				Message: err.Error(),
				Total:   totalSteps,
			})
		}
	}()

	if err := r.loadOntology(ctx, res, opts.ReloadOntology); err != nil {
		return nil, err
	}
	if err := r.filterClosures(ctx, res); err != nil {
		return nil, err
	}
	if err := r.readAnnotations(ctx, res); err != nil {
		return nil, err
	}
	if err := r.expand(ctx, res); err != nil {
		return nil, err
	}
	if err := r.write(ctx, res); err != nil {
		return nil, err
	}

	res.Duration = time.Since(res.StartedAt)
	r.publish(ctx, pubsub.RunStatus{
		RunID:      res.RunID,
		State:      pubsub.StateReady,
		Message:    "Run complete",
		Step:       totalSteps,
		Total:      totalSteps,
		Terms:      res.Stats.Terms,
		Closures:   res.Stats.Kept,
		Rows:       res.Stats.ExpandedRows,
		Appended:   res.Stats.Expansion.Appended,
		Genes:      res.Stats.Genes,
		DurationMs: res.Duration.Milliseconds(),
	})
	logging.InfoContext(ctx, "run complete",
		"reason", reason,
		"rows", res.Stats.ExpandedRows,
		"appended", res.Stats.Expansion.Appended,
		"genes", res.Stats.Genes,
		"durationMs", res.Duration.Milliseconds())

	return res, nil
}

// stage announces a step, checks for cancellation and times fn.
func (r *Runner) stage(ctx context.Context, res *Result, step int, state, message, metric string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled before %s: %w", metric, err)
	}

	r.publish(ctx, pubsub.RunStatus{
		RunID:   res.RunID,
		State:   state,
		Message: message,
		Step:    step,
		Total:   totalSteps,
	})
	logging.DebugContext(ctx, message, "step", step, "total", totalSteps)

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	metrics.ObserveStage(metric, elapsed)
	logging.DebugContext(ctx, "stage done", "stage", metric, "durationMs", elapsed.Milliseconds())
	return err
}

func (r *Runner) publish(ctx context.Context, status pubsub.RunStatus) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.PublishRunStatus(status); err != nil {
		logging.WarnContext(ctx, "could not publish run status", "state", status.State, "error", err)
	}
}

func (r *Runner) loadOntology(ctx context.Context, res *Result, reload bool) error {
	return r.stage(ctx, res, 1, pubsub.StateParsing, "Parsing ontology...", metrics.StageParse, func() error {
		info, err := os.Stat(r.cfg.OBO)
		if err != nil {
			return fmt.Errorf("ontology: %w", err)
		}

		c := r.cache
		if reload || c == nil || c.path != r.cfg.OBO || !c.modTime.Equal(info.ModTime()) || c.size != info.Size() {
			c, err = buildOntology(ctx, r.cfg.OBO)
			if err != nil {
				return err
			}
			c.modTime, c.size = info.ModTime(), info.Size()
			r.cache = c
		} else {
			res.OntologyCached = true
			logging.InfoContext(ctx, "reusing parsed ontology", "path", c.path, "terms", c.ont.Len())
		}

		res.Ontology = c.ont
		res.Graph = c.graph
		res.Closure = c.closure
		res.Cycles = c.cycles
		res.Stats.Terms = c.ont.Len()
		res.Stats.Edges = c.ont.EdgeCount()
		res.Stats.Cycles = len(c.cycles)
		metrics.SetOntology(c.ont.Len(), len(c.cycles))

		for _, cyc := range c.cycles {
			logging.WarnContext(ctx, "is_a cycle in ontology", "terms", cyc.Terms)
		}
		return nil
	})
}

func buildOntology(ctx context.Context, path string) (*ontologyCache, error) {
	start := time.Now()
	doc, err := ontology.ParseOBOFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing ontology: %w", err)
	}
	ont, err := ontology.LoadDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("loading ontology: %w", err)
	}
	logging.InfoContext(ctx, "loaded ontology",
		"path", path,
		"version", ont.DataVersion,
		"terms", ont.Len(),
		"edges", ont.EdgeCount(),
		"durationMs", time.Since(start).Milliseconds())

	tg := graph.BuildTermGraph(ont)

	graphStart := time.Now()
	cyc := cycles.FindTermCycles(tg)
	metrics.ObserveStage(metrics.StageGraph, time.Since(graphStart))

	closureStart := time.Now()
	c := closure.Compute(tg)
	metrics.ObserveStage(metrics.StageClosure, time.Since(closureStart))
	logging.InfoContext(ctx, "computed descendant closures",
		"terms", len(c),
		"durationMs", time.Since(closureStart).Milliseconds())

	return &ontologyCache{path: path, ont: ont, graph: tg, closure: c, cycles: cyc}, nil
}

func (r *Runner) filterClosures(ctx context.Context, res *Result) error {
	return r.stage(ctx, res, 2, pubsub.StateClosure, "Filtering closures...", metrics.StageFilter, func() error {
		res.Entries = closure.Filter(res.Closure, res.Ontology.Order, r.cfg.MaxChildNum)
		res.Stats.Closures = len(res.Closure)
		res.Stats.Kept = len(res.Entries)
		metrics.SetClosuresKept(len(res.Entries))

		logging.InfoContext(ctx, "filtered closures",
			"maxChildNum", r.cfg.MaxChildNum,
			"kept", len(res.Entries),
			"dropped", len(res.Closure)-len(res.Entries))
		if len(res.Entries) == 0 {
			logging.WarnContext(ctx, "no closure is below max-child-num", "maxChildNum", r.cfg.MaxChildNum)
		}
		return nil
	})
}

func (r *Runner) readAnnotations(ctx context.Context, res *Result) error {
	return r.stage(ctx, res, 3, pubsub.StateReading, "Reading annotations...", metrics.StageRead, func() error {
		tbl, err := annotation.ReadFile(r.cfg.Gene2Go, r.comma)
		if err != nil {
			return fmt.Errorf("reading annotations: %w", err)
		}
		res.Stats.InputRows = tbl.Len()
		metrics.SetRows(metrics.TableInput, tbl.Len())

		start := time.Now()
		res.Prefiltered = annotation.Prefilter(tbl, r.criteria)
		metrics.ObserveStage(metrics.StagePrefilter, time.Since(start))
		res.Stats.PrefilteredRows = res.Prefiltered.Len()
		metrics.SetRows(metrics.TablePrefiltered, res.Prefiltered.Len())

		logging.InfoContext(ctx, "read annotations",
			"path", r.cfg.Gene2Go,
			"rows", tbl.Len(),
			"kept", res.Prefiltered.Len())
		if res.Prefiltered.Len() == 0 {
			logging.WarnContext(ctx, "no annotation passed the prefilter", "rows", tbl.Len())
		}
		return nil
	})
}

func (r *Runner) expand(ctx context.Context, res *Result) error {
	return r.stage(ctx, res, 4, pubsub.StateExpanding, "Expanding annotations...", metrics.StageExpand, func() error {
		res.Expanded, res.Stats.Expansion = expand.Expand(res.Prefiltered, res.Entries, res.Ontology.Name,
			expand.Options{MaxTerms: r.cfg.MaxExpandTerms})
		res.Stats.ExpandedRows = res.Expanded.Len()
		metrics.SetRows(metrics.TableExpanded, res.Expanded.Len())
		metrics.SetRows(metrics.TableAppended, res.Stats.Expansion.Appended)

		logging.InfoContext(ctx, "expanded annotations",
			"expanded", res.Stats.Expansion.Expanded,
			"capped", res.Stats.Expansion.Capped,
			"appended", res.Stats.Expansion.Appended)
		if res.Stats.Expansion.Capped > 0 {
			logging.WarnContext(ctx, "max-expand-terms left closures unexpanded",
				"maxExpandTerms", r.cfg.MaxExpandTerms,
				"capped", res.Stats.Expansion.Capped)
		}

		start := time.Now()
		res.Summaries = summary.Aggregate(res.Expanded)
		metrics.ObserveStage(metrics.StageAggregate, time.Since(start))
		res.Stats.Genes = len(res.Summaries)
		metrics.SetRows(metrics.TableSummary, len(res.Summaries))

		logging.InfoContext(ctx, "aggregated genes", "genes", len(res.Summaries))
		return nil
	})
}

func (r *Runner) write(ctx context.Context, res *Result) error {
	return r.stage(ctx, res, 5, pubsub.StateWriting, "Writing results...", metrics.StageWrite, func() error {
		paths, err := output.WriteArtifacts(r.cfg.OutputDir, artifacts(res))
		if err != nil {
			return err
		}
		res.Artifacts = paths
		for _, a := range paths {
			logging.InfoContext(ctx, "wrote table", "path", a)
		}

		if r.store == nil {
			return nil
		}

		start := time.Now()
		err = r.store.SaveRun(ctx, sqlite.Snapshot{
			RunID:       res.RunID,
			StartedAt:   res.StartedAt,
			Duration:    time.Since(res.StartedAt),
			OBO:         r.cfg.OBO,
			Gene2Go:     r.cfg.Gene2Go,
			MaxChildNum: r.cfg.MaxChildNum,
			Entries:     res.Entries,
			Expanded:    res.Expanded,
			Appended:    res.Stats.Expansion.Appended,
			Summaries:   res.Summaries,
		})
		metrics.ObserveStage(metrics.StageExport, time.Since(start))
		if err != nil {
			return fmt.Errorf("exporting to sqlite: %w", err)
		}
		logging.InfoContext(ctx, "exported to sqlite", "path", r.store.Path())
		return nil
	})
}
