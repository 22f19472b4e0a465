package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ritzau/gene2go-expander/pkg/annotation"
	"github.com/ritzau/gene2go-expander/pkg/closure"
	"github.com/ritzau/gene2go-expander/pkg/summary"
)

func snapshot(runID string, started time.Time) Snapshot {
	expanded := annotation.Table{Records: []annotation.Record{
		{TaxID: 9606, GeneID: "1", GOID: "GO:C", Evidence: "EXP"},
		{TaxID: 9606, GeneID: "1", GOID: "GO:B", Evidence: "EXP"},
		{TaxID: 9606, GeneID: "1", GOID: "GO:A", Evidence: "EXP"},
	}}
	return Snapshot{
		RunID:       runID,
		StartedAt:   started,
		Duration:    1500 * time.Millisecond,
		OBO:         "go.obo",
		Gene2Go:     "gene2go",
		MaxChildNum: 10,
		Entries: []closure.Entry{
			{Term: "GO:A", Members: []string{"GO:A", "GO:B", "GO:C"}},
			{Term: "GO:B", Members: []string{"GO:B", "GO:C"}},
			{Term: "GO:C", Members: []string{"GO:C"}},
		},
		Expanded:  expanded,
		Appended:  2,
		Summaries: summary.Aggregate(expanded),
	}
}

func TestStoreSaveRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.db")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := store.SaveRun(ctx, snapshot("run-1", start)); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file missing: %v", err)
	}

	want := map[string]int{"runs": 1, "closures": 3, "annotations": 3, "gene_summaries": 1}
	for table, n := range want {
		got, err := store.Count(ctx, table)
		if err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if got != n {
			t.Errorf("%s has %d rows, want %d", table, got, n)
		}
	}

	var propagated int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM annotations WHERE propagated = 1`).Scan(&propagated); err != nil {
		t.Fatal(err)
	}
	if propagated != 2 {
		t.Errorf("propagated rows = %d, want 2", propagated)
	}

	g, ok, err := store.GeneSummary(ctx, 9606, "1")
	if err != nil || !ok {
		t.Fatalf("gene summary: %v, found=%v", err, ok)
	}
	if g.GOIDs != "GO:A;GO:B;GO:C" {
		t.Errorf("GOIDs = %q", g.GOIDs)
	}
	if _, ok, _ := store.GeneSummary(ctx, 10090, "1"); ok {
		t.Error("unexpected summary for another organism")
	}
}

func TestStoreReplacesDataKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}

	ctx := context.Background()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := store.SaveRun(ctx, snapshot("run-1", start)); err != nil {
		t.Fatalf("save run 1: %v", err)
	}
	if err := store.SaveRun(ctx, snapshot("run-2", start.Add(time.Minute))); err != nil {
		t.Fatalf("save run 2: %v", err)
	}
	_ = store.Close()

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen sqlite store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if n, _ := reopened.Count(ctx, "annotations"); n != 3 {
		t.Errorf("annotations = %d after two runs, want 3", n)
	}

	runs, err := reopened.Runs(ctx)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-1" || runs[1].RunID != "run-2" {
		t.Fatalf("runs = %+v", runs)
	}
	if runs[1].Duration != 1500*time.Millisecond || runs[1].Appended != 2 || runs[1].Genes != 1 {
		t.Errorf("run 2 = %+v", runs[1])
	}
	if !runs[0].StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", runs[0].StartedAt, start)
	}
	if reopened.Path() != path {
		t.Errorf("Path() = %s, want %s", reopened.Path(), path)
	}
}

func TestStoreDuplicateRunRollsBack(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	snap := snapshot("run-1", time.Now())
	if err := store.SaveRun(ctx, snap); err != nil {
		t.Fatalf("save run: %v", err)
	}

	snap.Entries = snap.Entries[:1]
	if err := store.SaveRun(ctx, snap); err == nil {
		t.Fatal("saving the same run id twice should fail")
	}
	if n, _ := store.Count(ctx, "closures"); n != 3 {
		t.Errorf("closures = %d after a failed save, want the previous 3", n)
	}
}

func TestStoreCountUnknownTable(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	defer func() { _ = store.Close() }()

	if _, err := store.Count(context.Background(), "sqlite_master; DROP TABLE runs"); err == nil {
		t.Error("Count() accepted an unknown table")
	}
}
