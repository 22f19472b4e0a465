// Package sqlite exports pipeline results to a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/ritzau/gene2go-expander/pkg/annotation"
	"github.com/ritzau/gene2go-expander/pkg/closure"
	"github.com/ritzau/gene2go-expander/pkg/summary"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id        TEXT PRIMARY KEY,
		started_at    TEXT NOT NULL,
		duration_ms   INTEGER NOT NULL,
		obo           TEXT NOT NULL,
		gene2go       TEXT NOT NULL,
		max_child_num INTEGER NOT NULL,
		closures      INTEGER NOT NULL,
		annotations   INTEGER NOT NULL,
		appended      INTEGER NOT NULL,
		genes         INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS closures (
		go_id         TEXT PRIMARY KEY,
		related_goids TEXT NOT NULL,
		size          INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS annotations (
		row_num    INTEGER PRIMARY KEY,
		tax_id     INTEGER NOT NULL,
		gene_id    TEXT NOT NULL,
		go_id      TEXT NOT NULL,
		evidence   TEXT NOT NULL,
		qualifier  TEXT NOT NULL,
		go_term    TEXT NOT NULL,
		pubmed     TEXT NOT NULL,
		category   TEXT NOT NULL,
		propagated INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS annotations_gene ON annotations(tax_id, gene_id)`,
	`CREATE TABLE IF NOT EXISTS gene_summaries (
		tax_id    INTEGER NOT NULL,
		gene_id   TEXT NOT NULL,
		go_ids    TEXT NOT NULL,
		evidence  TEXT NOT NULL,
		qualifier TEXT NOT NULL,
		go_terms  TEXT NOT NULL,
		pubmed    TEXT NOT NULL,
		category  TEXT NOT NULL,
		PRIMARY KEY (tax_id, gene_id)
	)`,
}

// Snapshot is everything one run exports.
type Snapshot struct {
	RunID       string
	StartedAt   time.Time
	Duration    time.Duration
	OBO         string
	Gene2Go     string
	MaxChildNum int
	Entries     []closure.Entry
	Expanded    annotation.Table
	Appended    int // trailing rows of Expanded that were propagated
	Summaries   []summary.GeneSummary
}

// Run is a row of the runs table.
type Run struct {
	RunID       string
	StartedAt   time.Time
	Duration    time.Duration
	MaxChildNum int
	Closures    int
	Annotations int
	Appended    int
	Genes       int
}

// Store writes snapshots to a SQLite file. The data tables hold the latest
// run; the runs table keeps every run.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens or creates the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "gene2go.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db, path: path}, nil
}

// SaveRun replaces the data tables with snap and records the run, in one
// transaction.
func (s *Store) SaveRun(ctx context.Context, snap Snapshot) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"closures", "annotations", "gene_summaries"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertClosures(ctx, tx, snap.Entries); err != nil {
		return err
	}
	if err := insertAnnotations(ctx, tx, snap.Expanded, snap.Appended); err != nil {
		return err
	}
	if err := insertSummaries(ctx, tx, snap.Summaries); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO runs(run_id,started_at,duration_ms,obo,gene2go,max_child_num,closures,annotations,appended,genes)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		snap.RunID, snap.StartedAt.UTC().Format(time.RFC3339Nano), snap.Duration.Milliseconds(),
		snap.OBO, snap.Gene2Go, snap.MaxChildNum,
		len(snap.Entries), snap.Expanded.Len(), snap.Appended, len(snap.Summaries)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertClosures(ctx context.Context, tx *sql.Tx, entries []closure.Entry) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO closures(go_id,related_goids,size) VALUES(?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare closures: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Term, strings.Join(e.Members, summary.Separator), len(e.Members)); err != nil {
			return fmt.Errorf("insert closure %s: %w", e.Term, err)
		}
	}
	return nil
}

func insertAnnotations(ctx context.Context, tx *sql.Tx, tbl annotation.Table, appended int) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO annotations(row_num,tax_id,gene_id,go_id,evidence,qualifier,go_term,pubmed,category,propagated)
		VALUES(?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare annotations: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	firstAppended := tbl.Len() - appended
	for i, r := range tbl.Records {
		propagated := 0
		if i >= firstAppended {
			propagated = 1
		}
		if _, err := stmt.ExecContext(ctx, i+1, r.TaxID, r.GeneID, r.GOID, r.Evidence, r.Qualifier, r.GOTerm, r.PubMed, r.Category, propagated); err != nil {
			return fmt.Errorf("insert annotation row %d: %w", i+1, err)
		}
	}
	return nil
}

func insertSummaries(ctx context.Context, tx *sql.Tx, summaries []summary.GeneSummary) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO gene_summaries(tax_id,gene_id,go_ids,evidence,qualifier,go_terms,pubmed,category)
		VALUES(?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare gene_summaries: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, g := range summaries {
		if _, err := stmt.ExecContext(ctx, g.TaxID, g.GeneID, g.GOIDs, g.Evidence, g.Qualifier, g.GOTerms, g.PubMed, g.Category); err != nil {
			return fmt.Errorf("insert summary %d/%s: %w", g.TaxID, g.GeneID, err)
		}
	}
	return nil
}

// Runs lists the recorded runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id,started_at,duration_ms,max_child_num,closures,annotations,appended,genes
		FROM runs ORDER BY started_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			started string
			ms      int64
		)
		if err := rows.Scan(&r.RunID, &started, &ms, &r.MaxChildNum, &r.Closures, &r.Annotations, &r.Appended, &r.Genes); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Count returns the number of rows in one of the exported tables.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	switch table {
	case "runs", "closures", "annotations", "gene_summaries":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// GeneSummary looks up the exported summary of one gene.
func (s *Store) GeneSummary(ctx context.Context, taxID int, geneID string) (summary.GeneSummary, bool, error) {
	g := summary.GeneSummary{TaxID: taxID, GeneID: geneID}
	err := s.db.QueryRowContext(ctx, `SELECT go_ids,evidence,qualifier,go_terms,pubmed,category
		FROM gene_summaries WHERE tax_id = ? AND gene_id = ?`, taxID, geneID).
		Scan(&g.GOIDs, &g.Evidence, &g.Qualifier, &g.GOTerms, &g.PubMed, &g.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return summary.GeneSummary{}, false, nil
	}
	if err != nil {
		return summary.GeneSummary{}, false, fmt.Errorf("select gene summary: %w", err)
	}
	return g, true, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
