package output

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/ritzau/gene2go-expander/pkg/closure"
	"github.com/ritzau/gene2go-expander/pkg/summary"
)

func TestWriteClosureTable(t *testing.T) {
	entries := []closure.Entry{
		{Term: "GO:A", Members: []string{"GO:A", "GO:B", "GO:C"}},
		{Term: "GO:C", Members: []string{"GO:C"}},
	}

	var buf bytes.Buffer
	if err := WriteClosureTable(&buf, entries); err != nil {
		t.Fatalf("WriteClosureTable() error = %v", err)
	}

	want := "go_id,related_goids\nGO:A,GO:A;GO:B;GO:C\nGO:C,GO:C\n"
	if buf.String() != want {
		t.Errorf("WriteClosureTable() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteSummaryTable(t *testing.T) {
	summaries := []summary.GeneSummary{
		{TaxID: 9606, GeneID: "1", GOIDs: "GO:A;GO:B", Evidence: "EXP", GOTerms: "alpha;beta", Category: "Process"},
	}

	var buf bytes.Buffer
	if err := WriteSummaryTable(&buf, summaries); err != nil {
		t.Fatalf("WriteSummaryTable() error = %v", err)
	}

	want := "#tax_id,GeneID,GO_ID,Evidence,Qualifier,GO_term,PubMed,Category\n" +
		"9606,1,GO:A;GO:B,EXP,,alpha;beta,,Process\n"
	if buf.String() != want {
		t.Errorf("WriteSummaryTable() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func textArtifact(name, text string) Artifact {
	return Artifact{Name: name, Write: func(w io.Writer) error {
		_, err := io.WriteString(w, text)
		return err
	}}
}

func TestWriteArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := WriteArtifacts(dir, []Artifact{textArtifact("a.csv", "a\n"), textArtifact("b.csv", "b\n")})
	if err != nil {
		t.Fatalf("WriteArtifacts() error = %v", err)
	}
	if len(paths) != 2 || paths[1] != filepath.Join(dir, "b.csv") {
		t.Fatalf("paths = %v", paths)
	}

	for i, want := range []string{"a\n", "b\n"} {
		data, err := os.ReadFile(paths[i])
		if err != nil || string(data) != want {
			t.Errorf("%s = %q, %v", paths[i], data, err)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("output dir has %d entries, want only the two tables", len(entries))
	}
}

func TestWriteArtifacts_FailureKeepsPreviousTables(t *testing.T) {
	dir := t.TempDir()
	if _, err := WriteArtifacts(dir, []Artifact{textArtifact("a.csv", "old a\n"), textArtifact("b.csv", "old b\n")}); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	_, err := WriteArtifacts(dir, []Artifact{
		textArtifact("a.csv", "new a\n"),
		{Name: "b.csv", Write: func(w io.Writer) error { return boom }},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WriteArtifacts() error = %v, want %v", err, boom)
	}

	for name, want := range map[string]string{"a.csv": "old a\n", "b.csv": "old b\n"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil || string(data) != want {
			t.Errorf("%s = %q, %v, want %q", name, data, err, want)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("failed write left %d entries, want the two previous tables", len(entries))
	}
}

func TestPrintRunReport(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	PrintRunReport(&buf, Report{
		OBO:         "go.obo",
		Annotations: "gene2go",
		Terms:       3,
		Edges:       2,
		Cycles:      [][]string{{"GO:B", "GO:C"}},
		MaxChildNum: 10,
		Closures:    3,
		Kept:        3,
		Expanded:    2,
		InputRows:   1,
		Prefiltered: 1,
		Appended:    2,
		Genes:       1,
		Artifacts:   []string{"out/gene2go_expanded.csv"},
		Duration:    1500 * time.Millisecond,
	})

	out := buf.String()
	for _, want := range []string{
		"go.obo (3 terms, 2 is_a edges)",
		"CYCLES: 1",
		"Rows: 1 read, 1 after prefilter, 2 propagated",
		"wrote out/gene2go_expanded.csv",
		"Done in 1.5s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
